package server

import (
	"context"
	"log"
	"sync"

	"github.com/REDAOUZIDANE/esith-pfe-platform1/internal/database"
	"github.com/REDAOUZIDANE/esith-pfe-platform1/internal/stats"
	"github.com/REDAOUZIDANE/esith-pfe-platform1/internal/types"
)

const (
	statActiveConnections = "NumActiveConnections"
	statActiveRooms       = "NumActiveRooms"
	statTotalMessages     = "TotalMessages"
	statPresenceUpdates   = "TotalPresenceUpdates"
)

type roomNotification struct {
	roomId string
	msg    *ServerMessage
}

type rmRoomReq struct {
	roomId string
	done   chan struct{}
}

type stopReq struct {
	done chan struct{}
}

// ChatServer is the hub: it owns the presence tracker and the set of
// live rooms, and serializes all lifecycle changes through its Run
// loop.
type ChatServer struct {
	log            *log.Logger
	db             database.CampusRepository
	stats          stats.StatsProvider
	presence       PresenceTracker
	clients        map[*Client]struct{}
	clientsLock    sync.Mutex
	rooms          map[string]*Room
	joinChan       chan *ClientMessage
	authChan       chan *ClientMessage
	RegisterChan   chan *Client
	deRegisterChan chan *Client
	roomNotifyChan chan *roomNotification
	unloadRoomChan chan string
	rmRoomChan     chan *rmRoomReq
	stop           chan stopReq
}

func NewChatServer(logger *log.Logger, db database.CampusRepository, presence PresenceTracker, su stats.StatsProvider) (*ChatServer, error) {
	cs := &ChatServer{
		log:            logger,
		db:             db,
		stats:          su,
		presence:       presence,
		clients:        make(map[*Client]struct{}),
		rooms:          make(map[string]*Room),
		joinChan:       make(chan *ClientMessage, 256),
		authChan:       make(chan *ClientMessage, 256),
		RegisterChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		roomNotifyChan: make(chan *roomNotification, 256),
		unloadRoomChan: make(chan string),
		rmRoomChan:     make(chan *rmRoomReq),
		stop:           make(chan stopReq),
	}

	su.RegisterMetric(statActiveConnections)
	su.RegisterMetric(statActiveRooms)
	su.RegisterMetric(statTotalMessages)
	su.RegisterMetric(statPresenceUpdates)

	return cs, nil
}

func (cs *ChatServer) Run() {
	for {
		select {
		case msg := <-cs.authChan:
			cs.handleAuthenticate(msg)
		case joinMsg := <-cs.joinChan:
			cs.handleJoin(joinMsg)
		case client := <-cs.RegisterChan:
			cs.addClient(client)
		case client := <-cs.deRegisterChan:
			cs.log.Printf("removing connection %q", client.connId)
			cs.removeClient(client)
		case notification := <-cs.roomNotifyChan:
			if room, ok := cs.rooms[notification.roomId]; ok {
				select {
				case room.notifyChan <- notification.msg:
				default:
					cs.log.Printf("notify channel full on room %q", room.id)
				}
			}
		case id := <-cs.unloadRoomChan:
			// idle room asked to be unloaded
			if r, ok := cs.rooms[id]; ok {
				delete(cs.rooms, id)
				r.exit <- exitReq{}
				<-r.done
			}
		case req := <-cs.rmRoomChan:
			if r, ok := cs.rooms[req.roomId]; ok {
				delete(cs.rooms, req.roomId)
				r.exit <- exitReq{deleted: true}
				<-r.done
			}
			close(req.done)
		case req := <-cs.stop:
			cs.log.Println("shutting down rooms")
			for _, r := range cs.rooms {
				close(r.exit)
				<-r.done
			}

			cs.clientsLock.Lock()
			for c := range cs.clients {
				c.stopClient()
			}
			cs.clientsLock.Unlock()

			close(req.done)
			return
		}
	}
}

// handleAuthenticate binds the connection's verified identity into the
// presence tracker and broadcasts the new snapshot to every connection.
func (cs *ChatServer) handleAuthenticate(msg *ClientMessage) {
	c := msg.client
	cs.log.Printf("presence: user %d online on %q", c.user.Id, c.connId)

	cs.presence.Set(c.user.Id, c.connId)
	cs.stats.Incr(statPresenceUpdates)

	snapshot := cs.presence.Snapshot()
	c.queueMessage(NoErrOK(msg.Id, map[string]any{"user_id": c.user.Id}))
	cs.broadcastOnlineUsers(snapshot)
}

func (cs *ChatServer) handleJoin(joinMsg *ClientMessage) {
	roomId := joinMsg.Join.RoomId
	if room, ok := cs.rooms[roomId]; ok {
		select {
		case room.joinChan <- joinMsg:
		default:
			cs.log.Printf("join channel full on room %q", room.id)
			joinMsg.client.queueMessage(ErrServiceUnavailable(joinMsg.Id))
		}
		return
	}

	// derived rooms always exist; ad-hoc rooms must be registered
	if !types.IsDerivedRoomId(roomId) {
		if _, err := cs.db.GetRoomById(roomId); err != nil {
			joinMsg.client.queueMessage(ErrRoomNotFound(joinMsg.Id))
			return
		}
	}

	room := newRoom(roomId, cs)
	cs.rooms[roomId] = room
	room.joinChan <- joinMsg

	go room.start()
}

// broadcastOnlineUsers pushes the presence snapshot to every
// connection, authenticated or not.
func (cs *ChatServer) broadcastOnlineUsers(snapshot []int) {
	msg := &ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		OnlineUsers: &OnlineUsers{UserIds: snapshot},
	}

	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	for c := range cs.clients {
		c.queueMessage(msg)
	}
}

// RegisterClient hands a freshly upgraded connection to the hub.
func (cs *ChatServer) RegisterClient(c *Client) {
	cs.RegisterChan <- c
}

func (cs *ChatServer) addClient(c *Client) {
	cs.clientsLock.Lock()
	cs.clients[c] = struct{}{}
	cs.clientsLock.Unlock()

	cs.stats.Incr(statActiveConnections)
}

func (cs *ChatServer) removeClient(c *Client) {
	cs.clientsLock.Lock()
	delete(cs.clients, c)
	cs.clientsLock.Unlock()

	cs.stats.Decr(statActiveConnections)

	// abrupt disconnects must still clear presence and tell everyone
	if cs.presence.Remove(c.connId) {
		cs.stats.Incr(statPresenceUpdates)
		cs.broadcastOnlineUsers(cs.presence.Snapshot())
	}
}

// notifyRoom routes a server-originated notification to a live room's
// subscribers. If the room is not loaded nobody is subscribed and the
// notification is dropped.
func (cs *ChatServer) notifyRoom(roomId string, msg *ServerMessage) {
	select {
	case cs.roomNotifyChan <- &roomNotification{roomId: roomId, msg: msg}:
	default:
		cs.log.Printf("room notify channel full, dropping notification for %q", roomId)
	}
}

// NotifyMessageDeleted tells a room's current subscribers that one of
// its messages was soft-deleted, so they can swap in a placeholder.
func (cs *ChatServer) NotifyMessageDeleted(roomId string, messageId int) {
	cs.notifyRoom(roomId, &ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		MessageDeleted: &MessageDeleted{
			RoomId:    roomId,
			MessageId: messageId,
		},
	})
}

// UnloadRoom evicts a deleted room: subscribers get a room_deleted
// notification and the room goroutine exits. Called by the REST layer
// after the registry record and messages are gone.
func (cs *ChatServer) UnloadRoom(ctx context.Context, roomId string) error {
	req := &rmRoomReq{
		roomId: roomId,
		done:   make(chan struct{}),
	}

	select {
	case cs.rmRoomChan <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (cs *ChatServer) Shutdown(ctx context.Context) error {
	req := stopReq{done: make(chan struct{})}

	select {
	case cs.stop <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
