package server

import (
	"log"
	"sync"
	"time"

	"github.com/REDAOUZIDANE/esith-pfe-platform1/internal/database"
	"github.com/REDAOUZIDANE/esith-pfe-platform1/internal/types"
)

const idleRoomTimeout = time.Minute

type exitReq struct {
	deleted bool
}

// Room is a live delivery group. Derived rooms (global, major) are
// created on first join; ad-hoc rooms must exist in the registry. A
// room without clients unloads after idleRoomTimeout.
type Room struct {
	id            string
	cs            *ChatServer
	joinChan      chan *ClientMessage
	leaveChan     chan *ClientMessage
	clientMsgChan chan *ClientMessage
	notifyChan    chan *ServerMessage
	clients       map[*Client]struct{}
	clientLock    sync.RWMutex
	log           *log.Logger
	// killTimer is used to automatically unload the room when it is no longer active
	killTimer *time.Timer
	// exit is used to signal the room to exit
	exit chan exitReq
	done chan struct{}
}

func newRoom(id string, cs *ChatServer) *Room {
	return &Room{
		id:            id,
		cs:            cs,
		joinChan:      make(chan *ClientMessage, 256),
		leaveChan:     make(chan *ClientMessage, 256),
		clientMsgChan: make(chan *ClientMessage, 256),
		notifyChan:    make(chan *ServerMessage, 256),
		clients:       make(map[*Client]struct{}),
		log:           cs.log,
		exit:          make(chan exitReq),
		done:          make(chan struct{}),
	}
}

func (r *Room) start() {
	r.log.Printf("starting room %q", r.id)
	r.cs.stats.Incr(statActiveRooms)
	r.killTimer = time.NewTimer(idleRoomTimeout)
	r.killTimer.Stop()
	defer close(r.done)

	for {
		select {
		case join := <-r.joinChan:
			r.handleJoin(join)
		case leaveMsg := <-r.leaveChan:
			r.handleLeave(leaveMsg)
		case msg := <-r.clientMsgChan:
			if msg.Publish != nil {
				r.saveAndBroadcast(msg)
			}
		case notification := <-r.notifyChan:
			r.broadcast(notification)
		case <-r.killTimer.C:
			r.handleRoomTimeout()
		case e := <-r.exit:
			r.handleRoomExit(e)
			return
		}
	}
}

func (r *Room) handleRoomTimeout() {
	r.log.Printf("room %q timed out", r.id)
	r.cs.unloadRoomChan <- r.id
}

func (r *Room) handleRoomExit(e exitReq) {
	r.log.Printf("room %q is exiting", r.id)
	if e.deleted {
		// notify all clients that the room is deleted
		r.broadcast(&ServerMessage{
			BaseMessage: BaseMessage{
				Timestamp: Now(),
			},
			RoomDeleted: &RoomDeleted{RoomId: r.id},
		})
	}

	// remove the room from all clients
	r.clientLock.Lock()
	for c := range r.clients {
		c.delRoom(r.id)
	}
	r.clientLock.Unlock()

	r.cs.stats.Decr(statActiveRooms)
}

// handleJoin subscribes a client. Joining never fails and repeated
// joins are idempotent.
func (r *Room) handleJoin(join *ClientMessage) {
	r.killTimer.Stop()

	c := join.client
	r.addClient(c)

	c.queueMessage(NoErrOK(join.Id, map[string]any{"room_id": r.id}))
}

func (r *Room) handleLeave(leaveMsg *ClientMessage) {
	r.removeClient(leaveMsg.client)

	if leaveMsg.Id > 0 {
		// explicit leave from a client, acknowledge it
		leaveMsg.client.queueMessage(NoErrOK(leaveMsg.Id, nil))
	}
}

func (r *Room) addClient(c *Client) {
	r.clientLock.Lock()
	defer r.clientLock.Unlock()

	r.clients[c] = struct{}{}
	c.addRoom(r)
}

func (r *Room) removeClient(c *Client) {
	r.clientLock.Lock()
	defer r.clientLock.Unlock()

	if _, ok := r.clients[c]; !ok {
		return
	}

	delete(r.clients, c)
	c.delRoom(r.id)

	// if the client was the last one in the room, start the kill timer
	if len(r.clients) == 0 {
		r.log.Printf("no clients in %q, starting kill timer", r.id)
		r.killTimer.Reset(idleRoomTimeout)
	}
}

// saveAndBroadcast persists the message and fans the stored, enriched
// record out to every current subscriber. The sender always hears back:
// an accepted response on success, an error response otherwise.
func (r *Room) saveAndBroadcast(msg *ClientMessage) {
	c := msg.client
	stored, err := r.cs.db.CreateMessage(database.CreateMessageParams{
		Room:     r.id,
		SenderId: c.user.Id,
		Kind:     string(msg.Publish.Kind),
		Content:  msg.Publish.Content,
		FileUrl:  msg.Publish.FileUrl,
		Duration: msg.Publish.Duration,
	})
	if err != nil {
		r.log.Println("error saving message:", err)
		c.queueMessage(ErrInternalError(msg.Id))
		return
	}

	r.cs.stats.Incr(statTotalMessages)
	c.queueMessage(NoErrAccepted(msg.Id))

	r.broadcast(&ServerMessage{
		BaseMessage: BaseMessage{
			Id:        stored.Id,
			Timestamp: stored.CreatedAt,
		},
		Message: &types.Message{
			Id:       stored.Id,
			Room:     stored.Room,
			SenderId: stored.SenderId,
			Kind:     types.MessageKind(stored.Kind),
			Content:  stored.Content,
			FileUrl:  stored.FileUrl,
			Duration: stored.Duration,
			Sender: types.Sender{
				Name:  stored.SenderName,
				Major: stored.SenderMajor,
				Role:  types.Role(stored.SenderRole),
			},
			Timestamp: stored.CreatedAt,
		},
	})
}

func (r *Room) broadcast(msg *ServerMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = Now()
	}

	r.clientLock.RLock()
	defer r.clientLock.RUnlock()

	for client := range r.clients {
		if client == msg.SkipClient {
			continue
		}

		client.queueMessage(msg)
	}
}
