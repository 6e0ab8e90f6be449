package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/REDAOUZIDANE/esith-pfe-platform1/internal/types"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is the envelope for every client-to-server event.
// Exactly one of the event fields is set.
type ClientMessage struct {
	BaseMessage
	Authenticate *Authenticate `json:"authenticate,omitempty"`
	JoinGlobal   *JoinGlobal   `json:"join_global,omitempty"`
	JoinMajor    *JoinMajor    `json:"join_major,omitempty"`
	Join         *Join         `json:"join,omitempty"`
	Leave        *Leave        `json:"leave,omitempty"`
	Publish      *Publish      `json:"publish,omitempty"`
	Delete       *Delete       `json:"delete,omitempty"`
	client       *Client
}

// Authenticate announces the connection for presence tracking. The
// user_id field is kept for wire compatibility but ignored: presence is
// bound to the token-verified identity of the connection.
type Authenticate struct {
	UserId int `json:"user_id,omitempty"`
}

type JoinGlobal struct{}

type JoinMajor struct {
	Major string `json:"major"`
}

type Join struct {
	RoomId string `json:"room_id"`
}

type Leave struct {
	RoomId string `json:"room_id"`
}

type Publish struct {
	RoomId   string            `json:"room_id"`
	Kind     types.MessageKind `json:"kind"`
	Content  string            `json:"content,omitempty"`
	FileUrl  string            `json:"file_url,omitempty"`
	Duration int               `json:"duration,omitempty"`
}

type Delete struct {
	MessageId int `json:"message_id"`
}

// validate enforces the kind invariant: TEXT carries a body, every
// other kind carries an attachment reference. An empty kind means TEXT.
func (p *Publish) validate() error {
	if p.RoomId == "" {
		return errors.New("room_id is required")
	}

	if p.Kind == "" {
		p.Kind = types.KindText
	}
	if !p.Kind.Valid() {
		return errors.New("unknown message kind")
	}

	if p.Kind == types.KindText && p.Content == "" {
		return errors.New("text message requires content")
	}
	if p.Kind.IsAttachment() && p.FileUrl == "" {
		return errors.New("attachment message requires file_url")
	}

	return nil
}

type ServerMessage struct {
	BaseMessage
	Response       *Response       `json:"response,omitempty"`
	Message        *types.Message  `json:"message,omitempty"`
	MessageDeleted *MessageDeleted `json:"message_deleted,omitempty"`
	OnlineUsers    *OnlineUsers    `json:"online_users,omitempty"`
	RoomDeleted    *RoomDeleted    `json:"room_deleted,omitempty"`
	SkipClient     *Client         `json:"-"`
}

type Response struct {
	ResponseCode int    `json:"response_code"`
	Error        string `json:"error,omitempty"`
	Data         any    `json:"data,omitempty"`
}

type MessageDeleted struct {
	RoomId    string `json:"room_id"`
	MessageId int    `json:"message_id"`
}

type OnlineUsers struct {
	UserIds []int `json:"user_ids"`
}

type RoomDeleted struct {
	RoomId string `json:"room_id"`
}

func NoErrOK(id int, data any) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusOK,
			Data:         data,
		},
	}
}

func NoErrAccepted(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusAccepted,
		},
	}
}

func ErrRoomNotFound(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusNotFound,
			Error:        "room not found",
		},
	}
}

func ErrMessageNotFound(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusNotFound,
			Error:        "message not found",
		},
	}
}

func ErrForbidden(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusForbidden,
			Error:        "forbidden",
		},
	}
}

func ErrInternalError(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusInternalServerError,
			Error:        "internal server error",
		},
	}
}

func ErrServiceUnavailable(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusServiceUnavailable,
			Error:        "service unavailable",
		},
	}
}

func ErrInvalidMessage(id int, reason string) *ServerMessage {
	if reason == "" {
		reason = "invalid message format"
	}

	msg := &ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusBadRequest,
			Error:        reason,
		},
	}

	if id > 0 {
		msg.Id = id
	}
	return msg
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
