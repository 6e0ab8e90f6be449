package types

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleStudent Role = "STUDENT"
	RoleAlumni  Role = "ALUMNI"
)

// MessageKind discriminates a message's content. TEXT messages carry a
// body, every other kind carries an attachment reference.
type MessageKind string

const (
	KindText  MessageKind = "TEXT"
	KindImage MessageKind = "IMAGE"
	KindAudio MessageKind = "AUDIO"
	KindVideo MessageKind = "VIDEO"
	KindFile  MessageKind = "FILE"
)

func (k MessageKind) Valid() bool {
	switch k {
	case KindText, KindImage, KindAudio, KindVideo, KindFile:
		return true
	}
	return false
}

// IsAttachment reports whether the kind requires a file reference.
func (k MessageKind) IsAttachment() bool {
	return k.Valid() && k != KindText
}

type User struct {
	Id           int       `json:"id"`
	Name         string    `json:"name"`
	EmailAddress string    `json:"email_address,omitempty"`
	Major        string    `json:"major,omitempty"`
	Role         Role      `json:"role"`
	ProfileImage string    `json:"profile_image,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

const (
	RoomTypeGlobal = "GLOBAL"
	RoomTypeMajor  = "MAJOR"
	RoomTypeGroup  = "GROUP"
)

type Room struct {
	Id        string    `json:"id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Sender is the denormalized view of a message's author, joined at read
// time for rendering.
type Sender struct {
	Name  string `json:"name"`
	Major string `json:"major,omitempty"`
	Role  Role   `json:"role"`
}

type Message struct {
	Id        int         `json:"id"`
	Room      string      `json:"room"`
	SenderId  int         `json:"sender_id"`
	Kind      MessageKind `json:"kind"`
	Content   string      `json:"content,omitempty"`
	FileUrl   string      `json:"file_url,omitempty"`
	Duration  int         `json:"duration,omitempty"`
	Deleted   bool        `json:"deleted,omitempty"`
	Sender    Sender      `json:"sender"`
	Timestamp time.Time   `json:"timestamp"`
}

// GlobalRoomId is the key of the sitewide room every user may join.
const GlobalRoomId = "room_global"

const majorRoomPrefix = "room_major_"

// MajorRoomId derives the cohort room key for a major, lower-cased with
// whitespace runs collapsed to underscores.
func MajorRoomId(major string) string {
	slug := strings.Join(strings.Fields(strings.ToLower(major)), "_")
	return majorRoomPrefix + slug
}

// IsDerivedRoomId reports whether a room key names a derived room, which
// always exists and is never persisted or deletable.
func IsDerivedRoomId(id string) bool {
	return id == GlobalRoomId || strings.HasPrefix(id, majorRoomPrefix)
}

// DefaultIcon is the short label shown for a room without an explicit
// icon: the first two letters of its name, upper-cased.
func DefaultIcon(name string) string {
	runes := []rune(name)
	if len(runes) > 2 {
		runes = runes[:2]
	}
	return strings.ToUpper(string(runes))
}

func GlobalRoom() Room {
	return Room{
		Id:   GlobalRoomId,
		Name: "Global",
		Icon: "GL",
		Type: RoomTypeGlobal,
	}
}

func MajorRoom(major string) Room {
	return Room{
		Id:   MajorRoomId(major),
		Name: major,
		Icon: DefaultIcon(major),
		Type: RoomTypeMajor,
	}
}
