package database

import "time"

type User struct {
	Id           int
	Name         string
	EmailAddress string
	PasswordHash string
	Major        string
	Role         string
	ProfileImage string
	CreatedAt    time.Time
}

// Room is a persisted ad-hoc chat room. Global and major rooms are
// derived from user attributes and never stored.
type Room struct {
	Id        string
	Name      string
	Icon      string
	Type      string
	CreatedAt time.Time
}

// Message is a stored chat message joined with its sender's display
// attributes. Nullable columns come back as zero values.
type Message struct {
	Id          int
	Room        string
	SenderId    int
	Kind        string
	Content     string
	FileUrl     string
	Duration    int
	Deleted     bool
	SenderName  string
	SenderMajor string
	SenderRole  string
	CreatedAt   time.Time
}

type CreateRoomParams struct {
	Id   string
	Name string
	Icon string
	Type string
}

type CreateMessageParams struct {
	Room     string
	SenderId int
	Kind     string
	Content  string
	FileUrl  string
	Duration int
}
