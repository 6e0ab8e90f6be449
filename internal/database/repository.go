package database

type CampusRepository interface {
	Ping() error
	GetAccountById(accountId int) (User, error)
	GetAccountByEmail(email string) (User, error)
	ListRooms() ([]Room, error)
	GetRoomById(id string) (Room, error)
	CreateRoom(params CreateRoomParams) (Room, error)
	DeleteRoom(id string) error
	CreateMessage(params CreateMessageParams) (Message, error)
	GetMessage(id int) (Message, error)
	SoftDeleteMessage(id int) error
	DeleteMessagesByRoom(room string) error
	GetMessages(room string, limit int) ([]Message, error)
}
