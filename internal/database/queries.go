package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

func (db *PgCampusRepository) GetAccountById(id int) (User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	row := db.conn.QueryRowContext(ctx,
		"SELECT id, name, email, COALESCE(major, ''), role, COALESCE(profile_image, ''), created_at FROM users "+
			"WHERE id = $1 LIMIT 1",
		id,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Name,
		&user.EmailAddress,
		&user.Major,
		&user.Role,
		&user.ProfileImage,
		&user.CreatedAt,
	)

	return user, err
}

func (db *PgCampusRepository) GetAccountByEmail(email string) (User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	row := db.conn.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, COALESCE(major, ''), role, COALESCE(profile_image, ''), created_at FROM users "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Name,
		&user.EmailAddress,
		&user.PasswordHash,
		&user.Major,
		&user.Role,
		&user.ProfileImage,
		&user.CreatedAt,
	)

	return user, err
}

func (db *PgCampusRepository) ListRooms() ([]Room, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, name, icon, type, created_at FROM chat_rooms ORDER BY created_at ASC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		var room Room
		if err = rows.Scan(&room.Id, &room.Name, &room.Icon, &room.Type, &room.CreatedAt); err != nil {
			break
		}

		rooms = append(rooms, room)
	}
	return rooms, err
}

func (db *PgCampusRepository) GetRoomById(id string) (Room, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	row := db.conn.QueryRowContext(ctx,
		"SELECT id, name, icon, type, created_at FROM chat_rooms WHERE id = $1 LIMIT 1",
		id,
	)

	var room Room
	err := row.Scan(
		&room.Id,
		&room.Name,
		&room.Icon,
		&room.Type,
		&room.CreatedAt,
	)

	return room, err
}

func (db *PgCampusRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	res := db.conn.QueryRowContext(ctx,
		"INSERT INTO chat_rooms (id, name, icon, type, created_at) "+
			"VALUES ($1, $2, $3, $4, $5) RETURNING id, name, icon, type, created_at",
		params.Id,
		params.Name,
		params.Icon,
		params.Type,
		time.Now().UTC(),
	)

	var room Room
	err := res.Scan(
		&room.Id,
		&room.Name,
		&room.Icon,
		&room.Type,
		&room.CreatedAt,
	)

	return room, err
}

// DeleteRoom removes a room and its messages in one transaction,
// messages first so an interrupted delete leaves an empty room rather
// than orphaned messages.
func (db *PgCampusRepository) DeleteRoom(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, "DELETE FROM messages WHERE room = $1", id)
	if err != nil {
		return err
	}

	var res sql.Result
	res, err = tx.ExecContext(ctx, "DELETE FROM chat_rooms WHERE id = $1", id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		err = sql.ErrNoRows
		return err
	}

	return tx.Commit()
}

// CreateMessage persists a message and returns it joined with the
// sender's display attributes, so callers can broadcast the enriched
// record without a second round trip.
func (db *PgCampusRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	query := `
		WITH m AS (
			INSERT INTO messages (room, sender_id, kind, content, file_url, duration, deleted, created_at)
			VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, 0), FALSE, $7)
			RETURNING id, room, sender_id, kind, content, file_url, duration, deleted, created_at
		)
		SELECT m.id, m.room, m.sender_id, m.kind, COALESCE(m.content, ''), COALESCE(m.file_url, ''),
			COALESCE(m.duration, 0), m.deleted, m.created_at, u.name, COALESCE(u.major, ''), u.role
		FROM m JOIN users u ON u.id = m.sender_id
`

	row := db.conn.QueryRowContext(ctx, query,
		params.Room,
		params.SenderId,
		params.Kind,
		params.Content,
		params.FileUrl,
		params.Duration,
		time.Now().UTC(),
	)

	var msg Message
	err := row.Scan(
		&msg.Id,
		&msg.Room,
		&msg.SenderId,
		&msg.Kind,
		&msg.Content,
		&msg.FileUrl,
		&msg.Duration,
		&msg.Deleted,
		&msg.CreatedAt,
		&msg.SenderName,
		&msg.SenderMajor,
		&msg.SenderRole,
	)
	if err != nil {
		return Message{}, fmt.Errorf("create message: %w", err)
	}

	return msg, nil
}

func (db *PgCampusRepository) GetMessage(id int) (Message, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	row := db.conn.QueryRowContext(ctx,
		"SELECT m.id, m.room, m.sender_id, m.kind, COALESCE(m.content, ''), COALESCE(m.file_url, ''), "+
			"COALESCE(m.duration, 0), m.deleted, m.created_at, u.name, COALESCE(u.major, ''), u.role "+
			"FROM messages m JOIN users u ON u.id = m.sender_id WHERE m.id = $1 LIMIT 1",
		id,
	)

	var msg Message
	err := row.Scan(
		&msg.Id,
		&msg.Room,
		&msg.SenderId,
		&msg.Kind,
		&msg.Content,
		&msg.FileUrl,
		&msg.Duration,
		&msg.Deleted,
		&msg.CreatedAt,
		&msg.SenderName,
		&msg.SenderMajor,
		&msg.SenderRole,
	)

	return msg, err
}

// SoftDeleteMessage flips the deleted flag without erasing content, so
// renderers substitute a placeholder while the record stays auditable.
func (db *PgCampusRepository) SoftDeleteMessage(id int) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, "UPDATE messages SET deleted = TRUE WHERE id = $1", id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (db *PgCampusRepository) DeleteMessagesByRoom(room string) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	_, err := db.conn.ExecContext(ctx, "DELETE FROM messages WHERE room = $1", room)
	return err
}

func (db *PgCampusRepository) GetMessages(room string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		"SELECT m.id, m.room, m.sender_id, m.kind, COALESCE(m.content, ''), COALESCE(m.file_url, ''), "+
			"COALESCE(m.duration, 0), m.deleted, m.created_at, u.name, COALESCE(u.major, ''), u.role "+
			"FROM messages m JOIN users u ON u.id = m.sender_id "+
			"WHERE m.room = $1 ORDER BY m.id ASC LIMIT $2",
		room,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages = make([]Message, 0, limit)
	for rows.Next() {
		var msg Message
		if err = rows.Scan(
			&msg.Id,
			&msg.Room,
			&msg.SenderId,
			&msg.Kind,
			&msg.Content,
			&msg.FileUrl,
			&msg.Duration,
			&msg.Deleted,
			&msg.CreatedAt,
			&msg.SenderName,
			&msg.SenderMajor,
			&msg.SenderRole,
		); err != nil {
			break
		}

		messages = append(messages, msg)
	}
	return messages, err
}
