package database

import (
	"database/sql"
	"time"
)

// queryTimeout bounds every statement so a hung store surfaces as an
// error to the caller instead of a silently stuck room.
const queryTimeout = 5 * time.Second

type PgCampusRepository struct {
	conn *sql.DB
}

func NewPgCampusRepository(dsn string) (*PgCampusRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PgCampusRepository{conn: db}, nil
}

func (db *PgCampusRepository) Ping() error {
	return db.conn.Ping()
}

func (db *PgCampusRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
