package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

var schema = []string{
	`create table if not exists accounts(
		platform      text not null,
		user_id       text not null,
		name          text not null default '',
		service       text not null default '',
		access_token  text not null default '',
		refresh_token text not null default '',
		expiry        DATETIME null,
		created_at    DATETIME not null,
		primary key (platform, user_id)
	)`,
	`create table if not exists shares(
		id         integer primary key autoincrement,
		chat_id    text not null,
		messenger  text not null,
		user_id    text not null,
		user_name  text not null default '',
		service    text not null,
		track_id   text not null,
		name       text not null,
		artists    text not null default '',
		url        text not null default '',
		shared_at  DATETIME not null
	)`,
	`create index if not exists shares_chat_shared_at on shares(chat_id, shared_at)`,
	`create table if not exists jobs(
		id                 text not null primary key,
		name               text not null,
		payload            text not null,
		attempts           integer not null default 0,
		max_attempts       integer not null default 1,
		remove_on_complete boolean not null default 0,
		status             text not null,
		last_error         text not null default '',
		created_at         DATETIME not null
	)`,
	`create index if not exists jobs_status_created_at on jobs(status, created_at)`,
}

// Open connects to the database file at path and creates missing tables.
func Open(ctx context.Context, path string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite3", "file:"+path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// sqlite serializes writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating tables: %w", err)
		}
	}
	return db, nil
}
