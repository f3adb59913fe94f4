package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

const (
	createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

	createTodoListsTable = `
CREATE TABLE IF NOT EXISTS todolists (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	username TEXT NOT NULL,
	UNIQUE (title, username)
);
`

	createTodosTable = `
CREATE TABLE IF NOT EXISTS todos (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	todolist_id INTEGER NOT NULL REFERENCES todolists(id) ON DELETE CASCADE,
	title TEXT NOT NULL,
	done INTEGER NOT NULL DEFAULT 0,
	username TEXT NOT NULL
);
`
)

// InitSchema creates the users, todolists and todos tables if they are missing.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createUsersTable); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	if _, err := db.ExecContext(ctx, createTodoListsTable); err != nil {
		return fmt.Errorf("create todolists table: %w", err)
	}
	if _, err := db.ExecContext(ctx, createTodosTable); err != nil {
		return fmt.Errorf("create todos table: %w", err)
	}
	return nil
}
