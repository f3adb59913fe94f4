package repository

import (
	"context"
	"errors"

	"todo-server/internal/domain"
)

var (
	// ErrNotFound indicates the requested list or todo does not exist for the
	// bound user.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateTitle indicates a list title collides with an existing title
	// for the bound user.
	ErrDuplicateTitle = errors.New("duplicate list title")
	// ErrDuplicateUser is returned when creating a user with a taken username.
	ErrDuplicateUser = errors.New("user already exists")
)

// Store exposes all persistence operations on todo lists and todos, scoped to
// the user it was constructed for. Expected conditions (missing rows,
// duplicate titles) come back as sentinel errors or booleans; anything else is
// a storage failure.
type Store interface {
	// SortedTodoLists returns every list with its todos attached, lists with
	// undone todos before done lists, each group title-sorted ignoring case.
	SortedTodoLists(ctx context.Context) ([]domain.TodoList, error)
	// SortedTodos returns the todos of one list, undone before done, each
	// group title-sorted ignoring case.
	SortedTodos(ctx context.Context, listID int64) ([]domain.Todo, error)
	// LoadTodoList returns the list with its todos, or ErrNotFound.
	LoadTodoList(ctx context.Context, id int64) (*domain.TodoList, error)
	// LoadTodo returns one todo, or ErrNotFound.
	LoadTodo(ctx context.Context, listID, todoID int64) (*domain.Todo, error)
	// AddTodoList creates an empty list; ErrDuplicateTitle if the title is
	// already taken by this user.
	AddTodoList(ctx context.Context, title string) error
	// SetTodoListTitle renames a list; ErrNotFound if the id is absent,
	// ErrDuplicateTitle if the new title is taken.
	SetTodoListTitle(ctx context.Context, id int64, title string) error
	// DeleteTodoList removes a list and its todos, reporting whether a list
	// was actually removed.
	DeleteTodoList(ctx context.Context, id int64) (bool, error)
	// AddTodo appends a new undone todo, reporting whether the list existed.
	AddTodo(ctx context.Context, listID int64, title string) (bool, error)
	// ToggleTodo flips a todo's done flag, reporting whether it existed.
	ToggleTodo(ctx context.Context, listID, todoID int64) (bool, error)
	// MarkAllDone marks every todo in the list done, reporting whether the
	// list existed.
	MarkAllDone(ctx context.Context, listID int64) (bool, error)
	// DeleteTodo removes a todo, reporting whether it existed.
	DeleteTodo(ctx context.Context, listID, todoID int64) (bool, error)
	// ExistsTodoListTitle reports whether this user already has a list with
	// the given title.
	ExistsTodoListTitle(ctx context.Context, title string) (bool, error)
	// ValidateCredentials verifies a username/password pair against stored
	// hashed credentials. It never reveals whether the username exists.
	ValidateCredentials(ctx context.Context, username, password string) (bool, error)
}
