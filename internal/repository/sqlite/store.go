package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"todo-server/internal/domain"
	"todo-server/internal/repository"
)

// timingEqualizationHash is a valid bcrypt hash compared against when the
// username does not exist, so that lookups for unknown and known users take
// comparable time.
const timingEqualizationHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Store implements repository.Store against sqlite, scoping every statement
// by the username it was constructed for.
type Store struct {
	db       *sql.DB
	username string
	logger   logrus.FieldLogger
}

// NewStore returns a store bound to the given user. The store is stateless;
// the database is the source of truth.
func NewStore(db *sql.DB, username string, logger logrus.FieldLogger) repository.Store {
	return &Store{db: db, username: username, logger: logger}
}

func (s *Store) logQuery(query string, args ...any) {
	if s.logger != nil {
		s.logger.WithField("args", args).Debug(strings.Join(strings.Fields(query), " "))
	}
}

func (s *Store) SortedTodoLists(ctx context.Context) ([]domain.TodoList, error) {
	var (
		wg       sync.WaitGroup
		lists    []domain.TodoList
		todos    []domain.Todo
		listsErr error
		todosErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		lists, listsErr = s.queryLists(ctx)
	}()
	go func() {
		defer wg.Done()
		todos, todosErr = s.queryAllTodos(ctx)
	}()
	wg.Wait()

	if listsErr != nil {
		return nil, listsErr
	}
	if todosErr != nil {
		return nil, todosErr
	}

	byList := make(map[int64][]domain.Todo, len(lists))
	for _, todo := range todos {
		byList[todo.TodoListID] = append(byList[todo.TodoListID], todo)
	}
	for i := range lists {
		lists[i].Todos = byList[lists[i].ID]
	}

	return domain.SortTodoLists(lists), nil
}

func (s *Store) queryLists(ctx context.Context) ([]domain.TodoList, error) {
	query := `
SELECT id, title, username
FROM todolists
WHERE username = ?
ORDER BY lower(title) ASC`
	s.logQuery(query, s.username)

	rows, err := s.db.QueryContext(ctx, query, s.username)
	if err != nil {
		return nil, fmt.Errorf("query todolists: %w", err)
	}
	defer rows.Close()

	lists := []domain.TodoList{}
	for rows.Next() {
		var list domain.TodoList
		if err := rows.Scan(&list.ID, &list.Title, &list.Username); err != nil {
			return nil, fmt.Errorf("scan todolist: %w", err)
		}
		lists = append(lists, list)
	}
	return lists, rows.Err()
}

func (s *Store) queryAllTodos(ctx context.Context) ([]domain.Todo, error) {
	query := `
SELECT id, todolist_id, title, done, username
FROM todos
WHERE username = ?`
	s.logQuery(query, s.username)

	rows, err := s.db.QueryContext(ctx, query, s.username)
	if err != nil {
		return nil, fmt.Errorf("query todos: %w", err)
	}
	defer rows.Close()

	var todos []domain.Todo
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, *todo)
	}
	return todos, rows.Err()
}

func (s *Store) SortedTodos(ctx context.Context, listID int64) ([]domain.Todo, error) {
	query := `
SELECT id, todolist_id, title, done, username
FROM todos
WHERE todolist_id = ? AND username = ?
ORDER BY done, lower(title)`
	s.logQuery(query, listID, s.username)

	rows, err := s.db.QueryContext(ctx, query, listID, s.username)
	if err != nil {
		return nil, fmt.Errorf("query sorted todos: %w", err)
	}
	defer rows.Close()

	todos := []domain.Todo{}
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, *todo)
	}
	return todos, rows.Err()
}

func (s *Store) LoadTodoList(ctx context.Context, id int64) (*domain.TodoList, error) {
	var (
		wg       sync.WaitGroup
		list     *domain.TodoList
		todos    []domain.Todo
		listErr  error
		todosErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		list, listErr = s.queryList(ctx, id)
	}()
	go func() {
		defer wg.Done()
		todos, todosErr = s.queryListTodos(ctx, id)
	}()
	wg.Wait()

	if listErr != nil {
		return nil, listErr
	}
	if todosErr != nil {
		return nil, todosErr
	}

	list.Todos = todos
	return list, nil
}

func (s *Store) queryList(ctx context.Context, id int64) (*domain.TodoList, error) {
	query := `
SELECT id, title, username
FROM todolists
WHERE id = ? AND username = ?`
	s.logQuery(query, id, s.username)

	var list domain.TodoList
	err := s.db.QueryRowContext(ctx, query, id, s.username).
		Scan(&list.ID, &list.Title, &list.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan todolist: %w", err)
	}
	return &list, nil
}

func (s *Store) queryListTodos(ctx context.Context, listID int64) ([]domain.Todo, error) {
	query := `
SELECT id, todolist_id, title, done, username
FROM todos
WHERE todolist_id = ? AND username = ?`
	s.logQuery(query, listID, s.username)

	rows, err := s.db.QueryContext(ctx, query, listID, s.username)
	if err != nil {
		return nil, fmt.Errorf("query list todos: %w", err)
	}
	defer rows.Close()

	todos := []domain.Todo{}
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, *todo)
	}
	return todos, rows.Err()
}

func (s *Store) LoadTodo(ctx context.Context, listID, todoID int64) (*domain.Todo, error) {
	query := `
SELECT id, todolist_id, title, done, username
FROM todos
WHERE todolist_id = ? AND id = ? AND username = ?`
	s.logQuery(query, listID, todoID, s.username)

	todo, err := scanTodo(s.db.QueryRowContext(ctx, query, listID, todoID, s.username))
	if err != nil {
		return nil, err
	}
	return todo, nil
}

func (s *Store) AddTodoList(ctx context.Context, title string) error {
	query := `
INSERT INTO todolists (title, username)
VALUES (?, ?)`
	s.logQuery(query, title, s.username)

	if _, err := s.db.ExecContext(ctx, query, title, s.username); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicateTitle
		}
		return fmt.Errorf("insert todolist: %w", err)
	}
	return nil
}

func (s *Store) SetTodoListTitle(ctx context.Context, id int64, title string) error {
	query := `
UPDATE todolists SET title = ?
WHERE id = ? AND username = ?`
	s.logQuery(query, title, id, s.username)

	res, err := s.db.ExecContext(ctx, query, title, id, s.username)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicateTitle
		}
		return fmt.Errorf("update todolist title: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("todolist title rows affected: %w", err)
	}
	if aff == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteTodoList(ctx context.Context, id int64) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	deleteTodos := `DELETE FROM todos WHERE todolist_id = ? AND username = ?`
	s.logQuery(deleteTodos, id, s.username)
	if _, err := tx.ExecContext(ctx, deleteTodos, id, s.username); err != nil {
		return false, fmt.Errorf("delete list todos: %w", err)
	}

	deleteList := `DELETE FROM todolists WHERE id = ? AND username = ?`
	s.logQuery(deleteList, id, s.username)
	res, err := tx.ExecContext(ctx, deleteList, id, s.username)
	if err != nil {
		return false, fmt.Errorf("delete todolist: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("todolist delete rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit todolist delete: %w", err)
	}
	return aff > 0, nil
}

func (s *Store) AddTodo(ctx context.Context, listID int64, title string) (bool, error) {
	exists, err := s.listExists(ctx, listID)
	if err != nil || !exists {
		return false, err
	}

	query := `
INSERT INTO todos (todolist_id, title, done, username)
VALUES (?, ?, 0, ?)`
	s.logQuery(query, listID, title, s.username)

	if _, err := s.db.ExecContext(ctx, query, listID, title, s.username); err != nil {
		return false, fmt.Errorf("insert todo: %w", err)
	}
	return true, nil
}

func (s *Store) ToggleTodo(ctx context.Context, listID, todoID int64) (bool, error) {
	query := `
UPDATE todos SET done = NOT done
WHERE todolist_id = ? AND id = ? AND username = ?`
	s.logQuery(query, listID, todoID, s.username)

	res, err := s.db.ExecContext(ctx, query, listID, todoID, s.username)
	if err != nil {
		return false, fmt.Errorf("toggle todo: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("toggle rows affected: %w", err)
	}
	return aff > 0, nil
}

func (s *Store) MarkAllDone(ctx context.Context, listID int64) (bool, error) {
	exists, err := s.listExists(ctx, listID)
	if err != nil || !exists {
		return false, err
	}

	query := `
UPDATE todos SET done = 1
WHERE todolist_id = ? AND username = ?`
	s.logQuery(query, listID, s.username)

	if _, err := s.db.ExecContext(ctx, query, listID, s.username); err != nil {
		return false, fmt.Errorf("mark all done: %w", err)
	}
	return true, nil
}

func (s *Store) DeleteTodo(ctx context.Context, listID, todoID int64) (bool, error) {
	query := `
DELETE FROM todos
WHERE todolist_id = ? AND id = ? AND username = ?`
	s.logQuery(query, listID, todoID, s.username)

	res, err := s.db.ExecContext(ctx, query, listID, todoID, s.username)
	if err != nil {
		return false, fmt.Errorf("delete todo: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("todo delete rows affected: %w", err)
	}
	return aff > 0, nil
}

func (s *Store) ExistsTodoListTitle(ctx context.Context, title string) (bool, error) {
	query := `
SELECT 1 FROM todolists
WHERE title = ? AND username = ?`
	s.logQuery(query, title, s.username)

	var one int
	err := s.db.QueryRowContext(ctx, query, title, s.username).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query todolist title: %w", err)
	}
	return true, nil
}

func (s *Store) ValidateCredentials(ctx context.Context, username, password string) (bool, error) {
	query := `
SELECT password_hash FROM users
WHERE username = ?`
	s.logQuery(query, username)

	var hash string
	err := s.db.QueryRowContext(ctx, query, username).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		// burn a comparison so unknown usernames are not cheaper to probe
		_ = bcrypt.CompareHashAndPassword([]byte(timingEqualizationHash), []byte(password))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query credentials: %w", err)
	}

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil, nil
}

func (s *Store) listExists(ctx context.Context, listID int64) (bool, error) {
	query := `
SELECT 1 FROM todolists
WHERE id = ? AND username = ?`
	s.logQuery(query, listID, s.username)

	var one int
	err := s.db.QueryRowContext(ctx, query, listID, s.username).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query todolist existence: %w", err)
	}
	return true, nil
}

func scanTodo(scanner interface {
	Scan(dest ...any) error
}) (*domain.Todo, error) {
	var todo domain.Todo
	if err := scanner.Scan(
		&todo.ID,
		&todo.TodoListID,
		&todo.Title,
		&todo.Done,
		&todo.Username,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan todo: %w", err)
	}
	return &todo, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique")
}
