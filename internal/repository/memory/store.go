// Package memory implements the persistence contract over per-session state.
// Reads hand out deep copies so callers never alias the owned structures.
package memory

import (
	"context"

	"todo-server/internal/domain"
	"todo-server/internal/ident"
	"todo-server/internal/repository"
	"todo-server/internal/session"
)

// Store implements repository.Store against the lists owned by one session.
// Concurrent requests within the same session race unguarded; the last write
// wins.
type Store struct {
	state *session.State
	users *Users
	seq   *ident.Sequence
}

// NewStore binds a store to the session's state, seeding the example dataset
// if the session has no data yet.
func NewStore(state *session.State, users *Users, seq *ident.Sequence) repository.Store {
	if state.TodoLists == nil {
		state.TodoLists = SeedTodoLists(seq)
	}
	return &Store{state: state, users: users, seq: seq}
}

func (s *Store) SortedTodoLists(_ context.Context) ([]domain.TodoList, error) {
	return domain.SortTodoLists(domain.CloneTodoLists(s.state.TodoLists)), nil
}

func (s *Store) SortedTodos(_ context.Context, listID int64) ([]domain.Todo, error) {
	list := s.findList(listID)
	if list == nil {
		return []domain.Todo{}, nil
	}
	cp := list.Clone()
	return domain.SortTodos(cp.Todos), nil
}

func (s *Store) LoadTodoList(_ context.Context, id int64) (*domain.TodoList, error) {
	list := s.findList(id)
	if list == nil {
		return nil, repository.ErrNotFound
	}
	cp := list.Clone()
	if cp.Todos == nil {
		cp.Todos = []domain.Todo{}
	}
	return &cp, nil
}

func (s *Store) LoadTodo(_ context.Context, listID, todoID int64) (*domain.Todo, error) {
	todo := s.findTodo(listID, todoID)
	if todo == nil {
		return nil, repository.ErrNotFound
	}
	cp := *todo
	return &cp, nil
}

func (s *Store) AddTodoList(_ context.Context, title string) error {
	for i := range s.state.TodoLists {
		if s.state.TodoLists[i].Title == title {
			return repository.ErrDuplicateTitle
		}
	}
	s.state.TodoLists = append(s.state.TodoLists, domain.TodoList{
		ID:    s.seq.Next(),
		Title: title,
		Todos: []domain.Todo{},
	})
	return nil
}

func (s *Store) SetTodoListTitle(_ context.Context, id int64, title string) error {
	list := s.findList(id)
	if list == nil {
		return repository.ErrNotFound
	}
	for i := range s.state.TodoLists {
		if s.state.TodoLists[i].ID != id && s.state.TodoLists[i].Title == title {
			return repository.ErrDuplicateTitle
		}
	}
	list.Title = title
	return nil
}

func (s *Store) DeleteTodoList(_ context.Context, id int64) (bool, error) {
	for i := range s.state.TodoLists {
		if s.state.TodoLists[i].ID == id {
			s.state.TodoLists = append(s.state.TodoLists[:i], s.state.TodoLists[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) AddTodo(_ context.Context, listID int64, title string) (bool, error) {
	list := s.findList(listID)
	if list == nil {
		return false, nil
	}
	list.Todos = append(list.Todos, domain.Todo{
		ID:         s.seq.Next(),
		TodoListID: listID,
		Title:      title,
		Done:       false,
	})
	return true, nil
}

func (s *Store) ToggleTodo(_ context.Context, listID, todoID int64) (bool, error) {
	todo := s.findTodo(listID, todoID)
	if todo == nil {
		return false, nil
	}
	todo.Done = !todo.Done
	return true, nil
}

func (s *Store) MarkAllDone(_ context.Context, listID int64) (bool, error) {
	list := s.findList(listID)
	if list == nil {
		return false, nil
	}
	for i := range list.Todos {
		list.Todos[i].Done = true
	}
	return true, nil
}

func (s *Store) DeleteTodo(_ context.Context, listID, todoID int64) (bool, error) {
	list := s.findList(listID)
	if list == nil {
		return false, nil
	}
	for i := range list.Todos {
		if list.Todos[i].ID == todoID {
			list.Todos = append(list.Todos[:i], list.Todos[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ExistsTodoListTitle(_ context.Context, title string) (bool, error) {
	for i := range s.state.TodoLists {
		if s.state.TodoLists[i].Title == title {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ValidateCredentials(_ context.Context, username, password string) (bool, error) {
	return s.users.validate(username, password), nil
}

func (s *Store) findList(id int64) *domain.TodoList {
	for i := range s.state.TodoLists {
		if s.state.TodoLists[i].ID == id {
			return &s.state.TodoLists[i]
		}
	}
	return nil
}

func (s *Store) findTodo(listID, todoID int64) *domain.Todo {
	list := s.findList(listID)
	if list == nil {
		return nil
	}
	for i := range list.Todos {
		if list.Todos[i].ID == todoID {
			return &list.Todos[i]
		}
	}
	return nil
}
