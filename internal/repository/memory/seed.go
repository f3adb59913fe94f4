package memory

import (
	"todo-server/internal/domain"
	"todo-server/internal/ident"
)

// SeedTodoLists builds the example dataset a fresh session starts with. Ids
// come from the shared sequence so later additions never collide.
func SeedTodoLists(seq *ident.Sequence) []domain.TodoList {
	newTodo := func(listID int64, title string, done bool) domain.Todo {
		return domain.Todo{
			ID:         seq.Next(),
			TodoListID: listID,
			Title:      title,
			Done:       done,
		}
	}

	work := domain.TodoList{ID: seq.Next(), Title: "Work Todos"}
	work.Todos = []domain.Todo{
		newTodo(work.ID, "Get coffee", true),
		newTodo(work.ID, "Chat with co-workers", true),
		newTodo(work.ID, "Duck out of meeting", false),
	}

	home := domain.TodoList{ID: seq.Next(), Title: "Home Todos"}
	home.Todos = []domain.Todo{
		newTodo(home.ID, "Feed the cats", true),
		newTodo(home.ID, "Go to bed", true),
		newTodo(home.ID, "Buy milk", true),
		newTodo(home.ID, "Study for finals", true),
	}

	additional := domain.TodoList{ID: seq.Next(), Title: "Additional Todos", Todos: []domain.Todo{}}

	social := domain.TodoList{ID: seq.Next(), Title: "social todos"}
	social.Todos = []domain.Todo{
		newTodo(social.ID, "Go to Libby's birthday party", false),
	}

	return []domain.TodoList{work, home, additional, social}
}
