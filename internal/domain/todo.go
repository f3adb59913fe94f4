package domain

// TodoList is a named collection of todos owned by a single user.
type TodoList struct {
	ID       int64
	Title    string
	Username string
	Todos    []Todo
}

// Todo is a single titled task belonging to one list.
type Todo struct {
	ID         int64
	TodoListID int64
	Title      string
	Done       bool
	Username   string
}

// IsDone reports whether the list has at least one todo and all of them are done.
func (l TodoList) IsDone() bool {
	if len(l.Todos) == 0 {
		return false
	}
	for _, todo := range l.Todos {
		if !todo.Done {
			return false
		}
	}
	return true
}

// HasUndoneTodos reports whether any todo in the list is not done.
func (l TodoList) HasUndoneTodos() bool {
	for _, todo := range l.Todos {
		if !todo.Done {
			return true
		}
	}
	return false
}

// CountDoneTodos returns the number of done todos in the list.
func (l TodoList) CountDoneTodos() int {
	count := 0
	for _, todo := range l.Todos {
		if todo.Done {
			count++
		}
	}
	return count
}

// Clone returns an independently owned copy of the list and its todos.
func (l TodoList) Clone() TodoList {
	cp := l
	if l.Todos != nil {
		cp.Todos = make([]Todo, len(l.Todos))
		copy(cp.Todos, l.Todos)
	}
	return cp
}

// CloneTodoLists deep-copies a slice of lists.
func CloneTodoLists(lists []TodoList) []TodoList {
	if lists == nil {
		return nil
	}
	cp := make([]TodoList, len(lists))
	for i := range lists {
		cp[i] = lists[i].Clone()
	}
	return cp
}
