package domain

import (
	"sort"
	"strings"
)

// SortTodoLists orders lists for display: lists with undone todos first, then
// done lists, each group sorted by title ascending ignoring case. The input
// slice is not modified.
func SortTodoLists(lists []TodoList) []TodoList {
	var undone, done []TodoList
	for _, list := range lists {
		if list.IsDone() {
			done = append(done, list)
		} else {
			undone = append(undone, list)
		}
	}
	sortListsByTitle(undone)
	sortListsByTitle(done)

	sorted := make([]TodoList, 0, len(lists))
	sorted = append(sorted, undone...)
	sorted = append(sorted, done...)
	return sorted
}

// SortTodos orders a list's todos for display: undone first, then done, each
// group sorted by title ascending ignoring case. The input slice is not
// modified.
func SortTodos(todos []Todo) []Todo {
	var undone, done []Todo
	for _, todo := range todos {
		if todo.Done {
			done = append(done, todo)
		} else {
			undone = append(undone, todo)
		}
	}
	sortTodosByTitle(undone)
	sortTodosByTitle(done)

	sorted := make([]Todo, 0, len(todos))
	sorted = append(sorted, undone...)
	sorted = append(sorted, done...)
	return sorted
}

func sortListsByTitle(lists []TodoList) {
	sort.SliceStable(lists, func(i, j int) bool {
		return strings.ToLower(lists[i].Title) < strings.ToLower(lists[j].Title)
	})
}

func sortTodosByTitle(todos []Todo) {
	sort.SliceStable(todos, func(i, j int) bool {
		return strings.ToLower(todos[i].Title) < strings.ToLower(todos[j].Title)
	})
}
