package sqlite

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"todo-server/internal/domain"
	"todo-server/internal/repository"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, InitSchema(context.Background(), db))
	return db
}

func seedUser(t *testing.T, db *sql.DB, username, password string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	_, err = NewUsers(db).CreateUser(context.Background(), &domain.User{
		Username:     username,
		PasswordHash: string(hash),
	})
	require.NoError(t, err)
}

func newTestStore(t *testing.T, db *sql.DB, username string) repository.Store {
	t.Helper()
	return NewStore(db, username, nil)
}

func TestAddTodoListAndDuplicate(t *testing.T) {
	db := setupTestDB(t)
	store := newTestStore(t, db, "alice")
	ctx := context.Background()

	require.NoError(t, store.AddTodoList(ctx, "Groceries"))

	err := store.AddTodoList(ctx, "Groceries")
	assert.ErrorIs(t, err, repository.ErrDuplicateTitle)

	lists, err := store.SortedTodoLists(ctx)
	require.NoError(t, err)
	assert.Len(t, lists, 1)
}

func TestSameTitleAllowedAcrossUsers(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, newTestStore(t, db, "alice").AddTodoList(ctx, "Groceries"))
	require.NoError(t, newTestStore(t, db, "bob").AddTodoList(ctx, "Groceries"))
}

func TestSortedTodoLists(t *testing.T) {
	db := setupTestDB(t)
	store := newTestStore(t, db, "alice")
	ctx := context.Background()

	for _, title := range []string{"zebra", "Apple", "banana"} {
		require.NoError(t, store.AddTodoList(ctx, title))
	}

	lists, err := store.SortedTodoLists(ctx)
	require.NoError(t, err)
	require.Len(t, lists, 3)

	// mark every todo of "zebra" done so it sorts into the done partition
	zebraID := listIDByTitle(t, lists, "zebra")
	added, err := store.AddTodo(ctx, zebraID, "only todo")
	require.NoError(t, err)
	require.True(t, added)
	marked, err := store.MarkAllDone(ctx, zebraID)
	require.NoError(t, err)
	require.True(t, marked)

	lists, err = store.SortedTodoLists(ctx)
	require.NoError(t, err)
	require.Len(t, lists, 3)
	assert.Equal(t, "Apple", lists[0].Title)
	assert.Equal(t, "banana", lists[1].Title)
	assert.Equal(t, "zebra", lists[2].Title)
	assert.True(t, lists[2].IsDone())

	// lists come back with their todos attached
	assert.Len(t, lists[2].Todos, 1)
}

func TestSortedTodoListsEmpty(t *testing.T) {
	db := setupTestDB(t)
	store := newTestStore(t, db, "alice")

	lists, err := store.SortedTodoLists(context.Background())
	require.NoError(t, err)
	assert.Empty(t, lists)
}

func TestSortedTodos(t *testing.T) {
	db := setupTestDB(t)
	store := newTestStore(t, db, "alice")
	ctx := context.Background()

	require.NoError(t, store.AddTodoList(ctx, "Chores"))
	listID := singleListID(t, store)

	for _, title := range []string{"Walk dog", "buy milk", "Answer email"} {
		added, err := store.AddTodo(ctx, listID, title)
		require.NoError(t, err)
		require.True(t, added)
	}

	todos, err := store.SortedTodos(ctx, listID)
	require.NoError(t, err)
	require.Len(t, todos, 3)

	// toggle "Walk dog" done; it should move behind the undone todos
	toggled, err := store.ToggleTodo(ctx, listID, todos[2].ID)
	require.NoError(t, err)
	require.True(t, toggled)

	todos, err = store.SortedTodos(ctx, listID)
	require.NoError(t, err)
	require.Len(t, todos, 3)
	assert.Equal(t, "Answer email", todos[0].Title)
	assert.Equal(t, "buy milk", todos[1].Title)
	assert.Equal(t, "Walk dog", todos[2].Title)
	assert.True(t, todos[2].Done)
}

func TestLoadTodoListNotFound(t *testing.T) {
	db := setupTestDB(t)
	store := newTestStore(t, db, "alice")

	_, err := store.LoadTodoList(context.Background(), 42)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLoadTodoRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	store := newTestStore(t, db, "alice")
	ctx := context.Background()

	require.NoError(t, store.AddTodoList(ctx, "Chores"))
	listID := singleListID(t, store)

	added, err := store.AddTodo(ctx, listID, "T")
	require.NoError(t, err)
	require.True(t, added)

	todos, err := store.SortedTodos(ctx, listID)
	require.NoError(t, err)
	require.Len(t, todos, 1)

	todo, err := store.LoadTodo(ctx, listID, todos[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "T", todo.Title)
	assert.False(t, todo.Done)
}

func TestAddTodoUnknownList(t *testing.T) {
	db := setupTestDB(t)
	store := newTestStore(t, db, "alice")

	added, err := store.AddTodo(context.Background(), 42, "T")
	require.NoError(t, err)
	assert.False(t, added)
}

func TestToggleTodoIsItsOwnInverse(t *testing.T) {
	db := setupTestDB(t)
	store := newTestStore(t, db, "alice")
	ctx := context.Background()

	require.NoError(t, store.AddTodoList(ctx, "Chores"))
	listID := singleListID(t, store)
	added, err := store.AddTodo(ctx, listID, "T")
	require.NoError(t, err)
	require.True(t, added)

	todos, err := store.SortedTodos(ctx, listID)
	require.NoError(t, err)
	todoID := todos[0].ID

	for _, want := range []bool{true, false} {
		toggled, err := store.ToggleTodo(ctx, listID, todoID)
		require.NoError(t, err)
		require.True(t, toggled)

		todo, err := store.LoadTodo(ctx, listID, todoID)
		require.NoError(t, err)
		assert.Equal(t, want, todo.Done)
	}
}

func TestMarkAllDone(t *testing.T) {
	db := setupTestDB(t)
	store := newTestStore(t, db, "alice")
	ctx := context.Background()

	require.NoError(t, store.AddTodoList(ctx, "Chores"))
	listID := singleListID(t, store)

	for _, title := range []string{"a", "b"} {
		added, err := store.AddTodo(ctx, listID, title)
		require.NoError(t, err)
		require.True(t, added)
	}
	todos, err := store.SortedTodos(ctx, listID)
	require.NoError(t, err)
	toggled, err := store.ToggleTodo(ctx, listID, todos[1].ID)
	require.NoError(t, err)
	require.True(t, toggled)

	marked, err := store.MarkAllDone(ctx, listID)
	require.NoError(t, err)
	assert.True(t, marked)

	list, err := store.LoadTodoList(ctx, listID)
	require.NoError(t, err)
	assert.True(t, list.IsDone())
}

func TestMarkAllDoneEmptyListStillExists(t *testing.T) {
	db := setupTestDB(t)
	store := newTestStore(t, db, "alice")
	ctx := context.Background()

	require.NoError(t, store.AddTodoList(ctx, "Empty"))
	listID := singleListID(t, store)

	marked, err := store.MarkAllDone(ctx, listID)
	require.NoError(t, err)
	assert.True(t, marked)
}

func TestMarkAllDoneUnknownList(t *testing.T) {
	db := setupTestDB(t)
	store := newTestStore(t, db, "alice")

	marked, err := store.MarkAllDone(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, marked)
}

func TestDeleteTodoListCascades(t *testing.T) {
	db := setupTestDB(t)
	store := newTestStore(t, db, "alice")
	ctx := context.Background()

	require.NoError(t, store.AddTodoList(ctx, "Chores"))
	listID := singleListID(t, store)
	added, err := store.AddTodo(ctx, listID, "T")
	require.NoError(t, err)
	require.True(t, added)

	todos, err := store.SortedTodos(ctx, listID)
	require.NoError(t, err)
	todoID := todos[0].ID

	deleted, err := store.DeleteTodoList(ctx, listID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = store.LoadTodo(ctx, listID, todoID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	var count int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM todos`).Scan(&count))
	assert.Zero(t, count)
}

func TestDeleteTodoListUnknown(t *testing.T) {
	db := setupTestDB(t)
	store := newTestStore(t, db, "alice")

	deleted, err := store.DeleteTodoList(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestDeleteTodo(t *testing.T) {
	db := setupTestDB(t)
	store := newTestStore(t, db, "alice")
	ctx := context.Background()

	require.NoError(t, store.AddTodoList(ctx, "Chores"))
	listID := singleListID(t, store)
	added, err := store.AddTodo(ctx, listID, "T")
	require.NoError(t, err)
	require.True(t, added)

	todos, err := store.SortedTodos(ctx, listID)
	require.NoError(t, err)
	todoID := todos[0].ID

	deleted, err := store.DeleteTodo(ctx, listID, todoID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.DeleteTodo(ctx, listID, todoID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestSetTodoListTitle(t *testing.T) {
	db := setupTestDB(t)
	store := newTestStore(t, db, "alice")
	ctx := context.Background()

	require.NoError(t, store.AddTodoList(ctx, "Old"))
	require.NoError(t, store.AddTodoList(ctx, "Taken"))
	listID := listIDByTitleFromStore(t, store, "Old")

	assert.ErrorIs(t, store.SetTodoListTitle(ctx, 42, "New"), repository.ErrNotFound)
	assert.ErrorIs(t, store.SetTodoListTitle(ctx, listID, "Taken"), repository.ErrDuplicateTitle)

	require.NoError(t, store.SetTodoListTitle(ctx, listID, "New"))
	list, err := store.LoadTodoList(ctx, listID)
	require.NoError(t, err)
	assert.Equal(t, "New", list.Title)
}

func TestExistsTodoListTitle(t *testing.T) {
	db := setupTestDB(t)
	store := newTestStore(t, db, "alice")
	ctx := context.Background()

	exists, err := store.ExistsTodoListTitle(ctx, "Groceries")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.AddTodoList(ctx, "Groceries"))

	exists, err = store.ExistsTodoListTitle(ctx, "Groceries")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUserScoping(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	alice := newTestStore(t, db, "alice")
	bob := newTestStore(t, db, "bob")

	require.NoError(t, alice.AddTodoList(ctx, "Private"))
	listID := singleListID(t, alice)
	added, err := alice.AddTodo(ctx, listID, "secret task")
	require.NoError(t, err)
	require.True(t, added)

	lists, err := bob.SortedTodoLists(ctx)
	require.NoError(t, err)
	assert.Empty(t, lists)

	_, err = bob.LoadTodoList(ctx, listID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	deleted, err := bob.DeleteTodoList(ctx, listID)
	require.NoError(t, err)
	assert.False(t, deleted)

	marked, err := bob.MarkAllDone(ctx, listID)
	require.NoError(t, err)
	assert.False(t, marked)

	// alice's data untouched
	list, err := alice.LoadTodoList(ctx, listID)
	require.NoError(t, err)
	assert.Len(t, list.Todos, 1)
	assert.False(t, list.Todos[0].Done)
}

func TestValidateCredentials(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, "alice", "hunter22")
	store := newTestStore(t, db, "")
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
		want     bool
	}{
		{name: "correct pair", username: "alice", password: "hunter22", want: true},
		{name: "wrong password", username: "alice", password: "wrong", want: false},
		{name: "unknown user", username: "nobody", password: "hunter22", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, err := store.ValidateCredentials(ctx, tt.username, tt.password)
			require.NoError(t, err)
			assert.Equal(t, tt.want, valid)
		})
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	db := setupTestDB(t)
	users := NewUsers(db)
	ctx := context.Background()

	_, err := users.CreateUser(ctx, &domain.User{Username: "alice", PasswordHash: "x"})
	require.NoError(t, err)

	_, err = users.CreateUser(ctx, &domain.User{Username: "alice", PasswordHash: "y"})
	assert.ErrorIs(t, err, repository.ErrDuplicateUser)

	user, err := users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "x", user.PasswordHash)

	_, err = users.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func singleListID(t *testing.T, store repository.Store) int64 {
	t.Helper()
	lists, err := store.SortedTodoLists(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, lists)
	return lists[0].ID
}

func listIDByTitle(t *testing.T, lists []domain.TodoList, title string) int64 {
	t.Helper()
	for _, list := range lists {
		if list.Title == title {
			return list.ID
		}
	}
	t.Fatalf("no list titled %q", title)
	return 0
}

func listIDByTitleFromStore(t *testing.T, store repository.Store, title string) int64 {
	t.Helper()
	lists, err := store.SortedTodoLists(context.Background())
	require.NoError(t, err)
	return listIDByTitle(t, lists, title)
}
