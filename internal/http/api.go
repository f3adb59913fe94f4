package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"todo-server/internal/repository"
	"todo-server/internal/service"
	"todo-server/internal/session"
)

const sessionKey = "session"

// StoreFactory builds a persistence store bound to the given session. A nil
// session yields a store bound to no user, usable only for credential checks.
type StoreFactory func(sess *session.Session) repository.Store

// Handler wires HTTP routes to the persistence contract and session manager.
type Handler struct {
	stores       StoreFactory
	sessions     *session.Manager
	users        service.UserService
	cookieMaxAge int
	logger       *logrus.Logger
}

func NewHandler(stores StoreFactory, sessions *session.Manager, users service.UserService, cookieMaxAge int, logger *logrus.Logger) *Handler {
	return &Handler{
		stores:       stores,
		sessions:     sessions,
		users:        users,
		cookieMaxAge: cookieMaxAge,
		logger:       logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	api := router.Group("/api")
	{
		api.POST("/auth/signin", h.signIn)
		api.POST("/auth/signout", h.signOut)
		api.POST("/auth/register", h.register)
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})

		lists := api.Group("/lists", h.requireAuth())
		{
			lists.GET("", h.listTodoLists)
			lists.POST("", h.createTodoList)
			lists.GET("/:listID", h.showTodoList)
			lists.PATCH("/:listID", h.renameTodoList)
			lists.DELETE("/:listID", h.deleteTodoList)
			lists.POST("/:listID/todos", h.createTodo)
			lists.POST("/:listID/complete", h.completeAll)
			lists.POST("/:listID/todos/:todoID/toggle", h.toggleTodo)
			lists.DELETE("/:listID/todos/:todoID", h.deleteTodo)
		}
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(session.CookieName)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Please sign in."})
			return
		}
		sess, err := h.sessions.Resolve(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Please sign in."})
			return
		}
		c.Set(sessionKey, sess)
		c.Next()
	}
}

func sessionFrom(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}

func (h *Handler) store(c *gin.Context) repository.Store {
	return h.stores(sessionFrom(c))
}

// fail hides unexpected storage errors behind a generic response.
func (h *Handler) fail(c *gin.Context, err error) {
	h.logger.WithError(err).Error("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong."})
}

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) signIn(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	username := strings.TrimSpace(req.Username)

	valid, err := h.stores(nil).ValidateCredentials(c.Request.Context(), username, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !valid {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials."})
		return
	}

	token, _, err := h.sessions.Issue(username)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.SetCookie(session.CookieName, token, h.cookieMaxAge, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"username": username, "message": "Welcome!"})
}

func (h *Handler) signOut(c *gin.Context) {
	if token, err := c.Cookie(session.CookieName); err == nil {
		if sess, err := h.sessions.Resolve(token); err == nil {
			h.sessions.Revoke(sess.ID)
		}
	}
	c.SetCookie(session.CookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "You have been signed out."})
}

type registerRequest struct {
	Username             string `json:"username" binding:"required"`
	Password             string `json:"password" binding:"required"`
	RegistrationPassword string `json:"registration_password"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Username, req.Password, req.RegistrationPassword)
	switch {
	case errors.Is(err, service.ErrInvalidRegistrationPassword):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	case errors.Is(err, service.ErrUserAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"username": user.Username})
}

type todoListSummary struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	CountAllTodos  int    `json:"count_all_todos"`
	CountDoneTodos int    `json:"count_done_todos"`
	IsDone         bool   `json:"is_done"`
}

func (h *Handler) listTodoLists(c *gin.Context) {
	lists, err := h.store(c).SortedTodoLists(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := make([]todoListSummary, len(lists))
	for i, list := range lists {
		resp[i] = todoListSummary{
			ID:             list.ID,
			Title:          list.Title,
			CountAllTodos:  len(list.Todos),
			CountDoneTodos: list.CountDoneTodos(),
			IsDone:         list.IsDone(),
		}
	}
	c.JSON(http.StatusOK, resp)
}

type titleRequest struct {
	Title string `json:"title"`
}

func (h *Handler) createTodoList(c *gin.Context) {
	var req titleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	title, msg := validateTitle(req.Title, "list")
	if msg != "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": msg})
		return
	}

	store := h.store(c)
	exists, err := store.ExistsTodoListTitle(c.Request.Context(), title)
	if err != nil {
		h.fail(c, err)
		return
	}
	if exists {
		c.JSON(http.StatusConflict, gin.H{"error": "The list title must be unique."})
		return
	}

	err = store.AddTodoList(c.Request.Context(), title)
	if errors.Is(err, repository.ErrDuplicateTitle) {
		c.JSON(http.StatusConflict, gin.H{"error": "The list title must be unique."})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "The todo list has been created."})
}

type todoResponse struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Done  bool   `json:"done"`
}

type todoListResponse struct {
	ID             int64          `json:"id"`
	Title          string         `json:"title"`
	IsDone         bool           `json:"is_done"`
	HasUndoneTodos bool           `json:"has_undone_todos"`
	Todos          []todoResponse `json:"todos"`
}

func (h *Handler) showTodoList(c *gin.Context) {
	listID, ok := parseID(c, "listID")
	if !ok {
		return
	}

	store := h.store(c)
	list, err := store.LoadTodoList(c.Request.Context(), listID)
	if errors.Is(err, repository.ErrNotFound) {
		notFound(c)
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	todos, err := store.SortedTodos(c.Request.Context(), listID)
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := todoListResponse{
		ID:             list.ID,
		Title:          list.Title,
		IsDone:         list.IsDone(),
		HasUndoneTodos: list.HasUndoneTodos(),
		Todos:          make([]todoResponse, len(todos)),
	}
	for i, todo := range todos {
		resp.Todos[i] = todoResponse{ID: todo.ID, Title: todo.Title, Done: todo.Done}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) renameTodoList(c *gin.Context) {
	listID, ok := parseID(c, "listID")
	if !ok {
		return
	}

	var req titleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	title, msg := validateTitle(req.Title, "list")
	if msg != "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": msg})
		return
	}

	store := h.store(c)
	exists, err := store.ExistsTodoListTitle(c.Request.Context(), title)
	if err != nil {
		h.fail(c, err)
		return
	}
	if exists {
		c.JSON(http.StatusConflict, gin.H{"error": "The list title must be unique."})
		return
	}

	switch err := store.SetTodoListTitle(c.Request.Context(), listID, title); {
	case errors.Is(err, repository.ErrNotFound):
		notFound(c)
	case errors.Is(err, repository.ErrDuplicateTitle):
		c.JSON(http.StatusConflict, gin.H{"error": "The list title must be unique."})
	case err != nil:
		h.fail(c, err)
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Todo list title updated."})
	}
}

func (h *Handler) deleteTodoList(c *gin.Context) {
	listID, ok := parseID(c, "listID")
	if !ok {
		return
	}

	deleted, err := h.store(c).DeleteTodoList(c.Request.Context(), listID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !deleted {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Todo list has been deleted"})
}

func (h *Handler) createTodo(c *gin.Context) {
	listID, ok := parseID(c, "listID")
	if !ok {
		return
	}

	var req titleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	title, msg := validateTitle(req.Title, "todo")
	if msg != "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": msg})
		return
	}

	added, err := h.store(c).AddTodo(c.Request.Context(), listID, title)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !added {
		notFound(c)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Todo has been created!"})
}

func (h *Handler) completeAll(c *gin.Context) {
	listID, ok := parseID(c, "listID")
	if !ok {
		return
	}

	marked, err := h.store(c).MarkAllDone(c.Request.Context(), listID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !marked {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All todos have been marked done"})
}

func (h *Handler) toggleTodo(c *gin.Context) {
	listID, ok := parseID(c, "listID")
	if !ok {
		return
	}
	todoID, ok := parseID(c, "todoID")
	if !ok {
		return
	}

	store := h.store(c)
	toggled, err := store.ToggleTodo(c.Request.Context(), listID, todoID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !toggled {
		notFound(c)
		return
	}

	todo, err := store.LoadTodo(c.Request.Context(), listID, todoID)
	if errors.Is(err, repository.ErrNotFound) {
		notFound(c)
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	message := todo.Title + " has been marked NOT done"
	if todo.Done {
		message = todo.Title + " has been marked done"
	}
	c.JSON(http.StatusOK, gin.H{
		"todo":    todoResponse{ID: todo.ID, Title: todo.Title, Done: todo.Done},
		"message": message,
	})
}

func (h *Handler) deleteTodo(c *gin.Context) {
	listID, ok := parseID(c, "listID")
	if !ok {
		return
	}
	todoID, ok := parseID(c, "todoID")
	if !ok {
		return
	}

	deleted, err := h.store(c).DeleteTodo(c.Request.Context(), listID, todoID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !deleted {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Todo has been deleted"})
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "Not found."})
}

func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param})
		return 0, false
	}
	return id, true
}

// validateTitle enforces the 1-100 character rule shared by list and todo titles.
func validateTitle(raw, kind string) (string, string) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", "The " + kind + " title is required."
	}
	if utf8.RuneCountInString(title) > 100 {
		return "", "The " + kind + " title must be between 1 and 100 characters."
	}
	return title, ""
}
