package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"todo-server/internal/config"
	apphttp "todo-server/internal/http"
	"todo-server/internal/ident"
	"todo-server/internal/repository"
	"todo-server/internal/repository/memory"
	"todo-server/internal/repository/sqlite"
	"todo-server/internal/service"
	"todo-server/internal/session"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		logger.Fatalf("auth jwt secret is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ttl := time.Duration(cfg.Auth.TokenTTLMinutes) * time.Minute
	sessions := session.NewManager(cfg.Auth.JWTSecret, ttl, logger)
	sessions.Start(ctx)

	seq := ident.NewSequence()

	var (
		stores    apphttp.StoreFactory
		userStore repository.UserStore
	)

	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		db, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			logger.Fatalf("open database: %v", err)
		}
		defer db.Close()

		if err := sqlite.InitSchema(ctx, db); err != nil {
			logger.Fatalf("init schema: %v", err)
		}

		userStore = sqlite.NewUsers(db)
		stores = func(sess *session.Session) repository.Store {
			username := ""
			if sess != nil {
				username = sess.Username
			}
			return sqlite.NewStore(db, username, logger)
		}
		logger.Infof("using sqlite backend at %s", cfg.Database.Path)

	case config.BackendSession:
		users := memory.NewUsers(seq)
		if cfg.Auth.DevUsername != "" {
			if err := users.Seed(cfg.Auth.DevUsername, cfg.Auth.DevPassword); err != nil {
				logger.Fatalf("seed dev user: %v", err)
			}
		}
		userStore = users
		stores = func(sess *session.Session) repository.Store {
			state := &session.State{}
			if sess != nil {
				state = sess.State
			}
			return memory.NewStore(state, users, seq)
		}
		logger.Info("using in-memory session backend")
	}

	userService := service.NewUserService(userStore, cfg.Auth.RegisterPassword)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(
		stores,
		sessions,
		userService,
		int(ttl/time.Second),
		logger,
	)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}
