package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/magpie-ai/magpie/internal/chat"
	"github.com/magpie-ai/magpie/internal/config"
	"github.com/magpie-ai/magpie/internal/database"
	"github.com/magpie-ai/magpie/internal/log"
	"github.com/magpie-ai/magpie/internal/session"
	"github.com/magpie-ai/magpie/internal/stream"
)

// app bundles the wired dependencies shared by the chat, ask and sessions
// commands.
type app struct {
	cfg    *config.Config
	logger log.Logger
	db     *sql.DB
	store  *session.Store
	chat   *chat.Client
}

// newApp loads configuration and wires the full client stack:
// config -> logger -> history database -> stream client -> chat client.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := log.New(log.Config{Level: level, JSON: cfg.LogJSON})

	db, err := database.Open(cfg.HistoryDBPath)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate history database: %w", err)
	}

	store := session.NewStore(db, logger)

	streamClient, err := stream.NewClient(stream.Config{
		BaseURL: cfg.BackendURL,
		AppName: cfg.AppName,
		UserID:  cfg.UserID,
		Logger:  logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create stream client: %w", err)
	}

	chatClient, err := chat.New(chat.Config{
		Streamer: chat.NewStreamer(streamClient),
		History:  store,
		Logger:   logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create chat client: %w", err)
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		db:     db,
		store:  store,
		chat:   chatClient,
	}, nil
}

// Close releases the app's resources.
func (a *app) Close() error {
	return a.db.Close()
}

// currentSession returns the session to resume, creating a new one when no
// valid current session exists. The returned ID also names the remote
// platform session.
func (a *app) currentSession(ctx context.Context) (uuid.UUID, error) {
	dir, err := config.Dir()
	if err != nil {
		return uuid.Nil, err
	}

	currentID, err := session.LoadCurrentSessionID(dir)
	if err != nil {
		return uuid.Nil, fmt.Errorf("load session state: %w", err)
	}

	if currentID != nil {
		_, err = a.store.GetSession(ctx, *currentID)
		if err == nil {
			return *currentID, nil
		}
		if !errors.Is(err, session.ErrSessionNotFound) {
			return uuid.Nil, fmt.Errorf("validate session: %w", err)
		}
		// Stale pointer, fall through and create a fresh session
	}

	sess, err := a.store.CreateSession(ctx, "")
	if err != nil {
		return uuid.Nil, fmt.Errorf("create session: %w", err)
	}

	if err := session.SaveCurrentSessionID(dir, sess.ID); err != nil {
		a.logger.Warn("failed to save session state", "error", err)
	}

	return sess.ID, nil
}
