package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/magpie-ai/magpie/internal/config"
	"github.com/magpie-ai/magpie/internal/session"
	"github.com/magpie-ai/magpie/internal/ui"
)

// sessionListLimit caps the number of sessions shown by list.
const sessionListLimit = 100

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage local conversation sessions",
}

func init() {
	sessionsCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List sessions, most recent first",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runSessionsList(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "show <session-id>",
			Short: "Show the messages of a session",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSessionsShow(cmd.Context(), args[0])
			},
		},
		&cobra.Command{
			Use:   "switch <session-id>",
			Short: "Make a session the current one",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSessionsSwitch(cmd.Context(), args[0])
			},
		},
		&cobra.Command{
			Use:   "new",
			Short: "Start a fresh session and make it current",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runSessionsNew(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "rename <session-id> <title>",
			Short: "Set a session's title",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSessionsRename(cmd.Context(), args[0], strings.Join(args[1:], " "))
			},
		},
		&cobra.Command{
			Use:   "delete <session-id>",
			Short: "Delete a session and its messages",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSessionsDelete(cmd.Context(), args[0])
			},
		},
	)
	rootCmd.AddCommand(sessionsCmd)
}

// withStore wires the history store for session subcommands, which need no
// backend connection.
func withStore(fn func(a *app, console *ui.Console) error) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	return fn(a, ui.NewConsole(os.Stdout, consoleWidth()))
}

func runSessionsList(ctx context.Context) error {
	return withStore(func(a *app, console *ui.Console) error {
		sessions, err := a.store.ListSessions(ctx, sessionListLimit)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}

		dir, err := config.Dir()
		if err != nil {
			return err
		}
		current := ""
		if id, err := session.LoadCurrentSessionID(dir); err == nil && id != nil {
			current = id.String()
		}

		console.PrintSessions(sessions, current)
		return nil
	})
}

func runSessionsShow(ctx context.Context, rawID string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid session ID: %s", rawID)
	}

	return withStore(func(a *app, console *ui.Console) error {
		sess, err := a.store.GetSession(ctx, id)
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}

		messages, err := a.store.Messages(ctx, id)
		if err != nil {
			return fmt.Errorf("get messages: %w", err)
		}

		title := sess.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("Session: %s\nTitle: %s\nMessages: %d\n\n", sess.ID, title, len(messages))
		console.PrintTranscript(messages)
		return nil
	})
}

func runSessionsSwitch(ctx context.Context, rawID string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid session ID: %s", rawID)
	}

	return withStore(func(a *app, _ *ui.Console) error {
		if _, err := a.store.GetSession(ctx, id); err != nil {
			return fmt.Errorf("get session: %w", err)
		}

		dir, err := config.Dir()
		if err != nil {
			return err
		}
		if err := session.SaveCurrentSessionID(dir, id); err != nil {
			return fmt.Errorf("save session state: %w", err)
		}

		fmt.Printf("Switched to session %s\n", id)
		return nil
	})
}

func runSessionsNew(ctx context.Context) error {
	return withStore(func(a *app, _ *ui.Console) error {
		sess, err := a.store.CreateSession(ctx, "")
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}

		dir, err := config.Dir()
		if err != nil {
			return err
		}
		if err := session.SaveCurrentSessionID(dir, sess.ID); err != nil {
			return fmt.Errorf("save session state: %w", err)
		}

		fmt.Printf("Started session %s\n", sess.ID)
		return nil
	})
}

func runSessionsRename(ctx context.Context, rawID, title string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid session ID: %s", rawID)
	}

	return withStore(func(a *app, _ *ui.Console) error {
		if err := a.store.SetTitle(ctx, id, title); err != nil {
			return fmt.Errorf("rename session: %w", err)
		}
		fmt.Printf("Renamed session %s\n", id)
		return nil
	})
}

func runSessionsDelete(ctx context.Context, rawID string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid session ID: %s", rawID)
	}

	return withStore(func(a *app, _ *ui.Console) error {
		if err := a.store.DeleteSession(ctx, id); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}

		// Clear the current-session pointer if it referenced the
		// deleted session.
		dir, err := config.Dir()
		if err != nil {
			return err
		}
		if current, err := session.LoadCurrentSessionID(dir); err == nil && current != nil && *current == id {
			if err := session.ClearCurrentSessionID(dir); err != nil {
				a.logger.Warn("failed to clear session state", "error", err)
			}
		}

		fmt.Printf("Deleted session %s\n", id)
		return nil
	})
}
