package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/magpie-ai/magpie/internal/assemble"
	"github.com/magpie-ai/magpie/internal/ui"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question and print the answer",
	Long: `Ask sends one question, waits for the full response and prints it
with per-agent attribution. The exchange is recorded in the current
session like any interactive message.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(_ *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			a.logger.Warn("close error", "error", closeErr)
		}
	}()

	sessionID, err := a.currentSession(ctx)
	if err != nil {
		return fmt.Errorf("resolve session: %w", err)
	}

	question := strings.Join(args, " ")

	ctx, cancelTimeout := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	defer cancelTimeout()

	console := ui.NewConsole(os.Stdout, consoleWidth())
	messages, err := a.chat.Send(ctx, sessionID, question, assemble.Handler{})
	if err != nil {
		console.PrintError(err)
		return err
	}

	for _, msg := range messages {
		console.PrintMessage(msg)
	}
	return nil
}

// consoleWidth returns the terminal width, or 80 when stdout is not a TTY.
func consoleWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}
