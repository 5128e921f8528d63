package cmd

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/api/schemas"
	"github.com/xkilldash9x/pagepilot/internal/browser"
	"github.com/xkilldash9x/pagepilot/internal/dispatch"
	"github.com/xkilldash9x/pagepilot/internal/history"
	"github.com/xkilldash9x/pagepilot/internal/observability"
	"github.com/xkilldash9x/pagepilot/internal/session"
)

// newRunCmd creates and configures the `run` command. It executes a script of
// action commands (one per line) against a single fresh session:
//
//	GOTO https://example.com
//	ACT type #q pagepilot
//	ACT click #search
//	OBSERVE #results
//	EXTRACT #results .first
//	SCREENSHOT
//	CLOSE
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run [script]",
		Short: "Runs a script of browser actions in a fresh session",
		Long: "Reads action commands, one per line, from the script file (or stdin when " +
			"omitted) and executes them in order against a new isolated session. " +
			"Blank lines and lines starting with '#' are skipped. Any action failure " +
			"destroys the session and aborts the script.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Signal-aware context from Execute.
			ctx := cmd.Context()
			logger := observability.GetLogger()

			input := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open script: %w", err)
				}
				defer f.Close()
				input = f
			}

			recorder, dbPool, err := initializeRecorder(ctx, logger)
			if err != nil {
				return err
			}
			if dbPool != nil {
				defer dbPool.Close()
			}

			launcher := browser.NewLauncher(ctx, logger, cfg.Browser)
			registry := session.NewRegistry(logger, launcher, cfg.Session)
			defer func() {
				// Teardown gets its own deadline; the signal context may
				// already be dead when we arrive here.
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Session.ShutdownTimeout)
				defer cancel()
				registry.CloseAll(shutdownCtx)
			}()

			disp := dispatch.New(logger, registry, recorder)

			id, err := registry.Create(ctx)
			if err != nil {
				return fmt.Errorf("failed to create session: %w", err)
			}
			logger.Info("Session ready", zap.String("session_id", id))

			artifacts, _ := cmd.Flags().GetString("artifacts")
			return runScript(ctx, cmd.OutOrStdout(), disp, id, input, artifacts)
		},
	}

	runCmd.Flags().String("artifacts", "artifacts", "Directory where screenshots are written.")
	return runCmd
}

// initializeRecorder connects the optional PostgreSQL audit trail. With no
// history URL configured every action is simply not recorded.
func initializeRecorder(ctx context.Context, logger *zap.Logger) (history.Recorder, *pgxpool.Pool, error) {
	if cfg.History.URL == "" {
		return history.Nop{}, nil, nil
	}

	dbPool, err := pgxpool.New(ctx, cfg.History.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to history database: %w", err)
	}

	store, err := history.New(ctx, dbPool, logger)
	if err != nil {
		dbPool.Close()
		return nil, nil, fmt.Errorf("failed to initialize history store: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		dbPool.Close()
		return nil, nil, fmt.Errorf("failed to migrate history schema: %w", err)
	}
	return store, dbPool, nil
}

// runScript executes the command lines in order. The first failing action
// aborts the script; by then the dispatcher has already torn the session down.
func runScript(ctx context.Context, out io.Writer, disp *dispatch.Dispatcher, sessionID string, input io.Reader, artifactsDir string) error {
	logger := observability.GetLogger()

	scanner := bufio.NewScanner(input)
	lineNo := 0
	shots := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("script aborted: %w", err)
		}

		method, instruction, err := dispatch.ParseCommand(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}

		res, err := disp.Run(ctx, schemas.ActionRequest{
			SessionID:   sessionID,
			Method:      method,
			Instruction: instruction,
		})
		if err != nil {
			return fmt.Errorf("line %d (%s): %w", lineNo, method, err)
		}

		switch {
		case res.Extracted != nil:
			fmt.Fprintln(out, *res.Extracted)
		case res.Observed != "":
			logger.Info("Target observed", zap.String("selector", res.Observed))
		case res.Screenshot != "":
			shots++
			path, err := writeScreenshot(artifactsDir, sessionID, shots, res.Screenshot)
			if err != nil {
				return fmt.Errorf("line %d: %w", lineNo, err)
			}
			logger.Info("Screenshot captured", zap.String("path", path))
		}

		if method == schemas.MethodClose {
			logger.Info("Session closed by script", zap.String("session_id", sessionID))
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}
	return nil
}

// writeScreenshot decodes one captured rendering into the artifacts directory.
func writeScreenshot(dir, sessionID string, seq int, encoded string) (string, error) {
	png, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode screenshot: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifacts directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s-%03d-%d.png", sessionID, seq, time.Now().Unix()))
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}
	return path, nil
}
