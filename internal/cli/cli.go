// Package cli provides the command-line interface for dsltask.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	webbrowser "github.com/pkg/browser"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ibeckermayer/dsltask/internal/browser"
	"github.com/ibeckermayer/dsltask/internal/config"
	"github.com/ibeckermayer/dsltask/internal/logging"
)

// Version is set at build time.
var Version = "dev"

// Replaced in tests.
var (
	newLauncher = browser.ChromeLauncher
	openPath    = webbrowser.OpenFile
)

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Config file (default: user config dir/dsltask/config.toml)",
		EnvVars: []string{"DSLTASK_CONFIG"},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Enable debug logging",
		EnvVars: []string{"DSLTASK_VERBOSE"},
	},
	&cli.StringFlag{
		Name:  "log-format",
		Usage: "Log encoding (console, json)",
		Value: "console",
	},
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:    "dsltask",
		Usage:   "Apply for the daily chinadsl.net forum task with a saved session cookie",
		Version: Version,
		Description: `dsltask logs into the forum with a session cookie captured from a real
browser, opens the task page and clicks the apply button.

Examples:
  CHINADSL_COOKIE='auth=...; saltkey=...' dsltask run
  dsltask run --task-id 3 --output-dir ./shots --headful
  dsltask open config`,
		Flags: GlobalFlags,
		Commands: []*cli.Command{
			runCommand,
			botTestCommand,
			openCommand,
		},
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: stderr,
		// Exit codes are handled by run so that nothing below calls os.Exit.
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

// Execute runs the CLI and exits with the run's status code.
func Execute() {
	os.Exit(run(newApp(os.Stdin, os.Stdout, os.Stderr), os.Args))
}

func run(app *cli.App, args []string) int {
	err := app.RunContext(context.Background(), args)
	if err == nil {
		return 0
	}

	fmt.Fprintf(app.ErrWriter, "Error: %v\n", err)
	var exit cli.ExitCoder
	if errors.As(err, &exit) {
		return exit.ExitCode()
	}
	return 1
}

func newLogger(c *cli.Context) (*zap.Logger, error) {
	return logging.New(logging.Options{
		Verbose: c.Bool("verbose"),
		Format:  c.String("log-format"),
	})
}

// loadConfig reads the config named by --config, or the default path. A
// missing file is created with defaults on first use.
func loadConfig(c *cli.Context, logger *zap.Logger) (*config.Config, string, error) {
	path := c.String("config")
	if path == "" {
		var err error
		if path, err = config.ConfigPath(); err != nil {
			return nil, "", fmt.Errorf("failed to resolve config path: %w", err)
		}
	}

	cfg, err := config.LoadFile(path)
	switch {
	case err == nil:
		return cfg, path, nil
	case os.IsNotExist(err):
		cfg = config.Default()
		if err := cfg.SaveFile(path); err != nil {
			logger.Warn("Could not save default config", zap.String("path", path), zap.Error(err))
		} else {
			logger.Info("Created default config", zap.String("path", path))
		}
		return cfg, path, nil
	default:
		return nil, "", fmt.Errorf("failed to load config %s: %w", path, err)
	}
}

// setup builds the logger and config every command starts from.
func setup(c *cli.Context) (*zap.Logger, *config.Config, string, error) {
	logger, err := newLogger(c)
	if err != nil {
		return nil, nil, "", cli.Exit(err.Error(), 1)
	}
	cfg, path, err := loadConfig(c, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, "", cli.Exit(err.Error(), 1)
	}
	return logger, cfg, path, nil
}
