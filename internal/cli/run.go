package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ibeckermayer/dsltask/internal/config"
	"github.com/ibeckermayer/dsltask/internal/runner"
)

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "Apply for the task once",
	Description: `Reads the session cookie from --cookie, or from the environment variable
named by auth.cookie_env (CHINADSL_COOKIE by default).

Exit status: 0 applied, already applied, on cooldown or unknown;
1 missing cookie or error; 2 login failed; 3 apply button not found.`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "cookie",
			Usage: "Session cookie string (name=value; name=value)",
		},
		&cli.IntFlag{
			Name:  "task-id",
			Usage: "Task to apply for (overrides site.task_id)",
		},
		&cli.StringFlag{
			Name:    "output-dir",
			Aliases: []string{"o"},
			Usage:   "Directory for screenshots and page dumps (overrides output.dir)",
		},
		&cli.BoolFlag{
			Name:  "headful",
			Usage: "Show the browser window",
		},
		&cli.StringFlag{
			Name:    "exec-path",
			Usage:   "Chrome executable (overrides browser.exec_path)",
			EnvVars: []string{"DSLTASK_CHROME"},
		},
	},
	Action: runTask,
}

func runTask(c *cli.Context) error {
	logger, cfg, _, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	applyRunFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return cli.Exit(fmt.Sprintf("invalid config: %v", err), 1)
	}

	cookieHeader := c.String("cookie")
	if cookieHeader == "" {
		cookieHeader = os.Getenv(cfg.Auth.CookieEnv)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting task run",
		zap.Int("task_id", cfg.Site.TaskID),
		zap.String("output_dir", cfg.Output.Dir),
		zap.Bool("headless", cfg.Browser.Headless),
	)

	res, err := runner.New(cfg, newLauncher(logger), logger).Run(ctx, cookieHeader)
	code := res.Outcome.ExitCode()
	if code == 0 {
		return nil
	}
	if err != nil {
		return cli.Exit(err.Error(), code)
	}
	return cli.Exit(fmt.Sprintf("run ended with outcome %s", res.Outcome), code)
}

// applyRunFlags lets command-line flags override the config file.
func applyRunFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("task-id") {
		cfg.Site.TaskID = c.Int("task-id")
	}
	if c.IsSet("output-dir") {
		cfg.Output.Dir = c.String("output-dir")
	}
	if c.Bool("headful") {
		cfg.Browser.Headless = false
	}
	if c.IsSet("exec-path") {
		cfg.Browser.ExecPath = c.String("exec-path")
	}
}
