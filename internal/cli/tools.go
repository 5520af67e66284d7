package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ibeckermayer/dsltask/internal/browser"
	"github.com/ibeckermayer/dsltask/internal/page"
)

var botTestCommand = &cli.Command{
	Name:   "bot-test",
	Usage:  "Open bot.sannysoft.com with the run's browser options to audit the fingerprint",
	Action: botTest,
}

func botTest(c *cli.Context) error {
	logger, cfg, _, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	opts := browser.OptionsFromConfig(cfg.Browser)
	opts.Headless = false // so you can see it

	logger.Info("Opening fingerprint audit page", zap.String("url", page.BotTestURL))
	b, err := newLauncher(logger)(c.Context, opts)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to launch browser: %v", err), 1)
	}
	defer b.Close()

	if err := b.Navigate(c.Context, page.BotTestURL); err != nil {
		return cli.Exit(fmt.Sprintf("failed to navigate: %v", err), 1)
	}

	fmt.Fprintln(c.App.Writer, "Press Enter to close the browser...")
	_, _ = bufio.NewReader(c.App.Reader).ReadString('\n')

	logger.Info("Done")
	return nil
}

var openCommand = &cli.Command{
	Name:      "open",
	Usage:     "Open the config file or the output directory",
	ArgsUsage: "<config|output>",
	Action:    openTarget,
}

func openTarget(c *cli.Context) error {
	logger, cfg, configPath, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var path string
	switch target := c.Args().First(); target {
	case "config":
		path = configPath
	case "output":
		if path, err = filepath.Abs(cfg.Output.Dir); err != nil {
			return cli.Exit(fmt.Sprintf("failed to resolve output dir: %v", err), 1)
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return cli.Exit(fmt.Sprintf("failed to create output dir: %v", err), 1)
		}
	default:
		return cli.Exit(fmt.Sprintf("unknown target %q, want config or output", target), 1)
	}

	if err := openPath(path); err != nil {
		return cli.Exit(fmt.Sprintf("failed to open %s: %v", path, err), 1)
	}
	logger.Debug("Opened", zap.String("path", path))
	return nil
}
