package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"restock-watcher/internal/config"
	"restock-watcher/internal/types"
	"restock-watcher/monitor"
	"restock-watcher/notify"
	"restock-watcher/store"
	"restock-watcher/utils"
)

// app carries what every command needs once flags are parsed
type app struct {
	env    config.Env
	logger *logrus.Logger
	config *types.Config

	targetsFile string
	stateDSN    string
	httpOnly    bool
	verbose     bool
}

func newRootCmd() *cobra.Command {
	a := &app{config: types.DefaultConfig()}

	root := &cobra.Command{
		Use:           "restock-watcher",
		Short:         "Watches product pages for shoe sizes coming back in stock and alerts on Telegram.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		// Without a subcommand behave like `run`, one cycle for an external scheduler
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.targetsFile, "targets", "", "JSON5 target registry (default: $TARGETS_FILE or the built-in pages)")
	flags.StringVar(&a.stateDSN, "state", "", "Status store: memory, a sqlite file or a libsql URL (default: $STATE_DSN, none)")
	flags.BoolVar(&a.httpOnly, "http-only", false, "Use HTTP requests only (disable headless browser)")
	flags.BoolVar(&a.verbose, "verbose", false, "Enable verbose logging")
	flags.DurationVar(&a.config.NavigationTimeout, "navigation-timeout", a.config.NavigationTimeout, "Page navigation timeout")
	flags.DurationVar(&a.config.IdleTimeout, "idle-timeout", a.config.IdleTimeout, "Network idle wait after navigation")
	flags.DurationVar(&a.config.ElementTimeout, "element-timeout", a.config.ElementTimeout, "Wait for the size block to appear")
	flags.DurationVar(&a.config.CycleTimeout, "cycle-timeout", a.config.CycleTimeout, "Deadline for a whole cycle")
	flags.DurationVar(&a.config.RequestDelay, "delay", a.config.RequestDelay, "Delay between HTTP requests (--http-only)")
	flags.IntVar(&a.config.MaxRetries, "retries", a.config.MaxRetries, "Maximum HTTP retry attempts (--http-only)")

	root.AddCommand(
		newRunCmd(a),
		newWatchCmd(a),
		newCheckCmd(a),
		newInspectCmd(a),
	)
	return root
}

func (a *app) init() error {
	a.env = config.FromEnv()

	logger, err := utils.NewLogger(utils.LogOptions{
		Level:   a.env.LogLevel,
		Verbose: a.verbose,
		Dir:     a.env.LogDir,
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	a.logger = logger

	if a.targetsFile == "" {
		a.targetsFile = a.env.TargetsFile
	}
	if a.stateDSN == "" {
		a.stateDSN = a.env.StateDSN
	}
	a.config.UseHeadlessBrowser = !a.httpOnly
	return nil
}

// telegram builds the live dispatcher; missing credentials fail before any page is loaded
func (a *app) telegram() (*notify.Telegram, error) {
	token, chatID, err := a.env.Credentials()
	if err != nil {
		return nil, err
	}
	var opts []notify.Option
	if a.env.TelegramAPIURL != "" {
		opts = append(opts, notify.WithAPIURL(a.env.TelegramAPIURL))
	}
	return notify.NewTelegram(token, chatID, a.logger, opts...)
}

func (a *app) loaderFactory() monitor.LoaderFactory {
	return func(ctx context.Context) (types.PageLoader, error) {
		return utils.NewPageLoader(ctx, a.config, a.logger)
	}
}

// newMonitor loads the registry and opens the status store named by dsn.
// The returned store is nil when dsn is empty.
func (a *app) newMonitor(ctx context.Context, dispatcher types.Dispatcher, dsn string) (*monitor.Monitor, store.StatusStore, error) {
	targets, err := config.LoadTargets(a.targetsFile, a.logger)
	if err != nil {
		return nil, nil, err
	}

	statusStore, err := store.Open(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to open status store: %v", types.ErrConfiguration, err)
	}

	a.logger.Infof("Monitoring %d target(s)", len(targets))
	for _, t := range targets {
		a.logger.Debugf("  %s %v", t.URL, t.Sizes)
	}
	return monitor.NewMonitor(a.config, targets, a.loaderFactory(), dispatcher, statusStore, a.logger), statusStore, nil
}

func closeStore(s store.StatusStore) error {
	if s == nil {
		return nil
	}
	return s.Close()
}

func main() {
	root := newRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "%s error: %v\n", time.Now().Format("2006-01-02 15:04:05.000"), err)
		if errors.Is(err, types.ErrConfiguration) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
