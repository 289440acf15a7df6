package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/contre95/mailwatch/src/features/config"
	"github.com/contre95/mailwatch/src/features/history"
	"github.com/contre95/mailwatch/src/features/hosting"
	"github.com/contre95/mailwatch/src/features/logging"
	"github.com/contre95/mailwatch/src/features/metrics"
	"github.com/contre95/mailwatch/src/features/watching"
	"github.com/contre95/mailwatch/src/infra/database"
	"github.com/contre95/mailwatch/src/infra/mailer"
	"github.com/contre95/mailwatch/src/infra/watcher"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	version = "0.1.0"
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mailwatch",
		Short: "Mail new files dropped into a directory",
		Long: `Mailwatch polls a directory and emails every new file whose name matches
one of the configured suffixes. It can be driven from a web panel, a Telegram
bot or run headless.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file")

	rootCmd.AddCommand(serveCmd(), runCmd(), serviceCmd(), intervalsCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("mailwatch version %s\n", version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds everything the commands share.
type app struct {
	cfg       *config.Manager
	store     *database.SqliteHistory
	watch     *watching.Service
	history   *history.Service
	collector *metrics.Collector
}

func newApp(path string) (*app, error) {
	cfgManager, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.SetupLogger(cfgManager)
	slog.SetDefault(logger)

	store, err := database.NewSqliteHistory(cfgManager.Get().Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	dispatcher := history.NewRecordingDispatcher(mailer.NewMailer(cfgManager), store)

	opts := []watching.ServiceOption{
		watching.WithSink(watching.LogSink{Logger: logger}),
		watching.WithActivity(watcher.NewActivityFactory()),
	}
	var collector *metrics.Collector
	if cfgManager.Get().Metrics.Enabled {
		collector = metrics.NewCollector()
		opts = append(opts, watching.WithServiceObserver(collector), watching.WithSink(collector))
	}

	return &app{
		cfg:       cfgManager,
		store:     store,
		watch:     watching.NewService(cfgManager, dispatcher, opts...),
		history:   history.NewService(store),
		collector: collector,
	}, nil
}

func (a *app) Close() {
	a.watch.Close()
	if err := a.store.Close(); err != nil {
		slog.Warn("Failed to close history database", "error", err)
	}
}

// serve runs the web panel, the bot and an auto-started watch until ctx is done.
func (a *app) serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	server := hosting.NewServer(a.cfg, a.watch, a.history, a.collector)
	g.Go(func() error {
		if err := server.Start(); err != nil {
			return fmt.Errorf("web panel stopped: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("Shutting down server...")
		return server.Shutdown()
	})

	if a.cfg.Get().Telegram.Enabled {
		bot, err := hosting.NewTelegramBot(a.cfg, a.watch, a.history)
		if err != nil {
			slog.Error("Failed to initialize Telegram bot", "error", err)
		} else {
			g.Go(func() error {
				bot.Start()
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				bot.Stop()
				slog.Info("Telegram bot stopped")
				return nil
			})
		}
	}

	if err := a.watch.AutoStart(); err != nil {
		slog.Error("Auto start failed", "error", err)
	}

	return g.Wait()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web panel, the Telegram bot and the watcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cfgFile)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signalContext()
			defer stop()
			return a.serve(ctx)
		},
	}
}

func runCmd() *cobra.Command {
	var req watching.Request
	var suffixes string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Watch a directory without the web panel",
		Long:  "Watch a directory and mail new files until interrupted. Flags override the watch section of the config.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cfgFile)
			if err != nil {
				return err
			}
			defer a.Close()

			base := a.watch.RequestFromConfig()
			if req.Directory == "" {
				req.Directory = base.Directory
			}
			if req.Recipient == "" {
				req.Recipient = base.Recipient
			}
			if req.Sender == "" {
				req.Sender = base.Sender
			}
			if req.Interval == "" {
				req.Interval = base.Interval
			}
			req.Suffixes = base.Suffixes
			if suffixes != "" {
				req.Suffixes = strings.Split(suffixes, ",")
			}

			if err := a.watch.Start(req); err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().StringVarP(&req.Directory, "dir", "d", "", "directory to watch")
	cmd.Flags().StringVar(&req.Recipient, "to", "", "recipient address")
	cmd.Flags().StringVar(&req.Sender, "from", "", "sender address")
	cmd.Flags().StringVarP(&req.Interval, "interval", "i", "", "scan interval, e.g. 30s, 5min, 1h")
	cmd.Flags().StringVar(&suffixes, "suffixes", "", "comma separated suffixes, e.g. .csv,.txt")
	return cmd
}

func intervalsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "intervals",
		Short: "List the interval presets",
		Run: func(cmd *cobra.Command, args []string) {
			for _, preset := range watching.Intervals {
				secs, err := watching.ParseInterval(preset)
				if err != nil {
					log.Fatalf("bad preset %q: %v", preset, err)
				}
				fmt.Printf("%-6s %5ds\n", preset, secs)
			}
		},
	}
}

// ignoreCanceled hides the error a clean shutdown produces.
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
