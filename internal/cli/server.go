package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"prime-quiz-bot/internal/app"
	"prime-quiz-bot/internal/config"
	"prime-quiz-bot/internal/logger"
	transport "prime-quiz-bot/internal/transport/http"
	"prime-quiz-bot/internal/transport/telegram"
)

// NewStartCmd builds the CLI subcommand that runs the bot.
func NewStartCmd(configPath, port *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the Telegram bot and the websocket front-end",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
	cmd.Flags().StringVar(port, "port", "", "port to listen on (overrides config)")
	return cmd
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openRecordStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	wsHandler := transport.NewWSHandler(cfg.Server.WSToken)
	var bot *telegram.Bot
	notifier := routeNotifier{ws: wsHandler}
	if cfg.Bot.Token != "" {
		bot, err = telegram.NewBot(cfg.Bot.Token)
		if err != nil {
			return err
		}
		notifier.telegram = bot
	} else {
		slog.Warn("no telegram token configured")
	}

	service, err := newQuizService(ctx, cfg, store, notifier)
	if err != nil {
		return err
	}
	controller := app.NewController(cfg.Bot.AdminID, service, notifier)
	wsHandler.Bind(controller)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	if cfg.Server.WSToken != "" {
		mux.HandleFunc("/ws", wsHandler.ServeWS)
		slog.Info("websocket front-end enabled", "path", "/ws")
	}

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting quiz bot", "port", finalPort, "storage", cfg.Storage.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if bot != nil {
		g.Go(func() error {
			return bot.Run(gctx, controller)
		})
	}
	return g.Wait()
}
