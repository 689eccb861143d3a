package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/exitgpt/linerelay/internal/chat"
	"github.com/exitgpt/linerelay/internal/config"
	"github.com/exitgpt/linerelay/internal/conversation"
	"github.com/exitgpt/linerelay/internal/db"
	"github.com/exitgpt/linerelay/internal/line"
	"github.com/exitgpt/linerelay/internal/logger"
	"github.com/exitgpt/linerelay/internal/server"
	"github.com/exitgpt/linerelay/internal/webhook"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	}
}

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBPool,
			provideStore,
			provideWindowBuilder,
			provideChatClient,
			provideLineClient,
			provideDispatcher,
			provideServerHandler(provideWebhookHandler),
			provideServer,
		),
		fx.Invoke(startServer),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideConfig() (config.Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.Postgres); err != nil {
		return nil, fmt.Errorf("db migrate: %w", err)
	}
	pool, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { pool.Close(); return nil }})
	return pool, nil
}

func provideStore(log *slog.Logger, pool *pgxpool.Pool) *conversation.Store {
	return conversation.NewStore(log, pool)
}

func provideWindowBuilder(log *slog.Logger, store *conversation.Store) *conversation.WindowBuilder {
	return conversation.NewWindowBuilder(log, store, chat.SystemPrompt, conversation.DefaultWindowSize)
}

func provideChatClient(log *slog.Logger, cfg config.Config) *chat.Client {
	oc := cfg.OpenAI
	return chat.NewClient(log, oc.BaseURL, oc.APIKey, oc.Model, time.Duration(oc.TimeoutSeconds)*time.Second)
}

func provideLineClient(log *slog.Logger, cfg config.Config) *line.Client {
	lc := cfg.Line
	return line.NewClient(log, lc.APIBase, lc.ChannelAccessToken, time.Duration(lc.TimeoutSeconds)*time.Second)
}

func provideDispatcher(log *slog.Logger, chatClient *chat.Client, windows *conversation.WindowBuilder, store *conversation.Store, lineClient *line.Client) *webhook.Dispatcher {
	return webhook.NewDispatcher(log, chatClient, windows, store, lineClient)
}

func provideWebhookHandler(log *slog.Logger, cfg config.Config, dispatcher *webhook.Dispatcher) *webhook.Handler {
	return webhook.NewHandler(log, cfg.Line, dispatcher)
}

type serverParams struct {
	fx.In
	Logger   *slog.Logger
	Config   config.Config
	Handlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.New(params.Logger, params.Config.Server.Addr, params.Handlers...)
}

func startServer(lc fx.Lifecycle, log *slog.Logger, srv *server.Server, cfg config.Config, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if cfg.Line.ChannelSecret == "" {
				log.Warn("channel secret not configured, webhook signatures will not be verified")
			}
			if cfg.Line.ChannelAccessToken == "" {
				log.Warn("channel access token not configured, replies will fail")
			}
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
