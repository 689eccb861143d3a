package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/exitgpt/linerelay/internal/config"
	"github.com/exitgpt/linerelay/internal/line"
	"github.com/exitgpt/linerelay/internal/logger"
)

func newRichMenuCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "richmenu",
		Short: "Create the default rich menu and set it for all users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRichMenu(cmd.Context())
		},
	}
}

func runRichMenu(ctx context.Context) error {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	log := logger.L

	if cfg.Line.ChannelAccessToken == "" {
		return fmt.Errorf("channel access token is required")
	}
	if cfg.Line.LiffAppURL == "" {
		return fmt.Errorf("liff app url is required")
	}

	client := line.NewClient(log, cfg.Line.APIBase, cfg.Line.ChannelAccessToken, time.Duration(cfg.Line.TimeoutSeconds)*time.Second)

	ctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Line.TimeoutSeconds)*time.Second)
	defer cancel()

	existing, err := client.ListRichMenus(ctx)
	if err != nil {
		return fmt.Errorf("list rich menus: %w", err)
	}
	for _, menu := range existing {
		log.Info("existing rich menu",
			slog.String("rich_menu_id", menu.RichMenuID),
			slog.String("name", menu.Name),
		)
	}

	id, err := client.CreateRichMenu(ctx, line.DefaultRichMenu(cfg.Line.LiffAppURL))
	if err != nil {
		return fmt.Errorf("create rich menu: %w", err)
	}
	log.Info("rich menu created", slog.String("rich_menu_id", id))

	if err := client.SetDefaultRichMenu(ctx, id); err != nil {
		return fmt.Errorf("set default rich menu: %w", err)
	}
	log.Info("rich menu set as default", slog.String("rich_menu_id", id))
	return nil
}
