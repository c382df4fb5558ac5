package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caixahub/caixahub/internal/scheduler"
	"github.com/caixahub/caixahub/internal/server"
	"github.com/caixahub/caixahub/internal/webhook"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server and sync scheduler",
		Long: `Starts the HTTP server that receives aggregator webhooks and the cron
scheduler that periodically syncs all eligible accounts.`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", ":8080", "HTTP listen address")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	syncService, store, err := initSyncService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	secret := viper.GetString("webhook.secret")
	validator, err := webhook.NewValidator(secret)
	if err != nil {
		return fmt.Errorf("webhook validation cannot be disabled: %w", err)
	}

	handler := webhook.NewHandler(validator, store, syncService)

	sched := scheduler.New(syncService, scheduler.Config{
		Spec:    viper.GetString("scheduler.spec"),
		Timeout: viper.GetDuration("scheduler.timeout"),
	})
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	addr := viper.GetString("server.addr")
	srv := server.New(addr, version, handler)

	slog.Info("Starting caixahub server",
		"addr", addr,
		"scheduler_spec", viper.GetString("scheduler.spec"))

	start := time.Now()
	err = srv.Run(ctx)
	slog.Info("Server stopped", "uptime", time.Since(start).Round(time.Second))
	return err
}
