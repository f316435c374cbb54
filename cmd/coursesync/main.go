package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/umgeo/coursesync/internal/arcgis"
	"github.com/umgeo/coursesync/internal/canvas"
	"github.com/umgeo/coursesync/internal/service"
	"github.com/umgeo/coursesync/pkg/config"
	"github.com/umgeo/coursesync/pkg/logger"
	"github.com/umgeo/coursesync/pkg/mailer"
	"github.com/umgeo/coursesync/pkg/metrics"
)

func main() {
	var (
		sendEmail  bool
		printEmail bool
	)

	root := &cobra.Command{
		Use:           "coursesync",
		Short:         "Synchronize course rosters and assignment folders into the GIS platform",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), sendEmail, printEmail)
		},
	}

	root.Flags().BoolVar(&sendEmail, "email", false, "email per-course activity logs to instructors")
	root.Flags().BoolVar(&printEmail, "print-email", false, "write outgoing email to the run log instead of sending")

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, sendEmail, printEmail bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	runStart := time.Now()

	provider := canvas.New(cfg.Canvas, log)

	store, err := arcgis.Connect(ctx, cfg.ArcGIS, log)
	if err != nil {
		log.Error("failed to connect to GIS platform", zap.Error(err))
		return err
	}
	log.Info("connected to GIS platform", zap.String("user", store.Username()))

	var mail mailer.Mailer
	if printEmail {
		mail = mailer.NewConsole(log)
	} else {
		mail = mailer.NewSendGrid(cfg.Email.SendGridKey, cfg.Email.SenderName, cfg.Email.SenderAddress, log)
	}

	registry := logger.NewRegistry(cfg.Log, runStart, log)
	recorder := metrics.New()

	svc := service.NewSyncService(provider, store, cfg, registry, mail, recorder, runStart, log)
	if err := svc.Run(ctx, service.RunOptions{SendEmail: sendEmail || printEmail}); err != nil {
		log.Error("synchronization run failed", zap.Error(err), zap.Duration("elapsed", time.Since(runStart)))
		return err
	}

	return nil
}
