package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/psds-microservice/helpdesk-service/internal/database"
	"github.com/psds-microservice/helpdesk-service/internal/export"
	"github.com/psds-microservice/helpdesk-service/internal/repository"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var exportOut string

var exportTicketsCmd = &cobra.Command{
	Use:   "export-tickets",
	Short: "Export all tickets to an xlsx file",
	RunE:  runExportTickets,
}

func init() {
	exportTicketsCmd.Flags().StringVarP(&exportOut, "out", "o", "tickets.xlsx", "output file")
	rootCmd.AddCommand(exportTicketsCmd)
}

func runExportTickets(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	conn, err := database.Open(cfg.DSN())
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer func() {
		if err := database.Close(conn); err != nil {
			log.Warn("database close", zap.Error(err))
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	tickets, err := repository.NewGormGateway(conn).ListTickets(ctx)
	if err != nil {
		return fmt.Errorf("list tickets: %w", err)
	}

	f, err := os.Create(exportOut)
	if err != nil {
		return fmt.Errorf("create %s: %w", exportOut, err)
	}
	if err := export.Tickets(f, tickets); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", exportOut, err)
	}
	log.Info("export-tickets: done", zap.String("file", exportOut), zap.Int("tickets", len(tickets)))
	return nil
}
