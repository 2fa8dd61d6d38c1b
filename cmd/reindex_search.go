package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/psds-microservice/helpdesk-service/internal/database"
	"github.com/psds-microservice/helpdesk-service/internal/kafka"
	"github.com/psds-microservice/helpdesk-service/internal/repository"
	"github.com/psds-microservice/helpdesk-service/internal/searchindex"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var reindexSearchCmd = &cobra.Command{
	Use:   "reindex-search",
	Short: "Reindex all tickets into search. Prefers Kafka; falls back to HTTP if SEARCH_SERVICE_URL set.",
	RunE:  runReindexSearch,
}

func init() {
	rootCmd.AddCommand(reindexSearchCmd)
}

func runReindexSearch(cmd *cobra.Command, args []string) error {
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
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	tickets, err := repository.NewGormGateway(conn).ListTickets(ctx)
	if err != nil {
		return fmt.Errorf("list tickets: %w", err)
	}
	log.Info("reindex-search: tickets loaded", zap.Int("count", len(tickets)))

	// Prefer Kafka, then HTTP
	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicTicket, log)
	if producer.Enabled() {
		defer producer.Close()
		for i := range tickets {
			producer.ProduceTicketEvent(ctx, kafka.EventTicketUpdated, kafka.TicketEventPayload(&tickets[i]))
			if (i+1)%50 == 0 || i == len(tickets)-1 {
				log.Info("reindex-search: sent to kafka", zap.Int("done", i+1), zap.Int("total", len(tickets)))
			}
		}
		log.Info("reindex-search: done via kafka (search-service worker will index them)")
		return nil
	}
	client := searchindex.NewClient(cfg.SearchServiceURL, log)
	if client.Enabled() {
		failed := 0
		for i := range tickets {
			if err := client.IndexTicket(ctx, &tickets[i]); err != nil {
				failed++
				log.Warn("reindex-search: index failed", zap.String("ticket_id", tickets[i].ID), zap.Error(err))
			}
			if (i+1)%50 == 0 || i == len(tickets)-1 {
				log.Info("reindex-search: indexed via http", zap.Int("done", i+1), zap.Int("total", len(tickets)))
			}
		}
		log.Info("reindex-search: done via http", zap.Int("failed", failed))
		return nil
	}
	log.Warn("reindex-search: neither KAFKA_BROKERS nor SEARCH_SERVICE_URL set, nothing reindexed",
		zap.Int("tickets", len(tickets)))
	return nil
}
