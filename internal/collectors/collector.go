// Package collectors pulls instrument metadata and price history from
// upstream market data sources and persists them in the canonical
// schema.
package collectors

import (
	"context"

	"github.com/irfndi/kmarket-data-go/internal/database"
	"github.com/irfndi/kmarket-data-go/internal/logging"
	"github.com/irfndi/kmarket-data-go/internal/models"
	"github.com/sirupsen/logrus"
)

// Collector is implemented by every source-specific symbol collector.
type Collector interface {
	// FetchSymbols pulls and normalizes upstream instrument metadata.
	// It performs network and file I/O only and never touches storage.
	FetchSymbols(ctx context.Context) ([]models.Symbol, error)
	// SaveSymbols merges the symbols into storage and returns the total
	// number touched (created plus updated). A single row's failure is
	// logged and skipped, never aborting the batch.
	SaveSymbols(ctx context.Context, symbols []models.Symbol) (int, error)
	// CollectAndSave composes the two; this is what the scheduler runs.
	CollectAndSave(ctx context.Context) (int, error)
}

// PriceStats aggregates the outcome of one price collection run.
type PriceStats struct {
	SymbolsProcessed int
	SymbolsFailed    int
	Created          int
	Skipped          int
}

func (s *PriceStats) add(other PriceStats) {
	s.SymbolsProcessed += other.SymbolsProcessed
	s.SymbolsFailed += other.SymbolsFailed
	s.Created += other.Created
	s.Skipped += other.Skipped
}

// saveSymbols is the shared create-or-update loop behind every
// collector's SaveSymbols. Failures are isolated per item.
func saveSymbols(ctx context.Context, repo *database.SymbolRepository, exchange string, symbols []models.Symbol) (int, error) {
	createdCount := 0
	updatedCount := 0

	for i := range symbols {
		created, err := repo.Upsert(ctx, &symbols[i])
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"exchange": exchange,
				"symbol":   symbols[i].Symbol,
			}).Warn("Failed to save symbol, skipping")
			continue
		}
		if created {
			createdCount++
		} else {
			updatedCount++
		}
	}

	total := createdCount + updatedCount
	logging.WithExchange(exchange).WithFields(logrus.Fields{
		"created": createdCount,
		"updated": updatedCount,
		"total":   total,
	}).Info("Symbol collection saved")

	return total, nil
}
