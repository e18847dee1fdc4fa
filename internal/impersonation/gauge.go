package impersonation

import (
	"context"
	"log/slog"
	"time"
)

// OpenRecordCount returns a sampler for the number of open impersonation
// records, meant for a scrape-time gauge. Reading the store on every sample
// keeps the value correct after a restart and after the sweeper closes a
// record from another process.
func OpenRecordCount(store Store, logger *slog.Logger) func() float64 {
	if logger == nil {
		logger = slog.Default()
	}
	return func() float64 {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		records, err := store.ListOpen(ctx)
		if err != nil {
			logger.Warn("count open impersonation records", slog.Any("error", err))
			return 0
		}
		return float64(len(records))
	}
}
