package dedup

import (
	"github.com/helixir/literature-search-service/internal/domain"
)

// Config holds the configuration for the deduplicator.
type Config struct {
	// TitleKeyLength is the number of normalized title runes compared.
	// Zero or negative compares whole titles.
	TitleKeyLength int
}

// DefaultConfig returns the default deduplicator configuration.
func DefaultConfig() Config {
	return Config{TitleKeyLength: DefaultTitleKeyLength}
}

// Deduplicator removes records that share a DOI, PMID, or normalized title
// prefix with an earlier record. It holds no state between calls and is safe
// for concurrent use.
//
// Records lacking both DOI and PMID are matched on the title key alone, so two
// different works whose titles share a long prefix are merged, and the same
// work with a reworded title is kept twice.
type Deduplicator struct {
	cfg Config
}

// New creates a Deduplicator with the given configuration.
func New(cfg Config) *Deduplicator {
	return &Deduplicator{cfg: cfg}
}

// Result holds the outcome of a deduplication pass.
type Result struct {
	// Sources are the kept records in their input order.
	Sources []*domain.UnifiedSource

	// Removed is the number of records dropped as duplicates.
	Removed int
}

// Deduplicate visits records in order and keeps the first record to claim any
// of its keys. A later record sharing any key with a kept record is dropped.
// Every key of a kept record is claimed, so the earlier a record appears the
// higher its precedence. Callers pass records in provider priority order.
func (d *Deduplicator) Deduplicate(records []*domain.UnifiedSource) Result {
	claimed := make(map[string]struct{}, len(records)*3)
	kept := make([]*domain.UnifiedSource, 0, len(records))
	removed := 0

	for _, record := range records {
		if record == nil {
			continue
		}

		keys := Keys(record, d.cfg.TitleKeyLength)
		if anyClaimed(claimed, keys) {
			removed++
			continue
		}
		for _, k := range keys {
			claimed[k] = struct{}{}
		}
		kept = append(kept, record)
	}

	return Result{Sources: kept, Removed: removed}
}

func anyClaimed(claimed map[string]struct{}, keys []string) bool {
	for _, k := range keys {
		if _, ok := claimed[k]; ok {
			return true
		}
	}
	return false
}
