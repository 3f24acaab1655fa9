package store

import (
	"context"
	"fmt"

	"github.com/meilisearch/meilisearch-go"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/drugmerge/drugmerge/internal/model"
)

// drugSynonyms maps common alternative spellings onto the names that appear
// in the consolidated output so searches find them either way.
var drugSynonyms = map[string][]string{
	"acetaminophen": {"paracetamol", "tylenol"},
	"paracetamol":   {"acetaminophen"},
	"asa":           {"aspirin", "acetylsalicylic acid"},
	"aspirin":       {"asa", "acetylsalicylic acid"},
	"epinephrine":   {"adrenaline"},
	"adrenaline":    {"epinephrine"},
	"albuterol":     {"salbutamol"},
	"salbutamol":    {"albuterol"},
}

// MeiliIndexer pushes consolidated records into a Meilisearch index in
// rate-limited batches.
type MeiliIndexer struct {
	index     meilisearch.IndexManager
	limiter   *rate.Limiter
	batchSize int
	log       zerolog.Logger
}

// NewMeiliIndexer builds an indexer from store config. The connection is
// lazy; the first call touching the index surfaces connectivity errors.
func NewMeiliIndexer(cfg model.StoreConfig, logger zerolog.Logger) *MeiliIndexer {
	client := meilisearch.New(cfg.MeiliURL, meilisearch.WithAPIKey(cfg.MeiliAPIKey))
	return &MeiliIndexer{
		index:     client.Index(cfg.MeiliIndex),
		limiter:   rate.NewLimiter(rate.Limit(cfg.IndexRatePerSec), 1),
		batchSize: cfg.IndexBatchSize,
		log:       logger.With().Str("component", "meili").Logger(),
	}
}

// Configure applies the index settings: which attributes are searchable,
// filterable, and sortable, plus the synonym table.
func (m *MeiliIndexer) Configure(ctx context.Context) error {
	settings := meilisearch.Settings{
		SearchableAttributes: []string{"genericName", "brandNames", "manufacturers", "searchText"},
		FilterableAttributes: []string{"dataSources", "hasClinicalData", "confidenceScore", "therapeuticClass"},
		SortableAttributes:   []string{"genericName", "confidenceScore", "totalFormulations"},
		Synonyms:             drugSynonyms,
	}
	if _, err := m.index.UpdateSettingsWithContext(ctx, &settings); err != nil {
		return fmt.Errorf("update index settings: %w", err)
	}
	return nil
}

// IndexRecords adds documents in batches, waiting on the rate limiter
// between batches so a large run does not starve interactive search.
func (m *MeiliIndexer) IndexRecords(ctx context.Context, records []model.ConsolidatedDrugRecord) error {
	for start := 0; start < len(records); start += m.batchSize {
		end := start + m.batchSize
		if end > len(records) {
			end = len(records)
		}
		if err := m.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("index rate limit: %w", err)
		}
		docs := make([]map[string]interface{}, 0, end-start)
		for i := start; i < end; i++ {
			docs = append(docs, buildDocument(&records[i]))
		}
		if _, err := m.index.AddDocumentsWithContext(ctx, docs, nil); err != nil {
			return fmt.Errorf("add documents: %w", err)
		}
		m.log.Debug().Int("batch", end-start).Int("offset", start).Msg("indexed batch")
	}
	return nil
}

// buildDocument projects a record onto the flat shape the index stores. The
// primary key is the generic name with spaces replaced, since Meilisearch
// document ids only allow [a-zA-Z0-9_-].
func buildDocument(rec *model.ConsolidatedDrugRecord) map[string]interface{} {
	doc := map[string]interface{}{
		"id":                documentID(rec.GenericName),
		"genericName":       rec.GenericName,
		"brandNames":        rec.BrandNames,
		"manufacturers":     rec.Manufacturers,
		"dataSources":       sourceStrings(rec.DataSources),
		"totalFormulations": rec.TotalFormulations,
		"hasClinicalData":   rec.HasClinicalData,
		"confidenceScore":   rec.ConfidenceScore,
		"searchText":        searchText(rec),
	}
	if rec.TherapeuticClass != "" {
		doc["therapeuticClass"] = rec.TherapeuticClass
	}
	return doc
}

func documentID(genericName string) string {
	id := make([]rune, 0, len(genericName))
	for _, r := range genericName {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			id = append(id, r)
		default:
			id = append(id, '_')
		}
	}
	return string(id)
}
