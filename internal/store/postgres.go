package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/drugmerge/drugmerge/internal/model"
)

// Postgres stores consolidated records in a single table keyed by generic
// name. The full record lives in a JSONB column; a handful of columns are
// denormalized for querying and a tsvector column backs full-text search.
type Postgres struct {
	db  *sql.DB
	log zerolog.Logger
}

var _ Store = (*Postgres)(nil)

// OpenPostgres connects to the given DSN and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string, logger zerolog.Logger) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &Postgres{db: db, log: logger.With().Str("component", "postgres").Logger()}, nil
}

// EnsureSchema creates the consolidated_drugs table and its search index if
// they do not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS consolidated_drugs (
			generic_name       TEXT PRIMARY KEY,
			record             JSONB NOT NULL,
			brand_names        TEXT[] NOT NULL DEFAULT '{}',
			manufacturers      TEXT[] NOT NULL DEFAULT '{}',
			data_sources       TEXT[] NOT NULL DEFAULT '{}',
			total_formulations INTEGER NOT NULL DEFAULT 0,
			has_clinical_data  BOOLEAN NOT NULL DEFAULT FALSE,
			confidence_score   DOUBLE PRECISION NOT NULL DEFAULT 0,
			search_text        TSVECTOR,
			updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS consolidated_drugs_search_idx
			ON consolidated_drugs USING GIN (search_text)`,
		`CREATE INDEX IF NOT EXISTS consolidated_drugs_confidence_idx
			ON consolidated_drugs (confidence_score)`,
	}
	for _, s := range stmts {
		if _, err := p.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// CanonicalNames returns every stored generic name in sorted order.
func (p *Postgres) CanonicalNames(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT generic_name FROM consolidated_drugs ORDER BY generic_name`)
	if err != nil {
		return nil, fmt.Errorf("query canonical names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan canonical name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate canonical names: %w", err)
	}
	return names, nil
}

// Upsert replaces each record wholesale inside a single transaction. A
// failure rolls back the whole batch so reruns stay repeatable.
func (p *Postgres) Upsert(ctx context.Context, records []model.ConsolidatedDrugRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO consolidated_drugs (
			generic_name, record, brand_names, manufacturers, data_sources,
			total_formulations, has_clinical_data, confidence_score,
			search_text, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, to_tsvector('english', $9), now())
		ON CONFLICT (generic_name) DO UPDATE SET
			record             = EXCLUDED.record,
			brand_names        = EXCLUDED.brand_names,
			manufacturers      = EXCLUDED.manufacturers,
			data_sources       = EXCLUDED.data_sources,
			total_formulations = EXCLUDED.total_formulations,
			has_clinical_data  = EXCLUDED.has_clinical_data,
			confidence_score   = EXCLUDED.confidence_score,
			search_text        = EXCLUDED.search_text,
			updated_at         = now()
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		rec := &records[i]
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record %q: %w", rec.GenericName, err)
		}
		_, err = stmt.ExecContext(ctx,
			rec.GenericName,
			payload,
			pq.Array(rec.BrandNames),
			pq.Array(rec.Manufacturers),
			pq.Array(sourceStrings(rec.DataSources)),
			rec.TotalFormulations,
			rec.HasClinicalData,
			rec.ConfidenceScore,
			searchText(rec),
		)
		if err != nil {
			return fmt.Errorf("upsert %q: %w", rec.GenericName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	p.log.Info().Int("records", len(records)).Msg("upserted consolidated records")
	return nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

func sourceStrings(sources []model.SourceID) []string {
	out := make([]string, len(sources))
	for i, s := range sources {
		out[i] = string(s)
	}
	return out
}

// searchText flattens the fields users search by into one string for the
// tsvector column.
func searchText(rec *model.ConsolidatedDrugRecord) string {
	parts := []string{rec.GenericName}
	parts = append(parts, rec.BrandNames...)
	parts = append(parts, rec.Manufacturers...)
	if rec.TherapeuticClass != "" {
		parts = append(parts, rec.TherapeuticClass)
	}
	if rec.IndicationsAndUsage != "" {
		parts = append(parts, rec.IndicationsAndUsage)
	}
	return strings.Join(parts, " ")
}
