package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/drugmerge/drugmerge/internal/model"
	"github.com/drugmerge/drugmerge/internal/pipeline"
	"github.com/drugmerge/drugmerge/internal/store"
	"github.com/drugmerge/drugmerge/internal/worker"
)

var (
	serveInput string
	listenAddr string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scheduled consolidations and expose Prometheus metrics",
	Long: `Serve runs the consolidation pipeline on a daily schedule (twice a day
by default) against a source records file that an external fetcher keeps
fresh, persisting and indexing the results. Run metrics are exposed on
/metrics for Prometheus.

Example:
  drugmerge serve --input /var/lib/drugmerge/feeds.ndjson
  drugmerge serve --input feeds.ndjson --listen :9108`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveInput, "input", "", "source records file, NDJSON (required)")
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "metrics listen address (default from config)")

	_ = serveCmd.MarkFlagRequired("input")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := newLogger()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Schedule.Listen = listenAddr
	}

	var st store.Store
	if cfg.Store.PostgresDSN != "" {
		pg, err := store.OpenPostgres(ctx, cfg.Store.PostgresDSN, logger)
		if err != nil {
			return err
		}
		defer pg.Close()
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		st = pg
	}

	var idx *store.MeiliIndexer
	if cfg.Store.MeiliURL != "" {
		idx = store.NewMeiliIndexer(cfg.Store, logger)
		if err := idx.Configure(ctx); err != nil {
			return err
		}
	}

	p := pipeline.NewPipeline(cfg, st, idx, logger)

	run := func() {
		if err := runOnce(ctx, p, st, logger); err != nil {
			logger.Error().Err(err).Msg("scheduled run failed")
		}
	}

	// Initial run, then the daily schedule
	run()

	scheduler := gocron.NewScheduler(time.Local)
	if _, err := scheduler.Every(1).Days().At(strings.Join(cfg.Schedule.Times, ";")).Do(run); err != nil {
		return fmt.Errorf("schedule runs: %w", err)
	}
	scheduler.StartAsync()
	defer scheduler.Stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	server := &http.Server{
		Addr:              cfg.Schedule.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Schedule.Listen).Strs("times", cfg.Schedule.Times).Msg("serving metrics")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// runOnce executes one scheduled consolidation against the input file,
// seeding the cascade with the stored canonical names.
func runOnce(ctx context.Context, p *pipeline.Pipeline, st store.Store, logger zerolog.Logger) error {
	records, malformed, err := worker.ReadRecordsFromFile(serveInput)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	if malformed > 0 {
		logger.Warn().Int("lines", malformed).Msg("skipped malformed input lines")
	}

	var canonicalNames []string
	if st != nil {
		canonicalNames, err = st.CanonicalNames(ctx)
		if err != nil {
			return err
		}
	}

	result, err := p.Run(ctx, records, canonicalNames)
	if err != nil {
		return err
	}
	logReport(logger, result.Report)
	return nil
}

func logReport(logger zerolog.Logger, r model.RunReport) {
	logger.Info().
		Int("input", r.InputRecords).
		Int("groups", r.Groups).
		Int("exact", r.ResolvedExact).
		Int("normalized", r.ResolvedNormalized).
		Int("uppercase", r.ResolvedUppercase).
		Int("fuzzy", r.ResolvedFuzzy).
		Int("unmatched", r.UnmatchedFallback).
		Msg("run report")
}
