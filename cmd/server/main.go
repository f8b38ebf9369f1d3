package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/neowealth/tradesurveil/internal/api"
	"github.com/neowealth/tradesurveil/internal/config"
	"github.com/neowealth/tradesurveil/internal/ingestion"
	"github.com/neowealth/tradesurveil/internal/normalize"
	"github.com/neowealth/tradesurveil/internal/reconciliation"
	"github.com/neowealth/tradesurveil/internal/repository"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg)

	log.Info().Str("path", cfg.DB.Path).Msg("initializing database")
	db, err := repository.InitDB(cfg.DB.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("init database")
	}
	defer db.Close()

	orderRepo := repository.NewOrderRepo(db)
	evidenceRepo := repository.NewEvidenceRepo(db)
	recordRepo := repository.NewRecordRepo(db)

	norm := normalize.New(cfg.Normalize)
	engine := reconciliation.NewEngine(cfg.Matching, norm, log)
	reconSvc := reconciliation.NewService(engine, orderRepo, evidenceRepo, recordRepo, log)
	ingestSvc := ingestion.NewService(orderRepo, evidenceRepo, log)

	if err := seedIfEmpty(orderRepo, evidenceRepo, ingestSvc, log); err != nil {
		log.Warn().Err(err).Msg("seeding skipped")
	}

	router := api.NewRouter(orderRepo, recordRepo, ingestSvc, reconSvc, log)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info().
		Str("addr", addr).
		Str("api_base", fmt.Sprintf("http://localhost%s/api/v1", addr)).
		Msg("trade surveillance server listening")

	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func loadConfig() (*config.Config, error) {
	path := os.Getenv("CONFIG")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var log zerolog.Logger
	if cfg.Log.Format == "console" {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(level).With().Timestamp().Logger()
}

// seedIfEmpty loads the bundled sample day so a fresh database has
// something to reconcile.
func seedIfEmpty(orders *repository.OrderRepo, evidence *repository.EvidenceRepo, ingestSvc *ingestion.Service, log zerolog.Logger) error {
	count, err := orders.Count()
	if err != nil {
		return fmt.Errorf("count orders: %w", err)
	}
	if count > 0 {
		log.Info().Int("orders", count).Msg("database already populated, skipping seed")
		return nil
	}

	files := []struct {
		name string
		kind string
	}{
		{"orderbook.csv", ingestion.KindOrders},
		{"calls.json", ingestion.KindCalls},
		{"emails.json", ingestion.KindEmails},
	}
	for _, f := range files {
		data, err := readTestdata(f.name)
		if err != nil {
			return err
		}
		result, err := ingestSvc.Ingest(data, f.kind)
		if err != nil {
			return fmt.Errorf("seed %s: %w", f.name, err)
		}
		log.Info().Str("file", f.name).Int("records", result.RecordsIngested).Msg("seeded")
	}
	return nil
}

func readTestdata(name string) ([]byte, error) {
	candidates := []string{
		filepath.Join("testdata", name),
	}
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		candidates = append(candidates,
			filepath.Join(dir, "testdata", name),
			filepath.Join(dir, "..", "..", "testdata", name),
		)
	}

	var lastErr error
	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("testdata %s not found: %w", name, lastErr)
}
