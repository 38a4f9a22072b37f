package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/loomhaven/order-cli/internal/ocr"
	"github.com/loomhaven/order-cli/internal/pipeline"
	"github.com/loomhaven/order-cli/internal/store"
	"github.com/loomhaven/order-cli/pkg/airtable"
)

// pipelineEnv holds the initialized store, Airtable client, and pipeline
// shared by the commands. Airtable is nil when not configured; commands
// that push check for it explicitly.
type pipelineEnv struct {
	Store    store.Store
	Airtable airtable.Client
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite", "":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "orders.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initAirtable() (airtable.Client, error) {
	if cfg.Airtable.Token == "" {
		return nil, eris.New("airtable token is required (ORDERCLI_AIRTABLE_TOKEN)")
	}
	if cfg.Airtable.BaseID == "" {
		return nil, eris.New("airtable base ID is required (ORDERCLI_AIRTABLE_BASE_ID)")
	}

	opts := []airtable.Option{
		airtable.WithRateLimit(cfg.Airtable.RateLimitRPS),
		airtable.WithMaxAttempts(cfg.Airtable.MaxRetries),
	}
	if cfg.Airtable.BaseURL != "" {
		opts = append(opts, airtable.WithBaseURL(cfg.Airtable.BaseURL))
	}
	return airtable.NewClient(cfg.Airtable.Token, cfg.Airtable.BaseID, opts...), nil
}

// initPipeline sets up the store, the optional Airtable client and OCR
// engine, and builds the Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	var at airtable.Client
	if cfg.Airtable.Token != "" && cfg.Airtable.BaseID != "" {
		at, err = initAirtable()
		if err != nil {
			_ = st.Close()
			return nil, err
		}
	} else {
		zap.L().Debug("airtable not configured, push disabled")
	}

	// OCR is a best-effort fallback for image-only shipping pages.
	var pageOCR pipeline.PageOCR
	engine, err := ocr.NewEngine(cfg.OCR)
	if err != nil {
		zap.L().Warn("ocr engine unavailable, image-only pages will pass through unmatched", zap.Error(err))
	} else {
		pageOCR = ocr.NewPageReader(ocr.NewRasterizer(cfg.OCR.PdftoppmPath, cfg.OCR.DPI), engine)
	}

	p, err := pipeline.New(cfg, st, at, pageOCR)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	return &pipelineEnv{Store: st, Airtable: at, Pipeline: p}, nil
}
