package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/ivyfin/ivy-ledger/internal/domain/chat"
	"github.com/ivyfin/ivy-ledger/internal/domain/invoice"
	ledgerhandler "github.com/ivyfin/ivy-ledger/internal/domain/ledger/handler"
	ledgerrepo "github.com/ivyfin/ivy-ledger/internal/domain/ledger/repository"
	ledgerservice "github.com/ivyfin/ivy-ledger/internal/domain/ledger/service"
	"github.com/ivyfin/ivy-ledger/internal/domain/ledger/store"
	"github.com/ivyfin/ivy-ledger/pkg/config"
	"github.com/ivyfin/ivy-ledger/pkg/db"
)

// Dependencies holds all application dependencies. Collaborator handles
// are constructed once here and passed by reference; no component reaches
// for ambient global state.
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	Store      *store.Store
	LedgerRepo ledgerrepo.LedgerRepository

	PipelineService *ledgerservice.PipelineService
	Responder       *chat.Responder

	InvoiceRetriever invoice.DocumentRetriever
	InvoiceExtractor invoice.ContentExtractor

	LedgerHandler *ledgerhandler.LedgerHandler
}

// InitDependencies initializes all application dependencies.
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
		Store:  store.NewStore(),
	}

	if cfg.Database.Enabled {
		if err := deps.initDatabase(); err != nil {
			return nil, fmt.Errorf("failed to init database: %w", err)
		}
	} else {
		logger.Info("database disabled, running memory-only")
	}

	deps.initCollaborators()
	deps.initServices()
	deps.initHandlers()

	if err := deps.loadInitialData(); err != nil {
		return nil, fmt.Errorf("failed to load initial data: %w", err)
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}
	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.LedgerRepo = ledgerrepo.NewPostgresLedgerRepository(d.DB.Pool)
	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

func (d *Dependencies) initCollaborators() {
	cc := d.Config.Collaborators
	client := &http.Client{Timeout: cc.Timeout}

	if cc.RetrieverURL != "" {
		retriever := invoice.DocumentRetriever(invoice.NewHTTPRetriever(cc.RetrieverURL, client))
		retriever = invoice.WithRetrieverTimeout(retriever, cc.Timeout)
		retriever = invoice.WithRetrieverRetry(retriever, cc.MaxRetries)
		d.InvoiceRetriever = retriever
	}
	if cc.ExtractorURL != "" {
		d.InvoiceExtractor = invoice.WithExtractorTimeout(
			invoice.NewHTTPExtractor(cc.ExtractorURL, client), cc.Timeout)
	}
}

func (d *Dependencies) initServices() {
	d.PipelineService = ledgerservice.NewPipelineService(d.Store, d.LedgerRepo, d.Logger)
	d.Responder = chat.NewResponder(d.PipelineService)
	d.Logger.Info("services initialized")
}

func (d *Dependencies) initHandlers() {
	d.LedgerHandler = ledgerhandler.NewLedgerHandler(d.PipelineService, d.Logger)
	d.Logger.Info("handlers initialized")
}

// loadInitialData runs one refresh from the configured source file, if any.
func (d *Dependencies) loadInitialData() error {
	path := d.Config.Pipeline.SourcePath
	if path == "" {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening source file: %w", err)
	}
	defer f.Close()

	ctx, cancel := contextWithStartupTimeout()
	defer cancel()

	result, err := d.PipelineService.Refresh(ctx, f)
	if err != nil {
		return err
	}
	d.Logger.Info("initial dataset loaded", "path", path, "rows", result.RowsTotal)
	return nil
}

func contextWithStartupTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 2*time.Minute)
}

// Cleanup closes all resources.
func (d *Dependencies) Cleanup() {
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
