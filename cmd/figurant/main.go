// Entry point for the figurant persona service — chi router, shield
// middleware, OpenAI/Gemini model clients, Google Sheets/Drive backends,
// SQLite audit trail, optional MCP stdio transport.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/hazyhaar/figurant/audit"
	"github.com/hazyhaar/figurant/blobstore"
	"github.com/hazyhaar/figurant/dbopen"
	"github.com/hazyhaar/figurant/docfetch"
	"github.com/hazyhaar/figurant/llm"
	"github.com/hazyhaar/figurant/persona"
	"github.com/hazyhaar/figurant/sheetbridge"
	"github.com/hazyhaar/figurant/shield"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := loadConfig(env("FIGURANT_CONFIG", "figurant.yaml"))
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	var lvl slog.Level
	switch cfg.LogLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Audit trail. Optional: a broken audit DB costs the trail, not the
	// service.
	var trail *audit.SQLiteLogger
	if auditDB, err := dbopen.Open(cfg.AuditDB, dbopen.WithMkdirAll()); err != nil {
		slog.Warn("audit db unavailable, running without the audit trail", "error", err)
	} else {
		defer auditDB.Close()
		t := audit.NewSQLiteLogger(auditDB)
		if err := t.Init(); err != nil {
			slog.Warn("audit init failed, running without the audit trail", "error", err)
			t.Close()
		} else {
			trail = t
			defer t.Close()
		}
	}

	// Generative model. A missing key leaves the client nil; requests
	// then fail with MODEL_NOT_CONFIGURED instead of the process dying.
	var client llm.Client
	if cfg.Model.APIKey != "" {
		client, err = llm.New(llm.Settings{
			Provider:    cfg.Model.Provider,
			Model:       cfg.Model.Model,
			APIKey:      cfg.Model.APIKey,
			BaseURL:     cfg.Model.BaseURL,
			Temperature: cfg.Model.Temperature,
			MaxTokens:   cfg.Model.MaxTokens,
		})
		if err != nil {
			slog.Error("model client", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Warn("no model API key configured")
	}

	// Research provider. Optional; the collector degrades to its
	// not-configured bundle when absent.
	var researchClient llm.Client
	if cfg.Research.APIKey != "" {
		researchClient, err = llm.New(llm.Settings{
			Provider: cfg.Research.Provider,
			Model:    cfg.Research.Model,
			APIKey:   cfg.Research.APIKey,
			BaseURL:  cfg.Research.BaseURL,
		})
		if err != nil {
			slog.Error("research client", "error", err)
			os.Exit(1)
		}
	}

	// Google Sheets + Drive. Optional as a pair.
	var bridge *sheetbridge.Bridge
	var blobs *blobstore.Store
	var sheets persona.SheetPort
	if cfg.Google.CredentialsFile != "" {
		sheetSrv, err := sheetsapi.NewService(ctx,
			option.WithCredentialsFile(cfg.Google.CredentialsFile),
			option.WithScopes(sheetsapi.SpreadsheetsScope))
		if err != nil {
			slog.Error("sheets service", "error", err)
			os.Exit(1)
		}
		bridge = sheetbridge.New(sheetbridge.NewGoogle(sheetSrv), logger)
		sheets = &bridgePort{bridge: bridge, log: logger}

		driveSrv, err := drive.NewService(ctx,
			option.WithCredentialsFile(cfg.Google.CredentialsFile),
			option.WithScopes(drive.DriveFileScope))
		if err != nil {
			slog.Error("drive service", "error", err)
			os.Exit(1)
		}
		blobs = blobstore.New(blobstore.NewGoogle(driveSrv, cfg.Google.DriveFolderID), logger)
	} else {
		slog.Warn("no Google credentials configured, sheet and upload endpoints disabled")
	}

	svc := persona.New(persona.ServiceConfig{
		Client:            client,
		ResearchClient:    researchClient,
		ResearchModel:     cfg.Research.Model,
		ResearchTimeout:   time.Duration(cfg.Research.TimeoutSeconds) * time.Second,
		Sheets:            sheets,
		EnrichInterval:    cfg.enrichInterval(),
		EnrichConcurrency: cfg.Enrich.Concurrency,
	}, logger)

	a := newApp(svc)
	a.trail = trail
	a.blobs = blobs
	a.docs = docfetch.New(docfetch.Config{Logger: logger})
	if bridge != nil {
		a.storage = bridge
		a.storageSheetID = cfg.Google.StorageSheetID
	}

	// Optional MCP stdio transport for agent clients.
	if env("MCP_TRANSPORT", "") == "stdio" {
		srv := mcp.NewServer(&mcp.Implementation{Name: "figurant", Version: "1.0.0"}, nil)
		svc.RegisterMCP(srv)
		go func() {
			if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				slog.Error("MCP stdio", "error", err)
			}
		}()
		slog.Info("MCP stdio transport started")
	}

	// Router.
	rl := shield.NewRateLimiter(cfg.shieldRules(), "/health", "/ready")
	rl.StartGC(ctx.Done())
	r := chi.NewRouter()
	for _, mw := range shield.DefaultAPIStack(rl) {
		r.Use(mw)
	}
	a.routes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		// Enrichment walks the whole roster inside one request.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

// bridgePort adapts the sheet bridge to the service's SheetPort: import
// by share URL, write-back via in-place enrichment columns. When the
// in-place write fails the enriched batch is exported to a fresh
// spreadsheet instead, so the enrichment work is never lost.
type bridgePort struct {
	bridge *sheetbridge.Bridge
	log    *slog.Logger
}

func (p *bridgePort) ImportPersonas(ctx context.Context, sheetURL string) ([]persona.Persona, error) {
	return p.bridge.ImportPersonas(ctx, sheetURL)
}

func (p *bridgePort) WriteBack(ctx context.Context, sheetURL string, personas []persona.Persona) (string, error) {
	id, err := sheetbridge.SpreadsheetID(sheetURL)
	if err != nil {
		return "", err
	}
	upErr := func() error {
		_, err := p.bridge.UpdateInPlace(ctx, id, personas)
		return err
	}()
	if upErr == nil {
		return sheetbridge.SheetURL(id), nil
	}

	log := p.log
	if log == nil {
		log = slog.Default()
	}
	log.Warn("in-place write failed, exporting to a new sheet",
		"spreadsheet_id", id, "error", upErr)
	res, expErr := p.bridge.ExportPersonas(ctx, personas, persona.CampaignContext{}, "")
	if expErr != nil {
		return "", fmt.Errorf("update in place: %v; export fallback: %w", upErr, expErr)
	}
	return res.URL, nil
}
