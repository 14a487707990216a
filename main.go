package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/veragraph/veragraph/internal/api"
	"github.com/veragraph/veragraph/internal/auth"
	"github.com/veragraph/veragraph/internal/config"
	"github.com/veragraph/veragraph/internal/db"
	"github.com/veragraph/veragraph/internal/engine"
	"github.com/veragraph/veragraph/internal/mcp"
	"github.com/veragraph/veragraph/pkg/audit"
	"github.com/veragraph/veragraph/pkg/mcprt"
	"github.com/veragraph/veragraph/pkg/trace"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "mcp":
		cmdMCP(os.Args[2:])
	case "version":
		fmt.Printf("veragraph %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`veragraph — knowledge-graph trust scoring engine

Usage:
  veragraph serve [--config config.toml] [--addr :8080]
  veragraph mcp [--config config.toml]
  veragraph version
  veragraph help

Commands:
  serve     Start the HTTP server
  mcp       Serve the MCP tools over stdio
  version   Print version
  help      Show this help`)
}

// buildEngine opens the database and wires the scoring engine with its
// configured knobs, plus the optional recalculation trace store.
func buildEngine(cfg *config.Config) (*db.DB, *engine.Engine, *trace.Store, error) {
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, nil, err
	}

	var traces *trace.Store
	if cfg.Scoring.TraceRecalcs {
		traces = trace.NewStore(database.DB)
		if err := traces.Init(); err != nil {
			database.Close()
			return nil, nil, nil, err
		}
	}

	eng := engine.New(database, engine.Options{
		TemporalHalfLife:   time.Duration(cfg.Scoring.TemporalHalfLifeDays) * 24 * time.Hour,
		ReputationCacheTTL: time.Duration(cfg.Scoring.ReputationCacheTTLMin) * time.Minute,
		Traces:             traces,
	})
	return database, eng, traces, nil
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config.toml")
	addr := fs.String("addr", "", "listen address (overrides config)")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	database, eng, traces, err := buildEngine(cfg)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer database.Close()
	if traces != nil {
		defer traces.Close()
	}

	auditLog := audit.NewSQLiteLogger(database.DB)
	if err := auditLog.Init(); err != nil {
		log.Fatalf("initialising audit log: %v", err)
	}
	defer auditLog.Close()

	a := auth.New(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiryMin)
	apiHandler := api.New(database, eng, a)
	apiHandler.SetAuditor(auditLog)

	mux := http.NewServeMux()
	apiHandler.RegisterRoutes(mux)

	log.Printf("veragraph %s listening on %s", version, cfg.Server.Addr)
	log.Printf("database: %s", cfg.Database.Path)
	log.Printf("instance: %s (%s)", cfg.Instance.Name, cfg.Instance.ID)

	if err := http.ListenAndServe(cfg.Server.Addr, api.SecurityHeaders(mux)); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func cmdMCP(args []string) {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config.toml")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	database, eng, traces, err := buildEngine(cfg)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer database.Close()
	if traces != nil {
		defer traces.Close()
	}

	auditLog := audit.NewSQLiteLogger(database.DB)
	if err := auditLog.Init(); err != nil {
		log.Fatalf("initialising audit log: %v", err)
	}
	defer auditLog.Close()

	srv := mcp.NewServer(eng, auditLog)

	// The seeded slow_recalcs tool queries recalc_traces even when tracing
	// is disabled.
	if traces == nil {
		if _, err := database.Exec(trace.Schema); err != nil {
			log.Fatalf("initialising trace table: %v", err)
		}
	}

	// Dynamic read-only introspection tools, hot-reloaded from the registry
	// table.
	reg := mcprt.NewRegistry(database.DB)
	if err := reg.Init(); err != nil {
		log.Fatalf("initialising tool registry: %v", err)
	}
	mcp.SeedDefaultTools(database.DB)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := reg.LoadTools(ctx); err != nil {
		log.Fatalf("loading dynamic tools: %v", err)
	}
	mcprt.Bridge(srv, reg)
	go reg.RunWatcher(ctx)

	if err := srv.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
		log.Fatalf("mcp server error: %v", err)
	}
}
