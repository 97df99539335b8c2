package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/graphward/code-graph-guard/internal/config"
	"github.com/graphward/code-graph-guard/internal/engine"
	"github.com/graphward/code-graph-guard/internal/graph"
	"github.com/graphward/code-graph-guard/internal/indexer"
	"github.com/graphward/code-graph-guard/internal/tools"
	"github.com/graphward/code-graph-guard/internal/watcher"
)

var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if *showVersion {
		fmt.Println("code-graph-guard", version)
		os.Exit(0)
	}

	// Logs go to stderr; stdout is the MCP transport.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config err=%v", err)
	}

	router, err := graph.NewRouter(cfg.DataDir)
	if err != nil {
		log.Fatalf("data dir err=%v", err)
	}
	eng := engine.New(router)
	ix := indexer.New(eng, router)
	srv := tools.NewServer(eng, ix, router)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Watch {
		w := watcher.New(router, func(ctx context.Context, ref engine.ScopeRef, rootPath string) error {
			_, err := ix.Index(ctx, ref, rootPath, &indexer.Options{
				Include:     cfg.Include,
				Exclude:     cfg.Exclude,
				MaxFileSize: cfg.MaxFileSize,
				Concurrency: cfg.ParseConcurrency,
			})
			return err
		})
		go w.Run(ctx)
	}

	runErr := srv.MCPServer().Run(ctx, &mcp.StdioTransport{})
	cancel()
	router.CloseAll()
	if runErr != nil {
		log.Fatalf("server err=%v", runErr)
	}
}
