// Command kgweave-import loads JSONL training data into the unified
// knowledge-graph database.
//
// Usage:
//
//	go run -tags sqlite_fts5 ./cmd/kgweave-import --input training-data/
//	go run -tags sqlite_fts5 ./cmd/kgweave-import --input training-data/ --dry-run
//	go run -tags sqlite_fts5 ./cmd/kgweave-import --input training-data/ --model nomic-embed-text-v1.5
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/kgweave/kgweave"
	"github.com/kgweave/kgweave/report"
)

func main() {
	var (
		inputDir      = flag.String("input", "", "Training data directory (required)")
		outputPath    = flag.String("output", "", "Output database path (default: INPUT/unified.db)")
		embeddingsDir = flag.String("embeddings", "", "Embeddings directory (default: INPUT/embeddings)")
		model         = flag.String("model", "", "Embedding model name (default: "+kgweave.DefaultModel+")")
		dryRun        = flag.Bool("dry-run", false, "Show what would be imported without writing")
		configPath    = flag.String("config", "", "Path to config file (JSON or YAML)")
		reportPath    = flag.String("report", "", "Optional XLSX report output path")
	)
	flag.Parse()

	// Structured JSON logging.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if *inputDir == "" {
		slog.Error("missing required --input directory")
		os.Exit(1)
	}

	cfg := kgweave.DefaultConfig()
	if *configPath != "" {
		loaded, err := kgweave.LoadConfig(*configPath)
		if err != nil {
			slog.Error("loading config", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Override from environment variables.
	if v := os.Getenv("KGWEAVE_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("KGWEAVE_EMBEDDINGS_DIR"); v != "" {
		cfg.EmbeddingsDir = v
	}
	if v := os.Getenv("KGWEAVE_MODEL"); v != "" {
		cfg.Model = v
	}

	// Flags win over config file and environment.
	if *outputPath != "" {
		cfg.DBPath = *outputPath
	}
	if *embeddingsDir != "" {
		cfg.EmbeddingsDir = *embeddingsDir
	}
	if *model != "" {
		cfg.Model = *model
	}

	if *dryRun {
		stats, err := kgweave.DryRun(*inputDir)
		if err != nil {
			slog.Error("dry run failed", "error", err)
			os.Exit(1)
		}
		slog.Info("would create",
			"clusters", stats.ClustersCreated,
			"questions", stats.QuestionsCreated,
			"relations", stats.RelationsCreated)
		return
	}

	importer, err := kgweave.New(cfg, *inputDir)
	if err != nil {
		slog.Error("setup failed", "error", err)
		os.Exit(1)
	}
	defer importer.Close()

	ctx := context.Background()
	stats, err := importer.Run(ctx)
	if err != nil {
		slog.Error("import failed", "error", err)
		os.Exit(1)
	}

	if *reportPath != "" {
		interfaces, err := importer.Store().ListInterfaces(ctx)
		if err != nil {
			slog.Error("listing interfaces for report", "error", err)
			os.Exit(1)
		}
		summary := report.Summary{
			FilesProcessed:    stats.FilesProcessed,
			ClustersCreated:   stats.ClustersCreated,
			AnswersCreated:    stats.AnswersCreated,
			QuestionsCreated:  stats.QuestionsCreated,
			RelationsCreated:  stats.RelationsCreated,
			InterfacesCreated: stats.InterfacesCreated,
			Errors:            stats.Errors,
		}
		if err := report.Write(*reportPath, summary, interfaces); err != nil {
			slog.Error("writing report", "error", err)
			os.Exit(1)
		}
		slog.Info("report written", "path", *reportPath)
	}
}
