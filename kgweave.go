// Package kgweave imports line-delimited question/answer training records
// into a normalized knowledge-graph store and links the resulting clusters
// into topical interface groupings derived from their provenance.
package kgweave

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/kgweave/kgweave/discover"
	"github.com/kgweave/kgweave/graph"
	"github.com/kgweave/kgweave/record"
	"github.com/kgweave/kgweave/store"
)

// Stats aggregates the counters of one import run.
type Stats struct {
	FilesProcessed    int `json:"files_processed"`
	ClustersCreated   int `json:"clusters_created"`
	AnswersCreated    int `json:"answers_created"`
	QuestionsCreated  int `json:"questions_created"`
	RelationsCreated  int `json:"relations_created"`
	InterfacesCreated int `json:"interfaces_created"`
	Errors            int `json:"errors"`
}

// Importer drives one import run against a training-data directory.
type Importer struct {
	cfg      Config
	inputDir string
	store    *store.Store
	modelID  int64
}

// New opens the store for the given training-data directory and registers
// the configured embedding model. The input directory must exist; a store
// that cannot be opened is a fatal setup failure.
func New(cfg Config, inputDir string) (*Importer, error) {
	info, err := os.Stat(inputDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrInputNotFound, inputDir)
	}

	cfg.resolve(inputDir)

	if err := os.MkdirAll(cfg.EmbeddingsDir, 0755); err != nil {
		return nil, fmt.Errorf("creating embeddings directory: %w", err)
	}

	s, err := store.New(cfg.DBPath, store.ModelDimension(cfg.Model))
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	modelID, err := s.GetOrCreateModel(context.Background(), cfg.Model)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("registering embedding model: %w", err)
	}

	slog.Info("connected to store",
		"db", cfg.DBPath, "embeddings", cfg.EmbeddingsDir,
		"model", cfg.Model, "model_id", modelID)

	return &Importer{cfg: cfg, inputDir: inputDir, store: s, modelID: modelID}, nil
}

// Close closes the underlying store.
func (imp *Importer) Close() error {
	return imp.store.Close()
}

// Store returns the underlying store for diagnostic access.
func (imp *Importer) Store() *store.Store {
	return imp.store
}

// ModelID returns the registered embedding model's ID.
func (imp *Importer) ModelID() int64 {
	return imp.modelID
}

// Search performs a full-text search over imported answer text.
func (imp *Importer) Search(ctx context.Context, query string, limit int) ([]store.SearchResult, error) {
	return imp.store.SearchAnswers(ctx, query, limit)
}

// Related walks the answer relation graph from the named clusters up to
// maxDepth hops and returns the reachable answers.
func (imp *Importer) Related(ctx context.Context, clusterIDs []string, maxDepth int) (*graph.TraversalResult, error) {
	return graph.Traverse(ctx, imp.store, clusterIDs, maxDepth)
}

// DryRun parses all input files under inputDir and returns projected
// counts without touching storage. Relation and question counts are taken
// from the raw records, before any validation beyond JSON decoding.
func DryRun(inputDir string) (*Stats, error) {
	if info, err := os.Stat(inputDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrInputNotFound, inputDir)
	}

	sources, err := discover.Files(inputDir)
	if err != nil {
		return nil, fmt.Errorf("discovering input files: %w", err)
	}

	stats := &Stats{}
	for _, src := range sources {
		records, malformed, err := record.ReadFile(src.Path, src.Rel)
		if err != nil {
			return nil, err
		}
		stats.FilesProcessed++
		stats.Errors += malformed
		stats.ClustersCreated += len(records)
		for _, rec := range records {
			stats.QuestionsCreated += len(rec.Questions)
			stats.RelationsCreated += len(rec.Relations)
		}
	}

	slog.Info("dry run complete",
		"files", stats.FilesProcessed,
		"clusters", stats.ClustersCreated,
		"questions", stats.QuestionsCreated,
		"relations", stats.RelationsCreated)
	return stats, nil
}
