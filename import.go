package kgweave

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/kgweave/kgweave/discover"
	"github.com/kgweave/kgweave/iface"
	"github.com/kgweave/kgweave/record"
	"github.com/kgweave/kgweave/store"
)

// sourced pairs a parsed record with the provenance path of its file.
type sourced struct {
	rec        record.Record
	provenance string
}

// Run executes one full import: discover, parse everything, import all
// clusters, then relations in a second pass, then create and assign
// interfaces. Per-record failures are logged and counted; only setup
// failures abort the run.
//
// Relations must not be imported until every record has been through
// cluster import, otherwise forward references (an edge naming a cluster
// that appears later in file order) would be dropped.
func (imp *Importer) Run(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	sources, err := discover.Files(imp.inputDir)
	if err != nil {
		return nil, fmt.Errorf("discovering input files: %w", err)
	}

	var records []sourced
	for _, src := range sources {
		slog.Info("reading", "file", src.Rel)
		recs, malformed, err := record.ReadFile(src.Path, src.Rel)
		if err != nil {
			return nil, err
		}
		stats.FilesProcessed++
		stats.Errors += malformed
		for _, rec := range recs {
			records = append(records, sourced{rec: rec, provenance: src.Rel})
		}
	}

	slog.Info("parsed input", "records", len(records), "files", stats.FilesProcessed)

	// Run-scoped lookup maps: external cluster_id -> internal row IDs.
	// Owned here, handed to the phases, discarded at run end.
	clusterIDs := make(map[string]int64, len(records))
	answerIDs := make(map[string]int64, len(records))

	slog.Info("importing clusters")
	for _, s := range records {
		if err := imp.importCluster(ctx, s, clusterIDs, answerIDs, stats); err != nil {
			slog.Warn("skipping record", "cluster_id", s.rec.ClusterID, "file", s.provenance, "error", err)
			stats.Errors++
		}
	}

	slog.Info("importing relations")
	for _, s := range records {
		imp.importRelations(ctx, s.rec, answerIDs, stats)
	}

	slog.Info("creating interfaces")
	if err := imp.createInterfaces(ctx, stats); err != nil {
		return nil, err
	}

	slog.Info("assigning clusters to interfaces")
	imp.assignInterfaces(ctx, clusterIDs)

	slog.Info("import complete",
		"files", stats.FilesProcessed,
		"clusters", stats.ClustersCreated,
		"answers", stats.AnswersCreated,
		"questions", stats.QuestionsCreated,
		"relations", stats.RelationsCreated,
		"interfaces", stats.InterfacesCreated,
		"errors", stats.Errors)

	return stats, nil
}

// importCluster persists one record's cluster, answer, and questions, and
// registers the cluster in the run-scoped maps. A cluster_id seen twice
// produces two independent rows; only the latest mapping survives for
// relation resolution.
func (imp *Importer) importCluster(ctx context.Context, s sourced, clusterIDs, answerIDs map[string]int64, stats *Stats) error {
	rec := s.rec
	if rec.ClusterID == "" {
		return ErrEmptyClusterID
	}

	text := rec.RenderedAnswer()
	if text == "" {
		return fmt.Errorf("%w: %s", ErrEmptyAnswer, rec.ClusterID)
	}

	if _, seen := clusterIDs[rec.ClusterID]; seen {
		slog.Warn("duplicate cluster_id, previous mapping shadowed", "cluster_id", rec.ClusterID, "file", s.provenance)
	}

	sourceFile := rec.SourceFile
	if sourceFile == "" {
		sourceFile = s.provenance
	}
	sourceType := rec.SourceType
	if sourceType == "" {
		sourceType = record.InferSourceType(s.provenance)
	}

	var metadata string
	if len(rec.Tags) > 0 {
		data, err := json.Marshal(map[string][]string{"tags": rec.Tags})
		if err != nil {
			return fmt.Errorf("encoding tags: %w", err)
		}
		metadata = string(data)
	}

	var questions []store.Question
	for _, q := range rec.Questions {
		if q.Text == "" {
			continue
		}
		questions = append(questions, store.Question{Text: q.Text, LengthType: q.Length})
	}

	clusterID, answerID, err := imp.store.InsertClusterBundle(ctx,
		rec.ClusterID, rec.Section,
		store.Answer{
			SourceFile: sourceFile,
			SourceType: sourceType,
			RecordID:   rec.ClusterID,
			Text:       text,
			Metadata:   metadata,
		}, questions)
	if err != nil {
		return fmt.Errorf("persisting %s: %w", rec.ClusterID, err)
	}

	stats.ClustersCreated++
	stats.AnswersCreated++
	stats.QuestionsCreated += len(questions)

	clusterIDs[rec.ClusterID] = clusterID
	answerIDs[rec.ClusterID] = answerID
	return nil
}

// importRelations persists one record's relation edges. Invoked only after
// every record has completed cluster import. Unknown relation types are
// skipped with a warning; edges whose target was never imported in this
// run are dropped silently.
func (imp *Importer) importRelations(ctx context.Context, rec record.Record, answerIDs map[string]int64, stats *Stats) {
	fromID, ok := answerIDs[rec.ClusterID]
	if !ok {
		return
	}

	for _, rel := range rec.Relations {
		if !store.RelationTypes[rel.Type] {
			slog.Warn("unknown relation type", "type", rel.Type, "cluster_id", rec.ClusterID)
			continue
		}

		toID, ok := answerIDs[rel.To]
		if !ok {
			continue
		}

		metadata := "{}"
		if len(rel.Metadata) > 0 {
			metadata = string(rel.Metadata)
		}

		inserted, err := imp.store.InsertRelation(ctx, store.Relation{
			FromAnswerID: fromID,
			ToAnswerID:   toID,
			RelationType: rel.Type,
			Metadata:     metadata,
		})
		if err != nil {
			slog.Warn("could not create relation", "cluster_id", rec.ClusterID, "to", rel.To, "error", err)
			continue
		}
		if inserted {
			stats.RelationsCreated++
		}
	}
}

// createInterfaces derives interface names from the input directory layout
// and creates any that do not exist yet.
func (imp *Importer) createInterfaces(ctx context.Context, stats *Stats) error {
	defs, err := iface.FromStructure(imp.inputDir)
	if err != nil {
		return fmt.Errorf("deriving interfaces: %w", err)
	}

	for _, def := range defs {
		_, created, err := imp.store.CreateInterface(ctx, def.Name, def.Description)
		if err != nil {
			slog.Warn("could not create interface", "name", def.Name, "error", err)
			continue
		}
		if created {
			stats.InterfacesCreated++
			slog.Info("created interface", "name", def.Name)
		}
	}
	return nil
}

// assignInterfaces maps every imported cluster to its derived interface.
// Clusters whose identifier matches no rule, and rules naming an interface
// that was never created, are skipped.
func (imp *Importer) assignInterfaces(ctx context.Context, clusterIDs map[string]int64) {
	for clusterIDStr, clusterID := range clusterIDs {
		name, ok := iface.Derive(clusterIDStr)
		if !ok {
			continue
		}

		target, err := imp.store.GetInterfaceByName(ctx, name)
		if err != nil {
			continue
		}

		if err := imp.store.AddInterfaceCluster(ctx, target.ID, clusterID); err != nil {
			slog.Warn("could not assign cluster", "cluster_id", clusterIDStr, "interface", name, "error", err)
		}
	}
}
