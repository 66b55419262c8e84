//go:build cgo

package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath, 4) // dim=4 for test vectors
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// ---------------------------------------------------------------------------
// Schema / construction
// ---------------------------------------------------------------------------

func TestNew(t *testing.T) {
	s := newTestStore(t)
	if s.EmbeddingDim() != 4 {
		t.Fatalf("expected embedding dim 4, got %d", s.EmbeddingDim())
	}
	if s.DB() == nil {
		t.Fatal("expected non-nil *sql.DB")
	}
}

func TestNewCreatesParentDir(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sub", "dir", "test.db")
	s, err := New(dbPath, 4)
	if err != nil {
		t.Fatalf("creating store in nested dir: %v", err)
	}
	s.Close()
}

func TestModelDimension(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"all-MiniLM-L6-v2", 384},
		{"all-mpnet-base-v2", 768},
		{"nomic-embed-text-v1.5", 768},
		{"some-unknown-model", 384},
	}
	for _, tt := range tests {
		if got := ModelDimension(tt.name); got != tt.want {
			t.Errorf("ModelDimension(%q) = %d, want %d", tt.name, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Embedding model registry
// ---------------------------------------------------------------------------

func TestGetOrCreateModel(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.GetOrCreateModel(ctx, "all-MiniLM-L6-v2")
	if err != nil {
		t.Fatalf("creating model: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero model id")
	}

	again, err := s.GetOrCreateModel(ctx, "all-MiniLM-L6-v2")
	if err != nil {
		t.Fatalf("looking up model: %v", err)
	}
	if again != id {
		t.Errorf("second lookup returned %d, want %d", again, id)
	}

	var dim int
	if err := s.DB().QueryRow(
		"SELECT dimension FROM embedding_models WHERE model_id = ?", id).Scan(&dim); err != nil {
		t.Fatalf("reading dimension: %v", err)
	}
	if dim != 384 {
		t.Errorf("dimension: got %d, want 384", dim)
	}
}

// ---------------------------------------------------------------------------
// Clusters / answers / questions
// ---------------------------------------------------------------------------

func TestInsertClusterBundle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	clusterID, answerID, err := s.InsertClusterBundle(ctx,
		"book-01-ch02-facts", "Facts and assertions",
		Answer{
			SourceFile: "education/book-01/ch02.jsonl",
			SourceType: "education",
			RecordID:   "book-01-ch02-facts",
			Text:       "Use assert/2.",
		},
		[]Question{
			{Text: "How do I state a fact?"},
			{Text: "Explain assertion in depth.", LengthType: "long"},
		})
	if err != nil {
		t.Fatalf("inserting bundle: %v", err)
	}
	if clusterID == 0 || answerID == 0 {
		t.Fatalf("expected non-zero ids, got cluster=%d answer=%d", clusterID, answerID)
	}

	c, err := s.GetClusterByName(ctx, "book-01-ch02-facts")
	if err != nil {
		t.Fatalf("getting cluster: %v", err)
	}
	if c.ID != clusterID {
		t.Errorf("cluster id: got %d, want %d", c.ID, clusterID)
	}
	if c.Description != "Facts and assertions" {
		t.Errorf("description: got %q", c.Description)
	}

	a, err := s.GetAnswer(ctx, answerID)
	if err != nil {
		t.Fatalf("getting answer: %v", err)
	}
	if a.Text != "Use assert/2." {
		t.Errorf("answer text: got %q", a.Text)
	}
	if a.TextVariant != "default" {
		t.Errorf("text variant: got %q, want default", a.TextVariant)
	}
	if a.SourceType != "education" {
		t.Errorf("source type: got %q", a.SourceType)
	}

	questions, err := s.QuestionsForCluster(ctx, clusterID)
	if err != nil {
		t.Fatalf("listing questions: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("got %d questions, want 2", len(questions))
	}
	if questions[0].LengthType != "short" {
		t.Errorf("default length: got %q, want short", questions[0].LengthType)
	}
	if questions[1].LengthType != "long" {
		t.Errorf("explicit length: got %q, want long", questions[1].LengthType)
	}
}

func TestInsertClusterNoUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.InsertCluster(ctx, "book-01-ch01-intro", "")
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	second, err := s.InsertCluster(ctx, "book-01-ch01-intro", "")
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if first == second {
		t.Error("expected two independent cluster rows for a duplicate name")
	}
}

func TestGetAnswersByRecordIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"prereq-lists", "prereq-maps"} {
		if _, err := s.InsertAnswer(ctx, Answer{RecordID: id, Text: "answer for " + id}); err != nil {
			t.Fatalf("inserting answer: %v", err)
		}
	}

	answers, err := s.GetAnswersByRecordIDs(ctx, []string{"prereq-lists", "prereq-maps", "missing"})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(answers) != 2 {
		t.Fatalf("got %d answers, want 2", len(answers))
	}

	none, err := s.GetAnswersByRecordIDs(ctx, nil)
	if err != nil || none != nil {
		t.Fatalf("empty lookup: got %v, %v", none, err)
	}
}

// ---------------------------------------------------------------------------
// Relations
// ---------------------------------------------------------------------------

func TestInsertRelationIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	fromID, err := s.InsertAnswer(ctx, Answer{RecordID: "a", Text: "A"})
	if err != nil {
		t.Fatal(err)
	}
	toID, err := s.InsertAnswer(ctx, Answer{RecordID: "b", Text: "B"})
	if err != nil {
		t.Fatal(err)
	}

	rel := Relation{FromAnswerID: fromID, ToAnswerID: toID, RelationType: "follows", Metadata: "{}"}

	inserted, err := s.InsertRelation(ctx, rel)
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if !inserted {
		t.Error("first insert should report a new row")
	}

	inserted, err = s.InsertRelation(ctx, rel)
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if inserted {
		t.Error("second insert should be ignored")
	}

	rels, err := s.AllRelations(ctx)
	if err != nil {
		t.Fatalf("listing relations: %v", err)
	}
	if len(rels) != 1 {
		t.Fatalf("got %d relations, want 1", len(rels))
	}
	if rels[0].RelationType != "follows" {
		t.Errorf("relation type: got %q", rels[0].RelationType)
	}

	// A different type between the same answers is a distinct edge.
	inserted, err = s.InsertRelation(ctx, Relation{
		FromAnswerID: fromID, ToAnswerID: toID, RelationType: "references",
	})
	if err != nil || !inserted {
		t.Fatalf("distinct type insert: inserted=%v err=%v", inserted, err)
	}

	outgoing, err := s.RelationsFrom(ctx, fromID)
	if err != nil {
		t.Fatalf("outgoing: %v", err)
	}
	if len(outgoing) != 2 {
		t.Fatalf("got %d outgoing relations, want 2", len(outgoing))
	}
}

// ---------------------------------------------------------------------------
// Interfaces
// ---------------------------------------------------------------------------

func TestCreateInterfaceIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, created, err := s.CreateInterface(ctx, "book-01", "Auto-generated interface for book-01")
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if !created || id == 0 {
		t.Fatalf("expected new interface, got id=%d created=%v", id, created)
	}

	again, created, err := s.CreateInterface(ctx, "book-01", "different description")
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if created {
		t.Error("second create should not report a new row")
	}
	if again != id {
		t.Errorf("second create returned id %d, want %d", again, id)
	}

	iface, err := s.GetInterfaceByName(ctx, "book-01")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if iface.Description != "Auto-generated interface for book-01" {
		t.Errorf("description overwritten: got %q", iface.Description)
	}
}

func TestGetInterfaceByNameNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetInterfaceByName(context.Background(), "nope")
	if err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestAddInterfaceCluster(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ifaceID, _, err := s.CreateInterface(ctx, "playbooks", "")
	if err != nil {
		t.Fatal(err)
	}
	clusterID, err := s.InsertCluster(ctx, "playbook-deploy", "")
	if err != nil {
		t.Fatal(err)
	}

	if err := s.AddInterfaceCluster(ctx, ifaceID, clusterID); err != nil {
		t.Fatalf("first assign: %v", err)
	}
	// Re-assigning is a silent no-op.
	if err := s.AddInterfaceCluster(ctx, ifaceID, clusterID); err != nil {
		t.Fatalf("second assign: %v", err)
	}

	members, err := s.ClustersForInterface(ctx, ifaceID)
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if len(members) != 1 || members[0] != clusterID {
		t.Fatalf("members: got %v, want [%d]", members, clusterID)
	}

	summaries, err := s.ListInterfaces(ctx)
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(summaries) != 1 || summaries[0].ClusterCount != 1 {
		t.Fatalf("summaries: got %+v", summaries)
	}
}

// ---------------------------------------------------------------------------
// Embeddings / search / counts
// ---------------------------------------------------------------------------

func TestAnswerEmbedding(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	answerID, err := s.InsertAnswer(ctx, Answer{RecordID: "a", Text: "A"})
	if err != nil {
		t.Fatal(err)
	}

	has, err := s.AnswerHasEmbedding(ctx, answerID)
	if err != nil || has {
		t.Fatalf("expected no embedding yet, got has=%v err=%v", has, err)
	}

	if err := s.InsertAnswerEmbedding(ctx, answerID, []float32{0.1, 0.2, 0.3, 0.4}); err != nil {
		t.Fatalf("inserting embedding: %v", err)
	}

	has, err = s.AnswerHasEmbedding(ctx, answerID)
	if err != nil || !has {
		t.Fatalf("expected embedding, got has=%v err=%v", has, err)
	}
}

func TestSearchAnswers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.InsertAnswer(ctx, Answer{RecordID: "book-01-ch02-facts", Text: "Use assert/2 to state a fact."}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.InsertAnswer(ctx, Answer{RecordID: "playbook-deploy", Text: "Run the deployment playbook."}); err != nil {
		t.Fatal(err)
	}

	results, err := s.SearchAnswers(ctx, "assert", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].RecordID != "book-01-ch02-facts" {
		t.Errorf("record id: got %q", results[0].RecordID)
	}
	if results[0].Score <= 0 {
		t.Errorf("score: got %f, want > 0", results[0].Score)
	}
}

func TestCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, _, err := s.InsertClusterBundle(ctx, "prereq-lists", "",
		Answer{RecordID: "prereq-lists", Text: "Lists hold things."},
		[]Question{{Text: "What is a list?"}}); err != nil {
		t.Fatal(err)
	}

	counts, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts.Clusters != 1 || counts.Answers != 1 || counts.Questions != 1 {
		t.Fatalf("counts: got %+v", counts)
	}
}
