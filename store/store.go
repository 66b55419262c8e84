package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// RelationTypes is the closed set of recognized answer relation types.
// Relations carrying any other type are skipped at import time.
var RelationTypes = map[string]bool{
	"prerequisite": true,
	"related":      true,
	"follows":      true,
	"specializes":  true,
	"generalizes":  true,
	"contrasts":    true,
	"implements":   true,
	"references":   true,
	"example_of":   true,
}

// modelDimensions maps known embedding model names to their vector size.
var modelDimensions = map[string]int{
	"all-MiniLM-L6-v2":      384,
	"all-mpnet-base-v2":     768,
	"nomic-embed-text-v1.5": 768,
}

// DefaultDimension is used for embedding models not in the lookup table.
const DefaultDimension = 384

// ModelDimension returns the embedding dimension for a model name.
func ModelDimension(name string) int {
	if d, ok := modelDimensions[name]; ok {
		return d
	}
	return DefaultDimension
}

// Cluster represents a row in the qa_clusters table.
type Cluster struct {
	ID          int64  `json:"cluster_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

// Answer represents a row in the answers table.
type Answer struct {
	ID          int64  `json:"answer_id"`
	SourceFile  string `json:"source_file"`
	SourceType  string `json:"source_type"`
	RecordID    string `json:"record_id"`
	Text        string `json:"text"`
	TextVariant string `json:"text_variant"`
	Metadata    string `json:"metadata,omitempty"`
}

// Question represents a row in the questions table.
type Question struct {
	ID         int64  `json:"question_id"`
	Text       string `json:"text"`
	LengthType string `json:"length_type"`
}

// Relation represents a row in the answer_relations table.
type Relation struct {
	ID           int64  `json:"relation_id"`
	FromAnswerID int64  `json:"from_answer_id"`
	ToAnswerID   int64  `json:"to_answer_id"`
	RelationType string `json:"relation_type"`
	Metadata     string `json:"metadata,omitempty"`
}

// Interface represents a row in the interfaces table.
type Interface struct {
	ID          int64  `json:"interface_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// InterfaceSummary pairs an interface with its member count.
type InterfaceSummary struct {
	Interface
	ClusterCount int `json:"cluster_count"`
}

// SearchResult holds an answer matched by full-text search.
type SearchResult struct {
	AnswerID int64   `json:"answer_id"`
	RecordID string  `json:"record_id"`
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
}

// Counts holds row counts of the key tables, used for run report checks.
type Counts struct {
	Clusters   int `json:"clusters"`
	Answers    int `json:"answers"`
	Questions  int `json:"questions"`
	Relations  int `json:"relations"`
	Interfaces int `json:"interfaces"`
	Embeddings int `json:"embeddings"`
}

// Store wraps the SQLite database for all kgweave persistence.
type Store struct {
	db           *sql.DB
	embeddingDim int
}

// New opens (or creates) a SQLite database at the given path and
// initialises the schema including the sqlite-vec and FTS5 virtual tables.
func New(dbPath string, embeddingDim int) (*Store, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL(embeddingDim)); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Connection pool settings for SQLite.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, embeddingDim: embeddingDim}

	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// EmbeddingDim returns the configured embedding dimension.
func (s *Store) EmbeddingDim() int {
	return s.embeddingDim
}

// --- Embedding model registry ---

// GetOrCreateModel looks up an embedding model by name, registering it
// with its known dimension if absent. Returns the model ID.
func (s *Store) GetOrCreateModel(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		"SELECT model_id FROM embedding_models WHERE name = ?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO embedding_models (name, dimension, backend, notes)
		VALUES (?, ?, 'sentence-transformers', 'registered by import')
	`, name, ModelDimension(name))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// --- Cluster / answer / question operations ---

// InsertCluster creates a new cluster row and returns its ID. Clusters are
// never merged: a name seen twice produces two rows.
func (s *Store) InsertCluster(ctx context.Context, name, description string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO qa_clusters (name, description) VALUES (?, ?)",
		name, description)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// InsertAnswer creates a new answer row and returns its ID.
func (s *Store) InsertAnswer(ctx context.Context, a Answer) (int64, error) {
	variant := a.TextVariant
	if variant == "" {
		variant = "default"
	}
	var metadata interface{}
	if a.Metadata != "" {
		metadata = a.Metadata
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO answers (source_file, source_type, record_id, text, text_variant, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.SourceFile, a.SourceType, a.RecordID, a.Text, variant, metadata)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// LinkClusterAnswer creates the join row between a cluster and its answer.
func (s *Store) LinkClusterAnswer(ctx context.Context, clusterID, answerID int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO cluster_answers (cluster_id, answer_id) VALUES (?, ?)",
		clusterID, answerID)
	return err
}

// InsertQuestion creates a question row and returns its ID. length defaults
// to "short" when empty.
func (s *Store) InsertQuestion(ctx context.Context, text, lengthType string) (int64, error) {
	if lengthType == "" {
		lengthType = "short"
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO questions (text, length_type) VALUES (?, ?)",
		text, lengthType)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// LinkClusterQuestion creates the join row between a cluster and a question.
func (s *Store) LinkClusterQuestion(ctx context.Context, clusterID, questionID int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO cluster_questions (cluster_id, question_id) VALUES (?, ?)",
		clusterID, questionID)
	return err
}

// GetClusterByName returns the first cluster with the given name.
func (s *Store) GetClusterByName(ctx context.Context, name string) (*Cluster, error) {
	c := &Cluster{}
	var desc sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT cluster_id, name, description, created_at
		FROM qa_clusters WHERE name = ? ORDER BY cluster_id LIMIT 1
	`, name).Scan(&c.ID, &c.Name, &desc, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.Description = desc.String
	return c, nil
}

// GetAnswer retrieves an answer by ID.
func (s *Store) GetAnswer(ctx context.Context, id int64) (*Answer, error) {
	a := &Answer{}
	var sourceFile, sourceType, metadata sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT answer_id, source_file, source_type, record_id, text, text_variant, metadata
		FROM answers WHERE answer_id = ?
	`, id).Scan(&a.ID, &sourceFile, &sourceType, &a.RecordID, &a.Text, &a.TextVariant, &metadata)
	if err != nil {
		return nil, err
	}
	a.SourceFile = sourceFile.String
	a.SourceType = sourceType.String
	a.Metadata = metadata.String
	return a, nil
}

// QuestionsForCluster returns all questions linked to a cluster.
func (s *Store) QuestionsForCluster(ctx context.Context, clusterID int64) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT q.question_id, q.text, q.length_type
		FROM questions q
		JOIN cluster_questions cq ON cq.question_id = q.question_id
		WHERE cq.cluster_id = ?
		ORDER BY q.question_id
	`, clusterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []Question
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.Text, &q.LengthType); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// InsertClusterBundle writes one record's cluster, answer, questions, and
// join rows in a single transaction so a failed record leaves no partial
// rows behind. Returns the new cluster and answer IDs.
func (s *Store) InsertClusterBundle(ctx context.Context, name, description string, a Answer, questions []Question) (int64, int64, error) {
	var clusterID, answerID int64

	variant := a.TextVariant
	if variant == "" {
		variant = "default"
	}
	var metadata interface{}
	if a.Metadata != "" {
		metadata = a.Metadata
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO qa_clusters (name, description) VALUES (?, ?)",
			name, description)
		if err != nil {
			return err
		}
		if clusterID, err = res.LastInsertId(); err != nil {
			return err
		}

		res, err = tx.ExecContext(ctx, `
			INSERT INTO answers (source_file, source_type, record_id, text, text_variant, metadata)
			VALUES (?, ?, ?, ?, ?, ?)
		`, a.SourceFile, a.SourceType, a.RecordID, a.Text, variant, metadata)
		if err != nil {
			return err
		}
		if answerID, err = res.LastInsertId(); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO cluster_answers (cluster_id, answer_id) VALUES (?, ?)",
			clusterID, answerID); err != nil {
			return err
		}

		for _, q := range questions {
			lengthType := q.LengthType
			if lengthType == "" {
				lengthType = "short"
			}
			res, err := tx.ExecContext(ctx,
				"INSERT INTO questions (text, length_type) VALUES (?, ?)",
				q.Text, lengthType)
			if err != nil {
				return err
			}
			questionID, err := res.LastInsertId()
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO cluster_questions (cluster_id, question_id) VALUES (?, ?)",
				clusterID, questionID); err != nil {
				return err
			}
		}
		return nil
	})

	return clusterID, answerID, err
}

// --- Relation operations ---

// InsertRelation creates an answer relation with insert-if-absent semantics
// keyed on (from, to, type). Returns true when a new row was written, false
// when the edge already existed.
func (s *Store) InsertRelation(ctx context.Context, r Relation) (bool, error) {
	var metadata interface{}
	if r.Metadata != "" {
		metadata = r.Metadata
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO answer_relations (from_answer_id, to_answer_id, relation_type, metadata)
		VALUES (?, ?, ?, ?)
	`, r.FromAnswerID, r.ToAnswerID, r.RelationType, metadata)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AllRelations returns every answer relation in the database.
func (s *Store) AllRelations(ctx context.Context) ([]Relation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT relation_id, from_answer_id, to_answer_id, relation_type, metadata
		FROM answer_relations
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rels []Relation
	for rows.Next() {
		var r Relation
		var metadata sql.NullString
		if err := rows.Scan(&r.ID, &r.FromAnswerID, &r.ToAnswerID, &r.RelationType, &metadata); err != nil {
			return nil, err
		}
		r.Metadata = metadata.String
		rels = append(rels, r)
	}
	return rels, rows.Err()
}

// RelationsFrom returns all outgoing relations for an answer.
func (s *Store) RelationsFrom(ctx context.Context, answerID int64) ([]Relation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT relation_id, from_answer_id, to_answer_id, relation_type, metadata
		FROM answer_relations WHERE from_answer_id = ?
	`, answerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rels []Relation
	for rows.Next() {
		var r Relation
		var metadata sql.NullString
		if err := rows.Scan(&r.ID, &r.FromAnswerID, &r.ToAnswerID, &r.RelationType, &metadata); err != nil {
			return nil, err
		}
		r.Metadata = metadata.String
		rels = append(rels, r)
	}
	return rels, rows.Err()
}

// GetAnswersByRecordIDs returns answers matching any of the given record
// identifiers.
func (s *Store) GetAnswersByRecordIDs(ctx context.Context, recordIDs []string) ([]Answer, error) {
	if len(recordIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT answer_id, COALESCE(source_file, ''), COALESCE(source_type, ''), record_id, text, text_variant, COALESCE(metadata, '')
		FROM answers WHERE record_id IN (?` + repeatPlaceholders(len(recordIDs)-1) + ")"

	args := make([]interface{}, len(recordIDs))
	for i, id := range recordIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []Answer
	for rows.Next() {
		var a Answer
		if err := rows.Scan(&a.ID, &a.SourceFile, &a.SourceType, &a.RecordID, &a.Text, &a.TextVariant, &a.Metadata); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// --- Interface operations ---

// CreateInterface creates an interface if it does not exist. Returns the
// interface ID and whether a new row was written. Re-creating an existing
// name is not an error.
func (s *Store) CreateInterface(ctx context.Context, name, description string) (int64, bool, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO interfaces (name, description) VALUES (?, ?)",
		name, description)
	if err != nil {
		return 0, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, false, err
	}
	if n > 0 {
		id, err := res.LastInsertId()
		return id, true, err
	}

	var id int64
	err = s.db.QueryRowContext(ctx,
		"SELECT interface_id FROM interfaces WHERE name = ?", name).Scan(&id)
	return id, false, err
}

// GetInterfaceByName looks up an interface by its unique name.
// Returns sql.ErrNoRows when absent.
func (s *Store) GetInterfaceByName(ctx context.Context, name string) (*Interface, error) {
	iface := &Interface{}
	var desc sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT interface_id, name, description FROM interfaces WHERE name = ?",
		name).Scan(&iface.ID, &iface.Name, &desc)
	if err != nil {
		return nil, err
	}
	iface.Description = desc.String
	return iface, nil
}

// AddInterfaceCluster assigns a cluster to an interface. Re-assigning is a
// silent no-op.
func (s *Store) AddInterfaceCluster(ctx context.Context, interfaceID, clusterID int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO interface_clusters (interface_id, cluster_id) VALUES (?, ?)",
		interfaceID, clusterID)
	return err
}

// ListInterfaces returns all interfaces with their member counts, ordered
// by name.
func (s *Store) ListInterfaces(ctx context.Context) ([]InterfaceSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.interface_id, i.name, i.description, COUNT(ic.cluster_id)
		FROM interfaces i
		LEFT JOIN interface_clusters ic ON ic.interface_id = i.interface_id
		GROUP BY i.interface_id
		ORDER BY i.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []InterfaceSummary
	for rows.Next() {
		var s InterfaceSummary
		var desc sql.NullString
		if err := rows.Scan(&s.ID, &s.Name, &desc, &s.ClusterCount); err != nil {
			return nil, err
		}
		s.Description = desc.String
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// ClustersForInterface returns the IDs of clusters assigned to an interface.
func (s *Store) ClustersForInterface(ctx context.Context, interfaceID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT cluster_id FROM interface_clusters WHERE interface_id = ? ORDER BY cluster_id",
		interfaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- Embedding operations ---

// InsertAnswerEmbedding stores a vector embedding for an answer.
func (s *Store) InsertAnswerEmbedding(ctx context.Context, answerID int64, embedding []float32) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO vec_answers (answer_id, embedding) VALUES (?, ?)",
		answerID, serializeFloat32(embedding))
	return err
}

// AnswerHasEmbedding checks if an answer has a vector embedding.
func (s *Store) AnswerHasEmbedding(ctx context.Context, answerID int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM vec_answers WHERE answer_id = ?", answerID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// --- Search ---

// SearchAnswers performs a full-text search over answer text using FTS5
// BM25 ranking.
func (s *Store) SearchAnswers(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.rowid, f.rank, a.record_id, a.text
		FROM answers_fts f
		JOIN answers a ON a.answer_id = f.rowid
		WHERE answers_fts MATCH ?
		ORDER BY f.rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var rank float64
		if err := rows.Scan(&r.AnswerID, &rank, &r.RecordID, &r.Text); err != nil {
			return nil, err
		}
		// FTS5 rank is negative (lower = better), convert to positive score
		r.Score = -rank
		results = append(results, r)
	}
	return results, rows.Err()
}

// --- Diagnostics ---

// Counts returns row counts of clusters, answers, questions, relations,
// interfaces, and embeddings.
func (s *Store) Counts(ctx context.Context) (*Counts, error) {
	counts := &Counts{}
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM qa_clusters", &counts.Clusters},
		{"SELECT COUNT(*) FROM answers", &counts.Answers},
		{"SELECT COUNT(*) FROM questions", &counts.Questions},
		{"SELECT COUNT(*) FROM answer_relations", &counts.Relations},
		{"SELECT COUNT(*) FROM interfaces", &counts.Interfaces},
		{"SELECT COUNT(*) FROM vec_answers", &counts.Embeddings},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("counting %s: %w", q.query, err)
		}
	}
	return counts, nil
}

// --- helpers ---

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func repeatPlaceholders(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		s += ", ?"
	}
	return s
}

// serializeFloat32 converts a float32 slice to little-endian bytes for sqlite-vec.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
