package store

import "fmt"

// schemaSQL returns the DDL for all tables. embeddingDim controls the
// vec0 virtual table dimension and must match the registered model.
func schemaSQL(embeddingDim int) string {
	return fmt.Sprintf(`
-- QA clusters: one named grouping per imported record
CREATE TABLE IF NOT EXISTS qa_clusters (
    cluster_id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Canonical answers (one per cluster, linked via cluster_answers)
CREATE TABLE IF NOT EXISTS answers (
    answer_id INTEGER PRIMARY KEY,
    source_file TEXT,
    source_type TEXT,
    record_id TEXT NOT NULL,
    text TEXT NOT NULL,
    text_variant TEXT NOT NULL DEFAULT 'default',
    metadata JSON,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Questions (many per cluster, duplicate text across clusters allowed)
CREATE TABLE IF NOT EXISTS questions (
    question_id INTEGER PRIMARY KEY,
    text TEXT NOT NULL,
    length_type TEXT NOT NULL DEFAULT 'short'
);

-- Join tables
CREATE TABLE IF NOT EXISTS cluster_answers (
    cluster_id INTEGER NOT NULL REFERENCES qa_clusters(cluster_id) ON DELETE CASCADE,
    answer_id INTEGER NOT NULL REFERENCES answers(answer_id) ON DELETE CASCADE,
    PRIMARY KEY (cluster_id, answer_id)
);

CREATE TABLE IF NOT EXISTS cluster_questions (
    cluster_id INTEGER NOT NULL REFERENCES qa_clusters(cluster_id) ON DELETE CASCADE,
    question_id INTEGER NOT NULL REFERENCES questions(question_id) ON DELETE CASCADE,
    PRIMARY KEY (cluster_id, question_id)
);

-- Typed directed edges between answers
CREATE TABLE IF NOT EXISTS answer_relations (
    relation_id INTEGER PRIMARY KEY,
    from_answer_id INTEGER NOT NULL REFERENCES answers(answer_id) ON DELETE CASCADE,
    to_answer_id INTEGER NOT NULL REFERENCES answers(answer_id) ON DELETE CASCADE,
    relation_type TEXT NOT NULL,
    metadata JSON,
    UNIQUE(from_answer_id, to_answer_id, relation_type)
);

-- Derived hierarchical groupings of clusters
CREATE TABLE IF NOT EXISTS interfaces (
    interface_id INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    description TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS interface_clusters (
    interface_id INTEGER NOT NULL REFERENCES interfaces(interface_id) ON DELETE CASCADE,
    cluster_id INTEGER NOT NULL REFERENCES qa_clusters(cluster_id) ON DELETE CASCADE,
    PRIMARY KEY (interface_id, cluster_id)
);

-- Embedding model registry
CREATE TABLE IF NOT EXISTS embedding_models (
    model_id INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    dimension INTEGER NOT NULL,
    backend TEXT,
    notes TEXT
);

-- Vector embeddings for answers via sqlite-vec
CREATE VIRTUAL TABLE IF NOT EXISTS vec_answers USING vec0(
    answer_id INTEGER PRIMARY KEY,
    embedding float[%d]
);

-- Full-text search over answers via FTS5
CREATE VIRTUAL TABLE IF NOT EXISTS answers_fts USING fts5(
    text,
    record_id,
    content='answers',
    content_rowid='answer_id',
    tokenize='porter unicode61'
);

-- FTS triggers to keep index in sync
CREATE TRIGGER IF NOT EXISTS answers_ai AFTER INSERT ON answers BEGIN
    INSERT INTO answers_fts(rowid, text, record_id) VALUES (new.answer_id, new.text, new.record_id);
END;
CREATE TRIGGER IF NOT EXISTS answers_ad AFTER DELETE ON answers BEGIN
    INSERT INTO answers_fts(answers_fts, rowid, text, record_id) VALUES ('delete', old.answer_id, old.text, old.record_id);
END;
CREATE TRIGGER IF NOT EXISTS answers_au AFTER UPDATE ON answers BEGIN
    INSERT INTO answers_fts(answers_fts, rowid, text, record_id) VALUES ('delete', old.answer_id, old.text, old.record_id);
    INSERT INTO answers_fts(rowid, text, record_id) VALUES (new.answer_id, new.text, new.record_id);
END;

-- Indexes
CREATE INDEX IF NOT EXISTS idx_answers_record ON answers(record_id);
CREATE INDEX IF NOT EXISTS idx_relations_from ON answer_relations(from_answer_id);
CREATE INDEX IF NOT EXISTS idx_relations_to ON answer_relations(to_answer_id);
CREATE INDEX IF NOT EXISTS idx_relations_type ON answer_relations(relation_type);
CREATE INDEX IF NOT EXISTS idx_interface_clusters_cluster ON interface_clusters(cluster_id);
CREATE INDEX IF NOT EXISTS idx_clusters_name ON qa_clusters(name);
`, embeddingDim)
}
