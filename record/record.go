// Package record defines the line-delimited JSON input format produced by
// the upstream training-data generators, and the parsing rules that turn
// one line into a validated record.
package record

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Categories are the fixed top-level input directories. The first path
// segment of a provenance path decides the source type.
var Categories = []string{"education", "source", "playbooks", "docs", "prerequisites"}

// Record is one question/answer training record.
type Record struct {
	ClusterID  string     `json:"cluster_id"`
	SourceFile string     `json:"source_file,omitempty"`
	Section    string     `json:"section,omitempty"`
	SourceType string     `json:"source_type,omitempty"`
	Answer     Answer     `json:"answer"`
	Questions  []Question `json:"questions,omitempty"`
	Relations  []Relation `json:"relations,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
}

// Answer is the canonical answer payload: free text plus optional
// embedded code blocks.
type Answer struct {
	Text       string      `json:"text"`
	CodeBlocks []CodeBlock `json:"code_blocks,omitempty"`
}

// CodeBlock is a language-tagged code snippet attached to an answer.
type CodeBlock struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// Question is a question string with a length classifier. The wire format
// accepts either a bare JSON string or a {text, length} object.
type Question struct {
	Text   string `json:"text"`
	Length string `json:"length"`
}

// UnmarshalJSON accepts both question encodings. A bare string gets the
// default "short" classifier.
func (q *Question) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		q.Text = text
		q.Length = "short"
		return nil
	}

	type questionObject Question
	var obj questionObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("question must be a string or {text, length} object: %w", err)
	}
	q.Text = obj.Text
	q.Length = obj.Length
	if q.Length == "" {
		q.Length = "short"
	}
	return nil
}

// Relation is a directed, typed edge from this record's answer to the
// answer of the cluster named by To.
type Relation struct {
	To       string          `json:"to"`
	Type     string          `json:"type"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// RenderedAnswer returns the answer text with one fenced code block
// appended per non-empty code block, in list order. This is the single
// text blob persisted for downstream text-only consumers.
func (r *Record) RenderedAnswer() string {
	var b strings.Builder
	b.WriteString(r.Answer.Text)
	for _, block := range r.Answer.CodeBlocks {
		if block.Code == "" {
			continue
		}
		fmt.Fprintf(&b, "\n\n```%s\n%s\n```", block.Language, block.Code)
	}
	return b.String()
}

// InferSourceType derives a source type from a provenance path: the first
// segment if it is a known category, "education" for book-* convention
// directories, and "unknown" otherwise.
func InferSourceType(path string) string {
	path = strings.TrimLeft(path, "/")
	first := path
	if i := strings.IndexAny(path, `/\`); i >= 0 {
		first = path[:i]
	}
	for _, c := range Categories {
		if first == c {
			return c
		}
	}
	if strings.HasPrefix(first, "book-") {
		return "education"
	}
	return "unknown"
}
