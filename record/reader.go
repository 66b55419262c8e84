package record

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Read parses line-delimited JSON records from r. Blank lines are skipped.
// A line that fails to decode is logged with name and line number and
// skipped; it never aborts the rest of the input. The returned count is
// the number of lines that failed to decode.
func Read(r io.Reader, name string) ([]Record, int) {
	var records []Record
	malformed := 0

	scanner := bufio.NewScanner(r)
	// Answers with embedded code blocks can exceed the default 64K token cap.
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			slog.Warn("skipping malformed record", "file", name, "line", lineNum, "error", err)
			malformed++
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		slog.Warn("stopped reading early", "file", name, "line", lineNum, "error", err)
	}

	return records, malformed
}

// ReadFile opens a JSONL file and parses its records. The rel path is used
// in log messages and as the provenance label for records that do not name
// their own source file.
func ReadFile(path, rel string) ([]Record, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	records, malformed := Read(f, rel)
	return records, malformed, nil
}
