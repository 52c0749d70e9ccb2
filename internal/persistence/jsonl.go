package persistence

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

const bufferSizeKB = 256

// FailureRecord is one failed test as exported by the runner integration,
// one JSON object per line.
type FailureRecord struct {
	Test      string `json:"test,omitempty"`
	Message   string `json:"message"`
	CallStack string `json:"callstack"`
}

// ReadFailures decodes JSONL failure records. Blank lines are skipped.
func ReadFailures(r io.Reader) ([]FailureRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), bufferSizeKB*1024*4)

	var records []FailureRecord
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec FailureRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("failure record on line %d: %w", lineNo, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading failure records: %w", err)
	}
	return records, nil
}

// ReadFailuresFile reads JSONL failure records from path.
func ReadFailuresFile(path string) ([]FailureRecord, error) {
	f, err := os.Open(path) // #nosec G304 - path is supplied on the command line
	if err != nil {
		return nil, fmt.Errorf("failed to open failure records: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadFailures(f)
}
