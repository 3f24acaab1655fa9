package worker

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/drugmerge/drugmerge/internal/model"
)

// ReadRecordsFromFile loads source drug records from an NDJSON file, one
// JSON object per line. Blank lines and #-comment lines are skipped.
// Malformed lines are returned as a count alongside the parsed records so
// the caller can surface them without aborting the batch.
func ReadRecordsFromFile(filePath string) ([]model.SourceDrugRecord, int, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, 0, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var records []model.SourceDrugRecord
	malformed := 0

	scanner := bufio.NewScanner(file)
	// Labeling text fields can run long; allow lines up to 4 MiB
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var rec model.SourceDrugRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			malformed++
			continue
		}
		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, malformed, fmt.Errorf("scan file: %w", err)
	}

	return records, malformed, nil
}

// ReadNamesFromFile loads canonical drug names from a file (one per line),
// skipping blanks and #-comments and deduplicating while preserving order.
// Input order matters: the cascade breaks fuzzy-score ties by first canonical
// name seen.
func ReadNamesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var names []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			names = append(names, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return names, nil
}
