package watcher

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/music-assist/backend/internal/core/ports/driving"
)

// crawlDocument is the JSON format the crawler writes, one file per page.
type crawlDocument struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadCrawlFile parses one crawler output file.
func ReadCrawlFile(path string) (driving.RawDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return driving.RawDocument{}, fmt.Errorf("read %s: %w", path, err)
	}

	var doc crawlDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return driving.RawDocument{}, fmt.Errorf("parse %s: %w", path, err)
	}

	return driving.RawDocument{
		SourceURL: doc.URL,
		Title:     doc.Title,
		RawText:   doc.Content,
		FetchedAt: doc.Timestamp,
	}, nil
}

// LoadDir reads every .json crawl file in a directory, sorted by name
// for deterministic ingestion order. Unparseable files are skipped and
// reported alongside the loaded documents.
func LoadDir(dir string) ([]driving.RawDocument, []error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("read directory %s: %w", dir, err)}
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var docs []driving.RawDocument
	var errs []error
	for _, name := range names {
		doc, err := ReadCrawlFile(filepath.Join(dir, name))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, errs
}
