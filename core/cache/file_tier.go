package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// QueryRecord is the self-describing flat-file form of a cached query
// response. Records are never mutated; a new write with the same fingerprint
// supersedes the old file in place.
type QueryRecord struct {
	VideoID   string    `json:"video_id"`
	Query     string    `json:"query"` // normalized query text
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

type videoRecord struct {
	VideoID   string    `json:"video_id"`
	Processed bool      `json:"processed"`
	CreatedAt time.Time `json:"created_at"`
}

// FileTier is the durable flat-file tier and the cache's source of truth.
// Each entity is one JSON file, so a video's full query history can be
// enumerated without a secondary index.
type FileTier struct {
	videoDir string
	queryDir string
}

// NewFileTier creates the flat-file tier rooted at baseDir.
func NewFileTier(baseDir string) (*FileTier, error) {
	t := &FileTier{
		videoDir: filepath.Join(baseDir, "videos"),
		queryDir: filepath.Join(baseDir, "queries"),
	}
	for _, dir := range []string{t.videoDir, t.queryDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	return t, nil
}

func (t *FileTier) Name() string { return "file" }

func (t *FileTier) path(key Key) string {
	if key.Kind == KindVideoStatus {
		return filepath.Join(t.videoDir, key.VideoID+".json")
	}
	return filepath.Join(t.queryDir, fmt.Sprintf("%s_%s.json", key.VideoID, key.Fingerprint))
}

func (t *FileTier) Get(ctx context.Context, key Key) (*Entry, bool, error) {
	raw, err := os.ReadFile(t.path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("file tier read %s: %w", key, err)
	}

	entry := &Entry{Key: key, Tier: t.Name()}
	if key.Kind == KindVideoStatus {
		var rec videoRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, false, fmt.Errorf("%w: %s: %v", ErrMalformedRecord, key, err)
		}
		if !rec.Processed {
			return nil, false, nil
		}
		entry.Value = "1"
		entry.CreatedAt = rec.CreatedAt
		return entry, true, nil
	}

	var rec QueryRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false, fmt.Errorf("%w: %s: %v", ErrMalformedRecord, key, err)
	}
	entry.Value = rec.Response
	entry.Query = rec.Query
	entry.CreatedAt = rec.CreatedAt
	return entry, true, nil
}

func (t *FileTier) Set(ctx context.Context, key Key, entry *Entry) error {
	var payload any
	if key.Kind == KindVideoStatus {
		payload = videoRecord{VideoID: key.VideoID, Processed: true, CreatedAt: entry.CreatedAt}
	} else {
		payload = QueryRecord{
			VideoID:   key.VideoID,
			Query:     entry.Query,
			Response:  entry.Value,
			CreatedAt: entry.CreatedAt,
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("file tier marshal %s: %w", key, err)
	}

	// Write-then-rename so readers never observe a torn record.
	path := t.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("file tier write %s: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("file tier rename %s: %w", key, err)
	}
	return nil
}

// QueryRecords enumerates every query record stored for a video. Records
// that fail to read or parse are skipped so one corrupt file cannot poison
// the whole candidate pool; expiry filtering is left to the caller.
func (t *FileTier) QueryRecords(ctx context.Context, videoID string) ([]QueryRecord, error) {
	entries, err := os.ReadDir(t.queryDir)
	if err != nil {
		return nil, fmt.Errorf("file tier list queries: %w", err)
	}

	prefix := videoID + "_"
	var records []QueryRecord
	for _, de := range entries {
		name := de.Name()
		if de.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(t.queryDir, name))
		if err != nil {
			continue
		}
		var rec QueryRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
