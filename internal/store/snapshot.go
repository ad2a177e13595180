package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sujalbistaa/raisehand/internal/db"
	"github.com/sujalbistaa/raisehand/internal/models"
)

// Record is the persisted form of a question. CreatedAt is unix milliseconds.
type Record struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	Votes     int      `json:"votes"`
	Voters    []string `json:"voters"`
	Pinned    bool     `json:"pinned"`
	Answered  bool     `json:"answered"`
	CreatedAt int64    `json:"createdAt"`
}

// Snapshotter loads and saves the whole board. Save always replaces what was
// there before.
type Snapshotter interface {
	Load(ctx context.Context) ([]Record, error)
	Save(ctx context.Context, records []Record) error
}

// OpenSnapshotter picks a backend from a URL:
//
//	file://questions.json    pretty-printed JSON file
//	sqlite://raisehand.db    SQLite through GORM
//	postgres://user:pw@host  PostgreSQL through GORM
//
// A bare path is treated as a file. The returned close func releases the
// backend and is never nil.
func OpenSnapshotter(url string) (Snapshotter, func() error, error) {
	noop := func() error { return nil }

	switch {
	case url == "":
		return nil, noop, errors.New("snapshot url is empty")
	case strings.HasPrefix(url, "file://"):
		return &FileSnapshotter{Path: strings.TrimPrefix(url, "file://")}, noop, nil
	case !strings.Contains(url, "://"):
		return &FileSnapshotter{Path: url}, noop, nil
	}

	conn, err := db.Init(url)
	if err != nil {
		return nil, noop, err
	}
	snap, err := NewGormSnapshotter(conn)
	if err != nil {
		return nil, noop, err
	}
	return snap, snap.Close, nil
}

// FileSnapshotter keeps the board in a human-readable JSON file that is
// rewritten in full on every save.
type FileSnapshotter struct {
	Path string
}

// Load returns no records and no error when the file does not exist yet.
func (f *FileSnapshotter) Load(ctx context.Context) ([]Record, error) {
	raw, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.Path, err)
	}
	return records, nil
}

// Save writes to a temporary file next to Path and renames it into place,
// so a crash mid-write never leaves a truncated snapshot behind.
func (f *FileSnapshotter) Save(ctx context.Context, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.Path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.Path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, f.Path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func toRecords(questions []*models.Question) []Record {
	records := make([]Record, 0, len(questions))
	for _, q := range questions {
		voters := make([]string, 0, len(q.Voters))
		for clientID := range q.Voters {
			voters = append(voters, clientID)
		}
		records = append(records, Record{
			ID:        q.ID,
			Text:      q.Text,
			Votes:     q.Votes,
			Voters:    voters,
			Pinned:    q.Pinned,
			Answered:  q.Answered,
			CreatedAt: q.CreatedAt.UnixMilli(),
		})
	}
	return records
}

// fromRecords rebuilds questions from a snapshot. Voters are deduplicated and
// votes recomputed from them; records without an id or with a repeated id
// are skipped.
func fromRecords(records []Record) []*models.Question {
	questions := make([]*models.Question, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}

		voters := make(map[string]struct{}, len(r.Voters))
		for _, clientID := range r.Voters {
			voters[clientID] = struct{}{}
		}
		questions = append(questions, &models.Question{
			ID:        r.ID,
			Text:      r.Text,
			Votes:     len(voters),
			Voters:    voters,
			Pinned:    r.Pinned,
			Answered:  r.Answered,
			CreatedAt: time.UnixMilli(r.CreatedAt),
		})
	}
	return questions
}
