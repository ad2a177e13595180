package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/sujalbistaa/raisehand/internal/db"
)

func TestFileSnapshotterMissingFile(t *testing.T) {
	f := &FileSnapshotter{Path: filepath.Join(t.TempDir(), "questions.json")}
	records, err := f.Load(context.Background())
	if err != nil {
		t.Fatalf("Load error = %v, want nil for a missing file", err)
	}
	if len(records) != 0 {
		t.Errorf("Load returned %d records, want 0", len(records))
	}
}

func TestCorruptSnapshotStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.json")
	if err := os.WriteFile(path, []byte(`[{"id": "a", "text": `), 0o644); err != nil {
		t.Fatal(err)
	}

	s := New(context.Background(), &FileSnapshotter{Path: path})
	if s.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after corrupt snapshot", s.Len())
	}

	// The store still works and overwrites the corrupt file.
	if _, err := s.Create(context.Background(), "fresh start"); err != nil {
		t.Fatal(err)
	}
	reloaded := New(context.Background(), &FileSnapshotter{Path: path})
	if reloaded.Len() != 1 {
		t.Errorf("reloaded Len() = %d, want 1", reloaded.Len())
	}
}

func TestFileSnapshotterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.json")
	ctx := context.Background()

	s := New(ctx, &FileSnapshotter{Path: path})
	a := mustCreate(t, s, "first")
	b := mustCreate(t, s, "second")
	for _, voter := range []string{"x", "y"} {
		if err := s.Upvote(ctx, b, voter); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.TogglePinned(ctx, a); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var onDisk []Record
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		t.Fatalf("snapshot is not valid JSON: %v", err)
	}
	if len(onDisk) != 2 || onDisk[0].ID != a || onDisk[1].ID != b {
		t.Fatalf("snapshot = %+v, want [a, b] in board order", onDisk)
	}
	voters := append([]string(nil), onDisk[1].Voters...)
	sort.Strings(voters)
	if len(voters) != 2 || voters[0] != "x" || voters[1] != "y" {
		t.Errorf("voters on disk = %v", onDisk[1].Voters)
	}

	reloaded := New(ctx, &FileSnapshotter{Path: path})
	if got, want := ids(reloaded.PublicView()), ids(s.PublicView()); !equal(got, want) {
		t.Errorf("reloaded order = %v, want %v", got, want)
	}

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	if len(matches) != 0 {
		t.Errorf("temporary files left behind: %v", matches)
	}
}

func TestReadsOriginalSnapshotFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.json")
	legacy := `[
  {
    "id": "1767600000000k3j9",
    "text": "Can you repeat the last slide?",
    "votes": 2,
    "voters": ["c1", "c2"],
    "pinned": false,
    "answered": true,
    "createdAt": 1767600000000
  }
]`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	s := New(context.Background(), &FileSnapshotter{Path: path})
	view := s.PublicView()
	if len(view) != 1 || view[0].Votes != 2 || !view[0].Answered {
		t.Fatalf("view = %+v", view)
	}
	s.mu.RLock()
	created := s.questions[0].CreatedAt
	s.mu.RUnlock()
	if !created.Equal(time.UnixMilli(1767600000000)) {
		t.Errorf("CreatedAt = %v", created)
	}
}

func TestGormSnapshotterRoundTrip(t *testing.T) {
	conn, err := db.Init("sqlite://file::memory:")
	if err != nil {
		t.Fatalf("db.Init error = %v", err)
	}
	snap, err := NewGormSnapshotter(conn)
	if err != nil {
		t.Fatalf("NewGormSnapshotter error = %v", err)
	}
	defer snap.Close()
	ctx := context.Background()

	s := New(ctx, snap)
	a := mustCreate(t, s, "stored in sqlite")
	b := mustCreate(t, s, "also stored")
	if err := s.Upvote(ctx, b, "v1"); err != nil {
		t.Fatal(err)
	}
	if err := s.Upvote(ctx, b, "v2"); err != nil {
		t.Fatal(err)
	}
	if err := s.ToggleAnswered(ctx, a); err != nil {
		t.Fatal(err)
	}
	gone := mustCreate(t, s, "to be deleted")
	if err := s.Delete(ctx, gone); err != nil {
		t.Fatal(err)
	}

	reloaded := New(ctx, snap)
	view := reloaded.PublicView()
	if got := ids(view); !equal(got, []string{b, a}) {
		t.Fatalf("reloaded order = %v, want [b a]", got)
	}
	if view[0].Votes != 2 || !view[1].Answered {
		t.Errorf("reloaded view = %+v", view)
	}
	if err := reloaded.Upvote(ctx, b, "v1"); err == nil {
		t.Error("voter set was not persisted")
	}
}

func TestOpenSnapshotter(t *testing.T) {
	dir := t.TempDir()
	testCases := []struct {
		url      string
		wantFile bool
		wantErr  bool
	}{
		{"file://" + filepath.Join(dir, "a.json"), true, false},
		{filepath.Join(dir, "b.json"), true, false},
		{"sqlite://" + filepath.Join(dir, "c.db"), false, false},
		{"mysql://nope", false, true},
		{"", false, true},
	}

	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			snap, closeFn, err := OpenSnapshotter(tc.url)
			if closeFn == nil {
				t.Fatal("close func is nil")
			}
			defer closeFn()
			if (err != nil) != tc.wantErr {
				t.Fatalf("OpenSnapshotter error = %v, wantErr %v", err, tc.wantErr)
			}
			if tc.wantErr {
				return
			}
			if _, isFile := snap.(*FileSnapshotter); isFile != tc.wantFile {
				t.Errorf("snapshotter type = %T", snap)
			}
		})
	}
}
