package dataset

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_DetectsDataChange(t *testing.T) {
	dir := t.TempDir()
	writeCricket(t, dir)

	w, err := NewWatcher(filepath.Join(dir, "scoreline.toml"))
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	bowling := filepath.Join(dir, "bowling.csv")
	if err := os.WriteFile(bowling, []byte("team,player,wickets\nIndia,Bumrah,151\n"), 0644); err != nil {
		t.Fatalf("failed to update bowling.csv: %v", err)
	}

	select {
	case change := <-w.Changes:
		if filepath.Base(change.File) != "bowling.csv" {
			t.Errorf("expected bowling.csv change, got %q", change.File)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
}

func TestWatcher_DetectsManifestChange(t *testing.T) {
	dir := t.TempDir()
	path := writeCricket(t, dir)

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte(cricketManifest+"\n"), 0644); err != nil {
		t.Fatalf("failed to update manifest: %v", err)
	}

	select {
	case change := <-w.Changes:
		if filepath.Base(change.File) != "scoreline.toml" {
			t.Errorf("expected manifest change, got %q", change.File)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
}

func TestWatcher_IgnoresUntrackedFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeCricket(t, dir)

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "notes.csv"), []byte("hello"), 0644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}

	select {
	case change := <-w.Changes:
		t.Errorf("unexpected change event: %+v", change)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_TracksSourcesAddedToManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeCricket(t, dir)
	extra := filepath.Join(dir, "nba")
	if err := os.Mkdir(extra, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	players := writeFile(t, extra, "lakers.csv", "team,player,points\nLakers,James,25.7\n")

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	wait := func(want string) {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for {
			select {
			case change := <-w.Changes:
				if filepath.Base(change.File) == want {
					return
				}
			case <-deadline:
				t.Fatalf("timed out waiting for %s change", want)
			}
		}
	}

	// The new file is not tracked yet.
	if err := os.WriteFile(players, []byte("team,player,points\nLakers,James,26.0\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case change := <-w.Changes:
		t.Fatalf("untracked file reported: %+v", change)
	case <-time.After(300 * time.Millisecond):
	}

	manifest := cricketManifest + "\n[[sport]]\nname = \"nba\"\n[[sport.table]]\nfiles = [\"nba/lakers.csv\"]\n"
	if err := os.WriteFile(path, []byte(manifest), 0644); err != nil {
		t.Fatalf("update manifest: %v", err)
	}
	wait("scoreline.toml")

	if err := os.WriteFile(players, []byte("team,player,points\nLakers,James,27.1\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	wait("lakers.csv")
}
