package filewatcher

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setupFile(t *testing.T, dir string) string {
	p := filepath.Join(dir, "watched")
	if err := ioutil.WriteFile(p, []byte("hello"), 0600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestRemoved(t *testing.T) {
	dir := t.TempDir()
	p := setupFile(t, dir)
	other := filepath.Join(dir, "other")
	if err := ioutil.WriteFile(other, nil, 0600); err != nil {
		t.Fatal(err)
	}

	removed, closer, err := Removed(p)
	if err != nil {
		t.Fatal(err)
	}
	defer closer()

	// Events for other files in the directory must not trigger.
	if err := os.Remove(other); err != nil {
		t.Fatal(err)
	}
	select {
	case <-removed:
		t.Fatalf("TestRemoved: removal of %q was reported for %q", other, p)
	case <-time.After(100 * time.Millisecond):
	}

	if err := os.Remove(p); err != nil {
		t.Fatal(err)
	}
	select {
	case <-removed:
	case <-time.After(5 * time.Second):
		t.Fatalf("TestRemoved: removal of %q was never reported", p)
	}
}

func TestCloserStopsWatch(t *testing.T) {
	dir := t.TempDir()
	p := setupFile(t, dir)

	removed, closer, err := Removed(p)
	if err != nil {
		t.Fatal(err)
	}
	closer()
	closer() // Must be safe to call twice.

	if err := os.Remove(p); err != nil {
		t.Fatal(err)
	}
	select {
	case <-removed:
		t.Fatalf("TestCloserStopsWatch: got removal after closer() was called")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRemovedMissingDir(t *testing.T) {
	if _, _, err := Removed(filepath.Join(t.TempDir(), "nope", "file")); err == nil {
		t.Errorf("TestRemovedMissingDir: got err == nil, want err != nil")
	}
}
