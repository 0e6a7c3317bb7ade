package assets

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestManagerPriority(t *testing.T) {
	base := t.TempDir()
	mod := t.TempDir()
	writeFile(t, filepath.Join(base, "noise", "wind.png"), "base")
	writeFile(t, filepath.Join(base, "only-base.txt"), "b")
	writeFile(t, filepath.Join(mod, "noise", "wind.png"), "mod")

	m := NewManager()
	defer m.Close()
	if err := m.AddDir(base); err != nil {
		t.Fatal(err)
	}
	if err := m.AddDir(mod); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		want string
	}{
		{filepath.Join("noise", "wind.png"), "mod"},
		{"only-base.txt", "b"},
	}
	for _, tt := range tests {
		got, err := m.Load(tt.name)
		if err != nil {
			t.Fatalf("Load(%q): %v", tt.name, err)
		}
		if string(got) != tt.want {
			t.Errorf("Load(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}

	_, err := m.Load("missing.png")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestManagerAbsolutePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abs.txt")
	writeFile(t, path, "abs")

	m := NewManager()
	got, err := m.Load(path)
	if err != nil || string(got) != "abs" {
		t.Errorf("Load(abs) = %q, %v", got, err)
	}
}

func TestAddDirRejectsFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	writeFile(t, path, "x")

	m := NewManager()
	if err := m.AddDir(path); err == nil {
		t.Error("expected error adding a file as a dir")
	}
	if err := m.AddDir(filepath.Join(path, "nope")); err == nil {
		t.Error("expected error adding a missing dir")
	}
}

func TestManagerCaches(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "first")

	m := NewManager()
	if err := m.AddDir(dir); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Load("a.txt"); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "a.txt"), "second")

	got, _ := m.Load("a.txt")
	if string(got) != "first" {
		t.Errorf("expected cached content, got %q", got)
	}
	hits, misses := m.cache.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("stats = %d hits, %d misses; want 1, 1", hits, misses)
	}
}

func TestCacheConcurrentStats(t *testing.T) {
	c := NewCache()
	c.Set("k", []byte("v"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Get("k")
				c.Get("nope")
			}
		}()
	}
	wg.Wait()

	hits, misses := c.Stats()
	if hits != 800 || misses != 800 {
		t.Errorf("stats = %d, %d; want 800, 800", hits, misses)
	}

	c.Clear()
	if hits, misses := c.Stats(); hits != 0 || misses != 0 {
		t.Errorf("Clear kept stats %d, %d", hits, misses)
	}
}
