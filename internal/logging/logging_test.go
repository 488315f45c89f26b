package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFactory_WritesPrefixedLinesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tugas.log")

	f, err := New(Options{File: path, Quiet: true})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	f.Logger("sync").Println("Sync complete")
	f.Logger("notifier").Printf("Found %d notes", 2)

	if err := f.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	content := string(data)

	for _, want := range []string{"[sync] ", "Sync complete", "[notifier] ", "Found 2 notes"} {
		if !strings.Contains(content, want) {
			t.Errorf("log file missing %q:\n%s", want, content)
		}
	}
}

func TestFactory_CachesLoggers(t *testing.T) {
	f, err := New(Options{Quiet: true})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer f.Close()

	if f.Logger("api") != f.Logger("api") {
		t.Error("Logger() returned different loggers for the same component")
	}
	if got := f.Logger("api").Prefix(); got != "[api] " {
		t.Errorf("Prefix() = %q, want [api] ", got)
	}
}
