package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file is ignored", func(t *testing.T) {
		if err := loadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
			t.Errorf("loadDotEnv() error = %v, want nil", err)
		}
	})

	t.Run("unreadable file is reported", func(t *testing.T) {
		// A directory opens but cannot be read as a file.
		if err := loadDotEnv(dir); err == nil {
			t.Error("loadDotEnv() error = nil, want read failure")
		}
	})

	t.Run("valid file is loaded", func(t *testing.T) {
		path := filepath.Join(dir, "valid.env")
		if err := os.WriteFile(path, []byte("STUDYHUB_TEST_DOTENV=loaded\n"), 0o600); err != nil {
			t.Fatalf("write env file: %v", err)
		}

		t.Setenv("STUDYHUB_TEST_DOTENV", "")
		os.Unsetenv("STUDYHUB_TEST_DOTENV")

		if err := loadDotEnv(path); err != nil {
			t.Fatalf("loadDotEnv() error = %v", err)
		}

		if got := os.Getenv("STUDYHUB_TEST_DOTENV"); got != "loaded" {
			t.Errorf("STUDYHUB_TEST_DOTENV = %q, want %q", got, "loaded")
		}
	})
}
