package flatfile

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		f, err := New("files.example.com", "ak", "sk", "flatfiles")
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if f.bucket != "flatfiles" {
			t.Errorf("bucket = %q, want %q", f.bucket, "flatfiles")
		}
		if f.timeout != 60*time.Second {
			t.Errorf("timeout = %v, want %v", f.timeout, 60*time.Second)
		}
		if f.maxElapsed != 2*time.Minute {
			t.Errorf("maxElapsed = %v, want %v", f.maxElapsed, 2*time.Minute)
		}
		if f.logger == nil {
			t.Error("logger should not be nil")
		}
	})

	t.Run("with options", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		f, err := New("files.example.com", "ak", "sk", "flatfiles",
			WithLogger(logger),
			WithTimeout(10*time.Second),
			WithMaxElapsedRetry(30*time.Second),
		)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if f.logger != logger {
			t.Error("logger not set")
		}
		if f.timeout != 10*time.Second {
			t.Errorf("timeout = %v, want %v", f.timeout, 10*time.Second)
		}
		if f.maxElapsed != 30*time.Second {
			t.Errorf("maxElapsed = %v, want %v", f.maxElapsed, 30*time.Second)
		}
	})

	t.Run("invalid endpoint", func(t *testing.T) {
		_, err := New("http://bad endpoint", "ak", "sk", "flatfiles")
		if err == nil {
			t.Fatal("expected error for invalid endpoint, got nil")
		}
	})
}
