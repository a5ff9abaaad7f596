package internal

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}
	if cfg.Corpus.TTL != 5*time.Minute {
		t.Errorf("ttl = %v, want 5m", cfg.Corpus.TTL)
	}
}

func TestCorpusConfig_EmptySourceDefaultsFiles(t *testing.T) {
	cfg := NewDefaultConfig().Corpus
	cfg.Source = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty source should default to files: %v", err)
	}
	if cfg.Source != SourceFiles {
		t.Errorf("source = %q, want %q", cfg.Source, SourceFiles)
	}
}

func TestCorpusConfig_InvalidSource(t *testing.T) {
	cfg := NewDefaultConfig().Corpus
	cfg.Source = "postgres"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown source should fail validation")
	}
}

func TestCorpusConfig_TTLTooShort(t *testing.T) {
	cfg := NewDefaultConfig().Corpus
	cfg.TTL = 10 * time.Millisecond
	if err := cfg.Validate(); err == nil {
		t.Fatal("sub-second ttl should fail validation")
	}
}

func TestCorpusConfig_WarmSchedule(t *testing.T) {
	cfg := NewDefaultConfig().Corpus
	cfg.WarmSchedule = "*/5 * * * *"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid cron should pass: %v", err)
	}

	cfg.WarmSchedule = "every five minutes"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid cron should fail")
	}
	if !strings.Contains(err.Error(), "cron") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCorpusConfig_IDFallback(t *testing.T) {
	cfg := NewDefaultConfig().Corpus
	cfg.IDFallback = "derived"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("derived should pass: %v", err)
	}
	cfg.IDFallback = "sequential"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown id fallback should fail")
	}
}

func TestFullConfig_QueryValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Query.DefaultLimit = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch query error")
	}
}

func TestFullConfig_SnapshotDirRequired(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Corpus.SnapshotDir = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("missing snapshot dir should fail")
	}
	if !strings.HasPrefix(err.Error(), "corpus:") {
		t.Errorf("error should name the section: %v", err)
	}
}
