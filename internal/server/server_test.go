package server

import (
	"testing"

	"github.com/accredmap/backend/pkg/match"
)

func TestMatchConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("MATCH_TOP_K", "")
	t.Setenv("MATCH_PARALLEL", "")

	cfg := MatchConfigFromEnv()
	def := match.DefaultConfig()
	if cfg.TopK != def.TopK {
		t.Errorf("expected default TopK %d, got %d", def.TopK, cfg.TopK)
	}
	if cfg.Parallelism != def.Parallelism {
		t.Errorf("expected default Parallelism %d, got %d", def.Parallelism, cfg.Parallelism)
	}
}

func TestMatchConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("MATCH_TOP_K", "5")
	t.Setenv("MATCH_PARALLEL", "2")

	cfg := MatchConfigFromEnv()
	if cfg.TopK != 5 {
		t.Errorf("expected TopK 5, got %d", cfg.TopK)
	}
	if cfg.Parallelism != 2 {
		t.Errorf("expected Parallelism 2, got %d", cfg.Parallelism)
	}
}
