package standards

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/accredmap/backend/pkg/corpus"
)

const reloadTestYAML = `
code: TSTA
name: Test Accreditor A
standards:
  - id: TSTA.1
    title: Governance
    clauses:
      - id: TSTA.1.A
        text: A governing board oversees policy.
`

func writeTestCorpus(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "TSTA.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write corpus file: %v", err)
	}
	return dir
}

func TestReloadSwapsGeneration(t *testing.T) {
	ctx := context.Background()
	dir := writeTestCorpus(t, reloadTestYAML)
	g := NewGraph()

	if g.Current() != nil {
		t.Fatal("expected nil generation before first reload")
	}

	stats, err := g.Reload(ctx, dir, false)
	if err != nil {
		t.Fatalf("Reload returned error: %v", err)
	}
	if stats.Generation != 1 || stats.AccreditorsLoaded != 1 || stats.UsedSeed {
		t.Errorf("unexpected stats: %+v", stats)
	}

	pinned := g.Current()
	if pinned == nil || pinned.ID() != 1 {
		t.Fatalf("expected generation 1, got %v", pinned)
	}

	if _, err := g.Reload(ctx, dir, false); err != nil {
		t.Fatalf("second Reload returned error: %v", err)
	}

	// The pinned snapshot keeps serving its own data after the swap.
	if pinned.ID() != 1 {
		t.Errorf("pinned generation changed id to %d", pinned.ID())
	}
	if _, ok := pinned.Get("TSTA.1"); !ok {
		t.Error("pinned generation lost its nodes after swap")
	}
	if g.Current().ID() != 2 {
		t.Errorf("expected current generation 2, got %d", g.Current().ID())
	}
}

func TestReloadSeedFallback(t *testing.T) {
	ctx := context.Background()
	missing := filepath.Join(t.TempDir(), "does-not-exist")
	g := NewGraph()

	stats, err := g.Reload(ctx, missing, true)
	if err != nil {
		t.Fatalf("Reload returned error: %v", err)
	}
	if !stats.UsedSeed {
		t.Error("expected seed fallback to be used")
	}
	gen := g.Current()
	if gen == nil || gen.TotalStandards() == 0 {
		t.Fatal("expected seed generation with standards")
	}
}

func TestReloadWithoutFallbackFailsClosed(t *testing.T) {
	ctx := context.Background()
	missing := filepath.Join(t.TempDir(), "does-not-exist")
	g := NewGraph()

	_, err := g.Reload(ctx, missing, false)
	if !errors.Is(err, corpus.ErrEmptyCorpus) {
		t.Fatalf("expected ErrEmptyCorpus, got %v", err)
	}
	if g.Current() != nil {
		t.Error("expected no generation after failed reload")
	}
}

func TestReloadKeepsPreviousGenerationOnFailure(t *testing.T) {
	ctx := context.Background()
	dir := writeTestCorpus(t, reloadTestYAML)
	g := NewGraph()

	if _, err := g.Reload(ctx, dir, false); err != nil {
		t.Fatalf("Reload returned error: %v", err)
	}

	missing := filepath.Join(t.TempDir(), "does-not-exist")
	if _, err := g.Reload(ctx, missing, false); err == nil {
		t.Fatal("expected reload failure for missing directory")
	}

	if g.Current() == nil || g.Current().ID() != 1 {
		t.Error("previous generation should keep serving after a failed reload")
	}
}

func TestReloadInProgress(t *testing.T) {
	ctx := context.Background()
	dir := writeTestCorpus(t, reloadTestYAML)

	started := make(chan struct{})
	release := make(chan struct{})
	g := NewGraph(WithWarmup(func(ctx context.Context, gen *Generation) error {
		close(started)
		<-release
		return nil
	}))

	done := make(chan error, 1)
	go func() {
		_, err := g.Reload(ctx, dir, false)
		done <- err
	}()

	<-started
	if _, err := g.Reload(ctx, dir, false); !errors.Is(err, ErrReloadInProgress) {
		t.Errorf("expected ErrReloadInProgress, got %v", err)
	}
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("first reload returned error: %v", err)
	}
}
