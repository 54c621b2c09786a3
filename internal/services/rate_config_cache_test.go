package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	domain "github.com/parcelrate/api/internal/domain"
)

// gatedRateConfigs holds its first Active call open until release is closed.
type gatedRateConfigs struct {
	*memoryRateConfigs
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedRateConfigs) Active(ctx context.Context) (domain.RateConfig, error) {
	cfg, err := g.memoryRateConfigs.Active(ctx)
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return cfg, err
}

func TestRateConfigCacheServesFromMemoryWithinTTL(t *testing.T) {
	repo := seededConfigs()
	now := testNow
	cache, err := NewRateConfigCache(repo, time.Minute, func() time.Time { return now })
	if err != nil {
		t.Fatalf("NewRateConfigCache: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := cache.Current(context.Background()); err != nil {
			t.Fatalf("Current: %v", err)
		}
	}
	if repo.reads != 1 {
		t.Fatalf("expected one repository read, got %d", repo.reads)
	}

	now = now.Add(2 * time.Minute)
	if _, err := cache.Current(context.Background()); err != nil {
		t.Fatalf("Current: %v", err)
	}
	if repo.reads != 2 {
		t.Fatalf("expected refresh after ttl, got %d reads", repo.reads)
	}
}

func TestRateConfigCacheReturnsPrivateCopies(t *testing.T) {
	cache, _ := NewRateConfigCache(seededConfigs(), time.Minute, fixedClock)

	first, err := cache.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	first.Version = 99

	second, err := cache.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if second.Version != 1 {
		t.Fatalf("expected cached version 1, got %d", second.Version)
	}
}

func TestRateConfigCacheInvalidate(t *testing.T) {
	repo := seededConfigs()
	cache, _ := NewRateConfigCache(repo, time.Hour, fixedClock)

	_, _ = cache.Current(context.Background())
	cache.Invalidate()
	_, _ = cache.Current(context.Background())
	if repo.reads != 2 {
		t.Fatalf("expected read after invalidate, got %d reads", repo.reads)
	}
}

func TestRateConfigCacheInvalidateDuringLoad(t *testing.T) {
	repo := &gatedRateConfigs{memoryRateConfigs: seededConfigs(), entered: make(chan struct{}), release: make(chan struct{})}
	cache, _ := NewRateConfigCache(repo, time.Hour, fixedClock)

	done := make(chan *RateConfig, 1)
	go func() {
		cfg, err := cache.Current(context.Background())
		if err != nil {
			t.Errorf("Current: %v", err)
		}
		done <- cfg
	}()
	<-repo.entered

	next := *repo.active
	next.Version = 2
	if err := repo.Publish(context.Background(), next, 1); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	cache.Invalidate()

	current, err := cache.Current(context.Background())
	if err != nil {
		t.Fatalf("Current after invalidate: %v", err)
	}
	if current.Version != 2 {
		t.Fatalf("expected a fresh read after invalidate, got version %d", current.Version)
	}

	close(repo.release)
	if stale := <-done; stale == nil || stale.Version != 1 {
		t.Fatalf("expected the in-flight read to finish with version 1, got %+v", stale)
	}
	again, err := cache.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if again.Version != 2 {
		t.Fatalf("stale load repopulated the cache with version %d", again.Version)
	}
}

func TestRateConfigCacheMissingTariff(t *testing.T) {
	cache, _ := NewRateConfigCache(&memoryRateConfigs{}, time.Minute, fixedClock)

	if _, err := cache.Current(context.Background()); !errors.Is(err, ErrConfigurationMissing) {
		t.Fatalf("expected configuration missing, got %v", err)
	}
}

func TestRateConfigCacheConcurrentReaders(t *testing.T) {
	cache, _ := NewRateConfigCache(seededConfigs(), time.Minute, fixedClock)

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cfg, err := cache.Current(context.Background())
			if err == nil && cfg.Version != 1 {
				err = errors.New("unexpected version")
			}
			if err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent Current: %v", err)
	}
}
