//go:build integration

package firestore

import (
	"context"
	"errors"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/parcelrate/api/internal/domain"
	pconfig "github.com/parcelrate/api/internal/platform/config"
	pfirestore "github.com/parcelrate/api/internal/platform/firestore"
	"github.com/parcelrate/api/internal/repositories"
)

// Run with a local emulator: gcloud beta emulators firestore start --host-port=127.0.0.1:8085
func newEmulatorProvider(t *testing.T) *pfirestore.Provider {
	t.Helper()
	host := os.Getenv("FIRESTORE_EMULATOR_HOST")
	if host == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	provider := pfirestore.NewProvider(pconfig.FirestoreConfig{ProjectID: "parcelrate-it", EmulatorHost: host})
	t.Cleanup(func() { _ = provider.Close(context.Background()) })
	return provider
}

func TestCounterRepositoryConcurrentNext(t *testing.T) {
	provider := newEmulatorProvider(t)
	repo, err := NewCounterRepository(provider)
	if err != nil {
		t.Fatalf("new counter repository: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	counterID := "orders-" + time.Now().Format("150405.000000")
	const workers = 16
	results := make([]int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			value, err := repo.Next(ctx, counterID, 1)
			if err != nil {
				t.Errorf("next(%d): %v", idx, err)
				return
			}
			results[idx] = value
		}(i)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i] < results[j] })
	for i, val := range results {
		if val != int64(i+1) {
			t.Fatalf("expected sequence %d at position %d, got %d", i+1, i, val)
		}
	}
}

func TestRateConfigRepositoryPublishConflict(t *testing.T) {
	provider := newEmulatorProvider(t)
	repo, err := NewRateConfigRepository(provider)
	if err != nil {
		t.Fatalf("new rate config repository: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	active, err := repo.Active(ctx)
	current := 0
	if err == nil {
		current = active.Version
	}
	cfg := domain.RateConfig{Version: current + 1, GSTRate: decimal.RequireFromString("0.18"), UpdatedAt: time.Now()}
	if err := repo.Publish(ctx, cfg, current); err != nil {
		t.Fatalf("publish: %v", err)
	}
	err = repo.Publish(ctx, domain.RateConfig{Version: current + 2}, current)
	var repoErr repositories.RepositoryError
	if !errors.As(err, &repoErr) || !repoErr.IsConflict() {
		t.Fatalf("expected conflict, got %v", err)
	}
}
