//go:build integration

package firestore_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"

	pconfig "github.com/parcelrate/api/internal/platform/config"
	pfirestore "github.com/parcelrate/api/internal/platform/firestore"
)

type counterDoc struct {
	Name  string `firestore:"name"`
	Value int    `firestore:"value"`
}

// Run with a local emulator: gcloud beta emulators firestore start --host-port=127.0.0.1:8085
func TestCollectionAgainstEmulator(t *testing.T) {
	host := os.Getenv("FIRESTORE_EMULATOR_HOST")
	if host == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	provider := pfirestore.NewProvider(pconfig.FirestoreConfig{ProjectID: "parcelrate-test", EmulatorHost: host})
	t.Cleanup(func() { _ = provider.Close(context.Background()) })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	coll := pfirestore.NewCollection[counterDoc](provider, "it_counters")
	if err := coll.Set(ctx, "orders", counterDoc{Name: "orders", Value: 1}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := coll.Create(ctx, "orders", counterDoc{Name: "orders"}); err == nil {
		t.Fatalf("expected create conflict")
	}

	err := provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := coll.Doc(ctx, "orders")
		if err != nil {
			return err
		}
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		doc, err := pfirestore.Decode[counterDoc](snap)
		if err != nil {
			return err
		}
		doc.Data.Value++
		return tx.Set(ref, doc.Data)
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}

	doc, err := coll.Get(ctx, "orders")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Data.Value != 2 {
		t.Fatalf("expected value 2, got %d", doc.Data.Value)
	}

	_, err = coll.Get(ctx, "missing")
	var repoErr *pfirestore.Error
	if !errors.As(err, &repoErr) || !repoErr.IsNotFound() {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := provider.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
