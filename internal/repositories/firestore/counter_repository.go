package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/parcelrate/api/internal/platform/firestore"
	"github.com/parcelrate/api/internal/repositories"
)

const (
	countersCollection = "counters"

	// Every order placement writes the same counter document.
	counterTxAttempts = 10
	counterTxTimeout  = 5 * time.Second
)

type counterDocument struct {
	CurrentValue int64     `firestore:"current_value"`
	UpdatedAt    time.Time `firestore:"updated_at"`
}

// CounterRepository issues sequence numbers from documents in the counters collection.
type CounterRepository struct {
	provider  *pfirestore.Provider
	counters  *pfirestore.Collection[counterDocument]
	now       func() time.Time
	txOptions []pfirestore.TxOption
}

var _ repositories.CounterRepository = (*CounterRepository)(nil)

// NewCounterRepository constructs a Firestore-backed counter repository.
func NewCounterRepository(provider *pfirestore.Provider) (*CounterRepository, error) {
	if provider == nil {
		return nil, errors.New("counter repository requires firestore provider")
	}
	return &CounterRepository{
		provider: provider,
		counters: pfirestore.NewCollection[counterDocument](provider, countersCollection),
		now:      time.Now,
		txOptions: []pfirestore.TxOption{
			pfirestore.WithTxAttempts(counterTxAttempts),
			pfirestore.WithTxTimeout(counterTxTimeout),
		},
	}, nil
}

// Next increments counterID by step (at least 1) inside a transaction and returns the new value.
// A missing counter starts at zero.
func (r *CounterRepository) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	id := strings.TrimSpace(counterID)
	if id == "" {
		return 0, errors.New("counter id is required")
	}
	if step < 0 {
		return 0, fmt.Errorf("counter step must be positive, got %d", step)
	}
	if step == 0 {
		step = 1
	}

	ref, err := r.counters.Doc(ctx, id)
	if err != nil {
		return 0, err
	}

	var next int64
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var current int64
		snap, err := tx.Get(ref)
		switch {
		case err == nil:
			doc, err := pfirestore.Decode[counterDocument](snap)
			if err != nil {
				return fmt.Errorf("counters decode %s: %w", id, err)
			}
			current = doc.Data.CurrentValue
		case pfirestore.IsNotFoundCode(err):
		default:
			return err
		}
		next = current + step
		return tx.Set(ref, counterDocument{CurrentValue: next, UpdatedAt: r.now().UTC()})
	}, r.txOptions...)
	if err != nil {
		return 0, err
	}
	return next, nil
}
