package idempotency

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/parcelrate/api/internal/platform/firestore"
)

const defaultCollection = "idempotency_keys"

// FirestoreStore implements Store on a Firestore collection.
type FirestoreStore struct {
	provider   *pfirestore.Provider
	collection *pfirestore.Collection[firestoreRecord]
}

// NewFirestoreStore constructs a Firestore-backed store.
func NewFirestoreStore(provider *pfirestore.Provider) *FirestoreStore {
	return &FirestoreStore{
		provider:   provider,
		collection: pfirestore.NewCollection[firestoreRecord](provider, defaultCollection),
	}
}

// Reserve implements Store inside a transaction so concurrent retries cannot both win.
func (s *FirestoreStore) Reserve(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Reservation, error) {
	ref, err := s.collection.Doc(ctx, documentID(key))
	if err != nil {
		return Reservation{}, err
	}

	var result Reservation
	err = s.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil && !pfirestore.IsNotFoundCode(err) {
			return err
		}
		if err == nil {
			doc, err := pfirestore.Decode[firestoreRecord](snap)
			if err != nil {
				return err
			}
			record := doc.Data.toRecord()
			if now.Before(record.ExpiresAt) {
				if record.Fingerprint != fingerprint {
					return ErrFingerprintMismatch
				}
				state := ReservationPending
				if record.Status == StatusCompleted {
					state = ReservationCompleted
				}
				result = Reservation{State: state, Record: record}
				return nil
			}
		}

		record := newPending(key, fingerprint, now, effectiveTTL(ttl))
		result = Reservation{State: ReservationNew, Record: record}
		return tx.Set(ref, fromRecord(record))
	})
	if errors.Is(err, ErrFingerprintMismatch) {
		return Reservation{}, ErrFingerprintMismatch
	}
	return result, err
}

// SaveResponse implements Store.
func (s *FirestoreStore) SaveResponse(ctx context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error {
	record := newPending(key, fingerprint, now, effectiveTTL(ttl))
	record.Status = StatusCompleted
	record.ResponseStatus = resp.Status
	record.ResponseHeader = replayableHeader(resp.Header)
	record.ResponseBody = append([]byte(nil), resp.Body...)
	return s.collection.Set(ctx, documentID(key), fromRecord(record))
}

// Release implements Store.
func (s *FirestoreStore) Release(ctx context.Context, key string) error {
	return s.collection.Delete(ctx, documentID(key))
}

// CleanupExpired deletes up to limit expired records in one batch.
func (s *FirestoreStore) CleanupExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	coll, err := s.collection.Ref(ctx)
	if err != nil {
		return 0, err
	}
	snaps, err := coll.Where("expires_at", "<=", now).Limit(limit).Documents(ctx).GetAll()
	if err != nil {
		return 0, pfirestore.WrapError("idempotency.cleanup", err)
	}
	if len(snaps) == 0 {
		return 0, nil
	}
	client, err := s.provider.Client(ctx)
	if err != nil {
		return 0, err
	}
	bw := client.BulkWriter(ctx)
	for _, snap := range snaps {
		if _, err := bw.Delete(snap.Ref); err != nil {
			bw.End()
			return 0, pfirestore.WrapError("idempotency.cleanup", err)
		}
	}
	bw.End()
	return len(snaps), nil
}

type firestoreRecord struct {
	Key            string              `firestore:"key"`
	Fingerprint    string              `firestore:"fingerprint"`
	Status         string              `firestore:"status"`
	ResponseStatus int                 `firestore:"response_status"`
	ResponseHeader map[string][]string `firestore:"response_header"`
	ResponseBody   []byte              `firestore:"response_body"`
	CreatedAt      time.Time           `firestore:"created_at"`
	ExpiresAt      time.Time           `firestore:"expires_at"`
}

func fromRecord(r Record) firestoreRecord {
	return firestoreRecord{
		Key:            r.Key,
		Fingerprint:    r.Fingerprint,
		Status:         string(r.Status),
		ResponseStatus: r.ResponseStatus,
		ResponseHeader: r.ResponseHeader,
		ResponseBody:   r.ResponseBody,
		CreatedAt:      r.CreatedAt,
		ExpiresAt:      r.ExpiresAt,
	}
}

func (r firestoreRecord) toRecord() Record {
	return Record{
		Key:            r.Key,
		Fingerprint:    r.Fingerprint,
		Status:         Status(r.Status),
		ResponseStatus: r.ResponseStatus,
		ResponseHeader: r.ResponseHeader,
		ResponseBody:   r.ResponseBody,
		CreatedAt:      r.CreatedAt,
		ExpiresAt:      r.ExpiresAt,
	}
}
