package auth

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/parcelrate/api/internal/platform/httpx"
	"github.com/parcelrate/api/internal/platform/requestctx"
)

const (
	SignatureHeader = "X-Signature"
	TimestampHeader = "X-Signature-Timestamp"
	NonceHeader     = "X-Signature-Nonce"

	defaultClockSkew = 5 * time.Minute
	maxSignedBody    = 1 << 20
)

var (
	errMissingSignature = errors.New("missing signature headers")
	errStaleTimestamp   = errors.New("signature timestamp outside allowed window")
	errReplayedNonce    = errors.New("nonce already used")
	errBadSignature     = errors.New("signature mismatch")
)

// SecretProvider resolves named shared secrets.
type SecretProvider interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// SecretProviderFunc adapts a function to SecretProvider.
type SecretProviderFunc func(ctx context.Context, name string) (string, error)

// GetSecret implements SecretProvider.
func (f SecretProviderFunc) GetSecret(ctx context.Context, name string) (string, error) {
	return f(ctx, name)
}

// StaticSecrets serves secrets from a fixed map.
type StaticSecrets map[string]string

// GetSecret implements SecretProvider.
func (s StaticSecrets) GetSecret(_ context.Context, name string) (string, error) {
	if v, ok := s[name]; ok && v != "" {
		return v, nil
	}
	return "", errors.New("secret not configured")
}

// NonceStore remembers nonces until they expire.
type NonceStore interface {
	// Use records nonce and reports false when it was already recorded and unexpired.
	Use(ctx context.Context, nonce string, expiresAt time.Time) (bool, error)
}

// InMemoryNonceStore is a process-local NonceStore.
type InMemoryNonceStore struct {
	mu     sync.Mutex
	nonces map[string]time.Time
	now    func() time.Time
}

// NewInMemoryNonceStore constructs an empty nonce store.
func NewInMemoryNonceStore() *InMemoryNonceStore {
	return &InMemoryNonceStore{nonces: make(map[string]time.Time), now: time.Now}
}

// Use implements NonceStore.
func (s *InMemoryNonceStore) Use(_ context.Context, nonce string, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, exp := range s.nonces {
		if !exp.After(now) {
			delete(s.nonces, key)
		}
	}
	if _, seen := s.nonces[nonce]; seen {
		return false, nil
	}
	s.nonces[nonce] = expiresAt
	return true, nil
}

// HMACMetadata describes a verified signed request.
type HMACMetadata struct {
	SecretName string
	Nonce      string
	SignedAt   time.Time
}

type hmacMetadataKey struct{}

// HMACMetadataFromContext returns metadata stored by RequireHMAC.
func HMACMetadataFromContext(ctx context.Context) (HMACMetadata, bool) {
	meta, ok := ctx.Value(hmacMetadataKey{}).(HMACMetadata)
	return meta, ok
}

// HMACValidator authenticates partner callbacks signed with a shared secret.
type HMACValidator struct {
	secrets SecretProvider
	nonces  NonceStore
	clock   func() time.Time
	skew    time.Duration
}

// HMACOption customises the validator.
type HMACOption func(*HMACValidator)

// WithHMACClock overrides the clock used for timestamp checks.
func WithHMACClock(clock func() time.Time) HMACOption {
	return func(v *HMACValidator) {
		if clock != nil {
			v.clock = clock
		}
	}
}

// WithHMACClockSkew sets the accepted timestamp window.
func WithHMACClockSkew(skew time.Duration) HMACOption {
	return func(v *HMACValidator) {
		if skew > 0 {
			v.skew = skew
		}
	}
}

// NewHMACValidator constructs a validator. A nil nonce store gets an in-memory one.
func NewHMACValidator(secrets SecretProvider, nonces NonceStore, opts ...HMACOption) *HMACValidator {
	if nonces == nil {
		nonces = NewInMemoryNonceStore()
	}
	v := &HMACValidator{
		secrets: secrets,
		nonces:  nonces,
		clock:   time.Now,
		skew:    defaultClockSkew,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// RequireHMAC verifies the request signature against the named secret.
//
// The signature is HMAC-SHA256 over METHOD\nPATH\nTIMESTAMP\nNONCE\nhex(sha256(body)),
// encoded as base64 or hex.
func (v *HMACValidator) RequireHMAC(secretName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger := requestctx.Logger(ctx)

			meta, err := v.verify(r, secretName)
			if err != nil {
				logger.Warn("hmac verification failed", zap.String("secret", secretName), zap.Error(err))
				status := http.StatusUnauthorized
				if v == nil || v.secrets == nil {
					status = http.StatusServiceUnavailable
				}
				httpx.WriteError(ctx, w, httpx.NewError("invalid_signature", "request signature could not be verified", status))
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, hmacMetadataKey{}, meta)))
		})
	}
}

func (v *HMACValidator) verify(r *http.Request, secretName string) (HMACMetadata, error) {
	if v == nil || v.secrets == nil {
		return HMACMetadata{}, errors.New("hmac validator not configured")
	}
	ctx := r.Context()

	sigHeader := strings.TrimSpace(r.Header.Get(SignatureHeader))
	tsHeader := strings.TrimSpace(r.Header.Get(TimestampHeader))
	nonce := strings.TrimSpace(r.Header.Get(NonceHeader))
	if sigHeader == "" || tsHeader == "" || nonce == "" {
		return HMACMetadata{}, errMissingSignature
	}

	signedAt, err := parseSignatureTimestamp(tsHeader)
	if err != nil {
		return HMACMetadata{}, err
	}
	now := v.clock()
	if diff := now.Sub(signedAt); diff > v.skew || diff < -v.skew {
		return HMACMetadata{}, errStaleTimestamp
	}

	signature, err := decodeSignature(sigHeader)
	if err != nil {
		return HMACMetadata{}, err
	}

	body, err := readAndRestoreBody(r)
	if err != nil {
		return HMACMetadata{}, err
	}

	secret, err := v.secrets.GetSecret(ctx, secretName)
	if err != nil {
		return HMACMetadata{}, err
	}

	expected := computeHMAC([]byte(secret), buildCanonicalString(r, body, tsHeader, nonce))
	if !hmac.Equal(signature, expected) {
		return HMACMetadata{}, errBadSignature
	}

	fresh, err := v.nonces.Use(ctx, secretName+":"+nonce, now.Add(v.skew))
	if err != nil {
		return HMACMetadata{}, err
	}
	if !fresh {
		return HMACMetadata{}, errReplayedNonce
	}

	return HMACMetadata{SecretName: secretName, Nonce: nonce, SignedAt: signedAt}, nil
}

// SignRequest computes the signature headers for body. Used by partner tooling and tests.
func SignRequest(method, path string, body []byte, secret string, signedAt time.Time, nonce string) http.Header {
	timestamp := signedAt.UTC().Format(time.RFC3339)
	canonical := canonicalString(method, path, body, timestamp, nonce)
	headers := http.Header{}
	headers.Set(SignatureHeader, base64.StdEncoding.EncodeToString(computeHMAC([]byte(secret), canonical)))
	headers.Set(TimestampHeader, timestamp)
	headers.Set(NonceHeader, nonce)
	return headers
}

func readAndRestoreBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxSignedBody+1))
	if err != nil {
		return nil, err
	}
	_ = r.Body.Close()
	if len(body) > maxSignedBody {
		return nil, errors.New("signed body too large")
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

func decodeSignature(value string) ([]byte, error) {
	value = strings.TrimPrefix(value, "sha256=")
	if decoded, err := base64.StdEncoding.DecodeString(value); err == nil && len(decoded) == sha256.Size {
		return decoded, nil
	}
	if decoded, err := hex.DecodeString(value); err == nil && len(decoded) == sha256.Size {
		return decoded, nil
	}
	return nil, errors.New("signature encoding not recognised")
}

func parseSignatureTimestamp(value string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	secs, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, errors.New("signature timestamp invalid")
	}
	return time.Unix(secs, 0).UTC(), nil
}

func buildCanonicalString(r *http.Request, body []byte, timestamp, nonce string) string {
	return canonicalString(r.Method, r.URL.EscapedPath(), body, timestamp, nonce)
}

func canonicalString(method, path string, body []byte, timestamp, nonce string) string {
	sum := sha256.Sum256(body)
	return strings.Join([]string{
		strings.ToUpper(method),
		path,
		timestamp,
		nonce,
		hex.EncodeToString(sum[:]),
	}, "\n")
}

func computeHMAC(secret []byte, canonical string) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(canonical))
	return mac.Sum(nil)
}
