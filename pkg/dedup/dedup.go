// Package dedup turns at-least-once change deliveries into one accepted change
// per (workflow, resource, change type) key.
package dedup

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/spaolacci/murmur3"
)

const (
	// DefaultWindow is the idempotency window for changes without a provider timestamp.
	DefaultWindow = 5 * time.Minute

	// DefaultRetention is how long a record outlives its window. Timestamped
	// records must survive the window so late redeliveries are still rejected.
	DefaultRetention = 24 * time.Hour
)

// Store persists dedup records. Apply must run fn and the resulting write
// atomically for key.
type Store interface {
	// Apply calls fn with the current record of key (nil when absent) and stores
	// next when fn reports write. It returns the write flag.
	Apply(ctx context.Context, key string, fn func(existing *models.DedupeRecord) (next *models.DedupeRecord, write bool)) (bool, error)

	// Restore puts previous back (or deletes key when previous is nil), but only
	// if the stored record is still written.
	Restore(ctx context.Context, key string, written, previous *models.DedupeRecord) error
}

// Incoming is what a delivery tells the deduplicator about a change.
type Incoming struct {
	Timestamp *time.Time
	Signature string
}

// Decide applies the acceptance rules to one delivery and returns the record
// to store when the delivery is accepted.
func Decide(key string, existing *models.DedupeRecord, in Incoming, now time.Time, window time.Duration) (bool, *models.DedupeRecord) {
	next := &models.DedupeRecord{
		Key:                 key,
		ProcessedAt:         now,
		LastChangeTimestamp: in.Timestamp,
		ContentSignature:    in.Signature,
	}

	if existing == nil {
		return true, next
	}

	if in.Timestamp != nil {
		if existing.LastChangeTimestamp == nil || in.Timestamp.After(*existing.LastChangeTimestamp) {
			return true, next
		}

		return false, nil
	}

	if existing.LastChangeTimestamp == nil && in.Signature != "" && existing.ContentSignature != "" &&
		in.Signature != existing.ContentSignature {
		return true, next
	}

	if now.Sub(existing.ProcessedAt) < window {
		return false, nil
	}

	// The window elapsed: the old record is expired and replaced.
	return true, next
}

// Key hashes the dedup identity of a change for one workflow.
func Key(workflowID, resourceIdentity string, changeType models.ChangeType) string {
	h1, h2 := murmur3.Sum128([]byte(workflowID + "\x00" + resourceIdentity + "\x00" + string(changeType)))

	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], h1)
	binary.BigEndian.PutUint64(buf[8:], h2)

	return hex.EncodeToString(buf[:])
}

// Reservation is an accepted change that can still be rolled back.
type Reservation struct {
	Key      string
	written  *models.DedupeRecord
	previous *models.DedupeRecord
}

// Deduplicator accepts or rejects changes per workflow.
type Deduplicator struct {
	store  Store
	window time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// Option customizes a Deduplicator.
type Option func(*Deduplicator)

// WithWindow overrides the idempotency window.
func WithWindow(window time.Duration) Option {
	return func(d *Deduplicator) { d.window = window }
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(d *Deduplicator) { d.now = now }
}

// NewDeduplicator creates a deduplicator over store.
func NewDeduplicator(store Store, logger *slog.Logger, opts ...Option) *Deduplicator {
	d := &Deduplicator{
		store:  store,
		window: DefaultWindow,
		now:    time.Now,
		logger: logger.With("module", "dedup"),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Accept records change for workflowID. It returns nil when the change is a
// duplicate of one already accepted.
func (d *Deduplicator) Accept(ctx context.Context, workflowID string, change *models.Change) (*Reservation, error) {
	key := Key(workflowID, change.ResourceIdentity, change.ChangeType)
	in := Incoming{Timestamp: change.EventTime(), Signature: change.Signature}
	now := d.now().UTC()

	reservation := &Reservation{Key: key}

	accepted, err := d.store.Apply(ctx, key, func(existing *models.DedupeRecord) (*models.DedupeRecord, bool) {
		accept, next := Decide(key, existing, in, now, d.window)
		if accept {
			reservation.previous = existing
			reservation.written = next
		}

		return next, accept
	})
	if err != nil {
		return nil, fmt.Errorf("dedup accept for workflow %s: %w", workflowID, err)
	}

	if !accepted {
		d.logger.DebugContext(ctx, "Duplicate change rejected",
			"workflow_id", workflowID,
			"resource", change.ResourceIdentity,
			"change_type", change.ChangeType,
		)

		return nil, nil
	}

	return reservation, nil
}

// Rollback reverts an accepted change so a later delivery is accepted again.
func (d *Deduplicator) Rollback(ctx context.Context, reservation *Reservation) error {
	if reservation == nil {
		return nil
	}

	if err := d.store.Restore(ctx, reservation.Key, reservation.written, reservation.previous); err != nil {
		return fmt.Errorf("dedup rollback of %s: %w", reservation.Key, err)
	}

	return nil
}
