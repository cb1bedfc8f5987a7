// Package audit records who changed what, field by field. Writes are
// fire-and-forget: business operations enqueue entries after their own
// commit and never wait on, or fail because of, the audit trail.
package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lodgepole-labs/lodgepole/internal/models"
	"github.com/lodgepole-labs/lodgepole/internal/store"
	"github.com/lodgepole-labs/lodgepole/internal/telemetry"
)

const (
	// DefaultQueueSize bounds the in-flight entry queue.
	DefaultQueueSize = 1024

	writeMaxTries = 3
	writeTimeout  = 10 * time.Second
)

// Recorder buffers audit entries through a bounded queue drained by a single
// background writer. When the queue is full the newest entry is dropped and
// counted; callers are never blocked.
type Recorder struct {
	store store.AuditStore
	queue chan *models.AuditEntry
	now   func() time.Time

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	dropped atomic.Int64
}

// NewRecorder creates a recorder and starts its writer. queueSize <= 0 uses
// DefaultQueueSize.
func NewRecorder(auditStore store.AuditStore, queueSize int) *Recorder {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	r := &Recorder{
		store: auditStore,
		queue: make(chan *models.AuditEntry, queueSize),
		now:   time.Now,
	}

	r.wg.Add(1)
	go r.writeLoop()

	return r
}

// Create records the creation of an entity, serializing the new record into
// the entry's NewValue.
func (r *Recorder) Create(orgID uuid.UUID, entityType, entityID, changedBy string, source Source, entity any) {
	entry := r.newEntry(orgID, entityType, entityID, models.AuditActionCreate, changedBy, source)
	if snapshot, err := canonicalSnapshot(entity); err != nil {
		log.Warn().Err(err).
			Str("entity_type", entityType).
			Str("entity_id", entityID).
			Msg("Failed to serialize entity for audit")
	} else {
		entry.NewValue = &snapshot
	}
	r.enqueue(entry)
}

// Update diffs two snapshots of an entity and records one entry per changed
// field. Identical snapshots record nothing.
func (r *Recorder) Update(orgID uuid.UUID, entityType, entityID, changedBy string, source Source, oldEntity, newEntity any) {
	changes, err := DiffEntities(oldEntity, newEntity)
	if err != nil {
		log.Warn().Err(err).
			Str("entity_type", entityType).
			Str("entity_id", entityID).
			Msg("Failed to diff entity for audit")
		return
	}

	for _, change := range changes {
		entry := r.newEntry(orgID, entityType, entityID, models.AuditActionUpdate, changedBy, source)
		field := change.Field
		entry.FieldName = &field
		entry.OldValue = change.Old
		entry.NewValue = change.New
		r.enqueue(entry)
	}
}

// SoftDelete records an entity being deactivated.
func (r *Recorder) SoftDelete(orgID uuid.UUID, entityType, entityID, changedBy string, source Source) {
	r.enqueue(r.newEntry(orgID, entityType, entityID, models.AuditActionSoftDelete, changedBy, source))
}

// Restore records an entity being reactivated.
func (r *Recorder) Restore(orgID uuid.UUID, entityType, entityID, changedBy string, source Source) {
	r.enqueue(r.newEntry(orgID, entityType, entityID, models.AuditActionRestore, changedBy, source))
}

// Dropped reports how many entries have been discarded since startup.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close stops accepting entries and drains what is already queued.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Recorder) newEntry(orgID uuid.UUID, entityType, entityID string, action models.AuditAction, changedBy string, source Source) *models.AuditEntry {
	return &models.AuditEntry{
		ID:         uuid.New(),
		OrgID:      orgID,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		ChangedBy:  changedBy,
		ChangedAt:  r.now(),
		Source:     string(source),
	}
}

func (r *Recorder) enqueue(entry *models.AuditEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		r.drop(entry, "recorder closed")
		return
	}

	select {
	case r.queue <- entry:
	default:
		r.drop(entry, "queue full")
	}
}

func (r *Recorder) drop(entry *models.AuditEntry, reason string) {
	r.dropped.Add(1)
	telemetry.GetMetrics().AuditEntriesDroppedTotal.Add(context.Background(), 1)
	log.Warn().
		Str("entity_type", entry.EntityType).
		Str("entity_id", entry.EntityID).
		Str("action", string(entry.Action)).
		Str("reason", reason).
		Msg("Dropping audit entry")
}

// writeLoop drains the queue until Close. Each write runs on a background
// context so an entry is not lost just because the originating request was
// cancelled.
func (r *Recorder) writeLoop() {
	defer r.wg.Done()

	for entry := range r.queue {
		r.write(entry)
	}
}

func (r *Recorder) write(entry *models.AuditEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, r.store.Insert(ctx, entry)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(writeMaxTries),
	)
	if err != nil {
		r.drop(entry, "store write failed")
		log.Error().Err(err).
			Str("entry_id", entry.ID.String()).
			Msg("Failed to persist audit entry")
		return
	}

	telemetry.GetMetrics().AuditEntriesWrittenTotal.Add(ctx, 1)
}
