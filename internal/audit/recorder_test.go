package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/lodgepole-labs/lodgepole/internal/models"
	memorystore "github.com/lodgepole-labs/lodgepole/internal/store/memory"
)

func TestRecorderCreate(t *testing.T) {
	st := memorystore.NewAuditStore()
	rec := NewRecorder(st, 16)

	orgID := uuid.New()
	property := &models.Property{ID: uuid.New(), OrgID: orgID, Name: "Cedar Court"}

	rec.Create(orgID, "property", property.ID.String(), "user-1", SourceUI, property)
	rec.Close()

	entries := st.All()
	require.Len(t, entries, 1)
	require.Equal(t, models.AuditActionCreate, entries[0].Action)
	require.Equal(t, "user-1", entries[0].ChangedBy)
	require.Equal(t, "ui", entries[0].Source)
	require.Nil(t, entries[0].FieldName)
	require.NotNil(t, entries[0].NewValue)
	require.Contains(t, *entries[0].NewValue, "Cedar Court")
}

func TestRecorderUpdate(t *testing.T) {
	t.Run("one entry per changed field", func(t *testing.T) {
		st := memorystore.NewAuditStore()
		rec := NewRecorder(st, 16)

		orgID := uuid.New()
		before := &models.Property{Name: "Cedar Court", Units: 12}
		after := &models.Property{Name: "Cedar Commons", Units: 14}

		rec.Update(orgID, "property", "p-1", "user-1", SourceAPI, before, after)
		rec.Close()

		entries := st.All()
		require.Len(t, entries, 2)
		for _, e := range entries {
			require.Equal(t, models.AuditActionUpdate, e.Action)
			require.NotNil(t, e.FieldName)
		}
	})

	t.Run("no entries when nothing changed", func(t *testing.T) {
		st := memorystore.NewAuditStore()
		rec := NewRecorder(st, 16)

		p := &models.Property{Name: "Cedar Court"}
		rec.Update(uuid.New(), "property", "p-1", "user-1", SourceAPI, p, p)
		rec.Close()

		require.Empty(t, st.All())
	})
}

func TestRecorderCloseDrains(t *testing.T) {
	st := memorystore.NewAuditStore()
	rec := NewRecorder(st, 64)

	orgID := uuid.New()
	for i := 0; i < 20; i++ {
		rec.SoftDelete(orgID, "property", "p-1", "user-1", SourceSystem)
	}
	rec.Close()

	require.Len(t, st.All(), 20)
}

func TestRecorderEnqueueAfterClose(t *testing.T) {
	st := memorystore.NewAuditStore()
	rec := NewRecorder(st, 16)
	rec.Close()

	rec.Restore(uuid.New(), "property", "p-1", "user-1", SourceSystem)

	require.Empty(t, st.All())
	require.Equal(t, int64(1), rec.Dropped())
}

// blockingAuditStore holds every Insert until released.
type blockingAuditStore struct {
	release chan struct{}
}

func (s *blockingAuditStore) Insert(ctx context.Context, entry *models.AuditEntry) error {
	<-s.release
	return nil
}

func (s *blockingAuditStore) ListByEntity(ctx context.Context, orgID uuid.UUID, entityType, entityID string) ([]*models.AuditEntry, error) {
	return nil, nil
}

func TestRecorderOverflowDropsNewest(t *testing.T) {
	st := &blockingAuditStore{release: make(chan struct{})}
	rec := NewRecorder(st, 1)

	orgID := uuid.New()

	// First entry occupies the writer, second fills the queue. Give the
	// writer a moment to pick up the first before overflowing.
	rec.SoftDelete(orgID, "property", "p-1", "user-1", SourceSystem)
	time.Sleep(50 * time.Millisecond)
	rec.SoftDelete(orgID, "property", "p-2", "user-1", SourceSystem)
	rec.SoftDelete(orgID, "property", "p-3", "user-1", SourceSystem)

	require.GreaterOrEqual(t, rec.Dropped(), int64(1))

	close(st.release)
	rec.Close()
}
