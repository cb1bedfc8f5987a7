package audit

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/lodgepole-labs/lodgepole/internal/models"
)

func TestDiffEntities(t *testing.T) {
	t.Run("identical snapshots produce no changes", func(t *testing.T) {
		p := &models.Property{ID: uuid.New(), Name: "Cedar Court", Units: 12}

		changes, err := DiffEntities(p, p)
		require.NoError(t, err)
		require.Empty(t, changes)
	})

	t.Run("changed fields are reported with old and new values", func(t *testing.T) {
		before := &models.Property{Name: "Cedar Court", Units: 12}
		after := &models.Property{Name: "Cedar Commons", Units: 12}

		changes, err := DiffEntities(before, after)
		require.NoError(t, err)
		require.Len(t, changes, 1)
		require.Equal(t, "name", changes[0].Field)
		require.Equal(t, `"Cedar Court"`, *changes[0].Old)
		require.Equal(t, `"Cedar Commons"`, *changes[0].New)
	})

	t.Run("system timestamps are excluded", func(t *testing.T) {
		now := time.Now()
		later := now.Add(time.Hour)
		before := &models.Property{Name: "Cedar Court", CreatedAt: now, UpdatedAt: now}
		after := &models.Property{Name: "Cedar Court", CreatedAt: now, UpdatedAt: later, DeletedAt: &later}

		changes, err := DiffEntities(before, after)
		require.NoError(t, err)
		require.Empty(t, changes)
	})

	t.Run("map key order does not matter", func(t *testing.T) {
		before := map[string]any{
			"tags": map[string]any{"a": 1, "b": 2},
		}
		after := map[string]any{
			"tags": map[string]any{"b": 2, "a": 1},
		}

		changes, err := DiffEntities(before, after)
		require.NoError(t, err)
		require.Empty(t, changes)
	})

	t.Run("nested value change is detected", func(t *testing.T) {
		before := map[string]any{"tags": map[string]any{"a": 1}}
		after := map[string]any{"tags": map[string]any{"a": 2}}

		changes, err := DiffEntities(before, after)
		require.NoError(t, err)
		require.Len(t, changes, 1)
		require.Equal(t, "tags", changes[0].Field)
	})

	t.Run("added field has nil old value", func(t *testing.T) {
		before := map[string]any{"name": "x"}
		after := map[string]any{"name": "x", "notes": "y"}

		changes, err := DiffEntities(before, after)
		require.NoError(t, err)
		require.Len(t, changes, 1)
		require.Equal(t, "notes", changes[0].Field)
		require.Nil(t, changes[0].Old)
		require.Equal(t, `"y"`, *changes[0].New)
	})

	t.Run("field absent from new record is not a change", func(t *testing.T) {
		before := map[string]any{"name": "x", "notes": "y"}
		after := map[string]any{"name": "x"}

		changes, err := DiffEntities(before, after)
		require.NoError(t, err)
		require.Empty(t, changes)
	})

	t.Run("changes are sorted by field name", func(t *testing.T) {
		before := map[string]any{"zeta": 1, "alpha": 1, "mid": 1}
		after := map[string]any{"zeta": 2, "alpha": 2, "mid": 2}

		changes, err := DiffEntities(before, after)
		require.NoError(t, err)
		require.Len(t, changes, 3)
		require.Equal(t, "alpha", changes[0].Field)
		require.Equal(t, "mid", changes[1].Field)
		require.Equal(t, "zeta", changes[2].Field)
	})

	t.Run("non-object entity is rejected", func(t *testing.T) {
		_, err := DiffEntities("just a string", "just a string")
		require.Error(t, err)
	})
}
