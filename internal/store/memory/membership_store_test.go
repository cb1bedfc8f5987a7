package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/lodgepole-labs/lodgepole/internal/models"
	"github.com/lodgepole-labs/lodgepole/internal/store"
)

func newMembership(orgID uuid.UUID, userID string, role models.Role) *models.Membership {
	now := time.Now()
	return &models.Membership{
		UserID:    userID,
		OrgID:     orgID,
		Email:     userID + "@example.com",
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestMembershipStore_GetAndUpsert(t *testing.T) {
	t.Run("get missing membership", func(t *testing.T) {
		st := NewMembershipStore()
		_, err := st.Get(context.Background(), uuid.New(), "user-1")
		require.ErrorIs(t, err, store.ErrMembershipNotFound)
	})

	t.Run("upsert then get", func(t *testing.T) {
		st := NewMembershipStore()
		ctx := context.Background()
		orgID := uuid.New()

		require.NoError(t, st.Upsert(ctx, newMembership(orgID, "user-1", models.RoleViewer)))

		got, err := st.Get(ctx, orgID, "user-1")
		require.NoError(t, err)
		require.Equal(t, models.RoleViewer, got.Role)
	})

	t.Run("returned value is a clone", func(t *testing.T) {
		st := NewMembershipStore()
		ctx := context.Background()
		orgID := uuid.New()
		require.NoError(t, st.Upsert(ctx, newMembership(orgID, "user-1", models.RoleViewer)))

		got, err := st.Get(ctx, orgID, "user-1")
		require.NoError(t, err)
		got.Role = models.RoleAdmin

		again, err := st.Get(ctx, orgID, "user-1")
		require.NoError(t, err)
		require.Equal(t, models.RoleViewer, again.Role)
	})

	t.Run("same user in two orgs", func(t *testing.T) {
		st := NewMembershipStore()
		ctx := context.Background()
		orgA := uuid.New()
		orgB := uuid.New()
		require.NoError(t, st.Upsert(ctx, newMembership(orgA, "user-1", models.RoleViewer)))
		require.NoError(t, st.Upsert(ctx, newMembership(orgB, "user-1", models.RoleAdmin)))

		a, err := st.Get(ctx, orgA, "user-1")
		require.NoError(t, err)
		require.Equal(t, models.RoleViewer, a.Role)

		b, err := st.Get(ctx, orgB, "user-1")
		require.NoError(t, err)
		require.Equal(t, models.RoleAdmin, b.Role)
	})
}

func TestMembershipStore_SoftDeleteRestore(t *testing.T) {
	st := NewMembershipStore()
	ctx := context.Background()
	orgID := uuid.New()
	require.NoError(t, st.Upsert(ctx, newMembership(orgID, "user-1", models.RoleManager)))

	require.NoError(t, st.SoftDelete(ctx, orgID, "user-1"))

	got, err := st.Get(ctx, orgID, "user-1")
	require.NoError(t, err)
	require.False(t, got.IsActive())

	require.NoError(t, st.Restore(ctx, orgID, "user-1"))

	got, err = st.Get(ctx, orgID, "user-1")
	require.NoError(t, err)
	require.True(t, got.IsActive())
	require.Equal(t, models.RoleManager, got.Role)
}

func TestMembershipStore_CountAdmins(t *testing.T) {
	st := NewMembershipStore()
	ctx := context.Background()
	orgID := uuid.New()
	otherOrg := uuid.New()

	require.NoError(t, st.Upsert(ctx, newMembership(orgID, "admin-1", models.RoleAdmin)))
	require.NoError(t, st.Upsert(ctx, newMembership(orgID, "admin-2", models.RoleAdmin)))
	require.NoError(t, st.Upsert(ctx, newMembership(orgID, "viewer-1", models.RoleViewer)))
	require.NoError(t, st.Upsert(ctx, newMembership(otherOrg, "admin-3", models.RoleAdmin)))

	count, err := st.CountAdmins(ctx, orgID)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	// Deactivated admins do not count.
	require.NoError(t, st.SoftDelete(ctx, orgID, "admin-2"))
	count, err = st.CountAdmins(ctx, orgID)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestMembershipStore_UpdateRole(t *testing.T) {
	st := NewMembershipStore()
	ctx := context.Background()
	orgID := uuid.New()
	require.NoError(t, st.Upsert(ctx, newMembership(orgID, "user-1", models.RoleViewer)))

	require.NoError(t, st.UpdateRole(ctx, orgID, "user-1", models.RoleManager))

	got, err := st.Get(ctx, orgID, "user-1")
	require.NoError(t, err)
	require.Equal(t, models.RoleManager, got.Role)

	require.ErrorIs(t, st.UpdateRole(ctx, orgID, "user-2", models.RoleManager), store.ErrMembershipNotFound)
}
