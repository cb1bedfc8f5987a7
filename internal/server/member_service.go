package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lodgepole-labs/lodgepole/internal/audit"
	"github.com/lodgepole-labs/lodgepole/internal/auth"
	"github.com/lodgepole-labs/lodgepole/internal/models"
	"github.com/lodgepole-labs/lodgepole/internal/store"
)

const entityTypeMembership = "membership"

// MemberService administers organization memberships. Role changes and
// deactivations are admin-only and guarded so an organization can never lose
// its last active admin through this API.
type MemberService struct {
	memberships store.MembershipStore
	recorder    *audit.Recorder
}

// NewMemberService creates a member service.
func NewMemberService(memberships store.MembershipStore, recorder *audit.Recorder) *MemberService {
	return &MemberService{memberships: memberships, recorder: recorder}
}

func (s *MemberService) handleList(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	if err := auth.RequireRole(ac, models.RoleViewer); err != nil {
		writeError(w, r, err)
		return
	}

	members, err := s.memberships.ListByOrg(r.Context(), ac.OrgID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"members": members})
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

func (s *MemberService) handleChangeRole(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	if err := auth.RequireRole(ac, models.RoleAdmin); err != nil {
		writeError(w, r, err)
		return
	}

	userID := r.PathValue("userID")
	if userID == ac.Principal.SubjectID {
		writeError(w, r, auth.Conflict("cannot change own role"))
		return
	}

	var req changeRoleRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	newRole, ok := models.ParseRole(req.Role)
	if !ok {
		writeError(w, r, auth.ErrInvalidRole)
		return
	}

	current, err := s.memberships.Get(r.Context(), ac.OrgID, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !current.IsActive() {
		writeError(w, r, store.ErrMembershipNotFound)
		return
	}
	if current.Role == newRole {
		writeJSON(w, http.StatusOK, current)
		return
	}

	// Demoting an admin must not leave the org without one. The count and
	// the update are separate statements, so two concurrent demotions can
	// still race past each other; the window is accepted.
	if current.Role == models.RoleAdmin && newRole != models.RoleAdmin {
		if err := s.guardLastAdmin(r.Context(), ac.OrgID); err != nil {
			writeError(w, r, err)
			return
		}
	}

	if err := s.memberships.UpdateRole(r.Context(), ac.OrgID, userID, newRole); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := s.memberships.Get(r.Context(), ac.OrgID, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.recorder.Update(ac.OrgID, entityTypeMembership, userID, ac.Principal.SubjectID,
		audit.SourceFromRequest(r), current, updated)

	log.Info().
		Str("org_id", ac.OrgID.String()).
		Str("user_id", userID).
		Str("role", string(newRole)).
		Msg("Membership role changed")

	writeJSON(w, http.StatusOK, updated)
}

func (s *MemberService) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	if err := auth.RequireRole(ac, models.RoleAdmin); err != nil {
		writeError(w, r, err)
		return
	}

	userID := r.PathValue("userID")
	if userID == ac.Principal.SubjectID {
		writeError(w, r, auth.Conflict("cannot deactivate own membership"))
		return
	}

	current, err := s.memberships.Get(r.Context(), ac.OrgID, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !current.IsActive() {
		writeError(w, r, store.ErrMembershipNotFound)
		return
	}

	if current.Role == models.RoleAdmin {
		if err := s.guardLastAdmin(r.Context(), ac.OrgID); err != nil {
			writeError(w, r, err)
			return
		}
	}

	if err := s.memberships.SoftDelete(r.Context(), ac.OrgID, userID); err != nil {
		writeError(w, r, err)
		return
	}

	s.recorder.SoftDelete(ac.OrgID, entityTypeMembership, userID, ac.Principal.SubjectID,
		audit.SourceFromRequest(r))

	writeJSON(w, http.StatusNoContent, nil)
}

func (s *MemberService) handleRestore(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	if err := auth.RequireRole(ac, models.RoleAdmin); err != nil {
		writeError(w, r, err)
		return
	}

	userID := r.PathValue("userID")

	if err := s.memberships.Restore(r.Context(), ac.OrgID, userID); err != nil {
		writeError(w, r, err)
		return
	}

	s.recorder.Restore(ac.OrgID, entityTypeMembership, userID, ac.Principal.SubjectID,
		audit.SourceFromRequest(r))

	restored, err := s.memberships.Get(r.Context(), ac.OrgID, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, restored)
}

// guardLastAdmin fails with a conflict when removing one more admin would
// leave the organization without any.
func (s *MemberService) guardLastAdmin(ctx context.Context, orgID uuid.UUID) error {
	admins, err := s.memberships.CountAdmins(ctx, orgID)
	if err != nil {
		return err
	}
	if admins <= 1 {
		return auth.Conflict("organization must retain at least one active admin")
	}
	return nil
}
