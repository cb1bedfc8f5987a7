package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/lodgepole-labs/lodgepole/internal/apikey"
	"github.com/lodgepole-labs/lodgepole/internal/audit"
	"github.com/lodgepole-labs/lodgepole/internal/auth"
	"github.com/lodgepole-labs/lodgepole/internal/models"
)

const entityTypeAPIKey = "api_key"

// APIKeyService exposes the key lifecycle. All operations are admin-only; a
// key is an org-wide credential, not a personal one.
type APIKeyService struct {
	keys     *apikey.Service
	recorder *audit.Recorder
}

// NewAPIKeyService creates an API key service.
func NewAPIKeyService(keys *apikey.Service, recorder *audit.Recorder) *APIKeyService {
	return &APIKeyService{keys: keys, recorder: recorder}
}

type createKeyRequest struct {
	Name    string `json:"name"`
	Role    string `json:"role"`
	TTLDays int    `json:"ttl_days,omitempty"`
}

// createKeyResponse carries the plaintext key. It appears here once and is
// never retrievable again.
type createKeyResponse struct {
	Key       *models.APIKey `json:"api_key"`
	Plaintext string         `json:"key"`
}

func (s *APIKeyService) handleCreate(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	if err := auth.RequireRole(ac, models.RoleAdmin); err != nil {
		writeError(w, r, err)
		return
	}

	var req createKeyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Name == "" {
		writeError(w, r, badRequest("name is required"))
		return
	}
	role, ok := models.ParseRole(req.Role)
	if !ok {
		writeError(w, r, auth.ErrInvalidRole)
		return
	}

	ttl := time.Duration(req.TTLDays) * 24 * time.Hour

	key, plaintext, err := s.keys.Create(r.Context(), ac.OrgID, req.Name, role, ac.Principal.SubjectID, ttl)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.recorder.Create(ac.OrgID, entityTypeAPIKey, key.ID.String(), ac.Principal.SubjectID,
		audit.SourceFromRequest(r), key)

	writeJSON(w, http.StatusCreated, createKeyResponse{Key: key, Plaintext: plaintext})
}

func (s *APIKeyService) handleList(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	if err := auth.RequireRole(ac, models.RoleAdmin); err != nil {
		writeError(w, r, err)
		return
	}

	keys, err := s.keys.List(r.Context(), ac.OrgID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"api_keys": keys})
}

func (s *APIKeyService) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	if err := auth.RequireRole(ac, models.RoleAdmin); err != nil {
		writeError(w, r, err)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, r, badRequest("invalid key id"))
		return
	}

	before, err := s.keys.Get(r.Context(), ac.OrgID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.keys.Revoke(r.Context(), ac.OrgID, id, ac.Principal.SubjectID); err != nil {
		writeError(w, r, err)
		return
	}

	after, err := s.keys.Get(r.Context(), ac.OrgID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.recorder.Update(ac.OrgID, entityTypeAPIKey, id.String(), ac.Principal.SubjectID,
		audit.SourceFromRequest(r), before, after)

	writeJSON(w, http.StatusNoContent, nil)
}

func (s *APIKeyService) handleRotate(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	if err := auth.RequireRole(ac, models.RoleAdmin); err != nil {
		writeError(w, r, err)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, r, badRequest("invalid key id"))
		return
	}

	replacement, plaintext, err := s.keys.Rotate(r.Context(), ac.OrgID, id, ac.Principal.SubjectID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	source := audit.SourceFromRequest(r)
	s.recorder.Create(ac.OrgID, entityTypeAPIKey, replacement.ID.String(), ac.Principal.SubjectID,
		source, replacement)
	s.recorder.SoftDelete(ac.OrgID, entityTypeAPIKey, id.String(), ac.Principal.SubjectID, source)

	writeJSON(w, http.StatusCreated, createKeyResponse{Key: replacement, Plaintext: plaintext})
}
