package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/lodgepole-labs/lodgepole/internal/audit"
	"github.com/lodgepole-labs/lodgepole/internal/auth"
	"github.com/lodgepole-labs/lodgepole/internal/models"
	"github.com/lodgepole-labs/lodgepole/internal/store"
)

const entityTypeProperty = "property"

// PropertyService manages properties. Reads need viewer, writes need
// manager. Every write records to the audit trail after the store commit.
type PropertyService struct {
	properties store.PropertyStore
	auditLog   store.AuditStore
	recorder   *audit.Recorder
}

// NewPropertyService creates a property service.
func NewPropertyService(properties store.PropertyStore, auditLog store.AuditStore, recorder *audit.Recorder) *PropertyService {
	return &PropertyService{properties: properties, auditLog: auditLog, recorder: recorder}
}

type propertyRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Units   int    `json:"units"`
	Notes   string `json:"notes"`
}

func (s *PropertyService) handleCreate(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	if err := auth.RequireRole(ac, models.RoleManager); err != nil {
		writeError(w, r, err)
		return
	}

	var req propertyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Name == "" {
		writeError(w, r, badRequest("name is required"))
		return
	}

	now := time.Now()
	property := &models.Property{
		ID:        uuid.New(),
		OrgID:     ac.OrgID,
		Name:      req.Name,
		Address:   req.Address,
		Units:     req.Units,
		Notes:     req.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.properties.Create(r.Context(), property); err != nil {
		writeError(w, r, err)
		return
	}

	s.recorder.Create(ac.OrgID, entityTypeProperty, property.ID.String(), ac.Principal.SubjectID,
		audit.SourceFromRequest(r), property)

	writeJSON(w, http.StatusCreated, property)
}

func (s *PropertyService) handleList(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	if err := auth.RequireRole(ac, models.RoleViewer); err != nil {
		writeError(w, r, err)
		return
	}

	properties, err := s.properties.ListByOrg(r.Context(), ac.OrgID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"properties": properties})
}

func (s *PropertyService) handleGet(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	if err := auth.RequireRole(ac, models.RoleViewer); err != nil {
		writeError(w, r, err)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, r, badRequest("invalid property id"))
		return
	}

	property, err := s.properties.Get(r.Context(), ac.OrgID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if property.DeletedAt != nil {
		writeError(w, r, store.ErrPropertyNotFound)
		return
	}

	writeJSON(w, http.StatusOK, property)
}

func (s *PropertyService) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	if err := auth.RequireRole(ac, models.RoleManager); err != nil {
		writeError(w, r, err)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, r, badRequest("invalid property id"))
		return
	}

	var req propertyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Name == "" {
		writeError(w, r, badRequest("name is required"))
		return
	}

	before, err := s.properties.Get(r.Context(), ac.OrgID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if before.DeletedAt != nil {
		writeError(w, r, store.ErrPropertyNotFound)
		return
	}

	updated := *before
	updated.Name = req.Name
	updated.Address = req.Address
	updated.Units = req.Units
	updated.Notes = req.Notes
	updated.UpdatedAt = time.Now()

	if err := s.properties.Update(r.Context(), &updated); err != nil {
		writeError(w, r, err)
		return
	}

	s.recorder.Update(ac.OrgID, entityTypeProperty, id.String(), ac.Principal.SubjectID,
		audit.SourceFromRequest(r), before, &updated)

	writeJSON(w, http.StatusOK, &updated)
}

func (s *PropertyService) handleDelete(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	if err := auth.RequireRole(ac, models.RoleManager); err != nil {
		writeError(w, r, err)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, r, badRequest("invalid property id"))
		return
	}

	if err := s.properties.SoftDelete(r.Context(), ac.OrgID, id); err != nil {
		writeError(w, r, err)
		return
	}

	s.recorder.SoftDelete(ac.OrgID, entityTypeProperty, id.String(), ac.Principal.SubjectID,
		audit.SourceFromRequest(r))

	writeJSON(w, http.StatusNoContent, nil)
}

func (s *PropertyService) handleRestore(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	if err := auth.RequireRole(ac, models.RoleManager); err != nil {
		writeError(w, r, err)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, r, badRequest("invalid property id"))
		return
	}

	if err := s.properties.Restore(r.Context(), ac.OrgID, id); err != nil {
		writeError(w, r, err)
		return
	}

	s.recorder.Restore(ac.OrgID, entityTypeProperty, id.String(), ac.Principal.SubjectID,
		audit.SourceFromRequest(r))

	property, err := s.properties.Get(r.Context(), ac.OrgID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, property)
}

// handleAuditHistory returns the audit trail for one property, oldest first.
func (s *PropertyService) handleAuditHistory(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	if err := auth.RequireRole(ac, models.RoleManager); err != nil {
		writeError(w, r, err)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, r, badRequest("invalid property id"))
		return
	}

	entries, err := s.auditLog.ListByEntity(r.Context(), ac.OrgID, entityTypeProperty, id.String())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
