package models

// Principal is the verified identity of a caller, independent of any
// authorization decision. It is produced per request by the credential
// resolver and never persisted.
type Principal struct {
	SubjectID   string `json:"subject_id"` // Opaque unique id assigned by the identity provider
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}
