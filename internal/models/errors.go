package models

import "errors"

// Error taxonomy shared across clients and services. Clients translate
// HTTP status codes into these sentinels so callers can branch with
// errors.Is instead of inspecting responses.
var (
	// ErrPermissionDenied maps 401/403 responses. Terminal for the
	// affected document during ingestion.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound maps 404 responses that are not locally recoverable.
	ErrNotFound = errors.New("not found")

	// ErrConflict maps 409 responses. Folder creation treats it as success.
	ErrConflict = errors.New("conflict")
)
