package interfaces

import (
	"context"
	"net/http"
)

// AuthService authenticates inbound API requests against the source
// repository. Ticket credentials are tried before basic credentials.
type AuthService interface {
	// Authenticate inspects the request's credentials and returns the
	// authenticated username. Returns models.ErrPermissionDenied when no
	// valid credential is present.
	Authenticate(ctx context.Context, r *http.Request) (string, error)
}
