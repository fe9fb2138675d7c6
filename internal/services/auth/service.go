package auth

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/lacuna/internal/common"
	"github.com/ternarybob/lacuna/internal/interfaces"
	"github.com/ternarybob/lacuna/internal/models"
)

const (
	// ticketQueryParam lets clients pass a ticket without headers.
	ticketQueryParam = "alf_ticket"

	// ticketPrefix identifies source repository auth tickets.
	ticketPrefix = "TICKET_"
)

// Service authenticates API callers against the source repository. A
// ticket credential is tried first; basic credentials are exchanged for a
// ticket, which both validates them and avoids a second password check.
type Service struct {
	source interfaces.SourceAuthenticator
	logger arbor.ILogger
}

// NewService creates the auth service.
func NewService(source interfaces.SourceAuthenticator) *Service {
	return &Service{
		source: source,
		logger: common.GetLogger(),
	}
}

// Authenticate resolves the request's credentials to a username.
func (s *Service) Authenticate(ctx context.Context, r *http.Request) (string, error) {
	if ticket := extractTicket(r); ticket != "" {
		username, err := s.source.ValidateTicket(ctx, ticket)
		if err != nil {
			return "", fmt.Errorf("ticket validation failed: %w", err)
		}
		return username, nil
	}

	if username, password, ok := basicCredentials(r); ok {
		if _, err := s.source.IssueTicket(ctx, username, password); err != nil {
			return "", fmt.Errorf("basic authentication failed: %w", err)
		}
		return username, nil
	}

	return "", fmt.Errorf("no credentials presented: %w", models.ErrPermissionDenied)
}

// extractTicket looks for a ticket in the query string first, then in a
// Basic header whose decoded value is a bare ticket rather than user:pass.
func extractTicket(r *http.Request) string {
	if ticket := r.URL.Query().Get(ticketQueryParam); strings.HasPrefix(ticket, ticketPrefix) {
		return ticket
	}

	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Basic ") {
		return ""
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(header, "Basic "))
	if err != nil {
		return ""
	}
	value := string(decoded)
	if strings.Contains(value, ":") {
		// user:pass form, handled by basic auth.
		return ""
	}
	if strings.HasPrefix(value, ticketPrefix) {
		return value
	}
	return ""
}

func basicCredentials(r *http.Request) (string, string, bool) {
	username, password, ok := r.BasicAuth()
	if !ok || username == "" {
		return "", "", false
	}
	return username, password, true
}
