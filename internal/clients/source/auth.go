package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ternarybob/lacuna/internal/models"
)

// IssueTicket exchanges a username and password for an auth ticket. Invalid
// credentials come back as models.ErrPermissionDenied.
func (c *Client) IssueTicket(ctx context.Context, username, password string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"userId":   username,
		"password": password,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal ticket request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL+"/tickets", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("invalid credentials for %s: %w", username, models.ErrPermissionDenied)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ticket request failed with status %d", resp.StatusCode)
	}

	var ticket struct {
		Entry struct {
			ID string `json:"id"`
		} `json:"entry"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ticket); err != nil {
		return "", fmt.Errorf("failed to decode ticket response: %w", err)
	}
	if ticket.Entry.ID == "" {
		return "", fmt.Errorf("ticket response missing id")
	}
	return ticket.Entry.ID, nil
}

// ValidateTicket resolves a ticket to the username it was issued for by
// calling the people endpoint with the ticket as credential.
func (c *Client) ValidateTicket(ctx context.Context, ticket string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/people/-me-", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	// Ticket auth uses basic auth with the ticket as the username and an
	// empty password.
	req.SetBasicAuth(ticket, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("ticket rejected: %w", models.ErrPermissionDenied)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ticket validation failed with status %d", resp.StatusCode)
	}

	var person models.PersonEntry
	if err := json.NewDecoder(resp.Body).Decode(&person); err != nil {
		return "", fmt.Errorf("failed to decode person response: %w", err)
	}
	if person.Entry.ID == "" {
		return "", fmt.Errorf("person response missing id")
	}
	return person.Entry.ID, nil
}
