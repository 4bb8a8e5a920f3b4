package remote

import (
	"context"
	"errors"
	"net/http"

	"opsmap/internal/domain"
	opsmapsdk "opsmap/sdk/go"
)

// HTTPStore talks to the hosted backend. The backend derives the owner from the
// bearer token, so userID only has to match the token subject.
type HTTPStore struct {
	client *opsmapsdk.Client
}

// NewHTTPStore builds a store on client; token is called per request.
func NewHTTPStore(client *opsmapsdk.Client, token func(ctx context.Context) (string, error)) *HTTPStore {
	if token != nil {
		client.TokenSource = token
	}
	return &HTTPStore{client: client}
}

func (s *HTTPStore) LoadWorkspacesForUser(ctx context.Context, _ string) ([]domain.Workspace, error) {
	items, err := s.client.ListWorkspaces(ctx)
	if err != nil {
		return nil, mapAPIError(err)
	}
	sortByCreation(items)
	return items, nil
}

func (s *HTTPStore) UpsertWorkspace(ctx context.Context, ws domain.Workspace) error {
	_, err := s.client.PutWorkspace(ctx, ws)
	return mapAPIError(err)
}

func mapAPIError(err error) error {
	var apiErr *opsmapsdk.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden {
		return ErrForbidden
	}
	return err
}
