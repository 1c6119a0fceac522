package store

import (
	"context"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/CanAISolutions/canai-intent-build-sub000/internal/reqclient"
)

// SupabaseStore implements Recorder over the Supabase REST (PostgREST)
// interface. Inserts go through the retrying client.
type SupabaseStore struct {
	baseURL string
	key     string
	client  *reqclient.Client
}

// NewSupabase creates a SupabaseStore for the project at baseURL.
func NewSupabase(baseURL, key string, client *reqclient.Client) (*SupabaseStore, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, eris.New("supabase: url is required")
	}
	if key == "" {
		return nil, eris.New("supabase: key is required")
	}
	if client == nil {
		return nil, eris.New("supabase: request client is required")
	}
	return &SupabaseStore{baseURL: baseURL, key: key, client: client}, nil
}

// Insert POSTs rec as one row to /rest/v1/{table}.
func (s *SupabaseStore) Insert(ctx context.Context, table Table, rec Record) error {
	if err := checkTable("supabase", table); err != nil {
		return err
	}
	rec = rec.withDefaults()

	h := http.Header{}
	h.Set("apikey", s.key)
	h.Set("Authorization", "Bearer "+s.key)
	h.Set("Prefer", "return=minimal")

	_, err := s.client.Call(ctx, reqclient.Envelope{
		Endpoint:      s.baseURL + "/rest/v1/" + string(table),
		Payload:       rec,
		CorrelationID: rec.CorrelationID,
		Header:        h,
	})
	return eris.Wrapf(err, "supabase: insert %s", table)
}

func (s *SupabaseStore) Close() error { return nil }
