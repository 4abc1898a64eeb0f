package remote

import (
	"context"
	"encoding/json"
)

// Storage implements host.Storage over the bridge.
type Storage struct {
	client *Client
}

type storageGetResponse struct {
	Found bool            `json:"found"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Get fetches one key. Absence is reported via found, not an error.
func (s *Storage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var out storageGetResponse
	err := s.client.call(ctx, "/storage/get", map[string]string{"key": key}, &out)
	if err != nil {
		return nil, false, err
	}
	if !out.Found {
		return nil, false, nil
	}
	return []byte(out.Value), true, nil
}

// Set writes one key.
func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	body := map[string]json.RawMessage{
		"key":   json.RawMessage(mustQuote(key)),
		"value": json.RawMessage(value),
	}
	return s.client.call(ctx, "/storage/set", body, nil)
}

// Remove deletes one key.
func (s *Storage) Remove(ctx context.Context, key string) error {
	return s.client.call(ctx, "/storage/remove", map[string]string{"key": key}, nil)
}

func mustQuote(s string) []byte {
	quoted, _ := json.Marshal(s)
	return quoted
}
