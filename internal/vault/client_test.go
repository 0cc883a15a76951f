package vault

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/kv/data/backup", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "root-token", r.Header.Get("X-Vault-Token"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"data":     map[string]any{"passphrase": "v2-secret", "pin": 1234},
				"metadata": map[string]any{"version": 3},
			},
		})
	})
	mux.HandleFunc("/v1/secret/backup", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"passphrase": "v1-secret"},
		})
	})
	mux.HandleFunc("/v1/auth/approle/role/backup/secret-id", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"secret_id": "sid"},
		})
	})
	mux.HandleFunc("/v1/auth/approle/login", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"auth": map[string]any{"client_token": "root-token"},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGetSecretField(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	c, err := NewClient(ctx, WithAddress(srv.URL), WithToken("root-token"))
	require.NoError(t, err)

	v, err := c.GetSecretField(ctx, "kv/data/backup", "passphrase")
	require.NoError(t, err)
	assert.Equal(t, "v2-secret", v)

	v, err = c.GetSecretField(ctx, "kv/data/backup", "pin")
	require.NoError(t, err)
	assert.Equal(t, "1234", v)

	v, err = c.GetSecretField(ctx, "secret/backup", "passphrase")
	require.NoError(t, err)
	assert.Equal(t, "v1-secret", v)
}

func TestGetSecretField_NotFound(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	c, err := NewClient(ctx, WithAddress(srv.URL), WithToken("root-token"))
	require.NoError(t, err)

	_, err = c.GetSecretField(ctx, "kv/data/backup", "missing")
	assert.True(t, errors.Is(err, ErrSecretNotFound))

	_, err = c.GetSecretField(ctx, "kv/data/nothing", "passphrase")
	assert.Error(t, err)
}

func TestNewClient_AppRole(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	c, err := NewClient(ctx, WithAddress(srv.URL), WithAppRole("role-id", "backup"))
	require.NoError(t, err)

	v, err := c.GetSecretField(ctx, "kv/data/backup", "passphrase")
	require.NoError(t, err)
	assert.Equal(t, "v2-secret", v)
}
