package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Noopy420/hedera-intel-agent/internal/registry"
	"github.com/Noopy420/hedera-intel-agent/internal/store"
	"github.com/Noopy420/hedera-intel-agent/internal/transport"
)

func newTestServer(t *testing.T, deps Deps) *httptest.Server {
	t.Helper()
	if deps.Registry == nil {
		deps.Registry = registry.New(transport.NewMemoryTransport())
	}
	deps.OperatorID = "0.0.100@0.0.200"
	deps.Network = "testnet"
	deps.StartedAt = time.Now()
	srv := httptest.NewServer(NewRouter(zerolog.Nop(), deps))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestRootEndpoint(t *testing.T) {
	srv := newTestServer(t, Deps{})

	var body RootResponse
	status := getJSON(t, srv.URL+"/", &body)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "hedera-intel-agent", body.Name)
	require.Equal(t, "0.0.100@0.0.200", body.OperatorID)
	require.Equal(t, "testnet", body.Network)
}

func TestHealthWithoutStores(t *testing.T) {
	srv := newTestServer(t, Deps{})

	var body HealthResponse
	status := getJSON(t, srv.URL+"/health", &body)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "healthy", body.Status)
	require.Equal(t, "pass", body.Checks["redis"].Status)
	require.Equal(t, "not configured", body.Checks["redis"].Message)
	require.Equal(t, "pass", body.Checks["database"].Status)
}

func TestConnectionsReflectRegistry(t *testing.T) {
	mem := transport.NewMemoryTransport()
	reg := registry.New(mem)
	srv := newTestServer(t, Deps{Registry: reg})

	var body ConnectionsResponse
	status := getJSON(t, srv.URL+"/connections", &body)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 0, body.Count)

	_, _, err := reg.Open(context.Background(), "0.0.1@0.0.2")
	require.NoError(t, err)

	status = getJSON(t, srv.URL+"/connections", &body)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, body.Count)
	require.Equal(t, "0.0.1@0.0.2", body.Connections[0].PeerOperatorID)
}

func TestConnectionHistoryNotConfigured(t *testing.T) {
	srv := newTestServer(t, Deps{})

	var body map[string]string
	status := getJSON(t, srv.URL+"/connections/history", &body)
	require.Equal(t, http.StatusNotFound, status)
	require.Contains(t, body["error"], "not configured")
}

func TestConnectionHistoryListsAuditRows(t *testing.T) {
	audit, err := store.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "agent.db"))
	require.NoError(t, err)
	t.Cleanup(audit.Close)

	mem := transport.NewMemoryTransport()
	reg := registry.New(mem)
	conn, _, err := reg.Open(context.Background(), "peer@0.0.7")
	require.NoError(t, err)
	_, err = audit.RecordConnection(context.Background(), conn)
	require.NoError(t, err)

	srv := newTestServer(t, Deps{Registry: reg, Audit: audit})

	var body HistoryResponse
	status := getJSON(t, srv.URL+"/connections/history", &body)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body.Connections, 1)
	require.Equal(t, "peer@0.0.7", body.Connections[0].PeerOperatorID)
}

func TestTopicMessagesNotConfigured(t *testing.T) {
	srv := newTestServer(t, Deps{})

	var body map[string]string
	status := getJSON(t, srv.URL+"/messages/0.0.5", &body)
	require.Equal(t, http.StatusNotFound, status)
	require.Contains(t, body["error"], "not configured")
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t, Deps{})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
}
