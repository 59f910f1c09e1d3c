package routes

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/governed-notebook/app"
	"github.com/upb/governed-notebook/config"
	"github.com/upb/governed-notebook/middleware"
	"github.com/upb/governed-notebook/models"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const secret = "s3cret"

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE customers_anonymized (id INTEGER PRIMARY KEY, city TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO customers_anonymized VALUES (1, 'Tehran'), (2, 'Shiraz')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	cfg := &config.Config{
		Session: models.NewSessionContext("alice", "lab"),
		DataDatabase: &config.DatabaseConfig{
			ConnectionString: "sqlite:" + path,
			MaxOpenConns:     1,
			MaxIdleConns:     1,
		},
		Kernel:        config.KernelConfig{AuditWriteTimeout: time.Second},
		Auth:          config.AuthConfig{TokenSecret: secret},
		Observability: config.ObservabilityConfig{LogLevel: "info", MetricsEnabled: true},
	}

	deps, err := app.NewDependencies(context.Background(), cfg, zap.NewNop(), nil)
	require.NoError(t, err)

	srv := httptest.NewServer(SetupRoutes(deps))
	t.Cleanup(func() {
		srv.Close()
		deps.Close(context.Background())
	})
	return srv
}

func token(t *testing.T, user string) string {
	t.Helper()
	tok, err := middleware.IssueToken(secret, user, "lab", time.Minute)
	require.NoError(t, err)
	return tok
}

func do(t *testing.T, method, url, tok, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthEndpoints(t *testing.T) {
	srv := newServer(t)

	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/healthz", "", "").StatusCode)

	resp := do(t, http.MethodGet, srv.URL+"/readyz", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"data_store":"healthy"`)
	assert.NotContains(t, string(body), "audit_store")

	assert.NotEmpty(t, resp.Header.Get("Content-Type"))
}

func TestCellEndpoint(t *testing.T) {
	srv := newServer(t)
	url := srv.URL + "/api/v1/cells"

	t.Run("requires a token", func(t *testing.T) {
		resp := do(t, http.MethodPost, url, "", `{"code":"1"}`)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("rejects other users", func(t *testing.T) {
		resp := do(t, http.MethodPost, url, token(t, "bob"), `{"code":"1"}`)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("runs a governed query", func(t *testing.T) {
		tok := token(t, "alice")
		require.Equal(t, http.StatusOK, do(t, http.MethodPost, url, tok, `{"code":"import \"governed\""}`).StatusCode)

		resp := do(t, http.MethodPost, url, tok, `{"code":"governed.Username()"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var out struct {
			Data struct {
				Status string  `json:"status"`
				Value  *string `json:"value"`
			} `json:"data"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.Equal(t, "success", out.Data.Status)
		require.NotNil(t, out.Data.Value)
		assert.Equal(t, "alice", *out.Data.Value)
	})
}

func TestAuditEndpoints_NotConfigured(t *testing.T) {
	srv := newServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/api/v1/audit/stats", token(t, "alice"), "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newServer(t)

	require.Equal(t, http.StatusOK, do(t, http.MethodPost, srv.URL+"/api/v1/cells", token(t, "alice"), `{"code":"1"}`).StatusCode)

	resp := do(t, http.MethodGet, srv.URL+"/metrics", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `notebook_cells_total{status="success"} 1`)
}

func TestNotFound(t *testing.T) {
	srv := newServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/nope", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
