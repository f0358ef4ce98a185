package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smuassist/learnmate/knowledge"
)

func newHTTPTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	doc := `{"title": "IS621 Syllabus", "text": "Agile and DevSecOps curriculum overview."}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "syllabus.json"), []byte(doc), 0o644))

	s, err := New(Config{Addr: ":0", DataDir: dir})
	require.NoError(t, err)
	return s
}

func doJSON(s *Server, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestSearchEndpoint(t *testing.T) {
	s := newHTTPTestServer(t)

	rec := doJSON(s, http.MethodPost, "/search", `{"query": "agile devsecops curriculum"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result knowledge.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.HasKnowledge)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "IS621 Syllabus", result.Results[0].Title)
}

func TestSearchEndpointRequiresQuery(t *testing.T) {
	s := newHTTPTestServer(t)

	rec := doJSON(s, http.MethodPost, "/search", `{"query": ""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(s, http.MethodPost, "/search", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	s := newHTTPTestServer(t)

	rec := doJSON(s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status        string `json:"status"`
		DocumentCount int    `json:"document_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 1, body.DocumentCount)
}
