package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickita-khylkouski/ultrathink/internal/application/discovery"
	"github.com/nickita-khylkouski/ultrathink/internal/application/evolution"
	"github.com/nickita-khylkouski/ultrathink/internal/config"
	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/monitoring/logging"
	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/monitoring/prometheus"
)

func newTestRouter(t *testing.T, rps int) *gin.Engine {
	t.Helper()
	cfg := config.EngineConfig{
		DefaultOffspring: 50,
		DefaultTopN:      5,
		Workers:          2,
		MaxBatchSize:     100,
	}
	m := prometheus.NewMetrics("test")
	log := logging.NewNopLogger()
	return NewRouter(RouterConfig{
		Mode:         gin.TestMode,
		Discovery:    discovery.NewService(cfg, m, log),
		Evolution:    evolution.NewService(cfg, m, log),
		Metrics:      m,
		Logger:       log,
		RateLimitRPS: rps,
	})
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dest))
}

func TestScoreEndpoint(t *testing.T) {
	r := newTestRouter(t, 0)

	w := doJSON(t, r, http.MethodPost, "/api/v1/discovery/score", gin.H{
		"smiles": []string{"CC(=O)Oc1ccccc1C(=O)O", "C1CC"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp discovery.ScoreResponse
	decode(t, w, &resp)
	assert.Equal(t, 1, resp.Scored)
	assert.Equal(t, 1, resp.Failed)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "MOL_002", resp.Results[1].Error.Code)
}

func TestScoreEndpointBadBody(t *testing.T) {
	r := newTestRouter(t, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/discovery/score",
		bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]interface{}
	decode(t, w, &body)
	assert.Equal(t, "COMMON_002", body["code"])
}

func TestScoreEndpointEmptyBatch(t *testing.T) {
	r := newTestRouter(t, 0)
	w := doJSON(t, r, http.MethodPost, "/api/v1/discovery/score", gin.H{"smiles": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTargetEndpoints(t *testing.T) {
	r := newTestRouter(t, 0)

	w := doJSON(t, r, http.MethodGet, "/api/v1/targets", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Targets []discovery.Target `json:"targets"`
	}
	decode(t, w, &list)
	assert.Len(t, list.Targets, 5)

	w = doJSON(t, r, http.MethodPost, "/api/v1/targets/cancer/score?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp discovery.ScoreResponse
	decode(t, w, &resp)
	assert.Equal(t, 2, resp.Scored)
}

func TestSimilarityEndpoint(t *testing.T) {
	r := newTestRouter(t, 0)

	w := doJSON(t, r, http.MethodPost, "/api/v1/tools/similarity", gin.H{
		"smiles_a": "CCO", "smiles_b": "OCC",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var resp discovery.SimilarityResult
	decode(t, w, &resp)
	assert.Equal(t, 1.0, resp.TanimotoSimilarity)

	w = doJSON(t, r, http.MethodPost, "/api/v1/tools/similarity", gin.H{
		"smiles_a": "C1CC", "smiles_b": "CCO",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEvolutionFlow(t *testing.T) {
	r := newTestRouter(t, 0)

	w := doJSON(t, r, http.MethodPost, "/api/v1/evolution/lineages", gin.H{
		"seed_smiles": "CCO",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var lin evolution.LineageView
	decode(t, w, &lin)
	require.NotEmpty(t, lin.ID)

	w = doJSON(t, r, http.MethodPost, "/api/v1/evolution/generations", gin.H{
		"lineage_id": lin.ID, "seed": 42,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var gen evolution.GenerationView
	decode(t, w, &gen)
	require.NotEmpty(t, gen.Candidates)

	path := fmt.Sprintf("/api/v1/evolution/lineages/%s/accept", lin.ID)
	w = doJSON(t, r, http.MethodPost, path, gin.H{"smiles": gen.Candidates[0].SMILES})
	require.Equal(t, http.StatusOK, w.Code)
	var accepted evolution.LineageView
	decode(t, w, &accepted)
	assert.Equal(t, gen.Candidates[0].SMILES, accepted.CurrentSMILES)

	w = doJSON(t, r, http.MethodGet, "/api/v1/evolution/lineages/"+string(lin.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got evolution.LineageView
	decode(t, w, &got)
	assert.Equal(t, uint(2), got.NextGenerationIndex)
}

func TestEvolutionErrors(t *testing.T) {
	r := newTestRouter(t, 0)

	w := doJSON(t, r, http.MethodPost, "/api/v1/evolution/generations", gin.H{
		"parent_smiles": "C1CC", "seed": 1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]interface{}
	decode(t, w, &body)
	assert.Equal(t, "MOL_002", body["code"])

	w = doJSON(t, r, http.MethodGet, "/api/v1/evolution/lineages/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	decode(t, w, &body)
	assert.Equal(t, "LIN_002", body["code"])
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	r := newTestRouter(t, 0)

	w := doJSON(t, r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	// Exercise a scoring call first so counters exist in the exposition.
	doJSON(t, r, http.MethodPost, "/api/v1/discovery/score", gin.H{"smiles": []string{"CCO"}})
	w = doJSON(t, r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_molecules_parsed_total")
}

func TestRateLimit(t *testing.T) {
	r := newTestRouter(t, 2)

	limited := false
	for i := 0; i < 10; i++ {
		w := doJSON(t, r, http.MethodGet, "/api/v1/targets", nil)
		if w.Code == http.StatusTooManyRequests {
			limited = true
		}
	}
	assert.True(t, limited, "burst beyond the budget should trip the limiter")

	// Operational endpoints bypass the limiter.
	w := doJSON(t, r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
