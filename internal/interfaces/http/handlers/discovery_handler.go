package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nickita-khylkouski/ultrathink/internal/application/discovery"
)

// DiscoveryHandler serves batch scoring, target libraries, and the
// similarity tool.
type DiscoveryHandler struct {
	svc *discovery.Service
}

// NewDiscoveryHandler constructs the handler.
func NewDiscoveryHandler(svc *discovery.Service) *DiscoveryHandler {
	return &DiscoveryHandler{svc: svc}
}

// Score handles POST /api/v1/discovery/score.
func (h *DiscoveryHandler) Score(c *gin.Context) {
	var req discovery.ScoreRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.svc.ScoreBatch(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListTargets handles GET /api/v1/targets.
func (h *DiscoveryHandler) ListTargets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"targets": discovery.Targets()})
}

// ScoreTarget handles POST /api/v1/targets/:name/score.  An optional
// ?limit=n caps how many library seeds are scored.
func (h *DiscoveryHandler) ScoreTarget(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	resp, err := h.svc.ScoreTarget(c.Request.Context(), c.Param("name"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// similarityRequest is the POST /api/v1/tools/similarity body.
type similarityRequest struct {
	SMILESA string `json:"smiles_a"`
	SMILESB string `json:"smiles_b"`
}

// Similarity handles POST /api/v1/tools/similarity.
func (h *DiscoveryHandler) Similarity(c *gin.Context) {
	var req similarityRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.svc.Similarity(c.Request.Context(), req.SMILESA, req.SMILESB)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
