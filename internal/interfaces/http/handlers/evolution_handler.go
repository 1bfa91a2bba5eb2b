package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nickita-khylkouski/ultrathink/internal/application/evolution"
	"github.com/nickita-khylkouski/ultrathink/pkg/types/common"
)

// EvolutionHandler serves lineage sessions and generation runs.
type EvolutionHandler struct {
	svc *evolution.Service
}

// NewEvolutionHandler constructs the handler.
func NewEvolutionHandler(svc *evolution.Service) *EvolutionHandler {
	return &EvolutionHandler{svc: svc}
}

// StartLineage handles POST /api/v1/evolution/lineages.
func (h *EvolutionHandler) StartLineage(c *gin.Context) {
	var req evolution.StartLineageRequest
	if !bindJSON(c, &req) {
		return
	}
	view, err := h.svc.StartLineage(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// GetLineage handles GET /api/v1/evolution/lineages/:id.
func (h *EvolutionHandler) GetLineage(c *gin.Context) {
	view, err := h.svc.GetLineage(c.Request.Context(), common.ID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// RunGeneration handles POST /api/v1/evolution/generations.
func (h *EvolutionHandler) RunGeneration(c *gin.Context) {
	var req evolution.GenerationRequest
	if !bindJSON(c, &req) {
		return
	}
	view, err := h.svc.RunGeneration(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Accept handles POST /api/v1/evolution/lineages/:id/accept.  The lineage
// comes from the path; the body names the candidate.
func (h *EvolutionHandler) Accept(c *gin.Context) {
	var req evolution.AcceptRequest
	if !bindJSON(c, &req) {
		return
	}
	req.LineageID = common.ID(c.Param("id"))
	view, err := h.svc.Accept(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
