package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/vinyl-exchange/internal/services"
)

type ConditionHandler struct {
	conditions *services.ConditionService
}

func NewConditionHandler(conditions *services.ConditionService) *ConditionHandler {
	return &ConditionHandler{conditions: conditions}
}

// ListConditions returns all condition tiers, best first
func (h *ConditionHandler) ListConditions(c *gin.Context) {
	tiers, err := h.conditions.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tiers)
}
