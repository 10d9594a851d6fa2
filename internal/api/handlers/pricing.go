package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/vinyl-exchange/internal/models"
	"github.com/codyseavey/vinyl-exchange/internal/services"
)

type PricingHandler struct {
	quotes     *services.QuoteService
	conditions *services.ConditionService
}

func NewPricingHandler(quotes *services.QuoteService, conditions *services.ConditionService) *PricingHandler {
	return &PricingHandler{
		quotes:     quotes,
		conditions: conditions,
	}
}

// Quote returns a buy offer and a sell price for a release in the given condition
func (h *PricingHandler) Quote(c *gin.Context) {
	var req models.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Reject unknown grades here; the engine would silently treat them as neutral
	if err := h.conditions.ValidateConditions(c.Request.Context(), req.ConditionMedia, req.ConditionSleeve); err != nil {
		respondError(c, err)
		return
	}

	quote, err := h.quotes.Quote(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// Calculate prices one side of a trade
func (h *PricingHandler) Calculate(c *gin.Context) {
	var req models.CalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.CalculationType.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "calculation_type must be buy_offer or sell_price", "field": "calculation_type"})
		return
	}

	if err := h.conditions.ValidateConditions(c.Request.Context(), req.ConditionMedia, req.ConditionSleeve); err != nil {
		respondError(c, err)
		return
	}

	result, err := h.quotes.Calculate(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
