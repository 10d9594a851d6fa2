package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/vinyl-exchange/internal/models"
	"github.com/codyseavey/vinyl-exchange/internal/services"
)

type PolicyHandler struct {
	policies *services.PolicyService
	audits   *services.AuditService
}

func NewPolicyHandler(policies *services.PolicyService, audits *services.AuditService) *PolicyHandler {
	return &PolicyHandler{
		policies: policies,
		audits:   audits,
	}
}

// ListPolicies returns all policies. ?active=true limits to active ones.
func (h *PolicyHandler) ListPolicies(c *gin.Context) {
	policies, err := h.policies.List(c.Request.Context(), c.Query("active") == "true")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, policies)
}

func (h *PolicyHandler) GetPolicy(c *gin.Context) {
	detail, err := h.policies.GetDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *PolicyHandler) CreatePolicy(c *gin.Context) {
	var req models.PolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	policy, err := h.policies.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, policy)
}

// UpdatePolicy applies a partial update and bumps the policy version
func (h *PolicyHandler) UpdatePolicy(c *gin.Context) {
	var req models.PolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	policy, err := h.policies.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, policy)
}

// SetDiscounts replaces the per-condition discounts of a policy
func (h *PolicyHandler) SetDiscounts(c *gin.Context) {
	var req models.SetDiscountsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	discounts, err := h.policies.SetDiscounts(c.Request.Context(), c.Param("id"), req.Discounts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"discounts": discounts})
}

// GetPolicyAudits pages through the audit records written under a policy
func (h *PolicyHandler) GetPolicyAudits(c *gin.Context) {
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if _, err := h.policies.Get(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	page, err := h.audits.ListForPolicy(c.Request.Context(), id, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
