package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AttachReferralRequest is the body of POST /referrals.
type AttachReferralRequest struct {
	Minter   string `json:"minter" binding:"required"`
	Referrer string `json:"referrer" binding:"required"`
}

// AttachReferral stores a first-touch referrer. Repeated calls keep the first
// referrer and answer 200 instead of 201.
func (h *Handler) AttachReferral(c *gin.Context) {
	var req AttachReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	attachment, created, err := h.svc.AttachReferral(c.Request.Context(), req.Minter, req.Referrer)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, attachment)
}

func (h *Handler) GetReferral(c *gin.Context) {
	attachment, err := h.svc.GetReferral(c.Request.Context(), c.Param("minter"))
	if err != nil {
		respondError(c, err)
		return
	}
	if attachment == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Referral not found"})
		return
	}
	c.JSON(http.StatusOK, attachment)
}

func (h *Handler) ClearReferral(c *gin.Context) {
	removed, err := h.svc.ClearReferral(c.Request.Context(), c.Param("minter"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "Referral not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Referral cleared successfully"})
}
