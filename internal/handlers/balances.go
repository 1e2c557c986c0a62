package handlers

import (
	"net/http"

	"niftacore/pkg/utils"

	"github.com/gin-gonic/gin"
)

// GetBalance returns the accumulated payouts of an address in wei.
func (h *Handler) GetBalance(c *gin.Context) {
	address := c.Param("address")
	amount, err := h.svc.GetBalance(c.Request.Context(), address)
	if err != nil {
		respondError(c, err)
		return
	}
	normalized, _ := utils.NormalizeAddress(address)
	c.JSON(http.StatusOK, gin.H{
		"address":    normalized,
		"amount_wei": amount,
	})
}

// StreamMints upgrades to a websocket that receives every committed receipt.
// An optional collection_id query parameter narrows the stream.
func (h *Handler) StreamMints(c *gin.Context) {
	h.hub.ServeWS(c.Writer, c.Request)
}
