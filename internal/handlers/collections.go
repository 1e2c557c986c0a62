package handlers

import (
	"net/http"

	"niftacore/internal/ledger"
	"niftacore/internal/mint"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

var allowedSorts = map[string]bool{
	ledger.SortNewest:     true,
	ledger.SortOldest:     true,
	ledger.SortMostMinted: true,
	ledger.SortEndingSoon: true,
}

// CreateCollection registers a collection for a creator.
func (h *Handler) CreateCollection(c *gin.Context) {
	var req mint.CreateCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := h.svc.CreateCollection(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, state)
}

// ListCollections returns a page of collections for the explore view.
func (h *Handler) ListCollections(c *gin.Context) {
	sort := c.DefaultQuery("sort", ledger.SortNewest)
	if !allowedSorts[sort] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sort must be one of newest, oldest, most_minted, ending_soon"})
		return
	}
	page := queryInt(c, "page", 1, 0)
	pageSize := queryInt(c, "page_size", ledger.DefaultPageSize, ledger.MaxPageSize)

	items, total, err := h.svc.ListCollections(c.Request.Context(), sort, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       items,
		"pagination": pagination(page, pageSize, total),
	})
}

// GetCollection returns the current state of one collection.
func (h *Handler) GetCollection(c *gin.Context) {
	state, err := h.svc.GetCollectionState(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// Mint mints tokens of a collection and returns the receipt.
func (h *Handler) Mint(c *gin.Context) {
	var req mint.MintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.CollectionID = c.Param("id")
	if req.ReferrerHint == "" {
		req.ReferrerHint = c.Query("ref")
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	receipt, err := h.svc.Mint(c.Request.Context(), req)
	if err != nil {
		log.WithFields(log.Fields{
			"collection_id": req.CollectionID,
			"minter":        req.Minter,
			"quantity":      req.Quantity,
		}).Warnf("Mint rejected: %v", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, receipt)
}

// ListReceipts returns the latest receipts of a collection.
func (h *Handler) ListReceipts(c *gin.Context) {
	limit := queryInt(c, "limit", ledger.DefaultPageSize, ledger.MaxPageSize)
	receipts, err := h.svc.ListReceipts(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": receipts})
}

// ListTransitions returns the phase history of a collection.
func (h *Handler) ListTransitions(c *gin.Context) {
	transitions, err := h.svc.ListTransitions(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": transitions})
}
