// Package handlers exposes the mint service over gin.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"niftacore/internal/events"
	"niftacore/internal/mint"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Handler binds HTTP requests to the mint service and the live event hub.
type Handler struct {
	svc *mint.Service
	hub *events.Hub
}

func New(svc *mint.Service, hub *events.Hub) *Handler {
	return &Handler{svc: svc, hub: hub}
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, mint.ErrCollectionNotFound):
		return http.StatusNotFound
	case errors.Is(err, mint.ErrInvalidPayment),
		errors.Is(err, mint.ErrInvalidQuantity),
		errors.Is(err, mint.ErrInvalidAddress),
		errors.Is(err, mint.ErrInvalidCollection),
		errors.Is(err, mint.ErrSelfReferralRejected):
		return http.StatusBadRequest
	case errors.Is(err, mint.ErrMintingEnded):
		return http.StatusGone
	case errors.Is(err, mint.ErrPaymentCaptureFailed):
		return http.StatusPaymentRequired
	case errors.Is(err, mint.ErrConcurrencyConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Errorf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// queryInt returns the positive integer query parameter or def.
func queryInt(c *gin.Context, key string, def, max int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < 1 {
		return def
	}
	if max > 0 && parsed > max {
		return max
	}
	return parsed
}

func pagination(page, pageSize int, total int64) gin.H {
	totalPages := (total + int64(pageSize) - 1) / int64(pageSize)
	return gin.H{
		"current_page": page,
		"page_size":    pageSize,
		"total_pages":  totalPages,
		"total_count":  total,
		"has_next":     page < int(totalPages),
		"has_prev":     page > 1,
	}
}

// Health reports liveness.
func Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}
