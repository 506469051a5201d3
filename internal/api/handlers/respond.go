package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"community-load/internal/api/models"
	"community-load/internal/store"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// respondStoreError maps store.ErrNotFound to 404 and anything else to 500.
func respondStoreError(c *gin.Context, err error, what string) {
	if errors.Is(err, store.ErrNotFound) {
		respondError(c, http.StatusNotFound, "NOT_FOUND", what+" not found")
		return
	}
	log.Printf("[API] store error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	respondError(c, http.StatusInternalServerError, "STORE_ERROR", err.Error())
}

func configID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "config id must be a positive integer")
		return 0, false
	}
	return id, true
}
