// Package handlers implements the gin HTTP handlers for the Nimbus API.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nimbusworks/nimbus/pkg/constants"
	apperrors "github.com/nimbusworks/nimbus/pkg/errors"

	"github.com/nimbusworks/nimbus/internal/application/dto"
)

func requestID(c *gin.Context) string {
	value, _ := c.Get(string(constants.ContextKeyRequestID))
	s, _ := value.(string)
	return s
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, dto.SuccessResponse(data, requestID(c)))
}

func respondError(c *gin.Context, err error) {
	c.JSON(apperrors.StatusOf(err), dto.ErrorResponse(err, requestID(c)))
}

func respondInvalidBody(c *gin.Context, err error) {
	respondError(c, apperrors.ErrInvalidRequest("invalid request body").WithCause(err))
}

// pagination reads limit/offset query parameters with bounds applied.
func pagination(c *gin.Context) (limit, offset int) {
	limit = constants.DefaultPageSize
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > constants.MaxPageSize {
		limit = constants.MaxPageSize
	}
	if raw := c.Query("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}

func respondList(c *gin.Context, items any, limit, offset int, total int64) {
	respond(c, http.StatusOK, dto.ListResponse{
		Items: items,
		Pagination: dto.PaginationResponse{
			Limit:  limit,
			Offset: offset,
			Total:  total,
		},
	})
}
