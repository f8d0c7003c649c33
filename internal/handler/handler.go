// Package handler contains the gin HTTP handlers of the API.
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jharte/mobility-backend-go/pkg/response"
)

// paginated sends a list response with pagination info
func paginated(c *gin.Context, data interface{}, total int64, page, pageSize int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 100
	}
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	response.Success(c, gin.H{
		"data":       data,
		"total":      total,
		"page":       page,
		"pageSize":   pageSize,
		"totalPages": totalPages,
	})
}

// pathID parses the :id route parameter
func pathID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
