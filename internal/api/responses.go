package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mvp-joe/schema-sync/internal/storage"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Status bool   `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
	Code   int    `json:"code,omitempty"`
}

func success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, Response{
		Status: true,
		Data:   data,
	})
}

func fail(c *gin.Context, statusCode int, err error) {
	resp := Response{
		Status: false,
		Code:   statusCode,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	c.AbortWithStatusJSON(statusCode, resp)
}

// statusFor maps store errors to HTTP status codes.
func statusFor(err error) int {
	if errors.Is(err, storage.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
