package util

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SuccessResponse is a generic response for a successful operation
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse is the fixed error body returned by every entry point
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Step    string `json:"step,omitempty"`
}

// ErrResponse aborts the request with the given status and error body
func ErrResponse(c *gin.Context, code int, err error) {
	c.Error(err)
	c.AbortWithStatusJSON(code, ErrorResponse{Error: err.Error()})
}

// ErrStepResponse is ErrResponse with the pipeline step that failed attached
func ErrStepResponse(c *gin.Context, code int, err error, step string) {
	c.Error(err)
	c.AbortWithStatusJSON(code, ErrorResponse{Error: err.Error(), Step: step})
}

// HealthCheckHandler returns a handler for service liveness checks
func HealthCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, SuccessResponse{Success: true})
	}
}

// GetErrFromResp reads an upstream error body into an error
func GetErrFromResp(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("%s: %s", resp.Status, body)
}

// Contains reports whether s contains str
func Contains[T comparable](s []T, str T) bool {
	for _, v := range s {
		if v == str {
			return true
		}
	}
	return false
}

// FindFirst returns the first element of s satisfying pred
func FindFirst[T any](s []T, pred func(T) bool) (T, bool) {
	for _, v := range s {
		if pred(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// MinInt returns the smaller of two ints
func MinInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
