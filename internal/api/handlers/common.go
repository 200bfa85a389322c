package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/theravid/theravid/internal/utils"
)

// APIError is the error body clients parse: "error" carries the short
// user-facing message, "detail" the underlying cause when one exists.
type APIError struct {
	Code   utils.Code `json:"code"`
	Error  string     `json:"error"`
	Detail string     `json:"detail,omitempty"`
}

func writeError(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)

	var ae *utils.AppError
	if errors.As(err, &ae) {
		body := APIError{Code: ae.Code, Error: ae.Message}
		if ae.Err != nil {
			body.Detail = ae.Err.Error()
		}
		c.JSON(status, body)
		return
	}

	c.JSON(status, APIError{
		Code:  utils.CodeInternal,
		Error: http.StatusText(status),
	})
}

func requireUserID(c *gin.Context) (string, bool) {
	if v, ok := c.Get("user_id"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}

	writeError(c, utils.E(utils.CodeUnauthorized, "Auth", "unauthorized", nil))
	return "", false
}

// optionalUserID is for public endpoints that record ownership when known.
func optionalUserID(c *gin.Context) string {
	if v, ok := c.Get("user_id"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
