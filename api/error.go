package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fwdask/fwdask/engine"
	"github.com/fwdask/fwdask/flow"
	"github.com/gin-gonic/gin"
)

var (
	ErrInvalid  = &Error{statusCode: http.StatusBadRequest, Code: ErrCodeInvalid, Msg: "object invalid"}
	ErrNotFound = &Error{statusCode: http.StatusNotFound, Code: ErrCodeNotFound, Msg: "object not found"}
)

const (
	ErrCodeInvalid            = 40001
	ErrCodeNotFound           = 40004
	ErrCodeInternal           = 50000
	ErrCodeConfirmationFailed = 50001
	ErrCodeEngineClosed       = 50002
	ErrCodeDigestUnavailable  = 50003
	ErrCodeCanceled           = 50004
)

// Error is an api error.
type Error struct {
	statusCode int
	Code       int    `json:"code"`
	Msg        string `json:"msg"`
}

func NewError(status, code int, msg string) error {
	return &Error{
		statusCode: status,
		Code:       code,
		Msg:        msg,
	}
}

func (e *Error) Error() string {
	b, _ := json.Marshal(e)
	return string(b)
}

func writeError(c *gin.Context, err error) {
	c.JSON(getStatusCode(err), err)
}

func getStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if e, ok := err.(*Error); ok {
		if e.statusCode >= http.StatusOK && e.statusCode < 600 {
			return e.statusCode
		}
	}
	return http.StatusInternalServerError
}

// engineError maps the engine's fatal errors to api errors. None of them
// carries a verdict.
func engineError(err error) error {
	switch {
	case errors.Is(err, engine.ErrEngineClosed):
		return NewError(http.StatusServiceUnavailable, ErrCodeEngineClosed, err.Error())
	case errors.Is(err, engine.ErrConfirmationFailed):
		return NewError(http.StatusBadGateway, ErrCodeConfirmationFailed, err.Error())
	case errors.Is(err, flow.ErrDigestUnavailable):
		return NewError(http.StatusInternalServerError, ErrCodeDigestUnavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return NewError(http.StatusGatewayTimeout, ErrCodeCanceled, err.Error())
	}
	return NewError(http.StatusInternalServerError, ErrCodeInternal, err.Error())
}
