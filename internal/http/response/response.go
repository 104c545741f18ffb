package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/postbridge-backend/internal/platform/apierr"
)

// ErrorCodeKey is the gin context key holding the code of a failed request.
const ErrorCodeKey = "error_code"

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAPIError writes e using its user-facing message. Causes of server
// errors are never echoed to the client.
func RespondAPIError(c *gin.Context, e *apierr.Error) {
	if e == nil {
		e = apierr.New(http.StatusInternalServerError, "internal_error", nil)
	}
	msg := e.Message
	if msg == "" {
		if e.Status < http.StatusInternalServerError && e.Err != nil {
			msg = e.Err.Error()
		} else {
			msg = http.StatusText(e.Status)
		}
	}
	c.Set(ErrorCodeKey, e.Code)
	c.JSON(e.Status, ErrorEnvelope{Error: APIError{Message: msg, Code: e.Code}})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
