package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/postbridge-backend/internal/domain"
	"github.com/yungbote/postbridge-backend/internal/http/response"
	"github.com/yungbote/postbridge-backend/internal/platform/apierr"
	"github.com/yungbote/postbridge-backend/internal/services"
)

type AskRequest struct {
	Query         string `json:"query"`
	CurrentPostID string `json:"current_post_id"`
}

type AskHandler struct {
	ask services.AskService
}

func NewAskHandler(ask services.AskService) *AskHandler {
	return &AskHandler{ask: ask}
}

// POST /ask
// The body is always a StructuredAnswer; failures carry the fallback envelope
// with a non-2xx status.
func (h *AskHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Set(response.ErrorCodeKey, "invalid_request")
		c.JSON(http.StatusBadRequest, domain.TextAnswer(services.MsgEmptyQuery))
		return
	}
	ans, err := h.ask.Ask(c.Request.Context(), req.Query, req.CurrentPostID)
	if err != nil {
		ae := apierr.From(err)
		c.Set(response.ErrorCodeKey, ae.Code)
		if ans == nil {
			ans = domain.TextAnswer(services.MsgGeneric)
		}
		c.JSON(ae.Status, ans)
		return
	}
	response.RespondOK(c, ans)
}
