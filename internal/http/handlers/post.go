package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/postbridge-backend/internal/domain"
	"github.com/yungbote/postbridge-backend/internal/http/response"
	"github.com/yungbote/postbridge-backend/internal/platform/apierr"
	"github.com/yungbote/postbridge-backend/internal/services"
)

type PostHandler struct {
	ingestion services.IngestionService
}

func NewPostHandler(ingestion services.IngestionService) *PostHandler {
	return &PostHandler{ingestion: ingestion}
}

// POST /ingest
func (h *PostHandler) Ingest(c *gin.Context) {
	var post domain.Post
	if err := c.ShouldBindJSON(&post); err != nil {
		response.RespondAPIError(c, apierr.New(http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid post payload: %w", err)))
		return
	}
	if err := h.ingestion.Upsert(c.Request.Context(), post); err != nil {
		response.RespondAPIError(c, services.ClassifyError(err).WithMessage(""))
		return
	}
	response.RespondOK(c, gin.H{"status": "indexed"})
}

// DELETE /delete/:post_id
func (h *PostHandler) Delete(c *gin.Context) {
	if err := h.ingestion.Delete(c.Request.Context(), c.Param("post_id")); err != nil {
		response.RespondAPIError(c, services.ClassifyError(err).WithMessage(""))
		return
	}
	response.RespondOK(c, gin.H{"status": "deleted"})
}
