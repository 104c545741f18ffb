package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/postbridge-backend/internal/platform/apierr"
)

func TestRespondAPIErrorHidesServerCauses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	RespondAPIError(c, apierr.New(http.StatusBadGateway, "upstream_unavailable", errors.New("pinecone: api key sk-123 rejected")))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status: got=%d", rec.Code)
	}
	var env ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Code != "upstream_unavailable" || env.Error.Message != "Bad Gateway" {
		t.Fatalf("envelope: got=%+v", env)
	}
	if code, _ := c.Get(ErrorCodeKey); code != "upstream_unavailable" {
		t.Fatalf("error code not recorded on context")
	}
}

func TestRespondAPIErrorUsesMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	RespondAPIError(c, apierr.New(http.StatusBadRequest, "missing_required_field", errors.New("missing required field: _id")))

	var env ErrorEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	if env.Error.Message != "missing required field: _id" {
		t.Fatalf("message: got=%q", env.Error.Message)
	}
}
