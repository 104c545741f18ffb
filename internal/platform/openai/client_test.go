package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/yungbote/postbridge-backend/internal/platform/logger"
)

func TestEmbedSendsDimensionsAndOrdersByIndex(t *testing.T) {
	var captured embeddingsRequest
	c := newTestClient(t, Config{EmbedDimensions: 512}, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/v1/embeddings" {
			t.Fatalf("path: got=%s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Fatalf("authorization header missing")
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return jsonResponse(http.StatusOK, `{"data":[{"index":1,"embedding":[0.5]},{"index":0,"embedding":[0.25,0.75]}]}`), nil
	})

	got, err := c.Embed(context.Background(), []string{"first", "  "})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if captured.Dimensions != 512 || captured.Model != "text-embedding-3-small" {
		t.Fatalf("request: got=%+v", captured)
	}
	if captured.Input[1] != " " {
		t.Fatalf("blank input must be replaced, got=%q", captured.Input[1])
	}
	if len(got) != 2 || len(got[0]) != 2 || got[1][0] != 0.5 {
		t.Fatalf("vectors: got=%v", got)
	}
}

func TestEmbedEmptyInputMakesNoCall(t *testing.T) {
	c := newTestClient(t, Config{}, func(r *http.Request) (*http.Response, error) {
		t.Fatalf("no request expected")
		return nil, nil
	})
	got, err := c.Embed(context.Background(), nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("want empty result, got=%v err=%v", got, err)
	}
}

func TestGenerateJSONUsesStrictSchema(t *testing.T) {
	var captured map[string]any
	c := newTestClient(t, Config{}, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/v1/responses" {
			t.Fatalf("path: got=%s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		return jsonResponse(http.StatusOK, `{"output":[{"type":"message","content":[{"type":"output_text","text":"{\"type\":\"text\"}"}]}]}`), nil
	})

	out, err := c.GenerateJSON(context.Background(), "Answer.", "hello", "answer", map[string]any{"type": "object"})
	if err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if out != `{"type":"text"}` {
		t.Fatalf("output: got=%q", out)
	}
	format := captured["text"].(map[string]any)["format"].(map[string]any)
	if format["type"] != "json_schema" || format["strict"] != true || format["name"] != "answer" {
		t.Fatalf("format: got=%v", format)
	}
	input := captured["input"].([]any)
	system := input[0].(map[string]any)["content"].(string)
	if !strings.Contains(system, "POSTBRIDGE_PROMPT_STYLE_V1") {
		t.Fatalf("system prompt missing style block: %q", system)
	}
}

func TestGenerateTextRetriesOnServerError(t *testing.T) {
	calls := 0
	c := newTestClient(t, Config{MaxRetries: 2}, func(r *http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			resp := jsonResponse(http.StatusServiceUnavailable, `{"error":"busy"}`)
			resp.Header.Set("Retry-After", "0")
			return resp, nil
		}
		return jsonResponse(http.StatusOK, `{"output":[{"type":"message","content":[{"type":"output_text","text":"ok"}]}]}`), nil
	})
	out, err := c.GenerateText(context.Background(), "", "ping")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if out != "ok" || calls != 2 {
		t.Fatalf("out=%q calls=%d", out, calls)
	}
}

func TestGenerateTextDoesNotRetryClientError(t *testing.T) {
	calls := 0
	c := newTestClient(t, Config{MaxRetries: 3}, func(r *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(http.StatusUnauthorized, `{"error":"bad key"}`), nil
	})
	_, err := c.GenerateText(context.Background(), "", "ping")
	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusUnauthorized {
		t.Fatalf("want 401 HTTPError, got=%v", err)
	}
	if calls != 1 {
		t.Fatalf("calls: want=1 got=%d", calls)
	}
}

func TestTemperatureFallback(t *testing.T) {
	temp := 0.2
	var temps []any
	c := newTestClient(t, Config{Temperature: &temp}, func(r *http.Request) (*http.Response, error) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		temps = append(temps, body["temperature"])
		if body["temperature"] != nil {
			return jsonResponse(http.StatusBadRequest, `{"error":{"message":"Unsupported parameter: 'temperature' is not supported with this model."}}`), nil
		}
		return jsonResponse(http.StatusOK, `{"output":[{"type":"message","content":[{"type":"output_text","text":"ok"}]}]}`), nil
	})
	if _, err := c.GenerateText(context.Background(), "", "ping"); err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if len(temps) != 2 || temps[1] != nil {
		t.Fatalf("temperatures sent: %v", temps)
	}
	// the model is remembered; the next call skips temperature outright
	if _, err := c.GenerateText(context.Background(), "", "ping"); err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if len(temps) != 3 || temps[2] != nil {
		t.Fatalf("temperatures sent: %v", temps)
	}
}

func TestRefusalIsAnError(t *testing.T) {
	c := newTestClient(t, Config{}, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"output":[{"type":"message","content":[{"type":"refusal","refusal":"no"}]}]}`), nil
	})
	if _, err := c.GenerateText(context.Background(), "", "ping"); err == nil {
		t.Fatalf("expected refusal error")
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(logger.NewNop(), Config{}); err == nil {
		t.Fatalf("expected missing key error")
	}
}

func newTestClient(t *testing.T, cfg Config, roundTrip func(*http.Request) (*http.Response, error)) Client {
	t.Helper()
	cfg.APIKey = "sk-test"
	cfg.BaseURL = "https://llm.local"
	cfg.HTTPClient = &http.Client{Transport: roundTripFunc(roundTrip)}
	c, err := NewClient(logger.NewNop(), cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
