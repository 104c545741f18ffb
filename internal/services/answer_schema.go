package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/yungbote/postbridge-backend/internal/domain"
)

const (
	AnswerSchemaName = "structured_answer"
	maxSuggestions   = 5
)

// AnswerSchema is the JSON Schema of domain.StructuredAnswer, written to be
// accepted by OpenAI strict structured outputs.
func AnswerSchema() map[string]any {
	str := func(desc string) map[string]any {
		return map[string]any{"type": "string", "description": desc}
	}
	link := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"title", "url"},
		"properties": map[string]any{
			"title": str("Title of the link, e.g. YouTube, Publication"),
			"url":   str("URL of the resource"),
		},
	}
	video := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"title", "url"},
		"properties": map[string]any{
			"title": str("Title of the video if available, else 'YouTube Video'"),
			"url":   str("YouTube URL only"),
		},
	}
	post := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"postId", "title", "authorName", "authorEmail", "category", "profile", "image", "links"},
		"properties": map[string]any{
			"postId":      str("PostId of the suggested post"),
			"title":       str("Post title"),
			"authorName":  str("Author name"),
			"authorEmail": str("Author email"),
			"category":    str("Post category"),
			"profile":     str("Author profile image URL"),
			"image":       str("Post cover image URL"),
			"links": map[string]any{
				"type":        "array",
				"description": "Source links related to the post except YouTube links",
				"items":       link,
			},
		},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"type", "content", "videos", "posts", "suggestions"},
		"properties": map[string]any{
			"type": map[string]any{
				"type":        "string",
				"enum":        []string{string(domain.AnswerText), string(domain.AnswerTextVideo), string(domain.AnswerPostSuggestions)},
				"description": "One of: text, text_video, post_suggestions",
			},
			"content": str("Markdown answer grounded only in the provided posts"),
			"videos": map[string]any{
				"type":        []string{"array", "null"},
				"description": "Present only when type=text_video, otherwise null",
				"items":       video,
			},
			"posts": map[string]any{
				"type":        []string{"array", "null"},
				"description": "Present only when type=post_suggestions, otherwise null",
				"items":       post,
			},
			"suggestions": map[string]any{
				"type":        "array",
				"description": "3-5 follow-up questions the user might ask next",
				"items":       map[string]any{"type": "string"},
			},
		},
	}
}

// SchemaDescription is the format instruction block placed in the prompt.
func SchemaDescription() string {
	raw, _ := json.MarshalIndent(AnswerSchema(), "", "  ")
	return "The output must be a single JSON object that conforms to the JSON schema below.\n" +
		"Do not add keys that are not in the schema. Use null for \"videos\" and \"posts\" unless the type requires them.\n" +
		"```\n" + string(raw) + "\n```"
}

// ParseAnswer decodes and validates raw model output. Any failure wraps
// ErrSchemaValidation.
func ParseAnswer(raw string) (*domain.StructuredAnswer, error) {
	body := stripCodeFence(raw)
	if body == "" {
		return nil, fmt.Errorf("%w: empty output", ErrSchemaValidation)
	}

	// encoding/json folds key case and keeps the last duplicate
	if err := checkKeys(json.RawMessage(body), answerKeys); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaValidation, err)
	}

	dec := json.NewDecoder(strings.NewReader(body))
	dec.DisallowUnknownFields()
	var ans domain.StructuredAnswer
	if err := dec.Decode(&ans); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaValidation, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after JSON object", ErrSchemaValidation)
	}
	if err := ans.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaValidation, err)
	}
	if len(ans.Suggestions) > maxSuggestions {
		ans.Suggestions = ans.Suggestions[:maxSuggestions]
	}
	return &ans, nil
}

// keySet lists the exact keys allowed in an object. A nil child is not
// descended into.
type keySet map[string]keySet

var (
	linkKeys   = keySet{"title": nil, "url": nil}
	videoKeys  = keySet{"title": nil, "url": nil}
	postKeys   = keySet{"postId": nil, "title": nil, "authorName": nil, "authorEmail": nil, "category": nil, "profile": nil, "image": nil, "links": linkKeys}
	answerKeys = keySet{"type": nil, "content": nil, "videos": videoKeys, "posts": postKeys, "suggestions": nil}
)

// checkKeys rejects keys outside allowed, matched case-sensitively, and
// repeated keys. Arrays are checked element by element.
func checkKeys(raw json.RawMessage, allowed keySet) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	switch tok {
	case json.Delim('['):
		for dec.More() {
			var el json.RawMessage
			if err := dec.Decode(&el); err != nil {
				return err
			}
			if err := checkKeys(el, allowed); err != nil {
				return err
			}
		}
	case json.Delim('{'):
		seen := make(map[string]bool, len(allowed))
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return err
			}
			key, _ := kt.(string)
			child, ok := allowed[key]
			if !ok {
				return fmt.Errorf("unknown field %q", key)
			}
			if seen[key] {
				return fmt.Errorf("duplicate field %q", key)
			}
			seen[key] = true
			var v json.RawMessage
			if err := dec.Decode(&v); err != nil {
				return err
			}
			if child != nil {
				if err := checkKeys(v, child); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
