package domain

import (
	"errors"
	"fmt"
	"strings"
)

type AnswerType string

const (
	AnswerText            AnswerType = "text"
	AnswerTextVideo       AnswerType = "text_video"
	AnswerPostSuggestions AnswerType = "post_suggestions"
)

func (t AnswerType) Valid() bool {
	switch t {
	case AnswerText, AnswerTextVideo, AnswerPostSuggestions:
		return true
	}
	return false
}

// StructuredAnswer is the response contract of the ask operation. Videos and
// Posts serialize as null unless the type calls for them.
type StructuredAnswer struct {
	Type        AnswerType       `json:"type"`
	Content     string           `json:"content"`
	Videos      *[]Video         `json:"videos"`
	Posts       *[]SuggestedPost `json:"posts"`
	Suggestions []string         `json:"suggestions"`
}

type Video struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type SuggestedPost struct {
	PostID      string `json:"postId"`
	Title       string `json:"title"`
	AuthorName  string `json:"authorName"`
	AuthorEmail string `json:"authorEmail"`
	Category    string `json:"category"`
	Profile     string `json:"profile"`
	Image       string `json:"image"`
	Links       []Link `json:"links"`
}

// TextAnswer builds the plain text envelope used for fallbacks.
func TextAnswer(content string) *StructuredAnswer {
	return &StructuredAnswer{Type: AnswerText, Content: content, Suggestions: []string{}}
}

// Validate checks the type/videos/posts invariants. An empty list on a field
// that must be null is normalized to null.
func (a *StructuredAnswer) Validate() error {
	if a == nil {
		return errors.New("answer is empty")
	}
	if !a.Type.Valid() {
		return fmt.Errorf("invalid type %q", a.Type)
	}
	if strings.TrimSpace(a.Content) == "" {
		return errors.New("content is required")
	}
	if a.Suggestions == nil {
		return errors.New("suggestions is required")
	}

	if a.Videos != nil && len(*a.Videos) == 0 && a.Type != AnswerTextVideo {
		a.Videos = nil
	}
	if a.Posts != nil && len(*a.Posts) == 0 && a.Type != AnswerPostSuggestions {
		a.Posts = nil
	}

	switch a.Type {
	case AnswerText:
		if a.Videos != nil || a.Posts != nil {
			return errors.New("type text must not carry videos or posts")
		}
	case AnswerTextVideo:
		if a.Videos == nil {
			return errors.New("type text_video requires videos")
		}
		if a.Posts != nil {
			return errors.New("type text_video must not carry posts")
		}
		for i, v := range *a.Videos {
			if strings.TrimSpace(v.URL) == "" {
				return fmt.Errorf("videos[%d].url is required", i)
			}
		}
	case AnswerPostSuggestions:
		if a.Posts == nil {
			return errors.New("type post_suggestions requires posts")
		}
		if a.Videos != nil {
			return errors.New("type post_suggestions must not carry videos")
		}
		for i, p := range *a.Posts {
			if strings.TrimSpace(p.PostID) == "" {
				return fmt.Errorf("posts[%d].postId is required", i)
			}
		}
	}
	return nil
}
