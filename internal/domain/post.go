package domain

import (
	"fmt"
	"strings"
)

// Post is a platform post as delivered by the content service. JSON names follow
// the platform payloads.
type Post struct {
	ID              string   `json:"_id"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Category        string   `json:"category"`
	AuthorName      string   `json:"authorName"`
	AuthorEmail     string   `json:"authoremail"`
	ProfileImageURL string   `json:"profile"`
	CoverImageURL   string   `json:"image"`
	Links           []Link   `json:"links"`
	Documents       []string `json:"documents"`
}

type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// EmbedText is the text embedded for semantic search. Links and documents stay
// in metadata only.
func (p Post) EmbedText() string {
	return fmt.Sprintf("Title: %s\nCategory: %s\nAuthor: %s\nDescription: %s",
		p.Title, p.Category, p.AuthorName, p.Description)
}

// Metadata projects the post into its stored metadata record.
func (p Post) Metadata() PostMetadata {
	links := make([]string, 0, len(p.Links))
	for _, l := range p.Links {
		if strings.TrimSpace(l.URL) == "" {
			continue
		}
		links = append(links, l.Title+": "+l.URL)
	}
	docs := make([]string, 0, len(p.Documents))
	docs = append(docs, p.Documents...)
	return PostMetadata{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		AuthorName:  p.AuthorName,
		AuthorEmail: p.AuthorEmail,
		Profile:     p.ProfileImageURL,
		Image:       p.CoverImageURL,
		Links:       links,
		Documents:   docs,
	}
}

// Metadata keys as stored in the vector index.
const (
	MetaID          = "_id"
	MetaTitle       = "title"
	MetaDescription = "description"
	MetaCategory    = "category"
	MetaAuthorName  = "authorName"
	MetaAuthorEmail = "authoremail"
	MetaProfile     = "profile"
	MetaImage       = "image"
	MetaLinks       = "links"
	MetaDocuments   = "documents"
)

// PostMetadata is the flat projection stored next to each vector. Links are
// rendered as "title: url".
type PostMetadata struct {
	ID          string
	Title       string
	Description string
	Category    string
	AuthorName  string
	AuthorEmail string
	Profile     string
	Image       string
	Links       []string
	Documents   []string
}

// Flatten returns a map containing only strings and string lists.
func (m PostMetadata) Flatten() map[string]any {
	return map[string]any{
		MetaID:          m.ID,
		MetaTitle:       m.Title,
		MetaDescription: m.Description,
		MetaCategory:    m.Category,
		MetaAuthorName:  m.AuthorName,
		MetaAuthorEmail: m.AuthorEmail,
		MetaProfile:     m.Profile,
		MetaImage:       m.Image,
		MetaLinks:       nonNil(m.Links),
		MetaDocuments:   nonNil(m.Documents),
	}
}

// MetadataFromMap reads metadata returned by a vector store. Missing keys become
// empty values; lists may arrive as []any or []string.
func MetadataFromMap(m map[string]any) PostMetadata {
	return PostMetadata{
		ID:          stringField(m, MetaID),
		Title:       stringField(m, MetaTitle),
		Description: stringField(m, MetaDescription),
		Category:    stringField(m, MetaCategory),
		AuthorName:  stringField(m, MetaAuthorName),
		AuthorEmail: stringField(m, MetaAuthorEmail),
		Profile:     stringField(m, MetaProfile),
		Image:       stringField(m, MetaImage),
		Links:       listField(m, MetaLinks),
		Documents:   listField(m, MetaDocuments),
	}
}

// ContextRecord is one retrieved post handed to the answer generator.
type ContextRecord struct {
	ID       string
	Metadata PostMetadata
	// Anchor marks the post the user is currently viewing.
	Anchor bool
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func listField(m map[string]any, key string) []string {
	switch v := m[key].(type) {
	case []string:
		return nonNil(append([]string(nil), v...))
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			} else if item != nil {
				out = append(out, fmt.Sprint(item))
			}
		}
		return out
	case string:
		if v == "" {
			return []string{}
		}
		return []string{v}
	default:
		return []string{}
	}
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
