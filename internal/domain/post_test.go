package domain

import (
	"reflect"
	"testing"
)

func TestPostMetadataFlatten(t *testing.T) {
	p := Post{
		ID:              "p1",
		Title:           "Intro to Graphs",
		AuthorEmail:     "ada@example.com",
		ProfileImageURL: "https://cdn/p.png",
		Links: []Link{
			{Title: "YouTube", URL: "https://youtu.be/x"},
			{Title: "broken", URL: ""},
		},
	}
	flat := p.Metadata().Flatten()

	if flat[MetaID] != "p1" || flat[MetaTitle] != "Intro to Graphs" || flat[MetaProfile] != "https://cdn/p.png" {
		t.Fatalf("scalars: got=%v", flat)
	}
	if flat[MetaDescription] != "" {
		t.Fatalf("absent description must flatten to empty string")
	}
	if got := flat[MetaLinks].([]string); !reflect.DeepEqual(got, []string{"YouTube: https://youtu.be/x"}) {
		t.Fatalf("links: got=%v", got)
	}
	if got := flat[MetaDocuments].([]string); got == nil || len(got) != 0 {
		t.Fatalf("documents must be an empty list, got=%#v", got)
	}
	for k, v := range flat {
		switch v.(type) {
		case string, []string:
		default:
			t.Fatalf("key %s has non-flat value %T", k, v)
		}
	}
}

func TestMetadataFromMapToleratesStoreShapes(t *testing.T) {
	m := MetadataFromMap(map[string]any{
		MetaTitle:     "Intro to Graphs",
		MetaLinks:     []any{"YouTube: https://youtu.be/x"},
		MetaDocuments: []string{"notes.pdf"},
	})
	if m.Title != "Intro to Graphs" || m.Category != "" {
		t.Fatalf("scalars: got=%+v", m)
	}
	if len(m.Links) != 1 || m.Documents[0] != "notes.pdf" {
		t.Fatalf("lists: got=%+v", m)
	}

	empty := MetadataFromMap(nil)
	if empty.Links == nil || empty.Documents == nil {
		t.Fatalf("missing lists must be empty, got=%+v", empty)
	}
}

func TestEmbedTextExcludesLinks(t *testing.T) {
	p := Post{Title: "T", Category: "C", AuthorName: "A", Description: "D", Links: []Link{{Title: "x", URL: "https://x"}}}
	want := "Title: T\nCategory: C\nAuthor: A\nDescription: D"
	if got := p.EmbedText(); got != want {
		t.Fatalf("embed text: want=%q got=%q", want, got)
	}
}
