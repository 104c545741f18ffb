package services

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/yungbote/postbridge-backend/internal/domain"
)

//go:embed prompts/system.txt
var defaultSystemPrompt string

// DefaultSystemPrompt returns the built-in system prompt.
func DefaultSystemPrompt() string {
	return strings.TrimSpace(defaultSystemPrompt)
}

// LoadSystemPrompt reads path, or returns the built-in prompt when path is empty.
func LoadSystemPrompt(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultSystemPrompt(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read system prompt: %w", err)
	}
	prompt := strings.TrimSpace(string(raw))
	if prompt == "" {
		return "", fmt.Errorf("system prompt file %s is empty", path)
	}
	return prompt, nil
}

// RenderPrompt composes the single prompt sent to the model. It has no side
// effects and depends only on its arguments.
func RenderPrompt(systemPrompt, schemaDescription string, contexts []domain.ContextRecord, anchorID, query string) string {
	var b strings.Builder
	b.WriteString("SYSTEM PROMPT:\n")
	b.WriteString(strings.TrimSpace(systemPrompt))
	b.WriteString("\n\nOUTPUT FORMAT (MANDATORY):\n")
	b.WriteString(strings.TrimSpace(schemaDescription))
	b.WriteString("\n\nDATA:\n\nCurrent Post ID:\n")
	b.WriteString(anchorID)
	b.WriteString("\n\nRAG Context (array of posts with fields like title, description, _id, links, etc):\n")
	for _, c := range contexts {
		writeContextBlock(&b, c)
	}
	b.WriteString("\nUser Query:\n")
	b.WriteString(query)
	b.WriteString("\n")
	return b.String()
}

func writeContextBlock(b *strings.Builder, c domain.ContextRecord) {
	m := c.Metadata
	b.WriteString("\n")
	if c.Anchor {
		b.WriteString("[CURRENT POST]\n")
	}
	fmt.Fprintf(b, "Title: %s\n", m.Title)
	fmt.Fprintf(b, "Description: %s\n", m.Description)
	fmt.Fprintf(b, "Links: %s\n", renderList(m.Links))
	fmt.Fprintf(b, "Author: %s\n", m.AuthorName)
	fmt.Fprintf(b, "Email: %s\n", m.AuthorEmail)
	fmt.Fprintf(b, "PostId: %s\n", c.ID)
	fmt.Fprintf(b, "Category: %s\n", m.Category)
	fmt.Fprintf(b, "Documents: %s\n", renderList(m.Documents))
	fmt.Fprintf(b, "Profile: %s\n", m.Profile)
	fmt.Fprintf(b, "Image: %s\n", m.Image)
}

func renderList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	return "[" + strings.Join(items, ", ") + "]"
}

// repairPrompt asks the model to correct an answer that failed validation.
func repairPrompt(original, badOutput string, cause error) string {
	var b strings.Builder
	b.WriteString(original)
	b.WriteString("\nYOUR PREVIOUS RESPONSE WAS INVALID:\n")
	b.WriteString(badOutput)
	b.WriteString("\n\nVALIDATION ERROR:\n")
	b.WriteString(cause.Error())
	b.WriteString("\n\nReturn the corrected JSON object only.\n")
	return b.String()
}
