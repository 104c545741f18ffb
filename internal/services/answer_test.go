package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/postbridge-backend/internal/domain"
	"github.com/yungbote/postbridge-backend/internal/platform/logger"
)

func TestParseAnswerValid(t *testing.T) {
	ans, err := ParseAnswer(validTextAnswer)
	require.NoError(t, err)
	assert.Equal(t, domain.AnswerText, ans.Type)
	assert.Nil(t, ans.Videos)
	assert.Nil(t, ans.Posts)
	assert.Len(t, ans.Suggestions, 3)
}

func TestParseAnswerRejectsSchemaViolations(t *testing.T) {
	cases := map[string]string{
		"unknown_type":      `{"type":"unknown","content":"x","videos":null,"posts":null,"suggestions":[]}`,
		"missing_content":   `{"type":"text","videos":null,"posts":null,"suggestions":[]}`,
		"wrong_type":        `{"type":"text","content":42,"videos":null,"posts":null,"suggestions":[]}`,
		"extra_key":         `{"type":"text","content":"x","videos":null,"posts":null,"suggestions":[],"mood":"happy"}`,
		"trailing_data":     `{"type":"text","content":"x","videos":null,"posts":null,"suggestions":[]} {"again":true}`,
		"prose":             `Sure! Here is your answer.`,
		"empty":             "  ",
		"null_suggestions":  `{"type":"text","content":"x","videos":null,"posts":null,"suggestions":null}`,
		"video_without_any": `{"type":"text_video","content":"x","videos":null,"posts":null,"suggestions":[]}`,
		"folded_keys":       `{"TYPE":"text","Content":"x","videos":null,"posts":null,"SUGGESTIONS":["a","b","c"]}`,
		"duplicate_type":    `{"type":"unknown","type":"text","content":"x","videos":null,"posts":null,"suggestions":["a","b","c"]}`,
		"folded_video_key":  `{"type":"text_video","content":"x","videos":[{"Title":"Graphs","url":"https://youtu.be/g"}],"posts":null,"suggestions":["a","b","c"]}`,
		"text_with_posts":   `{"type":"text","content":"x","videos":null,"posts":[{"postId":"p2","title":"t","authorName":"","authorEmail":"","category":"","profile":"","image":"","links":[]}],"suggestions":[]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			ans, err := ParseAnswer(raw)
			assert.ErrorIs(t, err, ErrSchemaValidation)
			assert.Nil(t, ans)
		})
	}
}

func TestParseAnswerStripsFenceAndCapsSuggestions(t *testing.T) {
	raw := "```json\n" + `{"type":"text_video","content":"x","videos":[{"title":"Graphs","url":"https://youtu.be/g"}],"posts":[],"suggestions":["a","b","c","d","e","f","g"]}` + "\n```"
	ans, err := ParseAnswer(raw)
	require.NoError(t, err)
	assert.Equal(t, domain.AnswerTextVideo, ans.Type)
	require.NotNil(t, ans.Videos)
	assert.Len(t, *ans.Videos, 1)
	assert.Nil(t, ans.Posts, "an empty posts list normalizes to null")
	assert.Len(t, ans.Suggestions, 5)
}

func TestRenderPromptIsDeterministicAndOrdered(t *testing.T) {
	contexts := []domain.ContextRecord{
		{ID: "p1", Anchor: true, Metadata: domain.PostMetadata{Title: "Intro to Graphs", Links: []string{"YouTube: https://youtu.be/g"}, AuthorEmail: "ada@example.com"}},
		{ID: "p2", Metadata: domain.PostMetadata{Title: "Trees"}},
	}
	a := RenderPrompt("Be helpful.", "Schema goes here.", contexts, "p1", "summarize this post")
	b := RenderPrompt("Be helpful.", "Schema goes here.", contexts, "p1", "summarize this post")
	assert.Equal(t, a, b)

	order := []string{"SYSTEM PROMPT:", "Be helpful.", "OUTPUT FORMAT (MANDATORY):", "Schema goes here.", "Current Post ID:\np1", "RAG Context", "Title: Intro to Graphs", "Title: Trees", "User Query:\nsummarize this post"}
	last := -1
	for _, part := range order {
		idx := strings.Index(a, part)
		require.GreaterOrEqual(t, idx, 0, "missing %q", part)
		assert.Greater(t, idx, last, "%q out of order", part)
		last = idx
	}
	assert.Contains(t, a, "Links: [YouTube: https://youtu.be/g]")
	assert.Contains(t, a, "Email: ada@example.com")
	assert.Contains(t, a, "PostId: p2")
	assert.Contains(t, a, "Documents: []")
	assert.Equal(t, 1, strings.Count(a, "[CURRENT POST]"))
	assert.Contains(t, a, "[CURRENT POST]\nTitle: Intro to Graphs")
	assert.NotContains(t, a, "[CURRENT POST]\nTitle: Trees")
}

func TestSchemaDescriptionMentionsEveryField(t *testing.T) {
	desc := SchemaDescription()
	for _, field := range []string{`"type"`, `"content"`, `"videos"`, `"posts"`, `"suggestions"`, `"post_suggestions"`} {
		assert.Contains(t, desc, field)
	}
}

func TestGenerateWithoutRepairFailsOnInvalidOutput(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{"type":"unknown","content":"x","videos":null,"posts":null,"suggestions":[]}`}}
	gen := NewAnswerGenerator(logger.NewNop(), llm, AnswerConfig{RepairAttempts: 0})

	_, err := gen.Generate(context.Background(), "q", "p1", nil, "SYS")
	assert.ErrorIs(t, err, ErrSchemaValidation)
	assert.Equal(t, 1, llm.calls())
}

func TestGenerateRepairRoundFixesOutput(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{"type":"text"}`, validTextAnswer}}
	gen := NewAnswerGenerator(logger.NewNop(), llm, AnswerConfig{RepairAttempts: 1})

	ans, err := gen.Generate(context.Background(), "q", "p1", nil, "SYS")
	require.NoError(t, err)
	assert.Equal(t, domain.AnswerText, ans.Type)
	require.Equal(t, 2, llm.calls())
	assert.Contains(t, llm.prompts[1], "YOUR PREVIOUS RESPONSE WAS INVALID")
	assert.Contains(t, llm.prompts[1], `{"type":"text"}`)
}

func TestGenerateRepairExhausted(t *testing.T) {
	llm := &fakeLLM{responses: []string{"nope"}}
	gen := NewAnswerGenerator(logger.NewNop(), llm, AnswerConfig{RepairAttempts: 2})

	_, err := gen.Generate(context.Background(), "q", "", nil, "SYS")
	assert.ErrorIs(t, err, ErrSchemaValidation)
	assert.Equal(t, 3, llm.calls())
}

func TestGenerateTransportFailure(t *testing.T) {
	llm := &fakeLLM{errs: []error{errors.New("429 too many requests")}, responses: []string{""}}
	gen := NewAnswerGenerator(logger.NewNop(), llm, AnswerConfig{RepairAttempts: 1})

	_, err := gen.Generate(context.Background(), "q", "p1", nil, "SYS")
	assert.ErrorIs(t, err, ErrLLMService)
	assert.Equal(t, 1, llm.calls())
}

type fakeOpenAI struct {
	jsonCalls, textCalls int
	schemaName           string
}

func (f *fakeOpenAI) Embed(context.Context, []string) ([][]float32, error) { return nil, nil }

func (f *fakeOpenAI) GenerateText(_ context.Context, _, _ string) (string, error) {
	f.textCalls++
	return validTextAnswer, nil
}

func (f *fakeOpenAI) GenerateJSON(_ context.Context, _, _ string, schemaName string, _ map[string]any) (string, error) {
	f.jsonCalls++
	f.schemaName = schemaName
	return validTextAnswer, nil
}

func TestOpenAICompleterModes(t *testing.T) {
	client := &fakeOpenAI{}
	_, err := OpenAICompleter{Client: client, Structured: true}.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, 1, client.jsonCalls)
	assert.Equal(t, AnswerSchemaName, client.schemaName)

	_, err = OpenAICompleter{Client: client}.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, 1, client.textCalls)

	_, err = OpenAICompleter{}.Complete(context.Background(), "prompt")
	assert.Error(t, err)
}

func TestLoadSystemPrompt(t *testing.T) {
	p, err := LoadSystemPrompt("")
	require.NoError(t, err)
	assert.Contains(t, p, "I couldn't find this in the current posts.")
	assert.Equal(t, DefaultSystemPrompt(), p)

	_, err = LoadSystemPrompt("/definitely/not/here.txt")
	assert.Error(t, err)
}
