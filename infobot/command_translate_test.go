package infobot

import (
	"context"
	"errors"
	"sync"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"
)

type mockChatClient struct {
	mu       sync.Mutex
	requests []openai.ChatCompletionRequest
	content  string
	err      error
}

func (m *mockChatClient) CreateChatCompletion(
	_ context.Context,
	request openai.ChatCompletionRequest,
) (openai.ChatCompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, request)
	if m.err != nil {
		return openai.ChatCompletionResponse{}, m.err
	}
	if m.content == "" {
		return openai.ChatCompletionResponse{ID: "chatcmpl-empty"}, nil
	}
	return openai.ChatCompletionResponse{
		ID: "chatcmpl-test",
		Choices: []openai.ChatCompletionChoice{
			{
				Message: openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleAssistant,
					Content: m.content,
				},
			},
		},
	}, nil
}

func newTestTranslator(client OpenAIChatClient) *OpenAITranslator {
	return &OpenAITranslator{
		client:         client,
		config:         &TranslateConfig{Model: DefaultTranslateModel, TargetLanguage: "en"},
		target:         language.English,
		logger:         testLogger(),
		requestLimiter: rate.NewLimiter(rate.Inf, 1),
	}
}

func TestParseTranslation(t *testing.T) {
	t.Parallel()
	tr, err := parseTranslation(
		` {"source_language": "ja", "translation": "Good morning"} `,
		language.English,
	)
	require.NoError(t, err)
	assert.Equal(t, language.Japanese, tr.SourceLanguage)
	assert.Equal(t, language.English, tr.TargetLanguage)
	assert.Equal(t, "Good morning", tr.Text)

	tr, err = parseTranslation(`{"source_language": "???", "translation": "hi"}`, language.English)
	require.NoError(t, err)
	assert.Equal(t, language.Und, tr.SourceLanguage)

	for _, content := range []string{
		"Good morning",
		`{"source_language": "ja"}`,
		`{"source_language": "ja", "translation": "  "}`,
	} {
		_, err = parseTranslation(content, language.English)
		assert.ErrorIs(t, err, ErrTranslationMalformed, content)
	}
}

func TestLanguageNames(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Japanese", languageName(language.Japanese))
	assert.Equal(t, translateUnknownLanguage, languageName(language.Und))
	assert.Equal(t, "JA", languageCode(language.Japanese))
	assert.Equal(t, translateUnknownLanguage, languageCode(language.Und))
}

func TestTranslationEmbed(t *testing.T) {
	t.Parallel()
	embed := translationEmbed(
		"おはよう",
		&Translation{
			SourceLanguage: language.Japanese,
			TargetLanguage: language.English,
			Text:           "Good morning",
		},
	)
	require.Len(t, embed.Fields, 2)
	assert.Equal(t, "Input (JA)", embed.Fields[0].Name)
	assert.Equal(t, "おはよう", embed.Fields[0].Value)
	assert.Equal(t, "Output (English)", embed.Fields[1].Name)
	assert.Equal(t, "Good morning", embed.Fields[1].Value)
}

func TestOpenAITranslator_Translate(t *testing.T) {
	t.Parallel()
	client := &mockChatClient{content: `{"source_language": "es", "translation": "Hello"}`}
	tr, err := newTestTranslator(client).Translate(context.Background(), "Hola")
	require.NoError(t, err)
	assert.Equal(t, language.Spanish, tr.SourceLanguage)
	assert.Equal(t, "Hello", tr.Text)

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Equal(t, DefaultTranslateModel, req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "translate it into English")
	assert.Equal(t, "Hola", req.Messages[1].Content)
	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, req.ResponseFormat.Type)
}

func TestOpenAITranslator_NoChoices(t *testing.T) {
	t.Parallel()
	_, err := newTestTranslator(&mockChatClient{}).Translate(context.Background(), "Hola")
	assert.ErrorIs(t, err, ErrTranslationUnavailable)
}

func TestCommandTranslate(t *testing.T) {
	ib, _ := newTestInfoBot(t)
	u := newTestUser(t, ib)
	ctx := context.Background()

	handler := newStubInteractionHandler(
		newCommandInteraction(DiscordSlashCommandTranslate, stringOption(translateOptionText, "Hola")),
	)
	ib.commandTranslate(ctx, handler, u)
	resp := handler.requireResponse(t)
	assert.True(t, isEphemeral(resp))
	assert.Equal(t, "Translation isn't enabled.", resp.Data.Content)

	client := &mockChatClient{content: `{"source_language": "es", "translation": "Hello"}`}
	ib.translator = newTestTranslator(client)

	handler = newStubInteractionHandler(
		newCommandInteraction(DiscordSlashCommandTranslate, stringOption(translateOptionText, "Hola")),
	)
	ib.commandTranslate(ctx, handler, u)
	embed := (*handler.requireDeferredEdit(t).Embeds)[0]
	assert.Equal(t, "Input (ES)", embed.Fields[0].Name)
	assert.Equal(t, "Hello", embed.Fields[1].Value)

	handler = newStubInteractionHandler(
		newCommandInteraction(DiscordSlashCommandTranslate, stringOption(translateOptionText, " ")),
	)
	ib.commandTranslate(ctx, handler, u)
	resp = handler.requireResponse(t)
	assert.Equal(t, "Please specify the message to translate.", resp.Data.Content)

	client.err = errors.New("rate limited")
	handler = newStubInteractionHandler(
		newCommandInteraction(DiscordSlashCommandTranslate, stringOption(translateOptionText, "Hola")),
	)
	ib.commandTranslate(ctx, handler, u)
	edit := handler.requireDeferredEdit(t)
	require.NotNil(t, edit.Content)
	assert.Equal(t, handler.Config().DiscordErrorMessage, *edit.Content)
}
