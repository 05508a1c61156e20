package infobot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	openai "github.com/sashabaranov/go-openai"
	"github.com/tidwall/gjson"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"golang.org/x/time/rate"
)

const translateUnknownLanguage = "UNKNOWN"

var (
	ErrTranslationUnavailable = errors.New("no translation returned")
	ErrTranslationMalformed   = errors.New("malformed translation response")
)

// Translation is the result of translating text
type Translation struct {
	// SourceLanguage is the detected language of the input
	SourceLanguage language.Tag

	// TargetLanguage is the language the text was translated into
	TargetLanguage language.Tag

	Text string
}

// Translator detects the language of text and translates it
type Translator interface {
	Translate(ctx context.Context, text string) (*Translation, error)
}

// OpenAIChatClient is the subset of the OpenAI client used for
// translation
type OpenAIChatClient interface {
	CreateChatCompletion(
		ctx context.Context,
		request openai.ChatCompletionRequest,
	) (response openai.ChatCompletionResponse, err error)
}

// OpenAITranslator translates text with chat completions, asking the
// model for a JSON object with the detected language and translation
type OpenAITranslator struct {
	client         OpenAIChatClient
	config         *TranslateConfig
	target         language.Tag
	logger         *slog.Logger
	requestLimiter *rate.Limiter
}

func NewOpenAITranslator(
	config *TranslateConfig,
	httpClient *http.Client,
	logger *slog.Logger,
) *OpenAITranslator {
	if logger == nil {
		logger = slog.Default()
	}
	clientCfg := openai.DefaultConfig(config.Token)
	if httpClient != nil {
		clientCfg.HTTPClient = httpClient
	}

	target, err := language.Parse(config.TargetLanguage)
	if err != nil {
		target = language.English
	}

	limit := rate.Inf
	if config.MaxRequestsPerSecond > 0 {
		limit = rate.Limit(config.MaxRequestsPerSecond)
	}

	return &OpenAITranslator{
		client:         openai.NewClientWithConfig(clientCfg),
		config:         config,
		target:         target,
		logger:         logger,
		requestLimiter: rate.NewLimiter(limit, 1),
	}
}

// languageName returns the English name of the language, ex: "Japanese"
func languageName(tag language.Tag) string {
	if tag == language.Und {
		return translateUnknownLanguage
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return tag.String()
}

func languageCode(tag language.Tag) string {
	if tag == language.Und {
		return translateUnknownLanguage
	}
	return strings.ToUpper(tag.String())
}

func (t *OpenAITranslator) prompt() string {
	return fmt.Sprintf(
		"Detect the language of the user's message and translate it into %s. "+
			"Respond only with a JSON object with the keys \"source_language\", "+
			"the BCP 47 tag of the detected language, and \"translation\", "+
			"the translated text.",
		languageName(t.target),
	)
}

func (t *OpenAITranslator) Translate(ctx context.Context, text string) (*Translation, error) {
	if err := t.requestLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := t.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: t.config.Model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: t.prompt()},
				{Role: openai.ChatMessageRoleUser, Content: text},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		},
	)
	if err != nil {
		return nil, err
	}
	t.logger.DebugContext(
		ctx,
		"translation response",
		"id", resp.ID,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)
	if len(resp.Choices) == 0 {
		return nil, ErrTranslationUnavailable
	}
	return parseTranslation(resp.Choices[0].Message.Content, t.target)
}

// parseTranslation reads the JSON object returned by the model
func parseTranslation(content string, target language.Tag) (*Translation, error) {
	content = strings.TrimSpace(content)
	if !gjson.Valid(content) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrTranslationMalformed)
	}
	translated := gjson.Get(content, "translation")
	if !translated.Exists() || strings.TrimSpace(translated.String()) == "" {
		return nil, fmt.Errorf("%w: missing translation", ErrTranslationMalformed)
	}

	source := language.Und
	if tag, err := language.Parse(gjson.Get(content, "source_language").String()); err == nil {
		source = tag
	}
	return &Translation{
		SourceLanguage: source,
		TargetLanguage: target,
		Text:           translated.String(),
	}, nil
}

func translationEmbed(input string, tr *Translation) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:  fmt.Sprintf("Input (%s)", languageCode(tr.SourceLanguage)),
				Value: truncate(input, discordMaxFieldValue),
			},
			{
				Name:  fmt.Sprintf("Output (%s)", languageName(tr.TargetLanguage)),
				Value: truncate(tr.Text, discordMaxFieldValue),
			},
		},
	}
}

func (ib *InfoBot) commandTranslate(ctx context.Context, handler InteractionHandler, _ *User) {
	if ib.translator == nil {
		_ = respondContent(ctx, handler, true, "Translation isn't enabled.")
		return
	}
	_, opts := commandOptions(handler.GetInteraction().ApplicationCommandData().Options)
	text := strings.TrimSpace(stringPointerValue(optionString(opts, translateOptionText)))
	if text == "" {
		_ = respondContent(ctx, handler, true, "Please specify the message to translate.")
		return
	}

	if err := deferResponse(ctx, handler, false); err != nil {
		return
	}
	tr, err := ib.translator.Translate(ctx, text)
	if err != nil {
		handler.Logger().ErrorContext(ctx, "error translating", tint.Err(err))
		_ = editContent(ctx, handler, handler.Config().DiscordErrorMessage)
		return
	}
	_ = editEmbeds(ctx, handler, translationEmbed(text, tr))
}
