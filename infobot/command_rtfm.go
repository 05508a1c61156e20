package infobot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
)

const (
	rtfmNoResultsMessage = "Could not find anything. Sorry."

	// rtfmAutocompleteTimeout is how long autocomplete waits on an
	// index that's still building. Discord drops autocomplete responses
	// which take longer than 3 seconds.
	rtfmAutocompleteTimeout = 2500 * time.Millisecond

	discordMaxChoiceLength = 100
)

// rtfmResponse renders the result of a lookup as either plain content
// (the documentation link, or the no-results message) or an embed
func rtfmResponse(result *RTFMResult, thumbnail string) (string, *discordgo.MessageEmbed) {
	if !result.Searched {
		return result.Set.BaseURL, nil
	}
	if len(result.Matches) == 0 {
		return rtfmNoResultsMessage, nil
	}

	lines := make([]string, 0, len(result.Matches))
	for _, m := range result.Matches {
		lines = append(lines, fmt.Sprintf("[`%s`](%s)", m.Key, m.URL))
	}

	title := result.Set.Title
	if title == "" {
		title = "Documentation"
	}
	embed := &discordgo.MessageEmbed{
		Title:       truncate(fmt.Sprintf("RTFM Search: `%s`", result.Query), 256),
		Description: joinWholeLines(lines, discordMaxEmbedDescriptionSize),
		Footer: &discordgo.MessageEmbedFooter{
			Text:    title,
			IconURL: result.Set.Icon,
		},
	}
	if thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: thumbnail}
	}
	return "", embed
}

// joinWholeLines joins lines with newlines, dropping trailing lines that
// would push the result past limit characters. A first line which is
// already too long is shortened instead.
func joinWholeLines(lines []string, limit int) string {
	var sb strings.Builder
	size := 0
	for i, line := range lines {
		n := utf8.RuneCountInString(line)
		if i > 0 {
			n++
		}
		if size+n > limit {
			if i == 0 {
				return shortenString(line, limit)
			}
			break
		}
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(line)
		size += n
	}
	return sb.String()
}

func (ib *InfoBot) commandRTFM(ctx context.Context, handler InteractionHandler, _ *User) {
	logger := handler.Logger()
	_, opts := commandOptions(handler.GetInteraction().ApplicationCommandData().Options)

	setID := stringPointerValue(optionString(opts, rtfmOptionSet))
	query := optionString(opts, rtfmOptionQuery)
	if query != nil && strings.TrimSpace(*query) == "" {
		query = nil
	}

	// no search is needed for the bare link, so it can be sent
	// without deferring
	if query == nil {
		result, err := ib.rtfm.Resolve(ctx, setID, nil, 0)
		if err != nil {
			logger.WarnContext(ctx, "error resolving documentation set", tint.Err(err))
			respondError(ctx, handler)
			return
		}
		content, _ := rtfmResponse(result, "")
		_ = respondContent(ctx, handler, false, content)
		return
	}

	if err := deferResponse(ctx, handler, false); err != nil {
		return
	}

	result, err := ib.rtfm.Resolve(ctx, setID, query, ib.config.RTFM.DefaultLimit)
	if err != nil {
		logger.ErrorContext(ctx, "error searching documentation", tint.Err(err))
		msg := handler.Config().DiscordErrorMessage
		if errors.Is(err, ErrUnknownDocSet) {
			msg = fmt.Sprintf("I don't know the documentation set `%s`.", setID)
		}
		_ = editContent(ctx, handler, msg)
		return
	}
	logger.InfoContext(
		ctx,
		"documentation search",
		"set_id", setID,
		"query", result.Query,
		"matches", len(result.Matches),
	)

	content, embed := rtfmResponse(result, ib.rtfm.Config().Thumbnail)
	if embed == nil {
		_ = editContent(ctx, handler, content)
		return
	}
	_ = editEmbeds(ctx, handler, embed)
}

// rtfmAutocompleteChoices returns the keys matching the focused query
// option, for the selected set
func (ib *InfoBot) rtfmAutocompleteChoices(
	ctx context.Context,
	setID string,
	query string,
) ([]*discordgo.ApplicationCommandOptionChoice, error) {
	set, ok := ib.rtfm.Config().Set(setID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDocSet, setID)
	}
	inv, err := ib.rtfm.Index(ctx, setID)
	if err != nil {
		return nil, err
	}

	normalized := ib.rtfm.Config().NormalizeQuery(set, query)
	matches := FuzzySearch(normalized, inv.Entries(), ib.config.RTFM.AutocompleteLimit)

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(matches))
	for _, m := range matches {
		// keys longer than discord allows can't be selected intact
		if len(m.Key) > discordMaxChoiceLength {
			continue
		}
		choices = append(
			choices,
			&discordgo.ApplicationCommandOptionChoice{Name: m.Key, Value: m.Key},
		)
	}
	return choices, nil
}

func (ib *InfoBot) autocompleteRTFM(ctx context.Context, handler InteractionHandler) {
	logger := handler.Logger()
	_, opts := commandOptions(handler.GetInteraction().ApplicationCommandData().Options)

	choices := []*discordgo.ApplicationCommandOptionChoice{}
	setID := optionString(opts, rtfmOptionSet)
	if setID != nil {
		query := stringPointerValue(optionString(opts, rtfmOptionQuery))
		actx, cancel := context.WithTimeout(ctx, rtfmAutocompleteTimeout)
		found, err := ib.rtfmAutocompleteChoices(actx, *setID, query)
		cancel()
		if err != nil {
			logger.DebugContext(ctx, "no autocomplete choices", tint.Err(err))
		} else {
			choices = found
		}
	}

	_ = handler.Respond(
		ctx,
		&discordgo.InteractionResponse{
			Type: discordgo.InteractionApplicationCommandAutocompleteResult,
			Data: &discordgo.InteractionResponseData{Choices: choices},
		},
	)
}
