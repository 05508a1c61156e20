package infobot

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestRTFMBot(t testing.TB) (*InfoBot, *mockFetcher) {
	t.Helper()
	ib, _ := newTestInfoBot(t)
	fetcher := &mockFetcher{}
	fetcher.On(
		"Fetch",
		mock.Anything,
		"https://docs.example.com/master/objects.inv",
	).Return(masterInventory(t), nil)
	ib.rtfm = NewIndexCache(testDocSetConfig(t), fetcher, time.Second, testLogger())
	return ib, fetcher
}

func TestRTFMResponse(t *testing.T) {
	t.Parallel()
	set := DocSet{ID: "master", Title: "discord.py master", BaseURL: "https://docs.example.com/master"}

	content, embed := rtfmResponse(&RTFMResult{Set: set}, "")
	assert.Equal(t, "https://docs.example.com/master", content)
	assert.Nil(t, embed)

	content, embed = rtfmResponse(&RTFMResult{Set: set, Searched: true, Query: "nothing"}, "")
	assert.Equal(t, rtfmNoResultsMessage, content)
	assert.Nil(t, embed)

	content, embed = rtfmResponse(
		&RTFMResult{
			Set:      set,
			Searched: true,
			Query:    "Client",
			Matches: []DocMatch{
				{DocEntry: DocEntry{Key: "Client", URL: "https://docs.example.com/master/api.html#discord.Client"}},
				{DocEntry: DocEntry{Key: "Client.run", URL: "https://docs.example.com/master/api.html#discord.Client.run"}},
			},
		},
		"https://example.com/thumb.png",
	)
	assert.Empty(t, content)
	require.NotNil(t, embed)
	assert.Equal(t, "RTFM Search: `Client`", embed.Title)
	assert.Equal(
		t,
		"[`Client`](https://docs.example.com/master/api.html#discord.Client)\n"+
			"[`Client.run`](https://docs.example.com/master/api.html#discord.Client.run)",
		embed.Description,
	)
	assert.Equal(t, "discord.py master", embed.Footer.Text)
	assert.Equal(t, "https://example.com/thumb.png", embed.Thumbnail.URL)

	_, embed = rtfmResponse(
		&RTFMResult{
			Set:      DocSet{ID: "x"},
			Searched: true,
			Query:    "q",
			Matches:  []DocMatch{{DocEntry: DocEntry{Key: "k", URL: "u"}}},
		},
		"",
	)
	assert.Equal(t, "Documentation", embed.Footer.Text)
	assert.Nil(t, embed.Thumbnail)
}

func TestRTFMResponse_DropsWholeLines(t *testing.T) {
	t.Parallel()
	matches := make([]DocMatch, 0, 40)
	for i := 0; i < 40; i++ {
		key := fmt.Sprintf("Client.%s%d", strings.Repeat("x", 40), i)
		matches = append(
			matches,
			DocMatch{DocEntry: DocEntry{Key: key, URL: "https://docs.example.com/master/api.html#discord." + key}},
		)
	}
	_, embed := rtfmResponse(
		&RTFMResult{Set: DocSet{ID: "master"}, Searched: true, Query: "Client", Matches: matches},
		"",
	)
	require.NotNil(t, embed)
	assert.LessOrEqual(t, utf8.RuneCountInString(embed.Description), discordMaxEmbedDescriptionSize)

	lines := strings.Split(embed.Description, "\n")
	assert.Less(t, len(lines), len(matches))
	for i, line := range lines {
		assert.Equal(
			t,
			fmt.Sprintf("[`%s`](%s)", matches[i].Key, matches[i].URL),
			line,
		)
	}
}

func TestJoinWholeLines(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "ab\ncd", joinWholeLines([]string{"ab", "cd", "ef"}, 5))
	assert.Equal(t, "ab\ncd\nef", joinWholeLines([]string{"ab", "cd", "ef"}, 8))
	assert.Equal(t, "", joinWholeLines(nil, 5))
	assert.LessOrEqual(
		t,
		utf8.RuneCountInString(joinWholeLines([]string{strings.Repeat("a", 100)}, 50)),
		50,
	)
}

func TestCommandRTFM_NoQuery(t *testing.T) {
	ib, fetcher := newTestRTFMBot(t)
	u := newTestUser(t, ib)

	handler := newStubInteractionHandler(
		newCommandInteraction(DiscordSlashCommandRTFM, stringOption(rtfmOptionSet, "master")),
	)
	ib.commandRTFM(context.Background(), handler, u)
	resp := handler.requireResponse(t)
	assert.Equal(t, discordgo.InteractionResponseChannelMessageWithSource, resp.Type)
	assert.Equal(t, "https://docs.example.com/master", resp.Data.Content)

	// a blank query is the same as none, and needs no inventory
	handler = newStubInteractionHandler(
		newCommandInteraction(
			DiscordSlashCommandRTFM,
			stringOption(rtfmOptionSet, "master"),
			stringOption(rtfmOptionQuery, "   "),
		),
	)
	ib.commandRTFM(context.Background(), handler, u)
	assert.Equal(t, "https://docs.example.com/master", handler.requireResponse(t).Data.Content)
	fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestCommandRTFM_Search(t *testing.T) {
	ib, fetcher := newTestRTFMBot(t)
	u := newTestUser(t, ib)

	handler := newStubInteractionHandler(
		newCommandInteraction(
			DiscordSlashCommandRTFM,
			stringOption(rtfmOptionSet, "master"),
			stringOption(rtfmOptionQuery, "discord.Client"),
		),
	)
	ib.commandRTFM(context.Background(), handler, u)
	edit := handler.requireDeferredEdit(t)
	require.NotNil(t, edit.Embeds)
	embed := (*edit.Embeds)[0]
	assert.Equal(t, "RTFM Search: `Client`", embed.Title)
	assert.True(t, strings.HasPrefix(embed.Description, "[`Client`]"))
	fetcher.AssertNumberOfCalls(t, "Fetch", 1)

	handler = newStubInteractionHandler(
		newCommandInteraction(
			DiscordSlashCommandRTFM,
			stringOption(rtfmOptionSet, "master"),
			stringOption(rtfmOptionQuery, "zzzzqqqq"),
		),
	)
	ib.commandRTFM(context.Background(), handler, u)
	edit = handler.requireDeferredEdit(t)
	require.NotNil(t, edit.Content)
	assert.Equal(t, rtfmNoResultsMessage, *edit.Content)
	fetcher.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestCommandRTFM_UnknownSet(t *testing.T) {
	ib, _ := newTestRTFMBot(t)
	u := newTestUser(t, ib)

	handler := newStubInteractionHandler(
		newCommandInteraction(
			DiscordSlashCommandRTFM,
			stringOption(rtfmOptionSet, "nope"),
			stringOption(rtfmOptionQuery, "Client"),
		),
	)
	ib.commandRTFM(context.Background(), handler, u)
	edit := handler.requireDeferredEdit(t)
	require.NotNil(t, edit.Content)
	assert.Equal(t, "I don't know the documentation set `nope`.", *edit.Content)
}

func TestAutocompleteRTFM(t *testing.T) {
	ib, _ := newTestRTFMBot(t)

	i := newCommandInteraction(
		DiscordSlashCommandRTFM,
		stringOption(rtfmOptionSet, "master"),
		stringOption(rtfmOptionQuery, "Client"),
	)
	i.Type = discordgo.InteractionApplicationCommandAutocomplete
	handler := newStubInteractionHandler(i)
	ib.autocompleteRTFM(context.Background(), handler)

	resp := handler.requireResponse(t)
	assert.Equal(t, discordgo.InteractionApplicationCommandAutocompleteResult, resp.Type)
	require.NotEmpty(t, resp.Data.Choices)
	assert.Equal(t, "Client", resp.Data.Choices[0].Name)
	assert.Equal(t, "Client", resp.Data.Choices[0].Value)

	// choices are empty, not missing, when nothing can be suggested
	i = newCommandInteraction(
		DiscordSlashCommandRTFM,
		stringOption(rtfmOptionSet, "nope"),
		stringOption(rtfmOptionQuery, "Client"),
	)
	i.Type = discordgo.InteractionApplicationCommandAutocomplete
	handler = newStubInteractionHandler(i)
	ib.autocompleteRTFM(context.Background(), handler)
	resp = handler.requireResponse(t)
	require.NotNil(t, resp.Data.Choices)
	assert.Empty(t, resp.Data.Choices)
}
