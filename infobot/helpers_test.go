package infobot

import (
	"context"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShortenString(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		limit    int
		expected string
	}{
		{
			name:     "String shorter than limit",
			input:    "Short string",
			limit:    20,
			expected: "Short string",
		},
		{
			name:     "String equal to limit",
			input:    "Exactly twenty chars",
			limit:    20,
			expected: "Exactly twenty chars",
		},
		{
			name:     "String with double newlines",
			input:    "Line 1\n\nLine 2\n\nLine 3",
			limit:    15,
			expected: "Line 1\nLine 2\nL",
		},
		{
			name:     "String with bold markdown",
			input:    "Some **bold** text here",
			limit:    15,
			expected: "Some bold text",
		},
		{
			name:     "Long string gets suffix",
			input:    strings.Repeat("a", 100),
			limit:    50,
			expected: strings.Repeat("a", 22) + "\n\n**(output limit reached)**",
		},
	}

	for _, tc := range testCases {
		t.Run(
			tc.name, func(t *testing.T) {
				result := shortenString(tc.input, tc.limit)
				assert.Equal(t, tc.expected, result)
				assert.LessOrEqual(t, len([]rune(result)), tc.limit)
			},
		)
	}
}

func TestChunkItems(t *testing.T) {
	tests := []struct {
		name           string
		maxRowLength   int
		items          []int
		expectedResult [][]int
	}{
		{
			name:           "exactly divisible",
			maxRowLength:   3,
			items:          []int{1, 2, 3, 4, 5, 6, 7, 8, 9},
			expectedResult: [][]int{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}},
		},
		{
			name:           "not exactly divisible",
			maxRowLength:   4,
			items:          []int{1, 2, 3, 4, 5, 6, 7},
			expectedResult: [][]int{{1, 2, 3, 4}, {5, 6, 7}},
		},
		{
			name:           "max row length greater than items",
			maxRowLength:   5,
			items:          []int{1, 2, 3},
			expectedResult: [][]int{{1, 2, 3}},
		},
		{
			name:           "no items",
			maxRowLength:   5,
			items:          nil,
			expectedResult: nil,
		},
	}

	for _, tt := range tests {
		t.Run(
			tt.name, func(t *testing.T) {
				result := chunkItems(tt.maxRowLength, tt.items...)
				if !reflect.DeepEqual(result, tt.expectedResult) {
					t.Errorf("expected %#v, got %#v", tt.expectedResult, result)
				}
			},
		)
	}
}

func TestHumanDuration(t *testing.T) {
	tests := []struct {
		input    time.Duration
		expected string
	}{
		{0, "0 seconds"},
		{500 * time.Millisecond, "0 seconds"},
		{time.Second, "1 second"},
		{61 * time.Second, "1 minute and 1 second"},
		{90 * time.Minute, "1 hour and 30 minutes"},
		{48 * time.Hour, "2 days"},
		{26*time.Hour + 3*time.Minute + 4*time.Second, "1 day, 2 hours, 3 minutes and 4 seconds"},
		{-2 * time.Second, "2 seconds"},
	}
	for _, tt := range tests {
		t.Run(
			tt.input.String(), func(t *testing.T) {
				assert.Equal(t, tt.expected, humanDuration(tt.input))
			},
		)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "日本", truncate("日本語", 2))
}

func TestFormatCount(t *testing.T) {
	assert.Equal(t, "0", formatCount(0))
	assert.Equal(t, "999", formatCount(999))
	assert.Equal(t, "1,234,567", formatCount(1234567))
}

func TestDiscordTimestamp(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	assert.Equal(t, "<t:1700000000:R>", discordTimestamp(ts, "R"))
	assert.Equal(t, "<t:1700000000:F> (<t:1700000000:R>)", discordTimestampFull(ts))
}

func TestSnowflakeTime(t *testing.T) {
	assert.Equal(
		t,
		int64(1462015105796),
		snowflakeTime("175928847299117063").UnixMilli(),
	)
	assert.True(t, snowflakeTime("not a snowflake").IsZero())
}

func TestGenerateRandomHexString(t *testing.T) {
	s, err := generateRandomHexString(8)
	require.NoError(t, err)
	assert.Len(t, s, 16)

	other, err := generateRandomHexString(8)
	require.NoError(t, err)
	assert.NotEqual(t, s, other)
}

func TestCommandOptions(t *testing.T) {
	subcommand, opts := commandOptions(
		[]*discordgo.ApplicationCommandInteractionDataOption{
			{
				Name: todoSubcommandEdit,
				Type: discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandInteractionDataOption{
					intOption(todoOptionIndex, 3),
					stringOption(todoOptionText, "hello"),
				},
			},
		},
	)
	assert.Equal(t, todoSubcommandEdit, subcommand)
	assert.Equal(t, 3, optionInt(opts, todoOptionIndex))
	assert.Equal(t, "hello", stringPointerValue(optionString(opts, todoOptionText)))
	assert.Nil(t, optionString(opts, "missing"))
	assert.Equal(t, 0, optionInt(opts, "missing"))

	subcommand, opts = commandOptions(
		[]*discordgo.ApplicationCommandInteractionDataOption{
			stringOption(rtfmOptionSet, "python"),
			stringOption(rtfmOptionQuery, "asyncio"),
		},
	)
	assert.Equal(t, "", subcommand)
	assert.Len(t, opts, 2)
}

func TestResolvedUserOption(t *testing.T) {
	target := &discordgo.User{ID: "100000000000000002", Username: "target"}
	i := newCommandInteraction(
		DiscordSlashCommandUserInfo,
		&discordgo.ApplicationCommandInteractionDataOption{
			Name:  optionUser,
			Type:  discordgo.ApplicationCommandOptionUser,
			Value: target.ID,
		},
	)
	data := i.ApplicationCommandData()
	data.Resolved.Users = map[string]*discordgo.User{target.ID: target}
	data.Resolved.Members = map[string]*discordgo.Member{target.ID: {Nick: "tgt"}}

	_, opts := commandOptions(data.Options)
	u, m := resolvedUserOption(i, opts, optionUser)
	require.NotNil(t, u)
	require.NotNil(t, m)
	assert.Equal(t, "target", u.Username)
	assert.Equal(t, "tgt", m.Nick)
	assert.Same(t, target, m.User)

	u, m = resolvedUserOption(i, map[string]*discordgo.ApplicationCommandInteractionDataOption{}, optionUser)
	assert.Nil(t, u)
	assert.Nil(t, m)
}

func TestStructToSlogValue(t *testing.T) {
	type example struct {
		Name    string `json:"name"`
		Secret  string `json:"secret" log:"[redacted]"`
		Empty   string `json:"empty"`
		Ignored string `json:"-"`
		Count   int
	}
	v := structToSlogValue(&example{Name: "x", Secret: "hunter2", Ignored: "y", Count: 3})
	require.Equal(t, slog.KindGroup, v.Kind())

	attrs := map[string]string{}
	for _, attr := range v.Group() {
		attrs[attr.Key] = attr.Value.String()
	}
	assert.Equal(
		t,
		map[string]string{"name": "x", "secret": "[redacted]", "Count": "3"},
		attrs,
	)

	var nilExample *example
	assert.Equal(t, slog.KindAny, structToSlogValue(nilExample).Kind())
}

func TestContextLogger(t *testing.T) {
	ctx := context.Background()
	_, ok := ContextLogger(ctx)
	assert.False(t, ok)

	fallback := testLogger()
	assert.Same(t, fallback, contextLoggerOr(ctx, fallback))

	logger := testLogger()
	ctx = WithLogger(ctx, logger)
	got, ok := ContextLogger(ctx)
	require.True(t, ok)
	assert.Same(t, logger, got)
	assert.Same(t, logger, contextLoggerOr(ctx, fallback))
}

func TestUserDisplayName(t *testing.T) {
	assert.Equal(t, "", userDisplayName(nil))
	assert.Equal(t, "name", userDisplayName(&discordgo.User{Username: "name"}))
	assert.Equal(
		t,
		"Global",
		userDisplayName(&discordgo.User{Username: "name", GlobalName: "Global"}),
	)
}
