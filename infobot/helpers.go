package infobot

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const loggerContextKey contextKey = "logger"

type contextKey string

// numberPrinter formats counts with thousands separators
var numberPrinter = message.NewPrinter(language.English)

// shortenString reduces the size of the input string to a specified limit.
//
// Double newlines and bold markers are removed first. If the string is
// still too long, it's truncated and a suffix is appended indicating that
// the output limit was reached.
func shortenString(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	s = strings.ReplaceAll(s, "\n\n", "\n")
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	s = strings.ReplaceAll(s, "**", "")
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	suffix := "\n\n**(output limit reached)**"
	suffixChars := []rune(suffix)
	if limit-len(suffixChars) <= 0 {
		return strings.TrimSpace(string([]rune(s)[:limit]))
	}

	return strings.TrimSpace(
		string([]rune(s)[:limit-len(suffixChars)]) + suffix,
	)
}

// commandOptions maps option names to options. When the interaction
// invoked a subcommand, the subcommand's name is returned along with
// its options.
func commandOptions(
	options []*discordgo.ApplicationCommandInteractionDataOption,
) (string, map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	var subcommand string
	if len(options) == 1 && options[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		subcommand = options[0].Name
		options = options[0].Options
	}
	optionMap := make(
		map[string]*discordgo.ApplicationCommandInteractionDataOption,
		len(options),
	)
	for _, option := range options {
		optionMap[option.Name] = option
	}
	return subcommand, optionMap
}

// optionString returns the named string option's value, or nil if the
// option wasn't provided
func optionString(
	options map[string]*discordgo.ApplicationCommandInteractionDataOption,
	name string,
) *string {
	opt, ok := options[name]
	if !ok || opt == nil {
		return nil
	}
	s := opt.StringValue()
	return &s
}

var discordGoLogLevels = map[int]slog.Level{
	discordgo.LogDebug:         slog.LevelDebug,
	discordgo.LogError:         slog.LevelError,
	discordgo.LogWarning:       slog.LevelWarn,
	discordgo.LogInformational: slog.LevelInfo,
}

// structToSlogValue converts a struct to a slog.Value, using the struct's
// JSON tag as the key for each field, if set.
// If the `log` tag is set, the value specified will override the
// field's actual value. Ex: `log:"REDACTED"` will cause "REDACTED" to
// be shown as the field's value.
func structToSlogValue(v any) slog.Value {
	typ := reflect.TypeOf(v)
	if typ == nil {
		return slog.AnyValue(nil)
	}
	val := reflect.ValueOf(v)

	if typ.Kind() == reflect.Ptr {
		if val.IsNil() {
			return slog.AnyValue(nil)
		}
		val = val.Elem()
		typ = typ.Elem()
	}

	if typ.Kind() != reflect.Struct {
		return slog.AnyValue(v)
	}

	var groupAttrs []slog.Attr

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		jsonTag, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if jsonTag == "-" {
			continue
		}
		if jsonTag == "" {
			jsonTag = field.Name
		}

		fv := val.Field(i)
		if !fv.CanInterface() {
			continue
		}

		if logTag := field.Tag.Get("log"); logTag != "" {
			groupAttrs = append(
				groupAttrs,
				slog.Attr{Key: jsonTag, Value: slog.StringValue(logTag)},
			)
			continue
		}

		// skip values that are nil or empty
		switch fv.Kind() {
		case reflect.Ptr:
			if fv.IsNil() {
				continue
			}
		case reflect.Map, reflect.Slice:
			if fv.IsNil() || fv.Len() == 0 {
				continue
			}
		case reflect.String:
			if fv.Len() == 0 {
				continue
			}
		}

		groupAttrs = append(
			groupAttrs,
			slog.Attr{Key: jsonTag, Value: structToSlogValue(fv.Interface())},
		)
	}
	return slog.GroupValue(groupAttrs...)
}

// WithLogger returns a new context with the given logger added.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if logger == nil {
		logger = slog.Default()
	}
	return context.WithValue(ctx, loggerContextKey, logger)
}

// ContextLogger returns a logger from the given context if one
// is present, and a boolean indicating whether a logger was found.
func ContextLogger(ctx context.Context) (*slog.Logger, bool) {
	logger, ok := ctx.Value(loggerContextKey).(*slog.Logger)
	return logger, ok
}

// contextLoggerOr returns the context's logger, or fallback if there isn't one
func contextLoggerOr(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := ContextLogger(ctx); ok {
		return logger
	}
	return fallback
}

func interactionLogAttrs(i discordgo.InteractionCreate) []any {
	logAttrs := []any{
		"id", i.ID,
		"type", i.Type.String(),
		"command_context", i.Context.String(),
	}
	if i.ChannelID != "" {
		logAttrs = append(logAttrs, "channel_id", i.ChannelID)
	}
	if i.GuildID != "" {
		logAttrs = append(logAttrs, "guild_id", i.GuildID)
	}
	if i.AppID != "" {
		logAttrs = append(logAttrs, "app_id", i.AppID)
	}
	return logAttrs
}

func userLogAttrs(u User) []any {
	return []any{
		"id", u.ID,
		"username", u.Username,
		"global_name", u.GlobalName,
	}
}

// truncate shortens the input string to a specified number of characters.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// chunkItems splits the input items into chunks of maxRowLength
func chunkItems[T any](maxRowLength int, items ...T) [][]T {
	var result [][]T
	for len(items) > 0 {
		end := maxRowLength
		if len(items) < maxRowLength {
			end = len(items)
		}
		result = append(result, items[:end])
		items = items[end:]
	}
	return result
}

func stringPointerValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func generateRandomHexString(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// humanDuration formats d as "1 day, 2 hours, 3 minutes and 4 seconds",
// omitting zero units. Durations under a second are "0 seconds".
func humanDuration(d time.Duration) string {
	total := int64(d / time.Second)
	if total < 0 {
		total = -total
	}
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	var parts []string
	for _, unit := range []struct {
		n    int64
		name string
	}{
		{days, "day"},
		{hours, "hour"},
		{minutes, "minute"},
		{seconds, "second"},
	} {
		if unit.n == 0 {
			continue
		}
		s := fmt.Sprintf("%d %s", unit.n, unit.name)
		if unit.n != 1 {
			s += "s"
		}
		parts = append(parts, s)
	}

	switch len(parts) {
	case 0:
		return "0 seconds"
	case 1:
		return parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
	}
}

// discordTimestamp formats t as a Discord timestamp markdown tag
// (ex: <t:1700000000:R>) with the given style
func discordTimestamp(t time.Time, style string) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), style)
}

// discordTimestampFull renders t as a full date followed by a relative time
func discordTimestampFull(t time.Time) string {
	return fmt.Sprintf("%s (%s)", discordTimestamp(t, "F"), discordTimestamp(t, "R"))
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func formatCount(n int) string {
	return numberPrinter.Sprintf("%d", n)
}

// snowflakeTime returns the creation time encoded in a Discord ID
func snowflakeTime(id string) time.Time {
	t, err := discordgo.SnowflakeTimestamp(id)
	if err != nil {
		return time.Time{}
	}
	return t
}

// optionInt returns the named integer option's value, or zero if the
// option wasn't provided
func optionInt(
	options map[string]*discordgo.ApplicationCommandInteractionDataOption,
	name string,
) int {
	opt, ok := options[name]
	if !ok || opt == nil {
		return 0
	}
	return int(opt.IntValue())
}

// resolvedUserOption returns the user (and, in guilds, the member) selected for
// the named user option, from the interaction's resolved data
func resolvedUserOption(
	i *discordgo.InteractionCreate,
	options map[string]*discordgo.ApplicationCommandInteractionDataOption,
	name string,
) (*discordgo.User, *discordgo.Member) {
	opt, ok := options[name]
	if !ok || opt == nil {
		return nil, nil
	}
	userID, _ := opt.Value.(string)
	resolved := i.ApplicationCommandData().Resolved
	if userID == "" || resolved == nil {
		return nil, nil
	}
	u := resolved.Users[userID]
	m := resolved.Members[userID]
	if m != nil && m.User == nil {
		m.User = u
	}
	return u, m
}
