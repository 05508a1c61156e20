package infobot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
)

// latencies are the measurements shown by /ping. A zero value means
// the measurement failed.
type latencies struct {
	Websocket time.Duration
	Typing    time.Duration
	Message   time.Duration
	Database  time.Duration
	Discord   time.Duration
}

// Average is the mean of the successful measurements
func (l latencies) Average() time.Duration {
	var total time.Duration
	n := 0
	for _, d := range []time.Duration{l.Websocket, l.Typing, l.Message, l.Database, l.Discord} {
		if d > 0 {
			total += d
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return total / time.Duration(n)
}

func formatLatency(d time.Duration) string {
	return fmt.Sprintf("%dms", d.Round(time.Millisecond).Milliseconds())
}

func pingEmbed(l latencies) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "🏓 Pong",
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🌐 Websocket latency", Value: formatLatency(l.Websocket), Inline: true},
			{Name: "⌨️ Typing latency", Value: formatLatency(l.Typing), Inline: true},
			{Name: "💬 Message latency", Value: formatLatency(l.Message), Inline: true},
			{Name: "🗄️ Database latency", Value: formatLatency(l.Database), Inline: true},
			{Name: "🔗 Discord latency", Value: formatLatency(l.Discord), Inline: true},
			{Name: "♾️ Average latency", Value: formatLatency(l.Average()), Inline: true},
		},
	}
}

// timed returns how long f took, or zero if it failed
func timed(f func() error) (time.Duration, error) {
	start := time.Now()
	if err := f(); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

// pingURL requests url, returning an error unless it responds with 200
func pingURL(ctx context.Context, client *http.Client, url string, userAgent string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return nil
}

func (ib *InfoBot) commandPing(ctx context.Context, handler InteractionHandler, _ *User) {
	logger := handler.Logger()
	session := ib.discord.session
	i := handler.GetInteraction()

	var (
		l   latencies
		err error
	)
	l.Websocket = session.HeartbeatLatency()

	l.Message, err = timed(func() error { return deferResponse(ctx, handler, false) })
	if err != nil {
		return
	}

	if l.Typing, err = timed(
		func() error {
			return session.ChannelTyping(i.ChannelID, discordgo.WithContext(ctx))
		},
	); err != nil {
		logger.WarnContext(ctx, "error measuring typing latency", tint.Err(err))
	}

	if l.Database, err = timed(func() error { return ib.db.Ping(ctx) }); err != nil {
		logger.WarnContext(ctx, "error measuring database latency", tint.Err(err))
	}

	httpClient := ib.config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if l.Discord, err = timed(
		func() error {
			return pingURL(ctx, httpClient, ib.config.Discord.PingURL, ib.config.UserAgent)
		},
	); err != nil {
		logger.WarnContext(ctx, "error measuring discord latency", tint.Err(err))
	}

	logger.InfoContext(
		ctx,
		"ping",
		"websocket", l.Websocket,
		"typing", l.Typing,
		"message", l.Message,
		"database", l.Database,
		"discord", l.Discord,
	)
	_ = editEmbeds(ctx, handler, pingEmbed(l))
}

func (ib *InfoBot) commandUptime(ctx context.Context, handler InteractionHandler, _ *User) {
	_ = respondEmbeds(
		ctx,
		handler,
		false,
		&discordgo.MessageEmbed{
			Title: fmt.Sprintf("I've been online for %s", humanDuration(ib.Uptime())),
		},
	)
}

func (ib *InfoBot) commandServers(ctx context.Context, handler InteractionHandler, _ *User) {
	_ = respondEmbeds(
		ctx,
		handler,
		false,
		&discordgo.MessageEmbed{
			Title: fmt.Sprintf("I'm in `%s` servers.", formatCount(ib.discord.GuildCount())),
		},
	)
}

func (ib *InfoBot) commandMessages(ctx context.Context, handler InteractionHandler, _ *User) {
	_ = respondEmbeds(
		ctx,
		handler,
		false,
		&discordgo.MessageEmbed{
			Title: fmt.Sprintf(
				"I've seen a total of `%s` messages and `%s` edits.",
				formatCount(int(ib.discord.messagesSeen.Load())),
				formatCount(int(ib.discord.messagesEdited.Load())),
			),
		},
	)
}

func (ib *InfoBot) botInfoEmbed() *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{Title: "infobot"}
	if u := ib.discord.botUser.Load(); u != nil {
		embed.Title = u.Username
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: u.AvatarURL(discordAssetSize)}
	}

	commands := len(applicationCommands(ib.rtfm.Config().Sets, ib.translator != nil))
	numbers := fmt.Sprintf(
		"```yaml\nServers: %s\nCommands: %s\nMessages seen: %s (%s edited)\n```",
		formatCount(ib.discord.GuildCount()),
		formatCount(commands),
		formatCount(int(ib.discord.messagesSeen.Load())),
		formatCount(int(ib.discord.messagesEdited.Load())),
	)
	versions := fmt.Sprintf(
		"```yaml\ninfobot: %s\nGo: %s\ndiscordgo: %s\n```",
		Version,
		runtime.Version(),
		discordgo.VERSION,
	)
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Numbers", Value: numbers, Inline: true},
		{Name: "Versions", Value: versions, Inline: true},
		{Name: "Uptime", Value: humanDuration(ib.Uptime())},
	}
	return embed
}

func (ib *InfoBot) commandBotInfo(ctx context.Context, handler InteractionHandler, _ *User) {
	_ = respondEmbeds(ctx, handler, false, ib.botInfoEmbed())
}
