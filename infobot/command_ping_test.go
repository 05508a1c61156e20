package infobot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatencies_Average(t *testing.T) {
	t.Parallel()
	assert.Equal(t, time.Duration(0), latencies{}.Average())

	l := latencies{
		Websocket: 10 * time.Millisecond,
		Typing:    20 * time.Millisecond,
		Message:   30 * time.Millisecond,
	}
	assert.Equal(t, 20*time.Millisecond, l.Average())

	// failed measurements are left out
	l.Database = 0
	l.Discord = 100 * time.Millisecond
	assert.Equal(t, 40*time.Millisecond, l.Average())
}

func TestFormatLatency(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "0ms", formatLatency(0))
	assert.Equal(t, "42ms", formatLatency(42*time.Millisecond))
	assert.Equal(t, "2ms", formatLatency(1500*time.Microsecond))
}

func TestPingURL(t *testing.T) {
	t.Parallel()
	var userAgent string
	srv := httptest.NewServer(
		http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				userAgent = r.UserAgent()
				if r.URL.Path == "/down" {
					w.WriteHeader(http.StatusServiceUnavailable)
					return
				}
				_, _ = w.Write([]byte("ok"))
			},
		),
	)
	t.Cleanup(srv.Close)

	ctx := context.Background()
	require.NoError(t, pingURL(ctx, srv.Client(), srv.URL, "infobot-test"))
	assert.Equal(t, "infobot-test", userAgent)

	err := pingURL(ctx, srv.Client(), srv.URL+"/down", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestCommandPing(t *testing.T) {
	ib, session := newTestInfoBot(t)
	u := newTestUser(t, ib)

	srv := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
	)
	t.Cleanup(srv.Close)
	ib.config.HTTPClient = srv.Client()
	ib.config.Discord.PingURL = srv.URL

	handler := newStubInteractionHandler(newCommandInteraction(DiscordSlashCommandPing))
	ib.commandPing(context.Background(), handler, u)

	edit := handler.requireDeferredEdit(t)
	require.NotNil(t, edit.Embeds)
	embed := (*edit.Embeds)[0]
	assert.Equal(t, "🏓 Pong", embed.Title)
	require.Len(t, embed.Fields, 6)
	assert.Equal(t, "42ms", embed.Fields[0].Value)

	session.mu.Lock()
	defer session.mu.Unlock()
	assert.Equal(t, []string{testChannelID}, session.typing)
}

func TestCommandPing_FailedMeasurements(t *testing.T) {
	ib, session := newTestInfoBot(t)
	u := newTestUser(t, ib)
	session.typingErr = errors.New("typing failed")

	srv := httptest.NewServer(
		http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		),
	)
	t.Cleanup(srv.Close)
	ib.config.HTTPClient = srv.Client()
	ib.config.Discord.PingURL = srv.URL

	handler := newStubInteractionHandler(newCommandInteraction(DiscordSlashCommandPing))
	ib.commandPing(context.Background(), handler, u)

	embed := (*handler.requireDeferredEdit(t).Embeds)[0]
	fields := map[string]string{}
	for _, f := range embed.Fields {
		fields[f.Name] = f.Value
	}
	assert.Equal(t, "0ms", fields["⌨️ Typing latency"])
	assert.Equal(t, "0ms", fields["🔗 Discord latency"])
}

func TestCommandUptime(t *testing.T) {
	ib, _ := newTestInfoBot(t)
	u := newTestUser(t, ib)

	ib.startedAt = time.Now().Add(-(26*time.Hour + 30*time.Second))
	handler := newStubInteractionHandler(newCommandInteraction(DiscordSlashCommandUptime))
	ib.commandUptime(context.Background(), handler, u)
	resp := handler.requireResponse(t)
	assert.Equal(
		t,
		"I've been online for 1 day, 2 hours and 30 seconds",
		resp.Data.Embeds[0].Title,
	)
}

func TestCommandServersAndMessages(t *testing.T) {
	ib, _ := newTestInfoBot(t)
	u := newTestUser(t, ib)

	ib.discord.trackGuild(testGuild())
	handler := newStubInteractionHandler(newCommandInteraction(DiscordSlashCommandServers))
	ib.commandServers(context.Background(), handler, u)
	assert.Equal(t, "I'm in `1` servers.", handler.requireResponse(t).Data.Embeds[0].Title)

	ib.discord.messagesSeen.Add(1500)
	ib.discord.messagesEdited.Add(3)
	handler = newStubInteractionHandler(newCommandInteraction(DiscordSlashCommandMessages))
	ib.commandMessages(context.Background(), handler, u)
	assert.Equal(
		t,
		"I've seen a total of `1,500` messages and `3` edits.",
		handler.requireResponse(t).Data.Embeds[0].Title,
	)
}

func TestCommandBotInfo(t *testing.T) {
	ib, _ := newTestInfoBot(t)
	u := newTestUser(t, ib)

	ib.discord.botUser.Store(&discordgo.User{ID: "400000000000000001", Username: "infobot-test"})
	ib.discord.trackGuild(testGuild())
	ib.discord.messagesSeen.Add(10)
	ib.discord.messagesEdited.Add(2)

	handler := newStubInteractionHandler(newCommandInteraction(DiscordSlashCommandBotInfo))
	ib.commandBotInfo(context.Background(), handler, u)
	embed := handler.requireResponse(t).Data.Embeds[0]
	assert.Equal(t, "infobot-test", embed.Title)
	require.NotNil(t, embed.Thumbnail)
	require.Len(t, embed.Fields, 3)

	numbers := embed.Fields[0].Value
	assert.Contains(t, numbers, "Servers: 1\n")
	assert.Contains(t, numbers, "Commands: 19\n")
	assert.Contains(t, numbers, "Messages seen: 10 (2 edited)")

	versions := embed.Fields[1].Value
	assert.Contains(t, versions, "infobot: "+Version)
	assert.Contains(t, versions, "Go: "+runtime.Version())
	assert.Contains(t, versions, "discordgo: "+discordgo.VERSION)
}
