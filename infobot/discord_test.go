package infobot

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commandNames(commands []*discordgo.ApplicationCommand) []string {
	names := make([]string, 0, len(commands))
	for _, c := range commands {
		names = append(names, c.Name)
	}
	return names
}

func TestApplicationCommands(t *testing.T) {
	t.Parallel()
	sets := []DocSet{{ID: "python", Title: "python", BaseURL: "https://docs.python.org/3"}}

	commands := applicationCommands(sets, false)
	names := commandNames(commands)
	assert.Len(t, commands, 19)
	assert.NotContains(t, names, DiscordSlashCommandTranslate)
	assert.Contains(t, names, DiscordSlashCommandRTFM)
	assert.Contains(t, names, DiscordSlashCommandMemberList)

	commands = applicationCommands(sets, true)
	assert.Len(t, commands, 20)
	assert.Contains(t, commandNames(commands), DiscordSlashCommandTranslate)

	for _, c := range commands {
		assert.Equal(t, discordgo.ChatApplicationCommand, c.Type, c.Name)
		assert.NotEmpty(t, c.Description, c.Name)
		require.NotNil(t, c.Contexts, c.Name)
	}
}

func TestAppCommandRTFM_Choices(t *testing.T) {
	t.Parallel()
	sets := make([]DocSet, 0, 30)
	for i := 0; i < 30; i++ {
		sets = append(sets, DocSet{ID: fmt.Sprintf("set%d", i)})
	}
	sets[0].Title = "First set"

	cmd := appCommandRTFM(sets)
	require.Len(t, cmd.Options, 2)
	setOption := cmd.Options[0]
	assert.True(t, setOption.Required)
	require.Len(t, setOption.Choices, discordMaxChoices)
	assert.Equal(t, "set0 (First set)", setOption.Choices[0].Name)
	assert.Equal(t, "set0", setOption.Choices[0].Value)
	assert.Equal(t, "set1", setOption.Choices[1].Name)

	queryOption := cmd.Options[1]
	assert.False(t, queryOption.Required)
	assert.True(t, queryOption.Autocomplete)
}

func TestDiscord_GuildTracking(t *testing.T) {
	ib, _ := newTestInfoBot(t)
	d := ib.discord

	d.handlerReady()(
		nil,
		&discordgo.Ready{
			SessionID: "abc",
			User:      &discordgo.User{ID: "400000000000000001", Username: "infobot"},
			Guilds: []*discordgo.Guild{
				{ID: "g1", Name: "one"},
				{ID: "g2", Name: "two"},
			},
		},
	)
	assert.Equal(t, 2, d.GuildCount())
	assert.Equal(t, "infobot", d.botUser.Load().Username)

	d.handlerGuildCreate()(nil, &discordgo.GuildCreate{Guild: &discordgo.Guild{ID: "g3", Name: "three"}})
	assert.Equal(t, 3, d.GuildCount())
	g, ok := d.guild("g3")
	require.True(t, ok)
	assert.Equal(t, "three", g.Name)

	// outages don't remove the guild
	d.handlerGuildDelete()(
		nil,
		&discordgo.GuildDelete{Guild: &discordgo.Guild{ID: "g1", Unavailable: true}},
	)
	assert.Equal(t, 3, d.GuildCount())

	d.handlerGuildDelete()(nil, &discordgo.GuildDelete{Guild: &discordgo.Guild{ID: "g1"}})
	assert.Equal(t, 2, d.GuildCount())
	_, ok = d.guild("g1")
	assert.False(t, ok)

	d.trackGuild(nil)
	d.trackGuild(&discordgo.Guild{})
	assert.Equal(t, 2, d.GuildCount())
}

func TestDiscord_MessageCounters(t *testing.T) {
	ib, session := newTestInfoBot(t)
	d := ib.discord
	ctx := context.Background()

	_, err := ib.afk.setAFK(ctx, "u2", "sleeping", time.Now())
	require.NoError(t, err)

	create := d.handlerMessageCreate(ctx)
	create(nil, &discordgo.MessageCreate{})
	create(
		nil,
		&discordgo.MessageCreate{
			Message: &discordgo.Message{
				ID:        "m1",
				ChannelID: testChannelID,
				Author:    &discordgo.User{ID: "b1", Bot: true},
				Mentions:  []*discordgo.User{{ID: "u2", Username: "sleepy"}},
			},
		},
	)
	create(
		nil,
		&discordgo.MessageCreate{
			Message: &discordgo.Message{
				ID:        "m2",
				ChannelID: testChannelID,
				Author:    &discordgo.User{ID: "u1"},
				Mentions:  []*discordgo.User{{ID: "u2", Username: "sleepy"}},
			},
		},
	)
	ib.runtimeWG.Wait()
	assert.Equal(t, int64(2), d.messagesSeen.Load())

	// only the user's message mentioning someone AFK got a reply
	sent := session.sentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "m2", sent[0].Data.Reference.MessageID)

	update := d.handlerMessageUpdate()
	edited := time.Now()
	update(nil, &discordgo.MessageUpdate{})
	update(nil, &discordgo.MessageUpdate{Message: &discordgo.Message{ID: "m2"}})
	update(nil, &discordgo.MessageUpdate{Message: &discordgo.Message{ID: "m2", EditedTimestamp: &edited}})
	assert.Equal(t, int64(1), d.messagesEdited.Load())
}

func TestDiscord_HandlerConnect(t *testing.T) {
	ib, session := newTestInfoBot(t)
	d := ib.discord

	d.handlerConnect()(nil, &discordgo.Connect{})
	assert.True(t, d.connected.Load())
	assert.Equal(t, int64(1), d.metricConnects.Load())
	assert.Empty(t, session.sentMessages())

	ib.runtimeConfig.DiscordNotificationChannelID = testChannelID
	d.handlerConnect()(nil, &discordgo.Connect{})
	sent := session.sentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, testChannelID, sent[0].ChannelID)
	assert.Equal(t, DefaultDiscordStartupMessage, sent[0].Data.Content)

	d.handlerDisconnect()(nil, &discordgo.Disconnect{})
	assert.False(t, d.connected.Load())
	assert.Equal(t, int64(1), d.metricDisconnects.Load())
}

func TestDiscord_AddHandlers(t *testing.T) {
	ib, session := newTestInfoBot(t)
	ib.discord.addHandlers(context.Background())
	assert.Len(t, ib.discord.discordgoRemoveHandlerFuncs, 8)

	session.mu.Lock()
	assert.Len(t, session.handlers, 8)
	session.mu.Unlock()

	ib.discord.removeHandlers()
	assert.Empty(t, ib.discord.discordgoRemoveHandlerFuncs)
}
