package infobot

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAFKTracker_SetAndClear(t *testing.T) {
	ib, _ := newTestInfoBot(t)
	ctx := context.Background()
	since := time.UnixMilli(1700000000000)

	s, err := ib.afk.setAFK(ctx, "u1", "  lunch  ", since)
	require.NoError(t, err)
	assert.True(t, s.IsAFK())
	assert.Equal(t, "lunch", s.ReasonText())
	assert.Equal(t, since, s.SinceTime())
	assert.True(t, ib.afk.isAFK("u1"))

	prev, err := ib.afk.clearAFK(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "lunch", prev.ReasonText())
	assert.False(t, ib.afk.isAFK("u1"))

	// the row is kept, with the status cleared
	var stored AFKStatus
	require.NoError(t, ib.db.DB().Where("user_id = ?", "u1").Take(&stored).Error)
	assert.Nil(t, stored.Since)
	assert.Nil(t, stored.Reason)
}

func TestAFKTracker_DefaultReason(t *testing.T) {
	ib, _ := newTestInfoBot(t)
	s, err := ib.afk.setAFK(context.Background(), "u1", "", time.Now())
	require.NoError(t, err)
	assert.Equal(t, afkDefaultReason, s.ReasonText())
}

func TestAFKTracker_AutoRemoveSurvivesStatusChanges(t *testing.T) {
	ib, _ := newTestInfoBot(t)
	ctx := context.Background()

	s, err := ib.afk.setAutoRemove(ctx, "u1", true)
	require.NoError(t, err)
	assert.True(t, s.AutoRemove)
	assert.False(t, s.IsAFK())

	s, err = ib.afk.setAFK(ctx, "u1", "brb", time.Now())
	require.NoError(t, err)
	assert.True(t, s.AutoRemove)

	_, err = ib.afk.clearAFK(ctx, "u1")
	require.NoError(t, err)
	s, ok := ib.afk.get("u1")
	require.True(t, ok)
	assert.True(t, s.AutoRemove)

	s, err = ib.afk.setAutoRemove(ctx, "u1", false)
	require.NoError(t, err)
	assert.False(t, s.AutoRemove)
}

func TestAFKTracker_LoadAndRefresh(t *testing.T) {
	ib, _ := newTestInfoBot(t)
	ctx := context.Background()

	_, err := ib.afk.setAFK(ctx, "u1", "away", time.Now())
	require.NoError(t, err)

	// another tracker sharing the database
	other := newAFKTracker(ib)
	require.NoError(t, other.load(ctx))
	assert.True(t, other.isAFK("u1"))

	_, err = ib.afk.clearAFK(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, other.isAFK("u1"))

	other.refresh(ctx, "u1")
	assert.False(t, other.isAFK("u1"))

	other.refresh(ctx, "missing")
	_, ok := other.get("missing")
	assert.False(t, ok)
}

func TestAFKTracker_NotifiesOnUpdate(t *testing.T) {
	ib, _ := newTestInfoBot(t)
	ctx := context.Background()
	notifier, err := newDBNotifier(dbTypeSQLite, "", ib.db, ib.signals, ib.logger)
	require.NoError(t, err)
	ib.dbNotifier = notifier

	_, err = ib.afk.setAFK(ctx, "u1", "away", time.Now())
	require.NoError(t, err)

	select {
	case userID := <-ib.signals.afkUpdated:
		assert.Equal(t, "u1", userID)
	default:
		t.Fatal("expected afk update notification")
	}
}

func TestAFKTracker_HandleMessage_Mentions(t *testing.T) {
	ib, session := newTestInfoBot(t)
	ctx := context.Background()

	_, err := ib.afk.setAFK(ctx, "u2", "sleeping", time.Now().Add(-time.Hour))
	require.NoError(t, err)

	mentioned := &discordgo.User{ID: "u2", Username: "sleepy"}
	msg := &discordgo.Message{
		ID:        "m1",
		ChannelID: testChannelID,
		GuildID:   testGuildID,
		Author:    &discordgo.User{ID: "u1", Username: "author"},
		Mentions:  []*discordgo.User{mentioned, mentioned, {ID: "u3", Username: "here"}},
	}
	ib.afk.handleMessage(ctx, msg)

	sent := session.sentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, testChannelID, sent[0].ChannelID)
	require.Len(t, sent[0].Data.Embeds, 1)
	assert.Equal(t, "sleepy is AFK", sent[0].Data.Embeds[0].Title)
	assert.Contains(t, sent[0].Data.Embeds[0].Description, "Reason: sleeping")
	require.NotNil(t, sent[0].Data.Reference)
	assert.Equal(t, "m1", sent[0].Data.Reference.MessageID)
	require.NotNil(t, sent[0].Data.AllowedMentions)
	assert.Empty(t, sent[0].Data.AllowedMentions.Parse)
}

func TestAFKTracker_HandleMessage_AutoRemove(t *testing.T) {
	ib, session := newTestInfoBot(t)
	ctx := context.Background()

	_, err := ib.afk.setAutoRemove(ctx, "u1", true)
	require.NoError(t, err)
	_, err = ib.afk.setAFK(ctx, "u1", "gaming", time.Now().Add(-90*time.Minute))
	require.NoError(t, err)

	ib.afk.handleMessage(
		ctx,
		&discordgo.Message{
			ID:        "m1",
			ChannelID: testChannelID,
			Author:    &discordgo.User{ID: "u1", Username: "gamer", GlobalName: "Gamer"},
		},
	)
	assert.False(t, ib.afk.isAFK("u1"))

	sent := session.sentMessages()
	require.Len(t, sent, 1)
	embed := sent[0].Data.Embeds[0]
	assert.Equal(t, "👋 Welcome back Gamer!", embed.Title)
	assert.Contains(t, embed.Description, "You've been AFK for 1 hour and 30 minutes")
	assert.Contains(t, embed.Description, "With the reason being: gaming")
}

func TestAFKTracker_HandleMessage_NoAutoRemove(t *testing.T) {
	ib, session := newTestInfoBot(t)
	ctx := context.Background()

	_, err := ib.afk.setAFK(ctx, "u1", "gaming", time.Now())
	require.NoError(t, err)

	ib.afk.handleMessage(
		ctx,
		&discordgo.Message{ID: "m1", ChannelID: testChannelID, Author: &discordgo.User{ID: "u1"}},
	)
	assert.True(t, ib.afk.isAFK("u1"))
	assert.Empty(t, session.sentMessages())

	// bots are ignored entirely
	ib.afk.handleMessage(
		ctx,
		&discordgo.Message{
			ID:        "m2",
			ChannelID: testChannelID,
			Author:    &discordgo.User{ID: "b1", Bot: true},
			Mentions:  []*discordgo.User{{ID: "u1"}},
		},
	)
	assert.Empty(t, session.sentMessages())
}

func TestCommandAFK(t *testing.T) {
	ib, _ := newTestInfoBot(t)
	u := newTestUser(t, ib)
	ctx := context.Background()

	handler := newStubInteractionHandler(
		newCommandInteraction(DiscordSlashCommandAFK, stringOption(afkOptionReason, "lunch")),
	)
	ib.commandAFK(ctx, handler, u)
	resp := handler.requireResponse(t)
	require.Len(t, resp.Data.Embeds, 1)
	assert.Equal(t, "Test User is now AFK", resp.Data.Embeds[0].Title)
	assert.Equal(t, "With the reason being: lunch", resp.Data.Embeds[0].Description)
	assert.True(t, ib.afk.isAFK(u.ID))

	// running it again removes the status
	ib.commandAFK(ctx, handler, u)
	resp = handler.requireResponse(t)
	assert.Equal(t, "👋 Welcome back Test User!", resp.Data.Embeds[0].Title)
	assert.False(t, ib.afk.isAFK(u.ID))
}

func TestCommandAFK_AlreadyAFKWithAutoRemove(t *testing.T) {
	ib, _ := newTestInfoBot(t)
	u := newTestUser(t, ib)
	ctx := context.Background()

	_, err := ib.afk.setAutoRemove(ctx, u.ID, true)
	require.NoError(t, err)
	_, err = ib.afk.setAFK(ctx, u.ID, "", time.Now())
	require.NoError(t, err)

	handler := newStubInteractionHandler(newCommandInteraction(DiscordSlashCommandAFK))
	ib.commandAFK(ctx, handler, u)
	resp := handler.requireResponse(t)
	assert.True(t, isEphemeral(resp))
	assert.Equal(
		t,
		"You're already AFK! Your status will be removed when you send a message.",
		resp.Data.Content,
	)
	assert.True(t, ib.afk.isAFK(u.ID))
}

func TestCommandAutoAFK(t *testing.T) {
	ib, _ := newTestInfoBot(t)
	u := newTestUser(t, ib)
	ctx := context.Background()

	handler := newStubInteractionHandler(newCommandInteraction(DiscordSlashCommandAutoAFK))
	ib.commandAutoAFK(ctx, handler, u)
	resp := handler.requireResponse(t)
	assert.Equal(t, "✅ Enabled automatic AFK removal", resp.Data.Embeds[0].Title)
	assert.Equal(t, "To remove your AFK status do `/afk` again.", resp.Data.Embeds[0].Description)

	ib.commandAutoAFK(ctx, handler, u)
	resp = handler.requireResponse(t)
	assert.Equal(t, "❌ Disabled automatic AFK removal", resp.Data.Embeds[0].Title)
}

func TestAFKStatusLine(t *testing.T) {
	ib, _ := newTestInfoBot(t)
	assert.Equal(t, "No", ib.afk.afkStatusLine("u1"))

	since := time.Unix(1700000000, 0)
	_, err := ib.afk.setAFK(context.Background(), "u1", "", since)
	require.NoError(t, err)
	assert.Equal(t, "Yes, since <t:1700000000:R>", ib.afk.afkStatusLine("u1"))
}
