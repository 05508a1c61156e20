package infobot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const afkDefaultReason = "No reason provided"

// AFKStatus is a user's AFK state. Since and Reason are nil while the
// user isn't AFK; the row is kept so AutoRemove persists.
//
//nolint:lll // struct tags can't be split
type AFKStatus struct {
	UserID string `json:"user_id" gorm:"primaryKey;type:string"`

	// Since is when the user went AFK, in Unix milliseconds
	Since *int64 `json:"since"`

	Reason *string `json:"reason"`

	// AutoRemove removes the user's AFK status the next time they
	// send a message
	AutoRemove bool `json:"auto_remove" gorm:"not null"`

	UpdatedAt int64 `json:"updated_at" gorm:"autoUpdateTime:milli"`
}

func (a AFKStatus) IsAFK() bool {
	return a.Since != nil
}

func (a AFKStatus) SinceTime() time.Time {
	if a.Since == nil {
		return time.Time{}
	}
	return time.UnixMilli(*a.Since)
}

func (a AFKStatus) ReasonText() string {
	if a.Reason == nil || *a.Reason == "" {
		return afkDefaultReason
	}
	return *a.Reason
}

// afkTracker keeps every stored AFK status in memory, so incoming
// messages can be checked without a database query
type afkTracker struct {
	ib       *InfoBot
	mu       sync.RWMutex
	statuses map[string]AFKStatus
	logger   *slog.Logger
}

func newAFKTracker(ib *InfoBot) *afkTracker {
	return &afkTracker{
		ib:       ib,
		statuses: map[string]AFKStatus{},
		logger:   ib.logger.With(loggerNameKey, "afk"),
	}
}

// load replaces the cache with every status in the database
func (a *afkTracker) load(ctx context.Context) error {
	ctx, cancel := withDBTimeout(ctx)
	defer cancel()

	var rows []AFKStatus
	if err := a.ib.db.DB().WithContext(ctx).Find(&rows).Error; err != nil {
		return err
	}
	statuses := make(map[string]AFKStatus, len(rows))
	for _, row := range rows {
		statuses[row.UserID] = row
	}

	a.mu.Lock()
	a.statuses = statuses
	a.mu.Unlock()
	a.logger.DebugContext(ctx, "loaded afk statuses", "count", len(statuses))
	return nil
}

// refresh reloads a single user's status from the database
func (a *afkTracker) refresh(ctx context.Context, userID string) {
	ctx, cancel := withDBTimeout(ctx)
	defer cancel()

	var rows []AFKStatus
	err := a.ib.db.DB().WithContext(ctx).Where("user_id = ?", userID).Limit(1).Find(&rows).Error
	if err != nil {
		a.logger.ErrorContext(ctx, "error refreshing afk status", "user_id", userID, tint.Err(err))
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if len(rows) == 0 {
		delete(a.statuses, userID)
		return
	}
	a.statuses[userID] = rows[0]
}

func (a *afkTracker) get(userID string) (AFKStatus, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.statuses[userID]
	return s, ok
}

// isAFK reports whether the user is currently AFK
func (a *afkTracker) isAFK(userID string) bool {
	s, ok := a.get(userID)
	return ok && s.IsAFK()
}

func (a *afkTracker) put(s AFKStatus) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.statuses[s.UserID] = s
}

// upsert writes the given columns of s, creating the row if needed,
// then updates the cache and notifies other instances
func (a *afkTracker) upsert(ctx context.Context, s AFKStatus, columns ...string) (AFKStatus, error) {
	var stored AFKStatus
	err := a.ib.db.Transaction(
		ctx,
		func(tx *gorm.DB) error {
			err := tx.Clauses(
				clause.OnConflict{
					Columns:   []clause.Column{{Name: "user_id"}},
					DoUpdates: clause.AssignmentColumns(append(columns, "updated_at")),
				},
			).Create(&s).Error
			if err != nil {
				return err
			}
			return tx.Where("user_id = ?", s.UserID).Take(&stored).Error
		},
	)
	if err != nil {
		return stored, err
	}
	a.put(stored)
	if a.ib.dbNotifier != nil {
		a.ib.dbNotifier.AFKUpdated(ctx, s.UserID)
	}
	return stored, nil
}

// setAFK marks the user AFK as of since
func (a *afkTracker) setAFK(
	ctx context.Context,
	userID string,
	reason string,
	since time.Time,
) (AFKStatus, error) {
	reason = strings.TrimSpace(truncate(reason, afkMaxReasonLength))
	if reason == "" {
		reason = afkDefaultReason
	}
	ms := since.UnixMilli()
	return a.upsert(
		ctx,
		AFKStatus{UserID: userID, Since: &ms, Reason: &reason},
		"since", "reason",
	)
}

// clearAFK removes the user's AFK status, returning the status it
// replaced
func (a *afkTracker) clearAFK(ctx context.Context, userID string) (AFKStatus, error) {
	prev, _ := a.get(userID)
	_, err := a.upsert(ctx, AFKStatus{UserID: userID}, "since", "reason")
	return prev, err
}

// setAutoRemove sets whether the user's AFK status is removed when
// they next send a message
func (a *afkTracker) setAutoRemove(ctx context.Context, userID string, enabled bool) (AFKStatus, error) {
	s, ok := a.get(userID)
	if !ok {
		s = AFKStatus{UserID: userID}
	}
	s.AutoRemove = enabled
	return a.upsert(ctx, s, "auto_remove")
}

func welcomeBackEmbed(name string, prev AFKStatus, now time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: fmt.Sprintf("👋 Welcome back %s!", name),
		Description: fmt.Sprintf(
			"You've been AFK for %s.\nWith the reason being: %s",
			humanDuration(now.Sub(prev.SinceTime())),
			prev.ReasonText(),
		),
	}
}

func isAFKEmbed(name string, s AFKStatus) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: fmt.Sprintf("%s is AFK", name),
		Description: fmt.Sprintf(
			"Reason: %s\nSince: %s",
			s.ReasonText(),
			discordTimestampFull(s.SinceTime()),
		),
	}
}

// handleMessage welcomes back an AFK author with auto-removal enabled,
// and tells the channel about any AFK users the message mentions
func (a *afkTracker) handleMessage(ctx context.Context, m *discordgo.Message) {
	if m == nil || m.Author == nil || m.Author.Bot {
		return
	}
	logger := a.logger.With("message_id", m.ID, "channel_id", m.ChannelID)

	var embeds []*discordgo.MessageEmbed
	if s, ok := a.get(m.Author.ID); ok && s.IsAFK() && s.AutoRemove {
		prev, err := a.clearAFK(ctx, m.Author.ID)
		if err != nil {
			logger.ErrorContext(ctx, "error removing afk status", tint.Err(err))
		} else {
			logger.InfoContext(ctx, "removed afk status", "user_id", m.Author.ID)
			embeds = append(embeds, welcomeBackEmbed(userDisplayName(m.Author), prev, time.Now()))
		}
	}

	seen := map[string]bool{m.Author.ID: true}
	for _, mentioned := range m.Mentions {
		if mentioned == nil || seen[mentioned.ID] {
			continue
		}
		seen[mentioned.ID] = true
		if s, ok := a.get(mentioned.ID); ok && s.IsAFK() {
			embeds = append(embeds, isAFKEmbed(userDisplayName(mentioned), s))
		}
	}
	if len(embeds) == 0 {
		return
	}

	for _, chunk := range chunkItems(10, embeds...) {
		_, err := a.ib.discord.session.ChannelMessageSendComplex(
			m.ChannelID,
			&discordgo.MessageSend{
				Embeds:          chunk,
				Reference:       m.Reference(),
				AllowedMentions: &discordgo.MessageAllowedMentions{},
			},
			discordgo.WithContext(ctx),
		)
		if err != nil {
			logger.ErrorContext(ctx, "error sending afk message", tint.Err(err))
		}
	}
}

func (ib *InfoBot) commandAFK(ctx context.Context, handler InteractionHandler, u *User) {
	logger := handler.Logger()
	_, opts := commandOptions(handler.GetInteraction().ApplicationCommandData().Options)
	name := u.DisplayName()

	current, _ := ib.afk.get(u.ID)
	switch {
	case current.IsAFK() && current.AutoRemove:
		_ = respondContent(
			ctx,
			handler,
			true,
			"You're already AFK! Your status will be removed when you send a message.",
		)
	case current.IsAFK():
		prev, err := ib.afk.clearAFK(ctx, u.ID)
		if err != nil {
			logger.ErrorContext(ctx, "error removing afk status", tint.Err(err))
			respondError(ctx, handler)
			return
		}
		_ = respondEmbeds(ctx, handler, false, welcomeBackEmbed(name, prev, time.Now()))
	default:
		reason := stringPointerValue(optionString(opts, afkOptionReason))
		s, err := ib.afk.setAFK(ctx, u.ID, reason, time.Now())
		if err != nil {
			logger.ErrorContext(ctx, "error setting afk status", tint.Err(err))
			respondError(ctx, handler)
			return
		}
		logger.InfoContext(ctx, "user is now afk")
		_ = respondEmbeds(
			ctx,
			handler,
			false,
			&discordgo.MessageEmbed{
				Title:       fmt.Sprintf("%s is now AFK", name),
				Description: fmt.Sprintf("With the reason being: %s", s.ReasonText()),
			},
		)
	}
}

func (ib *InfoBot) commandAutoAFK(ctx context.Context, handler InteractionHandler, u *User) {
	current, _ := ib.afk.get(u.ID)
	s, err := ib.afk.setAutoRemove(ctx, u.ID, !current.AutoRemove)
	if err != nil {
		handler.Logger().ErrorContext(ctx, "error toggling automatic afk removal", tint.Err(err))
		respondError(ctx, handler)
		return
	}

	title := "❌ Disabled automatic AFK removal"
	if s.AutoRemove {
		title = "✅ Enabled automatic AFK removal"
	}
	_ = respondEmbeds(
		ctx,
		handler,
		false,
		&discordgo.MessageEmbed{
			Title: title,
			Description: fmt.Sprintf(
				"To remove your AFK status do `/%s` again.",
				DiscordSlashCommandAFK,
			),
		},
	)
}

// afkStatusLine describes a user's AFK state for /userinfo
func (a *afkTracker) afkStatusLine(userID string) string {
	s, ok := a.get(userID)
	if !ok || !s.IsAFK() {
		return "No"
	}
	return fmt.Sprintf("Yes, since %s", discordTimestamp(s.SinceTime(), "R"))
}
