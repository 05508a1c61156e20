package infobot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	todoMaxTextLength       = 1000
	todoPerPage             = 15
	todoEditedSuffix        = " (edited)"
	todoClearCustomIDPrefix = "todo_clear"
	todoClearConfirm        = "confirm"
	todoClearCancel         = "cancel"

	todoThumbnailURL = "https://cdn.discordapp.com/emojis/829049845192982598.png?size=96"
)

var (
	ErrTodoNotFound  = errors.New("todo not found")
	ErrTodoDuplicate = errors.New("todo already exists")
)

// TodoItem is a single task on a user's todo list. Text is unique
// per user.
//
//nolint:lll // struct tags can't be split
type TodoItem struct {
	ModelUintID
	UserID    string `json:"user_id" gorm:"not null;uniqueIndex:idx_todo_user_text;index"`
	Text      string `json:"text" gorm:"not null;uniqueIndex:idx_todo_user_text"`
	JumpURL   string `json:"jump_url" gorm:"type:string"`
	CreatedAt int64  `json:"created_at" gorm:"autoCreateTime:milli"`
	UpdatedAt int64  `json:"updated_at" gorm:"autoUpdateTime:milli"`
}

// Created is when the task was added
func (t TodoItem) Created() time.Time {
	return time.UnixMilli(t.CreatedAt)
}

// messageJumpURL links to a message. DM channels use @me in place of
// a guild ID.
func messageJumpURL(guildID, channelID, messageID string) string {
	if guildID == "" {
		guildID = "@me"
	}
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guildID, channelID, messageID)
}

// AddTodo adds text to the user's todo list. If the user already has
// that task, the existing item is returned and created is false.
func AddTodo(
	ctx context.Context,
	db DBI,
	userID string,
	text string,
	jumpURL string,
) (item *TodoItem, created bool, err error) {
	item = &TodoItem{UserID: userID, Text: text, JumpURL: jumpURL}
	err = db.Transaction(
		ctx,
		func(tx *gorm.DB) error {
			rv := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(item)
			if rv.Error != nil {
				return rv.Error
			}
			if rv.RowsAffected > 0 {
				created = true
				return nil
			}
			existing := &TodoItem{}
			if e := tx.Where("user_id = ? AND text = ?", userID, text).Take(existing).Error; e != nil {
				return e
			}
			item = existing
			return nil
		},
	)
	return item, created, err
}

// ListTodos returns the user's tasks, oldest first
func ListTodos(ctx context.Context, db DBI, userID string) ([]TodoItem, error) {
	ctx, cancel := withDBTimeout(ctx)
	defer cancel()

	var items []TodoItem
	err := db.DB().WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at asc, id asc").
		Find(&items).Error
	return items, err
}

// CountTodos returns the number of tasks on the user's list
func CountTodos(ctx context.Context, db DBI, userID string) (int64, error) {
	ctx, cancel := withDBTimeout(ctx)
	defer cancel()

	var n int64
	err := db.DB().WithContext(ctx).Model(&TodoItem{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

// ClearTodos removes every task on the user's list, returning the
// number removed
func ClearTodos(ctx context.Context, db DBI, userID string) (int64, error) {
	return db.Delete(ctx, &TodoItem{}, "user_id = ?", userID)
}

// todoAt returns the task at the given 1-based position of the user's
// list
func todoAt(tx *gorm.DB, userID string, index int) (*TodoItem, error) {
	if index < 1 {
		return nil, ErrTodoNotFound
	}
	var items []TodoItem
	err := tx.Where("user_id = ?", userID).
		Order("created_at asc, id asc").
		Offset(index - 1).
		Limit(1).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrTodoNotFound
	}
	return &items[0], nil
}

// RemoveTodo removes the task at the given 1-based position of the
// user's list, returning the removed task
func RemoveTodo(ctx context.Context, db DBI, userID string, index int) (*TodoItem, error) {
	var removed *TodoItem
	err := db.Transaction(
		ctx,
		func(tx *gorm.DB) error {
			item, err := todoAt(tx, userID, index)
			if err != nil {
				return err
			}
			removed = item
			return tx.Delete(item).Error
		},
	)
	return removed, err
}

// EditTodo replaces the text of the task at the given 1-based position,
// marking it as edited. The task keeps its position.
func EditTodo(
	ctx context.Context,
	db DBI,
	userID string,
	index int,
	text string,
) (old TodoItem, updated TodoItem, err error) {
	newText := text + todoEditedSuffix
	err = db.Transaction(
		ctx,
		func(tx *gorm.DB) error {
			item, e := todoAt(tx, userID, index)
			if e != nil {
				return e
			}
			old = *item

			var dupes int64
			if e = tx.Model(&TodoItem{}).
				Where("user_id = ? AND text = ? AND id <> ?", userID, newText, item.ID).
				Count(&dupes).Error; e != nil {
				return e
			}
			if dupes > 0 {
				return ErrTodoDuplicate
			}

			if e = tx.Model(item).Update("text", newText).Error; e != nil {
				return e
			}
			updated = *item
			updated.Text = newText
			return nil
		},
	)
	return old, updated, err
}

// todoLine renders a task for /todo list
func todoLine(n int, item TodoItem) string {
	number := fmt.Sprintf("**%d**", n)
	if item.JumpURL != "" {
		number = fmt.Sprintf("**[%d](%s)**", n, item.JumpURL)
	}
	return fmt.Sprintf("%s. %s (%s)", number, item.Text, discordTimestamp(item.Created(), "R"))
}

// todoListPages builds the pages shown by /todo list
func todoListPages(ownerName string, items []TodoItem) []*discordgo.MessageEmbed {
	lines := make([]string, 0, len(items))
	for n, item := range items {
		lines = append(lines, todoLine(n+1, item))
	}
	now := time.Now().UTC().Format(time.RFC3339)
	return listPages(
		lines,
		todoPerPage,
		func(page []string) *discordgo.MessageEmbed {
			return &discordgo.MessageEmbed{
				Title:       fmt.Sprintf("%s's todo list", ownerName),
				Description: joinWholeLines(page, discordMaxEmbedDescriptionSize),
				Timestamp:   now,
				Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: todoThumbnailURL},
			}
		},
	)
}

func (ib *InfoBot) commandTodo(ctx context.Context, handler InteractionHandler, u *User) {
	subcommand, opts := commandOptions(handler.GetInteraction().ApplicationCommandData().Options)
	switch subcommand {
	case todoSubcommandAdd:
		ib.todoAdd(ctx, handler, u, stringPointerValue(optionString(opts, todoOptionText)))
	case todoSubcommandList:
		ib.todoList(ctx, handler, u)
	case todoSubcommandClear:
		ib.todoClear(ctx, handler, u)
	case todoSubcommandRemove:
		ib.todoRemove(ctx, handler, u, optionInt(opts, todoOptionIndex))
	case todoSubcommandEdit:
		ib.todoEdit(
			ctx,
			handler,
			u,
			optionInt(opts, todoOptionIndex),
			stringPointerValue(optionString(opts, todoOptionText)),
		)
	default:
		handler.Logger().WarnContext(ctx, "unknown todo subcommand", "subcommand", subcommand)
		respondError(ctx, handler)
	}
}

func (ib *InfoBot) todoAdd(ctx context.Context, handler InteractionHandler, u *User, text string) {
	logger := handler.Logger()
	text = strings.TrimSpace(truncate(text, todoMaxTextLength))
	if text == "" {
		_ = respondContent(ctx, handler, true, "You need to tell me what to add!")
		return
	}

	if err := deferResponse(ctx, handler, false); err != nil {
		return
	}

	var jumpURL string
	if msg, err := handler.GetResponse(ctx); err == nil && msg != nil {
		i := handler.GetInteraction()
		jumpURL = messageJumpURL(i.GuildID, i.ChannelID, msg.ID)
	}

	item, created, err := AddTodo(ctx, ib.db, u.ID, text, jumpURL)
	if err != nil {
		logger.ErrorContext(ctx, "error adding todo", tint.Err(err))
		_ = editContent(ctx, handler, handler.Config().DiscordErrorMessage)
		return
	}

	if !created {
		desc := item.Text
		if item.JumpURL != "" {
			desc = fmt.Sprintf("%s\n\n[Added here](%s)", item.Text, item.JumpURL)
		}
		_ = editEmbeds(
			ctx,
			handler,
			&discordgo.MessageEmbed{
				Title:       "That's already in your todo list!",
				Description: desc,
			},
		)
		return
	}

	logger.InfoContext(ctx, "added todo", "todo_id", item.ID)
	_ = editEmbeds(
		ctx,
		handler,
		&discordgo.MessageEmbed{
			Title:       "Added to your todo list:",
			Description: item.Text,
		},
	)
}

func (ib *InfoBot) todoList(ctx context.Context, handler InteractionHandler, u *User) {
	items, err := ListTodos(ctx, ib.db, u.ID)
	if err != nil {
		handler.Logger().ErrorContext(ctx, "error listing todos", tint.Err(err))
		respondError(ctx, handler)
		return
	}
	if len(items) == 0 {
		_ = respondContent(
			ctx,
			handler,
			true,
			fmt.Sprintf(
				"You don't have any tasks in your todo list! Add one with `/%s %s`.",
				DiscordSlashCommandTodo, todoSubcommandAdd,
			),
		)
		return
	}
	if err = ib.pages.respond(ctx, handler, u.ID, todoListPages(u.DisplayName(), items)); err != nil {
		handler.Logger().ErrorContext(ctx, "error sending todo list", tint.Err(err))
	}
}

func todoClearCustomID(action string, userID string) string {
	return strings.Join([]string{todoClearCustomIDPrefix, action, userID}, customIDSeparator)
}

func (ib *InfoBot) todoClear(ctx context.Context, handler InteractionHandler, u *User) {
	count, err := CountTodos(ctx, ib.db, u.ID)
	if err != nil {
		handler.Logger().ErrorContext(ctx, "error counting todos", tint.Err(err))
		respondError(ctx, handler)
		return
	}
	if count == 0 {
		_ = respondContent(ctx, handler, true, "You don't have any tasks to clear!")
		return
	}

	_ = handler.Respond(
		ctx,
		&discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: fmt.Sprintf(
					"Are you sure you want to clear your todo list? This will remove **%s** tasks.",
					formatCount(int(count)),
				),
				Components: []discordgo.MessageComponent{
					discordgo.ActionsRow{
						Components: []discordgo.MessageComponent{
							discordgo.Button{
								Label:    "Confirm",
								Style:    discordgo.SuccessButton,
								CustomID: todoClearCustomID(todoClearConfirm, u.ID),
							},
							discordgo.Button{
								Label:    "Cancel",
								Style:    discordgo.DangerButton,
								CustomID: todoClearCustomID(todoClearCancel, u.ID),
							},
						},
					},
				},
			},
		},
	)
}

// todoClearComponent handles the confirm/cancel buttons sent by
// /todo clear
func (ib *InfoBot) todoClearComponent(
	ctx context.Context,
	handler InteractionHandler,
	u *discordgo.User,
	customID string,
) {
	parts := strings.Split(customID, customIDSeparator)
	if len(parts) != 3 {
		handler.Logger().WarnContext(ctx, "invalid todo clear custom id", "custom_id", customID)
		return
	}
	action, ownerID := parts[1], parts[2]
	if u.ID != ownerID {
		_ = respondContent(ctx, handler, true, "This isn't your todo list!")
		return
	}

	var content string
	switch action {
	case todoClearConfirm:
		removed, err := ClearTodos(ctx, ib.db, ownerID)
		if err != nil {
			handler.Logger().ErrorContext(ctx, "error clearing todos", tint.Err(err))
			content = handler.Config().DiscordErrorMessage
		} else {
			content = fmt.Sprintf("Successfully removed %s tasks.", formatCount(int(removed)))
		}
	default:
		content = "Okay, I didn't remove any tasks."
	}

	_ = handler.Respond(
		ctx,
		&discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseUpdateMessage,
			Data: &discordgo.InteractionResponseData{
				Content:    content,
				Components: []discordgo.MessageComponent{},
			},
		},
	)
}

func (ib *InfoBot) todoRemove(ctx context.Context, handler InteractionHandler, u *User, index int) {
	item, err := RemoveTodo(ctx, ib.db, u.ID, index)
	switch {
	case errors.Is(err, ErrTodoNotFound):
		_ = respondContent(
			ctx,
			handler,
			true,
			fmt.Sprintf("I couldn't find a task with index %d", index),
		)
	case err != nil:
		handler.Logger().ErrorContext(ctx, "error removing todo", tint.Err(err))
		respondError(ctx, handler)
	default:
		_ = respondContent(
			ctx,
			handler,
			false,
			fmt.Sprintf("Successfully removed task number **%d**: %s", index, item.Text),
		)
	}
}

func (ib *InfoBot) todoEdit(
	ctx context.Context,
	handler InteractionHandler,
	u *User,
	index int,
	text string,
) {
	text = strings.TrimSpace(truncate(text, todoMaxTextLength-len(todoEditedSuffix)))
	if text == "" {
		_ = respondContent(ctx, handler, true, "You need to tell me what to change it to!")
		return
	}

	old, updated, err := EditTodo(ctx, ib.db, u.ID, index, text)
	switch {
	case errors.Is(err, ErrTodoNotFound):
		_ = respondContent(
			ctx,
			handler,
			true,
			fmt.Sprintf("I couldn't find a task with index %d", index),
		)
	case errors.Is(err, ErrTodoDuplicate):
		_ = respondContent(ctx, handler, true, "That's already in your todo list!")
	case err != nil:
		handler.Logger().ErrorContext(ctx, "error editing todo", tint.Err(err))
		respondError(ctx, handler)
	default:
		_ = respondEmbeds(
			ctx,
			handler,
			false,
			&discordgo.MessageEmbed{
				Title: fmt.Sprintf("Successfully edited task number %d", index),
				Fields: []*discordgo.MessageEmbedField{
					{Name: "Old", Value: truncate(old.Text, 1024)},
					{Name: "New", Value: truncate(updated.Text, 1024)},
				},
			},
		)
	}
}
