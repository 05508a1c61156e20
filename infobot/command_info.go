package infobot

import (
	"cmp"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	discordCDN              = "https://cdn.discordapp.com"
	discordAssetSize        = "1024"
	discordMaxFieldValue    = 1024
	emoteListPerPage        = 10
	memberListPerPage       = 20
	memberListFetchLimit    = 1000
	memberListMaxMembers    = 10000
	serverNotFoundMessage   = "I couldn't find that server. Make sure the ID you entered was correct."
	emojiNotFoundMessage    = "That doesn't look like a custom emoji."
	permissionManageGuild   = int64(1) << 5
	permissionModerateUsers = int64(1) << 40
)

var (
	customEmojiPattern = regexp.MustCompile(`^<(a?):(\w{2,32}):(\d{15,25})>$`)
	snowflakePattern   = regexp.MustCompile(`^\d{15,25}$`)
	titleCaser         = cases.Title(language.English)

	// notablePermissions are listed by /roleinfo, in order
	notablePermissions = []struct {
		perm int64
		name string
	}{
		{discordgo.PermissionAdministrator, "administrator"},
		{permissionManageGuild, "manage server"},
		{discordgo.PermissionManageRoles, "manage roles"},
		{discordgo.PermissionManageChannels, "manage channels"},
		{discordgo.PermissionManageMessages, "manage messages"},
		{discordgo.PermissionManageWebhooks, "manage webhooks"},
		{discordgo.PermissionKickMembers, "kick members"},
		{discordgo.PermissionBanMembers, "ban members"},
		{permissionModerateUsers, "timeout members"},
		{discordgo.PermissionMentionEveryone, "mention everyone"},
		{discordgo.PermissionViewAuditLogs, "view audit log"},
	}

	verificationLevelNames = map[discordgo.VerificationLevel]string{
		discordgo.VerificationLevelNone:     "none",
		discordgo.VerificationLevelLow:      "low",
		discordgo.VerificationLevelMedium:   "medium",
		discordgo.VerificationLevelHigh:     "high",
		discordgo.VerificationLevelVeryHigh: "very high",
	}

	explicitContentFilterNames = map[discordgo.ExplicitContentFilterLevel]string{
		discordgo.ExplicitContentFilterDisabled:            "don't scan any media content",
		discordgo.ExplicitContentFilterMembersWithoutRoles: "scan media content from members without a role",
		discordgo.ExplicitContentFilterAllMembers:          "scan media content from all members",
	}
)

// assetLinks renders download links for a CDN image in each format it's
// available in. Animated assets (with an a_ prefixed hash) are also
// available as GIFs.
func assetLinks(path string, hash string) string {
	formats := []string{"png", "jpg", "webp"}
	if strings.HasPrefix(hash, "a_") {
		formats = append(formats, "gif")
	}
	links := make([]string, 0, len(formats))
	for _, f := range formats {
		links = append(
			links,
			fmt.Sprintf(
				"[%s](%s/%s/%s.%s?size=%s)",
				strings.ToUpper(f), discordCDN, path, hash, f, discordAssetSize,
			),
		)
	}
	return strings.Join(links, " **|** ")
}

func colorHex(c int) string {
	if c == 0 {
		return "None"
	}
	return fmt.Sprintf("#%06X", c)
}

// emojiURL is the CDN URL of a custom emoji
func emojiURL(id string, animated bool) string {
	ext := "png"
	if animated {
		ext = "gif"
	}
	return fmt.Sprintf("%s/emojis/%s.%s", discordCDN, id, ext)
}

func emojiMessageFormat(e *discordgo.Emoji) string {
	if e.Animated {
		return fmt.Sprintf("<a:%s:%s>", e.Name, e.ID)
	}
	return fmt.Sprintf("<:%s:%s>", e.Name, e.ID)
}

// parseCustomEmoji parses a custom emoji as it appears in a message
// (<:name:id>, <a:name:id>) or a bare emoji ID
func parseCustomEmoji(s string) (*discordgo.Emoji, bool) {
	s = strings.TrimSpace(s)
	if m := customEmojiPattern.FindStringSubmatch(s); m != nil {
		return &discordgo.Emoji{ID: m[3], Name: m[2], Animated: m[1] == "a"}, true
	}
	if snowflakePattern.MatchString(s) {
		return &discordgo.Emoji{ID: s}, true
	}
	return nil, false
}

// commandTarget returns the user selected with the command's user
// option, defaulting to the user who ran the command. self is true
// when the default was used.
func commandTarget(i *discordgo.InteractionCreate) (
	u *discordgo.User,
	m *discordgo.Member,
	self bool,
) {
	_, opts := commandOptions(i.ApplicationCommandData().Options)
	if u, m = resolvedUserOption(i, opts, optionUser); u != nil {
		return u, m, u.ID == getDiscordUser(i).ID
	}
	return getDiscordUser(i), i.Member, true
}

// fetchUser fetches the full user object, which includes the banner
// and accent color, falling back to the given user
func (ib *InfoBot) fetchUser(ctx context.Context, u *discordgo.User) *discordgo.User {
	fetched, err := ib.discord.session.User(u.ID, discordgo.WithContext(ctx))
	if err != nil || fetched == nil {
		contextLoggerOr(ctx, ib.logger).WarnContext(
			ctx, "error fetching user", "user_id", u.ID, tint.Err(err),
		)
		return u
	}
	return fetched
}

func memberRoleMentions(m *discordgo.Member, guildID string) string {
	roles := make([]string, 0, len(m.Roles))
	for _, r := range m.Roles {
		if r == guildID {
			continue
		}
		roles = append(roles, fmt.Sprintf("<@&%s>", r))
	}
	if len(roles) == 0 {
		return "No roles"
	}
	s := fmt.Sprintf("(%d) %s", len(roles), strings.Join(roles, " "))
	if len(s) > discordMaxFieldValue {
		return fmt.Sprintf("(%d) too many to list", len(roles))
	}
	return s
}

func (ib *InfoBot) userInfoEmbed(
	u *discordgo.User,
	m *discordgo.Member,
	guildID string,
) *discordgo.MessageEmbed {
	description := fmt.Sprintf("ID: %s", u.ID)
	if m == nil {
		description = "*Less info, as this user isn't a member here*\n" + description
	}
	embed := &discordgo.MessageEmbed{
		Title:       u.Username,
		URL:         fmt.Sprintf("https://discord.com/users/%s", u.ID),
		Description: description,
		Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: u.AvatarURL(discordAssetSize)},
		Color:       u.AccentColor,
	}

	general := []string{
		fmt.Sprintf("Display name: %s", userDisplayName(u)),
	}
	if m != nil {
		nick := m.Nick
		if nick == "" {
			nick = "No nick"
		}
		general = append(general, fmt.Sprintf("Nick: %s", nick))
	}
	general = append(
		general,
		fmt.Sprintf("Mention: %s", u.Mention()),
		fmt.Sprintf("Bot: %s **|** AFK: %s", yesNo(u.Bot), ib.afk.afkStatusLine(u.ID)),
	)
	embed.Fields = append(
		embed.Fields,
		&discordgo.MessageEmbedField{
			Name:   "__**General**__",
			Value:  strings.Join(general, "\n"),
			Inline: true,
		},
	)

	dates := []string{
		fmt.Sprintf("Created: %s", discordTimestampFull(snowflakeTime(u.ID))),
	}
	if m != nil {
		if !m.JoinedAt.IsZero() {
			dates = append(dates, fmt.Sprintf("Joined: %s", discordTimestampFull(m.JoinedAt)))
		}
		boosting := "Not boosting"
		if m.PremiumSince != nil {
			boosting = discordTimestampFull(*m.PremiumSince)
		}
		dates = append(dates, fmt.Sprintf("Boosting: %s", boosting))
	}
	embed.Fields = append(
		embed.Fields,
		&discordgo.MessageEmbedField{
			Name:  "__**Dates**__",
			Value: strings.Join(dates, "\n"),
		},
	)

	avatar := "No avatar"
	if u.Avatar != "" {
		avatar = assetLinks("avatars/"+u.ID, u.Avatar)
	}
	banner := "No banner"
	if u.Banner != "" {
		banner = assetLinks("banners/"+u.ID, u.Banner)
	}
	embed.Fields = append(
		embed.Fields,
		&discordgo.MessageEmbedField{
			Name: "__**Assets**__",
			Value: strings.Join(
				[]string{
					fmt.Sprintf("Avatar: %s", avatar),
					fmt.Sprintf("Banner: %s", banner),
					fmt.Sprintf("Accent color: %s", colorHex(u.AccentColor)),
				},
				"\n",
			),
		},
	)

	if m != nil {
		embed.Fields = append(
			embed.Fields,
			&discordgo.MessageEmbedField{
				Name:  "__**Roles**__",
				Value: memberRoleMentions(m, guildID),
			},
		)
	}
	return embed
}

func (ib *InfoBot) commandUserInfo(ctx context.Context, handler InteractionHandler, _ *User) {
	i := handler.GetInteraction()
	target, member, _ := commandTarget(i)
	if target == nil {
		respondError(ctx, handler)
		return
	}
	if err := deferResponse(ctx, handler, false); err != nil {
		return
	}
	target = ib.fetchUser(ctx, target)

	// users picked from outside the server aren't resolved as members,
	// but may still be one
	if member == nil && i.GuildID != "" {
		if m, err := ib.discord.session.GuildMember(
			i.GuildID,
			target.ID,
			discordgo.WithContext(ctx),
		); err == nil {
			member = m
		}
	}
	_ = editEmbeds(ctx, handler, ib.userInfoEmbed(target, member, i.GuildID))
}

func (ib *InfoBot) commandAvatar(ctx context.Context, handler InteractionHandler, _ *User) {
	target, member, self := commandTarget(handler.GetInteraction())
	if target == nil {
		respondError(ctx, handler)
		return
	}
	if target.Avatar == "" {
		msg := fmt.Sprintf("%s doesn't have an avatar.", target.Username)
		if self {
			msg = "You don't have an avatar."
		}
		_ = respondEmbeds(ctx, handler, false, &discordgo.MessageEmbed{Description: msg})
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s's avatar", target.Username),
		Description: assetLinks("avatars/"+target.ID, target.Avatar),
		Image:       &discordgo.MessageEmbedImage{URL: target.AvatarURL(discordAssetSize)},
	}
	// server-specific avatars are shown alongside the global one
	if member != nil && member.Avatar != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: member.AvatarURL(discordAssetSize)}
	}
	_ = respondEmbeds(ctx, handler, false, embed)
}

func (ib *InfoBot) commandBanner(ctx context.Context, handler InteractionHandler, _ *User) {
	target, _, self := commandTarget(handler.GetInteraction())
	if target == nil {
		respondError(ctx, handler)
		return
	}
	if err := deferResponse(ctx, handler, false); err != nil {
		return
	}

	// banners are only included when the user is fetched directly
	target = ib.fetchUser(ctx, target)
	if target.Banner == "" {
		msg := fmt.Sprintf("%s doesn't have a banner.", target.Username)
		if self {
			msg = "You don't have a banner."
		}
		_ = editEmbeds(ctx, handler, &discordgo.MessageEmbed{Description: msg})
		return
	}
	_ = editEmbeds(
		ctx,
		handler,
		&discordgo.MessageEmbed{
			Title:       fmt.Sprintf("%s's banner", target.Username),
			Description: assetLinks("banners/"+target.ID, target.Banner),
			Image:       &discordgo.MessageEmbedImage{URL: target.BannerURL(discordAssetSize)},
		},
	)
}

// guildEmojiLimit is the number of static (and animated) emojis a guild
// may have at its boost tier
func guildEmojiLimit(tier discordgo.PremiumTier) int {
	switch tier {
	case discordgo.PremiumTier1:
		return 100
	case discordgo.PremiumTier2:
		return 150
	case discordgo.PremiumTier3:
		return 250
	default:
		return 50
	}
}

func guildStickerLimit(tier discordgo.PremiumTier) int {
	switch tier {
	case discordgo.PremiumTier1:
		return 15
	case discordgo.PremiumTier2:
		return 30
	case discordgo.PremiumTier3:
		return 60
	default:
		return 5
	}
}

func serverInfoEmbed(g *discordgo.Guild, channels []*discordgo.Channel) *discordgo.MessageEmbed {
	description := g.Description
	if description == "" {
		description = "No description"
	}
	embed := &discordgo.MessageEmbed{
		Title:       g.Name,
		Description: fmt.Sprintf("ID: %s\nDescription: %s", g.ID, description),
	}
	if g.Icon != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: g.IconURL(discordAssetSize)}
	}

	channelCounts := map[discordgo.ChannelType]int{}
	for _, c := range channels {
		channelCounts[c.Type]++
	}
	embed.Fields = append(
		embed.Fields,
		&discordgo.MessageEmbedField{
			Name: "__**Channels**__",
			Value: strings.Join(
				[]string{
					fmt.Sprintf(
						"Text: %s",
						formatCount(channelCounts[discordgo.ChannelTypeGuildText]+
							channelCounts[discordgo.ChannelTypeGuildNews]),
					),
					fmt.Sprintf("Voice: %s", formatCount(channelCounts[discordgo.ChannelTypeGuildVoice])),
					fmt.Sprintf("Category: %s", formatCount(channelCounts[discordgo.ChannelTypeGuildCategory])),
					fmt.Sprintf("Stages: %s", formatCount(channelCounts[discordgo.ChannelTypeGuildStageVoice])),
					fmt.Sprintf("Forums: %s", formatCount(channelCounts[discordgo.ChannelTypeGuildForum])),
				},
				"\n",
			),
			Inline: true,
		},
	)

	var animated, static int
	for _, e := range g.Emojis {
		if e.Animated {
			animated++
		} else {
			static++
		}
	}
	emojiLimit := formatCount(guildEmojiLimit(g.PremiumTier))
	embed.Fields = append(
		embed.Fields,
		&discordgo.MessageEmbedField{
			Name: "__**Emojis**__",
			Value: strings.Join(
				[]string{
					fmt.Sprintf("Animated: %s/%s", formatCount(animated), emojiLimit),
					fmt.Sprintf("Static: %s/%s", formatCount(static), emojiLimit),
					fmt.Sprintf(
						"Stickers: %s/%s",
						formatCount(len(g.Stickers)),
						formatCount(guildStickerLimit(g.PremiumTier)),
					),
				},
				"\n",
			),
			Inline: true,
		},
		&discordgo.MessageEmbedField{
			Name: "__**Boosts**__",
			Value: fmt.Sprintf(
				"Level: %d\nBoosts: %s",
				g.PremiumTier,
				formatCount(g.PremiumSubscriptionCount),
			),
			Inline: true,
		},
	)

	members := []string{
		fmt.Sprintf("Total: %s", formatCount(g.ApproximateMemberCount)),
		fmt.Sprintf("Online: %s", formatCount(g.ApproximatePresenceCount)),
	}
	if g.MaxMembers > 0 {
		members = append(members, fmt.Sprintf("Limit: %s", formatCount(g.MaxMembers)))
	}
	embed.Fields = append(
		embed.Fields,
		&discordgo.MessageEmbedField{
			Name:   "__**Members**__",
			Value:  strings.Join(members, "\n"),
			Inline: true,
		},
		&discordgo.MessageEmbedField{
			Name: "__**Other**__",
			Value: strings.Join(
				[]string{
					fmt.Sprintf("Owner: <@%s>", g.OwnerID),
					fmt.Sprintf("Roles: %s", formatCount(len(g.Roles))),
					fmt.Sprintf(
						"Verification level: %s",
						titleCaser.String(verificationLevelNames[g.VerificationLevel]),
					),
					fmt.Sprintf(
						"Explicit content filter: %s",
						explicitContentFilterNames[g.ExplicitContentFilter],
					),
					fmt.Sprintf("Created: %s", discordTimestampFull(snowflakeTime(g.ID))),
				},
				"\n",
			),
		},
	)
	return embed
}

func (ib *InfoBot) commandServerInfo(ctx context.Context, handler InteractionHandler, _ *User) {
	logger := handler.Logger()
	guildID := handler.GetInteraction().GuildID
	if guildID == "" {
		_ = respondContent(ctx, handler, true, "This command only works in servers.")
		return
	}
	if err := deferResponse(ctx, handler, false); err != nil {
		return
	}

	session := ib.discord.session
	g, err := session.GuildWithCounts(guildID, discordgo.WithContext(ctx))
	if err != nil {
		logger.ErrorContext(ctx, "error fetching guild", tint.Err(err))
		_ = editContent(ctx, handler, handler.Config().DiscordErrorMessage)
		return
	}
	channels, err := session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		logger.WarnContext(ctx, "error fetching guild channels", tint.Err(err))
	}
	_ = editEmbeds(ctx, handler, serverInfoEmbed(g, channels))
}

// topRole returns the member's highest positioned role, or the
// guild's @everyone role if they have none
func topRole(m *discordgo.Member, guildID string, roles []*discordgo.Role) *discordgo.Role {
	byID := make(map[string]*discordgo.Role, len(roles))
	for _, r := range roles {
		byID[r.ID] = r
	}
	top := byID[guildID]
	for _, id := range m.Roles {
		r, ok := byID[id]
		if !ok {
			continue
		}
		if top == nil || r.Position > top.Position {
			top = r
		}
	}
	return top
}

func rolePermissionNames(perms int64) string {
	var names []string
	for _, p := range notablePermissions {
		if perms&p.perm == p.perm {
			names = append(names, p.name)
		}
	}
	if len(names) == 0 {
		return "None"
	}
	return strings.Join(names, ", ")
}

func roleInfoEmbed(r *discordgo.Role) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: r.Name,
		Color: r.Color,
		Description: strings.Join(
			[]string{
				fmt.Sprintf("Mention: %s", r.Mention()),
				fmt.Sprintf("ID: %s", r.ID),
				fmt.Sprintf("Color: %s", colorHex(r.Color)),
				fmt.Sprintf("Position: %d", r.Position),
				fmt.Sprintf("Hoisted: %s", yesNo(r.Hoist)),
				fmt.Sprintf("Mentionable: %s", yesNo(r.Mentionable)),
				fmt.Sprintf("Managed: %s", yesNo(r.Managed)),
				fmt.Sprintf("Creation date: %s", discordTimestampFull(snowflakeTime(r.ID))),
				fmt.Sprintf("Key permissions: %s", rolePermissionNames(r.Permissions)),
			},
			"\n",
		),
	}
}

func (ib *InfoBot) commandRoleInfo(ctx context.Context, handler InteractionHandler, _ *User) {
	i := handler.GetInteraction()
	if i.GuildID == "" || i.Member == nil {
		_ = respondContent(ctx, handler, true, "This command only works in servers.")
		return
	}

	_, opts := commandOptions(i.ApplicationCommandData().Options)
	var role *discordgo.Role
	if opt, ok := opts[optionRole]; ok {
		roleID, _ := opt.Value.(string)
		if resolved := i.ApplicationCommandData().Resolved; resolved != nil {
			role = resolved.Roles[roleID]
		}
	}
	if role == nil {
		roles, err := ib.discord.session.GuildRoles(i.GuildID, discordgo.WithContext(ctx))
		if err != nil {
			handler.Logger().ErrorContext(ctx, "error fetching guild roles", tint.Err(err))
			respondError(ctx, handler)
			return
		}
		role = topRole(i.Member, i.GuildID, roles)
	}
	if role == nil {
		_ = respondContent(ctx, handler, true, "I couldn't find that role.")
		return
	}
	_ = respondEmbeds(ctx, handler, false, roleInfoEmbed(role))
}

func emojiInfoEmbed(e *discordgo.Emoji, guildName string) *discordgo.MessageEmbed {
	url := emojiURL(e.ID, e.Animated)
	lines := []string{
		fmt.Sprintf("Name: %s", e.Name),
		fmt.Sprintf("ID: %s", e.ID),
		"",
		fmt.Sprintf("Created at: %s", discordTimestampFull(snowflakeTime(e.ID))),
		fmt.Sprintf("Link: [Click here](%s)", url),
	}
	if guildName != "" {
		creator := "Couldn't get user"
		if e.User != nil {
			creator = e.User.Username
		}
		lines = append(
			lines,
			"",
			fmt.Sprintf("Created by: %s", creator),
			fmt.Sprintf("Guild: %s", guildName),
			"",
			fmt.Sprintf("Available?: %s", yesNo(e.Available)),
			fmt.Sprintf("Managed?: %s", yesNo(e.Managed)),
		)
	}
	lines = append(lines, fmt.Sprintf("Animated?: %s", yesNo(e.Animated)))

	title := e.Name
	if title == "" {
		title = e.ID
	}
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: strings.Join(lines, "\n"),
		Image:       &discordgo.MessageEmbedImage{URL: url},
	}
}

func (ib *InfoBot) commandEmojiInfo(ctx context.Context, handler InteractionHandler, _ *User) {
	i := handler.GetInteraction()
	_, opts := commandOptions(i.ApplicationCommandData().Options)
	emoji, ok := parseCustomEmoji(stringPointerValue(optionString(opts, optionEmoji)))
	if !ok {
		_ = respondContent(ctx, handler, true, emojiNotFoundMessage)
		return
	}

	// emojis from this server include who created them, and their status
	var guildName string
	if i.GuildID != "" {
		fetched, err := ib.discord.session.GuildEmoji(i.GuildID, emoji.ID, discordgo.WithContext(ctx))
		if err == nil && fetched != nil {
			emoji = fetched
			guildName = i.GuildID
			if g, found := ib.discord.guild(i.GuildID); found && g.Name != "" {
				guildName = g.Name
			}
		}
	}

	_ = handler.Respond(
		ctx,
		&discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Embeds: []*discordgo.MessageEmbed{emojiInfoEmbed(emoji, guildName)},
				Components: []discordgo.MessageComponent{
					discordgo.ActionsRow{
						Components: []discordgo.MessageComponent{
							discordgo.Button{
								Label: "🔗 Emoji link",
								Style: discordgo.LinkButton,
								URL:   emojiURL(emoji.ID, emoji.Animated),
							},
						},
					},
				},
			},
		},
	)
}

// listGuild returns the guild a list command applies to: the guild
// named by the server_id option, which must be one the bot is in, or
// the guild the command was run in
func (ib *InfoBot) listGuild(i *discordgo.InteractionCreate) (*discordgo.Guild, bool) {
	_, opts := commandOptions(i.ApplicationCommandData().Options)
	if serverID := strings.TrimSpace(stringPointerValue(optionString(opts, optionServerID))); serverID != "" {
		return ib.discord.guild(serverID)
	}
	if i.GuildID == "" {
		return nil, false
	}
	if g, ok := ib.discord.guild(i.GuildID); ok {
		return g, true
	}
	return &discordgo.Guild{ID: i.GuildID, Name: "This server"}, true
}

func emoteListPages(guildName string, emojis []*discordgo.Emoji) []*discordgo.MessageEmbed {
	lines := make([]string, 0, len(emojis))
	for _, e := range emojis {
		format := emojiMessageFormat(e)
		lines = append(
			lines,
			fmt.Sprintf("%s **|** %s **|** [`%s`](%s)", format, e.Name, format, emojiURL(e.ID, e.Animated)),
		)
	}
	title := fmt.Sprintf("%s's emotes (%s)", guildName, formatCount(len(emojis)))
	return listPages(
		lines,
		emoteListPerPage,
		func(page []string) *discordgo.MessageEmbed {
			description := strings.Join(page, "\n")
			if description == "" {
				description = "No emotes"
			}
			return &discordgo.MessageEmbed{Title: title, Description: description}
		},
	)
}

func (ib *InfoBot) commandEmoteList(ctx context.Context, handler InteractionHandler, u *User) {
	g, ok := ib.listGuild(handler.GetInteraction())
	if !ok {
		_ = respondContent(ctx, handler, true, serverNotFoundMessage)
		return
	}
	emojis, err := ib.discord.session.GuildEmojis(g.ID, discordgo.WithContext(ctx))
	if err != nil {
		handler.Logger().ErrorContext(ctx, "error fetching guild emojis", tint.Err(err))
		respondError(ctx, handler)
		return
	}
	slices.SortStableFunc(
		emojis,
		func(a, b *discordgo.Emoji) int {
			return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		},
	)
	if err = ib.pages.respond(ctx, handler, u.ID, emoteListPages(g.Name, emojis)); err != nil {
		handler.Logger().ErrorContext(ctx, "error sending emote list", tint.Err(err))
	}
}

// fetchGuildMembers pages through the guild's member list, up to
// memberListMaxMembers
func (ib *InfoBot) fetchGuildMembers(ctx context.Context, guildID string) ([]*discordgo.Member, error) {
	var (
		members []*discordgo.Member
		after   string
	)
	for len(members) < memberListMaxMembers {
		page, err := ib.discord.session.GuildMembers(
			guildID,
			after,
			memberListFetchLimit,
			discordgo.WithContext(ctx),
		)
		if err != nil {
			return members, err
		}
		members = append(members, page...)
		if len(page) < memberListFetchLimit {
			break
		}
		after = page[len(page)-1].User.ID
	}
	return members, nil
}

func memberListPages(guildName string, members []*discordgo.Member) []*discordgo.MessageEmbed {
	lines := make([]string, 0, len(members))
	for _, m := range members {
		if m.User == nil {
			continue
		}
		lines = append(
			lines,
			fmt.Sprintf("%s **|** %s **|** `%s`", m.User.Username, m.User.Mention(), m.User.ID),
		)
	}
	title := fmt.Sprintf("%s's members (%s)", guildName, formatCount(len(lines)))
	return listPages(
		lines,
		memberListPerPage,
		func(page []string) *discordgo.MessageEmbed {
			return &discordgo.MessageEmbed{Title: title, Description: strings.Join(page, "\n")}
		},
	)
}

func (ib *InfoBot) commandMemberList(ctx context.Context, handler InteractionHandler, u *User) {
	g, ok := ib.listGuild(handler.GetInteraction())
	if !ok {
		_ = respondContent(ctx, handler, true, serverNotFoundMessage)
		return
	}
	members, err := ib.fetchGuildMembers(ctx, g.ID)
	if err != nil && len(members) == 0 {
		handler.Logger().ErrorContext(ctx, "error fetching guild members", tint.Err(err))
		respondError(ctx, handler)
		return
	}
	if err = ib.pages.respond(ctx, handler, u.ID, memberListPages(g.Name, members)); err != nil {
		handler.Logger().ErrorContext(ctx, "error sending member list", tint.Err(err))
	}
}

// firstMessageContentPreview is how much of a message is shown inline
// by /firstmessage. Longer messages are shown as a link tooltip.
const firstMessageContentPreview = 25

var tooltipReplacer = strings.NewReplacer("'", "’", "\n", " ", "\r", "")

func firstMessageEmbed(channelName string, guildID string, m *discordgo.Message) *discordgo.MessageEmbed {
	jumpURL := messageJumpURL(guildID, m.ChannelID, m.ID)
	content := m.Content
	if utf8.RuneCountInString(content) > firstMessageContentPreview {
		content = fmt.Sprintf(
			"[Hover over to see the content](%s '%s')",
			jumpURL,
			tooltipReplacer.Replace(truncate(content, 200)),
		)
	}

	author := "Unknown"
	if m.Author != nil {
		author = fmt.Sprintf("%s **|** %s **|** %s", m.Author.Username, m.Author.Mention(), m.Author.ID)
	}

	title := "First message"
	if channelName != "" {
		title = fmt.Sprintf("First message in #%s", channelName)
	}
	return &discordgo.MessageEmbed{
		Title: title,
		URL:   jumpURL,
		Description: strings.Join(
			[]string{
				fmt.Sprintf("ID: %s", m.ID),
				"",
				fmt.Sprintf("Content: %s", content),
				fmt.Sprintf("Author: %s", author),
				"",
				fmt.Sprintf("Sent at: %s", discordTimestampFull(m.Timestamp)),
				fmt.Sprintf("Jump URL: [Click here](%s 'Jump URL')", jumpURL),
			},
			"\n",
		),
	}
}

func (ib *InfoBot) commandFirstMessage(ctx context.Context, handler InteractionHandler, _ *User) {
	i := handler.GetInteraction()
	if i.GuildID == "" {
		_ = respondContent(ctx, handler, true, "This command only works in servers.")
		return
	}

	channelID := i.ChannelID
	var channelName string
	_, opts := commandOptions(i.ApplicationCommandData().Options)
	if opt, ok := opts[optionChannel]; ok {
		channelID, _ = opt.Value.(string)
		if resolved := i.ApplicationCommandData().Resolved; resolved != nil {
			if ch := resolved.Channels[channelID]; ch != nil {
				channelName = ch.Name
			}
		}
	}

	// the oldest message is the first one after snowflake 0
	messages, err := ib.discord.session.ChannelMessages(
		channelID,
		1,
		"",
		"0",
		"",
		discordgo.WithContext(ctx),
	)
	if err != nil {
		handler.Logger().WarnContext(
			ctx,
			"error fetching first message",
			"channel_id", channelID,
			tint.Err(err),
		)
		_ = respondContent(ctx, handler, true, "I couldn't read that channel's messages.")
		return
	}
	if len(messages) == 0 {
		_ = respondContent(ctx, handler, true, "That channel doesn't have any messages.")
		return
	}
	m := messages[0]
	if m.ChannelID == "" {
		m.ChannelID = channelID
	}
	_ = respondEmbeds(ctx, handler, false, firstMessageEmbed(channelName, i.GuildID, m))
}
