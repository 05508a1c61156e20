package infobot

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
)

const (
	DiscordSlashCommandRTFM       = "rtfm"
	DiscordSlashCommandTodo       = "todo"
	DiscordSlashCommandAFK        = "afk"
	DiscordSlashCommandAutoAFK    = "autoafk"
	DiscordSlashCommandUserInfo   = "userinfo"
	DiscordSlashCommandAvatar     = "avatar"
	DiscordSlashCommandBanner     = "banner"
	DiscordSlashCommandServerInfo = "serverinfo"
	DiscordSlashCommandRoleInfo   = "roleinfo"
	DiscordSlashCommandEmojiInfo  = "emojiinfo"
	DiscordSlashCommandEmoteList  = "emotelist"
	DiscordSlashCommandMemberList = "memberlist"
	DiscordSlashCommandPing       = "ping"
	DiscordSlashCommandUptime     = "uptime"
	DiscordSlashCommandServers    = "servers"
	DiscordSlashCommandMessages   = "messages"
	DiscordSlashCommandTranslate  = "translate"
	DiscordSlashCommandWiki       = "wiki"
	DiscordSlashCommandBotInfo    = "botinfo"
	DiscordSlashCommandFirstMsg   = "firstmessage"

	todoSubcommandAdd    = "add"
	todoSubcommandList   = "list"
	todoSubcommandClear  = "clear"
	todoSubcommandRemove = "remove"
	todoSubcommandEdit   = "edit"

	rtfmOptionSet       = "set"
	rtfmOptionQuery     = "query"
	todoOptionText      = "text"
	todoOptionIndex     = "index"
	afkOptionReason     = "reason"
	optionUser          = "user"
	optionRole          = "role"
	optionEmoji         = "emoji"
	optionServerID      = "server_id"
	optionChannel       = "channel"
	translateOptionText = "text"
	wikiOptionQuery     = "query"

	// discordMaxChoices is the most autocomplete/static choices Discord
	// accepts for a single option
	discordMaxChoices = 25

	// discordMaxButtonsPerActionRow defines the maximum number of buttons
	// allowed per action row in Discord interactions.
	discordMaxButtonsPerActionRow = 5

	afkMaxReasonLength = 1800
)

// Discord manages the discord session, gateway event handlers, and the
// state tracked from gateway events (guilds joined, messages seen).
type Discord struct {
	session           DiscordSessionHandler
	config            *DiscordConfig
	logger            *slog.Logger
	metricConnects    atomic.Int64
	metricDisconnects atomic.Int64
	messagesSeen      atomic.Int64
	messagesEdited    atomic.Int64
	connected         atomic.Bool
	botUser           atomic.Pointer[discordgo.User]

	guildsMu sync.RWMutex
	guilds   map[string]*discordgo.Guild

	discordgoRemoveHandlerFuncs []func()
	ib                          *InfoBot
}

// newDiscord initializes a new Discord instance with the provided configuration
func newDiscord(config *DiscordConfig) *Discord {
	return &Discord{
		config:                      config,
		guilds:                      map[string]*discordgo.Guild{},
		discordgoRemoveHandlerFuncs: []func(){},
	}
}

// newSession initializes a new Discord session for the Discord struct.
// It sets up the session with the appropriate logger, token, and configuration.
func (d *Discord) newSession(httpClient *http.Client) (DiscordSessionHandler, error) {
	session := DiscordSession{logger: d.logger.With(loggerNameKey, "discord_session_handler")}
	disc, err := discordgo.New("Bot " + d.config.Token)
	if err != nil {
		return session, fmt.Errorf("error creating discord session: %w", err)
	}
	disc.SyncEvents = true
	disc.StateEnabled = false
	session.session = disc
	if httpClient != nil {
		disc.Client = httpClient
	}

	if err = session.SetLogLevel(d.config.DiscordGoLogLevel.Level()); err != nil {
		return session, err
	}
	return session, nil
}

func allInteractionContexts() (
	*[]discordgo.InteractionContextType,
	*[]discordgo.ApplicationIntegrationType,
) {
	contexts := []discordgo.InteractionContextType{
		discordgo.InteractionContextPrivateChannel,
		discordgo.InteractionContextGuild,
		discordgo.InteractionContextBotDM,
	}
	integrationTypes := []discordgo.ApplicationIntegrationType{
		discordgo.ApplicationIntegrationUserInstall,
		discordgo.ApplicationIntegrationGuildInstall,
	}
	return &contexts, &integrationTypes
}

func guildInteractionContexts() (
	*[]discordgo.InteractionContextType,
	*[]discordgo.ApplicationIntegrationType,
) {
	contexts := []discordgo.InteractionContextType{
		discordgo.InteractionContextGuild,
	}
	integrationTypes := []discordgo.ApplicationIntegrationType{
		discordgo.ApplicationIntegrationGuildInstall,
	}
	return &contexts, &integrationTypes
}

// simpleCommand returns a chat command usable in any context
func simpleCommand(
	name string,
	description string,
	options ...*discordgo.ApplicationCommandOption,
) *discordgo.ApplicationCommand {
	contexts, integrationTypes := allInteractionContexts()
	return &discordgo.ApplicationCommand{
		Name:             name,
		Description:      description,
		Type:             discordgo.ChatApplicationCommand,
		Contexts:         contexts,
		IntegrationTypes: integrationTypes,
		Options:          options,
	}
}

// guildCommand returns a chat command only usable in guilds
func guildCommand(
	name string,
	description string,
	options ...*discordgo.ApplicationCommandOption,
) *discordgo.ApplicationCommand {
	cmd := simpleCommand(name, description, options...)
	cmd.Contexts, cmd.IntegrationTypes = guildInteractionContexts()
	return cmd
}

func userOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        optionUser,
		Description: description,
	}
}

func serverIDOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        optionServerID,
		Description: "ID of a server I'm in (defaults to this one)",
	}
}

// appCommandRTFM creates the /rtfm command, with a choice for each
// configured documentation set. Only the first 25 sets can be offered.
func appCommandRTFM(sets []DocSet) *discordgo.ApplicationCommand {
	minLength := 1
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(sets))
	for _, set := range sets {
		if len(choices) == discordMaxChoices {
			break
		}
		name := set.ID
		if set.Title != "" {
			name = fmt.Sprintf("%s (%s)", set.ID, set.Title)
		}
		choices = append(
			choices,
			&discordgo.ApplicationCommandOptionChoice{
				Name:  truncate(name, 100),
				Value: set.ID,
			},
		)
	}
	return simpleCommand(
		DiscordSlashCommandRTFM,
		"Gives you a documentation link for an entity",
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        rtfmOptionSet,
			Description: "Documentation to search",
			Required:    true,
			Choices:     choices,
		},
		&discordgo.ApplicationCommandOption{
			Type:         discordgo.ApplicationCommandOptionString,
			Name:         rtfmOptionQuery,
			Description:  "What to search for (leave empty for the documentation link)",
			Autocomplete: true,
			MinLength:    &minLength,
			MaxLength:    100,
		},
	)
}

func appCommandTodo() *discordgo.ApplicationCommand {
	minLength := 1
	minIndex := float64(1)
	textOption := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        todoOptionText,
		Description: "The task",
		Required:    true,
		MinLength:   &minLength,
		MaxLength:   todoMaxTextLength,
	}
	indexOption := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        todoOptionIndex,
		Description: "Task number, as shown by /todo list",
		Required:    true,
		MinValue:    &minIndex,
	}
	return simpleCommand(
		DiscordSlashCommandTodo,
		"Manage your todo list",
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        todoSubcommandAdd,
			Description: "Adds the specified task to your todo list",
			Options:     []*discordgo.ApplicationCommandOption{textOption},
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        todoSubcommandList,
			Description: "Shows your todo list",
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        todoSubcommandClear,
			Description: "Clears your todo list",
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        todoSubcommandRemove,
			Description: "Removes the specified task from your todo list",
			Options:     []*discordgo.ApplicationCommandOption{indexOption},
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        todoSubcommandEdit,
			Description: "Edits the specified task",
			Options:     []*discordgo.ApplicationCommandOption{indexOption, textOption},
		},
	)
}

// messageChannelTypes are the guild channel types with a message history
var messageChannelTypes = []discordgo.ChannelType{
	discordgo.ChannelTypeGuildText,
	discordgo.ChannelTypeGuildNews,
	discordgo.ChannelTypeGuildPublicThread,
	discordgo.ChannelTypeGuildPrivateThread,
	discordgo.ChannelTypeGuildNewsThread,
}

// applicationCommands returns every slash command the bot handles. The
// translate command is only included when translation is enabled.
func applicationCommands(sets []DocSet, translate bool) []*discordgo.ApplicationCommand {
	minLength := 1
	commands := []*discordgo.ApplicationCommand{
		appCommandRTFM(sets),
		appCommandTodo(),
		simpleCommand(
			DiscordSlashCommandAFK,
			"Makes you AFK. When someone pings you, I'll tell them you're AFK",
			&discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        afkOptionReason,
				Description: "Why you're AFK",
				MaxLength:   afkMaxReasonLength,
			},
		),
		simpleCommand(
			DiscordSlashCommandAutoAFK,
			"Toggles removing your AFK status automatically when you send a message",
		),
		simpleCommand(
			DiscordSlashCommandUserInfo,
			"Shows information about the specified user",
			userOption("User to look up (defaults to you)"),
		),
		simpleCommand(
			DiscordSlashCommandAvatar,
			"Shows the avatar of the specified user",
			userOption("User whose avatar to show (defaults to you)"),
		),
		simpleCommand(
			DiscordSlashCommandBanner,
			"Shows the banner of the specified user",
			userOption("User whose banner to show (defaults to you)"),
		),
		guildCommand(
			DiscordSlashCommandServerInfo,
			"Shows information about this server",
		),
		guildCommand(
			DiscordSlashCommandRoleInfo,
			"Shows information about the specified role",
			&discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionRole,
				Name:        optionRole,
				Description: "Role to look up (defaults to your top role)",
			},
		),
		simpleCommand(
			DiscordSlashCommandEmojiInfo,
			"Shows information about a custom emoji",
			&discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        optionEmoji,
				Description: "The emoji, or its ID",
				Required:    true,
				MinLength:   &minLength,
			},
		),
		guildCommand(
			DiscordSlashCommandEmoteList,
			"Shows a list of a server's emotes",
			serverIDOption(),
		),
		guildCommand(
			DiscordSlashCommandMemberList,
			"Shows a list of a server's members",
			serverIDOption(),
		),
		simpleCommand(DiscordSlashCommandPing, "Shows the bot's latency"),
		simpleCommand(DiscordSlashCommandUptime, "Shows how long the bot has been online"),
		simpleCommand(DiscordSlashCommandServers, "Shows how many servers the bot is in"),
		simpleCommand(
			DiscordSlashCommandMessages,
			"Shows how many messages the bot has seen since it started",
		),
		simpleCommand(DiscordSlashCommandBotInfo, "Shows basic information about the bot"),
		guildCommand(
			DiscordSlashCommandFirstMsg,
			"Shows the first message of a channel",
			&discordgo.ApplicationCommandOption{
				Type:         discordgo.ApplicationCommandOptionChannel,
				Name:         optionChannel,
				Description:  "Channel to look in (defaults to this one)",
				ChannelTypes: messageChannelTypes,
			},
		),
		simpleCommand(
			DiscordSlashCommandWiki,
			"Shows the Wikipedia summary of the given topic",
			&discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        wikiOptionQuery,
				Description: "Topic to look up",
				Required:    true,
				MinLength:   &minLength,
				MaxLength:   300,
			},
		),
	}
	if translate {
		commands = append(
			commands,
			simpleCommand(
				DiscordSlashCommandTranslate,
				"Translates the given text",
				&discordgo.ApplicationCommandOption{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        translateOptionText,
					Description: "Text to translate",
					Required:    true,
					MinLength:   &minLength,
					MaxLength:   1000,
				},
			),
		)
	}
	return commands
}

// channelMessageSend sends the given message to the given discord channel ID
func (d *Discord) channelMessageSend(
	channelID string,
	message string,
	opts ...discordgo.RequestOption,
) error {
	_, err := d.session.ChannelMessageSend(channelID, message, opts...)
	return err
}

// trackGuild records a guild the bot is a member of
func (d *Discord) trackGuild(g *discordgo.Guild) {
	if g == nil || g.ID == "" {
		return
	}
	d.guildsMu.Lock()
	defer d.guildsMu.Unlock()
	d.guilds[g.ID] = &discordgo.Guild{
		ID:          g.ID,
		Name:        g.Name,
		Icon:        g.Icon,
		MemberCount: g.MemberCount,
	}
}

func (d *Discord) untrackGuild(guildID string) {
	d.guildsMu.Lock()
	defer d.guildsMu.Unlock()
	delete(d.guilds, guildID)
}

// guild returns the tracked guild with the given ID
func (d *Discord) guild(guildID string) (*discordgo.Guild, bool) {
	d.guildsMu.RLock()
	defer d.guildsMu.RUnlock()
	g, ok := d.guilds[guildID]
	return g, ok
}

// GuildCount is the number of guilds the bot is currently in
func (d *Discord) GuildCount() int {
	d.guildsMu.RLock()
	defer d.guildsMu.RUnlock()
	return len(d.guilds)
}

func (d *Discord) handlerReady() func(
	s *discordgo.Session,
	r *discordgo.Ready,
) {
	return func(s *discordgo.Session, r *discordgo.Ready) {
		if r.User != nil {
			d.botUser.Store(r.User)
		}
		for _, g := range r.Guilds {
			d.trackGuild(g)
		}
		d.logger.Info(
			"Ready",
			"session_id", r.SessionID,
			"guilds", len(r.Guilds),
		)
	}
}

func (d *Discord) handlerConnect() func(
	s *discordgo.Session,
	r *discordgo.Connect,
) {
	return func(s *discordgo.Session, r *discordgo.Connect) {
		d.metricConnects.Add(1)
		d.connected.Store(true)

		var sessionID string
		var userID string
		var username string

		if s != nil && s.State != nil {
			sessionID = s.State.SessionID
			if s.State.User != nil {
				userID = s.State.User.ID
				username = s.State.User.Username
			}
		}
		d.logger.Info(
			"Connected",
			"session_id", sessionID,
			slog.Group("user", "id", userID, "username", username),
		)
		config := d.ib.RuntimeConfig()
		if config.DiscordNotificationChannelID != "" && d.config.StartupMessage != "" {
			d.logger.Info("sending notification")
			if sendErr := d.channelMessageSend(
				config.DiscordNotificationChannelID,
				d.config.StartupMessage,
				discordgo.WithRetryOnRatelimit(false),
				discordgo.WithRestRetries(1),
			); sendErr != nil {
				d.logger.Error("unable to send startup message", tint.Err(sendErr))
			} else {
				d.logger.Info("sent notification")
			}
		}
	}
}

func (d *Discord) handlerDisconnect() func(
	s *discordgo.Session,
	r *discordgo.Disconnect,
) {
	return func(s *discordgo.Session, r *discordgo.Disconnect) {
		d.connected.Store(false)
		d.metricDisconnects.Add(1)

		var sessionID string
		if s != nil && s.State != nil {
			sessionID = s.State.SessionID
		}
		d.logger.Info("disconnected", "session_id", sessionID)
	}
}

func (d *Discord) handlerGuildCreate() func(
	s *discordgo.Session,
	g *discordgo.GuildCreate,
) {
	return func(_ *discordgo.Session, g *discordgo.GuildCreate) {
		if g.Guild == nil {
			return
		}
		d.trackGuild(g.Guild)
		d.logger.Debug("guild available", "guild_id", g.ID, "guild_name", g.Name)
	}
}

func (d *Discord) handlerGuildDelete() func(
	s *discordgo.Session,
	g *discordgo.GuildDelete,
) {
	return func(_ *discordgo.Session, g *discordgo.GuildDelete) {
		if g.Guild == nil {
			return
		}
		// unavailable guilds are outages, the bot is still a member
		if g.Unavailable {
			d.logger.Warn("guild unavailable", "guild_id", g.ID)
			return
		}
		d.untrackGuild(g.ID)
		d.logger.Info("removed from guild", "guild_id", g.ID)
	}
}

// handlerMessageCreate counts messages, and passes messages from
// users along to the AFK tracker
func (d *Discord) handlerMessageCreate(ctx context.Context) func(
	s *discordgo.Session,
	m *discordgo.MessageCreate,
) {
	return func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Message == nil {
			return
		}
		d.messagesSeen.Add(1)
		if m.Author == nil || m.Author.Bot {
			return
		}
		d.ib.runtimeWG.Add(1)
		go func() {
			defer d.ib.runtimeWG.Done()
			d.ib.afk.handleMessage(ctx, m.Message)
		}()
	}
}

func (d *Discord) handlerMessageUpdate() func(
	s *discordgo.Session,
	m *discordgo.MessageUpdate,
) {
	return func(_ *discordgo.Session, m *discordgo.MessageUpdate) {
		if m.Message == nil {
			return
		}
		// embed unfurls arrive as updates without an edit timestamp
		if m.EditedTimestamp == nil {
			return
		}
		d.messagesEdited.Add(1)
	}
}

// addHandlers registers every gateway event handler, keeping the
// functions needed to remove them
func (d *Discord) addHandlers(ctx context.Context) {
	d.discordgoRemoveHandlerFuncs = append(
		d.discordgoRemoveHandlerFuncs,
		d.session.AddHandler(d.handlerReady()),
		d.session.AddHandler(d.handlerConnect()),
		d.session.AddHandler(d.handlerDisconnect()),
		d.session.AddHandler(d.handlerGuildCreate()),
		d.session.AddHandler(d.handlerGuildDelete()),
		d.session.AddHandler(d.handlerMessageCreate(ctx)),
		d.session.AddHandler(d.handlerMessageUpdate()),
		d.session.AddHandler(
			func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
				d.ib.dispatchInteraction(ctx, i)
			},
		),
	)
}

func (d *Discord) removeHandlers() {
	for _, f := range d.discordgoRemoveHandlerFuncs {
		f()
	}
	d.discordgoRemoveHandlerFuncs = nil
}

func (d *Discord) updateStatusComplex(data discordgo.UpdateStatusData) error {
	return d.session.UpdateStatusComplex(data)
}

// registerCommands sends the bot's commands to the discord bulk overwrite
// endpoint
func (d *Discord) registerCommands(
	commands []*discordgo.ApplicationCommand,
	options ...discordgo.RequestOption,
) ([]*discordgo.ApplicationCommand, error) {
	created, err := d.session.ApplicationCommandBulkOverwrite(
		d.config.ApplicationID,
		d.config.GuildID,
		commands,
		options...,
	)
	if err != nil {
		d.logger.Error("error overwriting discord commands", tint.Err(err))
		return created, err
	}
	if len(created) == 0 {
		d.logger.Warn("no commands created")
	}
	return created, nil
}

// DiscordSessionHandler defines the interface for handling Discord sessions.
// This is basically defines methods from `discordgo.Session` which are
// used in this application, to enable testing/mocking.
type DiscordSessionHandler interface {
	// Open creates a websocket connection to Discord
	Open() error

	// Close closes the websocket connection to Discord
	Close() error

	// ChannelMessageSend sends a message to a specified channel.
	ChannelMessageSend(
		channelID string,
		message string,
		opts ...discordgo.RequestOption,
	) (*discordgo.Message, error)

	// ChannelMessageSendComplex sends a message with embeds, allowed
	// mentions and/or a message reference
	ChannelMessageSendComplex(
		channelID string,
		data *discordgo.MessageSend,
		opts ...discordgo.RequestOption,
	) (*discordgo.Message, error)

	// ChannelTyping shows the typing indicator in the given channel
	ChannelTyping(channelID string, opts ...discordgo.RequestOption) error

	// ApplicationCommandBulkOverwrite overwrites Discord application commands in bulk.
	ApplicationCommandBulkOverwrite(
		appID string,
		guildID string,
		commands []*discordgo.ApplicationCommand,
		options ...discordgo.RequestOption,
	) ([]*discordgo.ApplicationCommand, error)

	// UpdateStatusComplex sends the given status update, untouched
	UpdateStatusComplex(data discordgo.UpdateStatusData) error

	// AddHandler adds a discord gateway event handler
	AddHandler(handler any) func()

	// InteractionRespond sends an interaction response to Discord
	InteractionRespond(
		interaction *discordgo.Interaction,
		resp *discordgo.InteractionResponse,
		options ...discordgo.RequestOption,
	) error

	// InteractionResponse gets the response to an interaction
	InteractionResponse(
		interaction *discordgo.Interaction,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)

	// InteractionResponseEdit modifies the given interaction
	InteractionResponseEdit(
		interaction *discordgo.Interaction,
		newresp *discordgo.WebhookEdit,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)

	// InteractionResponseDelete deletes the given interaction
	InteractionResponseDelete(
		interaction *discordgo.Interaction,
		options ...discordgo.RequestOption,
	) error

	// User fetches a user, including their banner and accent color
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)

	// GuildWithCounts fetches a guild, with approximate member and
	// presence counts
	GuildWithCounts(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)

	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)

	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)

	GuildEmojis(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Emoji, error)

	GuildEmoji(
		guildID string,
		emojiID string,
		options ...discordgo.RequestOption,
	) (*discordgo.Emoji, error)

	GuildMember(
		guildID string,
		userID string,
		options ...discordgo.RequestOption,
	) (*discordgo.Member, error)

	// ChannelMessages lists up to limit messages from a channel, before,
	// after or around the given message IDs
	ChannelMessages(
		channelID string,
		limit int,
		beforeID string,
		afterID string,
		aroundID string,
		options ...discordgo.RequestOption,
	) ([]*discordgo.Message, error)

	// GuildMembers lists up to limit members with IDs greater than after
	GuildMembers(
		guildID string,
		after string,
		limit int,
		options ...discordgo.RequestOption,
	) ([]*discordgo.Member, error)

	// HeartbeatLatency is the latency of the last gateway heartbeat
	HeartbeatLatency() time.Duration

	// SetHTTPClient sets the HTTP client for the session
	SetHTTPClient(client *http.Client)

	// SetIdentify sets the identify object that's sent during the initial
	// handshake with the discord gateway
	SetIdentify(discordgo.Identify)

	// SetLogLevel modifies the session's log level
	SetLogLevel(lvl slog.Level) error
}

// DiscordSession implements DiscordSessionHandler, wrapping a
// [discordgo.Session](https://pkg.go.dev/github.com/bwmarrin/discordgo#Session)
type DiscordSession struct {
	session *discordgo.Session
	logger  *slog.Logger
}

func (d DiscordSession) SetLogLevel(lvl slog.Level) error {
	switch lvl.Level() {
	case slog.LevelInfo:
		d.session.LogLevel = discordgo.LogInformational
	case slog.LevelWarn:
		d.session.LogLevel = discordgo.LogWarning
	case slog.LevelDebug:
		d.session.LogLevel = discordgo.LogDebug
	case slog.LevelError:
		d.session.LogLevel = discordgo.LogError
	default:
		return fmt.Errorf("invalid log level: %s", lvl)
	}
	return nil
}

func (d DiscordSession) SetHTTPClient(client *http.Client) {
	d.session.Client = client
}

func (d DiscordSession) SetIdentify(i discordgo.Identify) {
	d.session.Identify = i
}

func (d DiscordSession) InteractionRespond(
	interaction *discordgo.Interaction,
	resp *discordgo.InteractionResponse,
	options ...discordgo.RequestOption,
) error {
	return d.session.InteractionRespond(interaction, resp, options...)
}

func (d DiscordSession) InteractionResponse(
	interaction *discordgo.Interaction,
	options ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	msg, err := d.session.InteractionResponse(interaction, options...)
	if err != nil {
		d.logger.Error("error getting interaction response", tint.Err(err))
	} else {
		d.logger.Debug("got interaction response", "message_id", msg.ID)
	}
	return msg, err
}

func (d DiscordSession) InteractionResponseEdit(
	interaction *discordgo.Interaction,
	newresp *discordgo.WebhookEdit,
	options ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	return d.session.InteractionResponseEdit(interaction, newresp, options...)
}

func (d DiscordSession) InteractionResponseDelete(
	interaction *discordgo.Interaction,
	options ...discordgo.RequestOption,
) error {
	return d.session.InteractionResponseDelete(interaction, options...)
}

func (d DiscordSession) AddHandler(handler any) func() {
	return d.session.AddHandler(handler)
}

func (d DiscordSession) Open() error {
	return d.session.Open()
}

func (d DiscordSession) Close() error {
	return d.session.Close()
}

func (d DiscordSession) ChannelMessageSend(
	channelID string,
	message string,
	opts ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	return d.session.ChannelMessageSend(channelID, message, opts...)
}

func (d DiscordSession) ChannelMessageSendComplex(
	channelID string,
	data *discordgo.MessageSend,
	opts ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	msg, err := d.session.ChannelMessageSendComplex(channelID, data, opts...)
	if err != nil {
		d.logger.Error(
			"error sending message",
			tint.Err(err),
			"channel_id", channelID,
		)
	}
	return msg, err
}

func (d DiscordSession) ChannelTyping(channelID string, opts ...discordgo.RequestOption) error {
	return d.session.ChannelTyping(channelID, opts...)
}

func (d DiscordSession) ApplicationCommandBulkOverwrite(
	appID string,
	guildID string,
	commands []*discordgo.ApplicationCommand,
	options ...discordgo.RequestOption,
) ([]*discordgo.ApplicationCommand, error) {
	created, err := d.session.ApplicationCommandBulkOverwrite(
		appID,
		guildID,
		commands,
		options...,
	)
	if err != nil {
		d.logger.Error("error overwriting discord commands", tint.Err(err))
		return created, err
	}
	for _, c := range created {
		d.logger.Info("Created command", "command", c.Name, "command_id", c.ID)
	}

	return created, nil
}

func (d DiscordSession) UpdateStatusComplex(
	data discordgo.UpdateStatusData,
) error {
	return d.session.UpdateStatusComplex(data)
}

func (d DiscordSession) User(
	userID string,
	options ...discordgo.RequestOption,
) (*discordgo.User, error) {
	return d.session.User(userID, options...)
}

func (d DiscordSession) GuildWithCounts(
	guildID string,
	options ...discordgo.RequestOption,
) (*discordgo.Guild, error) {
	return d.session.GuildWithCounts(guildID, options...)
}

func (d DiscordSession) GuildChannels(
	guildID string,
	options ...discordgo.RequestOption,
) ([]*discordgo.Channel, error) {
	return d.session.GuildChannels(guildID, options...)
}

func (d DiscordSession) GuildRoles(
	guildID string,
	options ...discordgo.RequestOption,
) ([]*discordgo.Role, error) {
	return d.session.GuildRoles(guildID, options...)
}

func (d DiscordSession) GuildEmojis(
	guildID string,
	options ...discordgo.RequestOption,
) ([]*discordgo.Emoji, error) {
	return d.session.GuildEmojis(guildID, options...)
}

func (d DiscordSession) GuildEmoji(
	guildID string,
	emojiID string,
	options ...discordgo.RequestOption,
) (*discordgo.Emoji, error) {
	return d.session.GuildEmoji(guildID, emojiID, options...)
}

func (d DiscordSession) GuildMember(
	guildID string,
	userID string,
	options ...discordgo.RequestOption,
) (*discordgo.Member, error) {
	return d.session.GuildMember(guildID, userID, options...)
}

func (d DiscordSession) GuildMembers(
	guildID string,
	after string,
	limit int,
	options ...discordgo.RequestOption,
) ([]*discordgo.Member, error) {
	return d.session.GuildMembers(guildID, after, limit, options...)
}

func (d DiscordSession) ChannelMessages(
	channelID string,
	limit int,
	beforeID string,
	afterID string,
	aroundID string,
	options ...discordgo.RequestOption,
) ([]*discordgo.Message, error) {
	return d.session.ChannelMessages(channelID, limit, beforeID, afterID, aroundID, options...)
}

func (d DiscordSession) HeartbeatLatency() time.Duration {
	return d.session.HeartbeatLatency()
}

// getDiscordUser returns the [discordgo.User] associated with the interaction.
// Users don't always appear in the same place in the interaction object, so
// this checks known areas.
func getDiscordUser(i *discordgo.InteractionCreate) *discordgo.User {
	u := i.User
	if u == nil && i.Member != nil {
		u = i.Member.User
	}
	return u
}

// userDisplayName returns the user's global name, falling back to
// their username
func userDisplayName(u *discordgo.User) string {
	if u == nil {
		return ""
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}
