package infobot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	"gorm.io/gorm"
)

var (
	// When building, set these like:
	// -ldflags "-X github.com/arcward/infobot/infobot.Version=$$(date +'%Y%m%d')"

	Version   = "dev"
	CommitSHA = "unknown"
	BuildTime = "unknown"
)

var (
	defaultLogWriter io.Writer = os.Stdout
)

// commandFunc executes a slash command for an already-known user
type commandFunc func(ctx context.Context, handler InteractionHandler, u *User)

// InfoBot is the main application struct. It owns the discord session,
// the database, the documentation index cache, and the state behind
// each command.
type InfoBot struct {
	config *Config

	// gorm.DB wrapper. With sqlite, writes are serialized.
	db DBI

	dbNotifier DBNotifier
	signals    *notifySignals

	// Standard logger. Missing loggers will try to use this,
	// and fall back to slog.Default()
	logger *slog.Logger

	discord *Discord

	// Lazily built documentation indexes, for /rtfm
	rtfm *IndexCache

	afk        *afkTracker
	translator Translator
	wiki       *WikiClient
	pages      *paginator
	cooldowns  *cooldownTracker

	commands map[string]commandFunc

	// signalStop enables an explicit stop signal to be sent to the bot
	signalStop chan struct{}

	// signalReady has a value sent on it once Run has connected to
	// discord and registered commands
	signalReady chan struct{}

	// A signal is sent on this channel when shutdown finishes
	eventShutdown chan struct{}

	// prevents Run from executing concurrently
	runMu sync.Mutex

	// The time Run was called
	startedAt time.Time

	// getInteractionHandlerFunc returns the InteractionHandler used to
	// respond to an interaction
	getInteractionHandlerFunc func(
		ctx context.Context,
		i *discordgo.InteractionCreate,
	) InteractionHandler

	// Runtime-configurable settings
	runtimeConfig *RuntimeConfig
	cfgMu         sync.RWMutex

	commandsHandled atomic.Int64

	// runtimeWG tracks goroutines spawned while running, and is waited
	// on during shutdown
	runtimeWG *sync.WaitGroup
}

// New creates an InfoBot from the given config. Run must be called to
// connect to the database and discord.
func New(config *Config) (*InfoBot, error) {
	var errs []error

	switch config.DatabaseType {
	case dbTypeSQLite, dbTypePostgres:
		//
	default:
		errs = append(
			errs,
			errors.New("invalid database type (must be 'sqlite' or 'postgres')"),
		)
	}

	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}

	ib := &InfoBot{
		config:        config,
		signalReady:   make(chan struct{}, 1),
		eventShutdown: make(chan struct{}, 1),
		signals:       newNotifySignals(),
		runtimeWG:     &sync.WaitGroup{},
	}

	ib.logger = slog.New(newTintHandler(config.LogLevel))
	slog.SetDefault(ib.logger)

	discordgo.Logger = discordgoLoggerFunc(
		context.Background(),
		newTintHandler(config.Discord.DiscordGoLogLevel),
	)

	disc := newDiscord(config.Discord)
	disc.logger = componentLogger(config.Discord.LogLevel, "discord")
	disc.ib = ib
	ib.discord = disc

	docSets, err := LoadDocSetConfig(config.RTFM.DocSetsFile)
	if err != nil {
		errs = append(errs, fmt.Errorf("error loading documentation sets: %w", err))
	} else {
		ib.rtfm = NewIndexCache(
			docSets,
			&HTTPFetcher{Client: config.HTTPClient, UserAgent: config.UserAgent},
			config.RTFM.FetchTimeout,
			componentLogger(config.RTFM.LogLevel, "rtfm"),
		)
	}

	ib.wiki = NewWikiClient(config.Wiki.BaseURL, config.HTTPClient, config.UserAgent)

	if config.Translate.Enabled {
		ib.translator = NewOpenAITranslator(
			config.Translate,
			config.HTTPClient,
			componentLogger(config.Translate.LogLevel, "translate"),
		)
	}

	ib.afk = newAFKTracker(ib)
	ib.pages = newPaginator(defaultPaginatorTTL)
	ib.cooldowns = newCooldownTracker()
	ib.commands = ib.commandHandlers()

	return ib, errors.Join(errs...)
}

func (ib *InfoBot) commandHandlers() map[string]commandFunc {
	return map[string]commandFunc{
		DiscordSlashCommandRTFM:       ib.commandRTFM,
		DiscordSlashCommandTodo:       ib.commandTodo,
		DiscordSlashCommandAFK:        ib.commandAFK,
		DiscordSlashCommandAutoAFK:    ib.commandAutoAFK,
		DiscordSlashCommandUserInfo:   ib.withCooldown(ib.commandUserInfo),
		DiscordSlashCommandAvatar:     ib.withCooldown(ib.commandAvatar),
		DiscordSlashCommandBanner:     ib.withCooldown(ib.commandBanner),
		DiscordSlashCommandServerInfo: ib.commandServerInfo,
		DiscordSlashCommandRoleInfo:   ib.commandRoleInfo,
		DiscordSlashCommandEmojiInfo:  ib.commandEmojiInfo,
		DiscordSlashCommandEmoteList:  ib.commandEmoteList,
		DiscordSlashCommandMemberList: ib.commandMemberList,
		DiscordSlashCommandPing:       ib.commandPing,
		DiscordSlashCommandUptime:     ib.commandUptime,
		DiscordSlashCommandServers:    ib.commandServers,
		DiscordSlashCommandMessages:   ib.commandMessages,
		DiscordSlashCommandTranslate:  ib.commandTranslate,
		DiscordSlashCommandWiki:       ib.commandWiki,
		DiscordSlashCommandBotInfo:    ib.commandBotInfo,
		DiscordSlashCommandFirstMsg:   ib.commandFirstMessage,
	}
}

func (ib *InfoBot) ValidateConfig() error {
	return structValidator.Struct(ib.config)
}

// RuntimeConfig returns a copy of the current runtime config
func (ib *InfoBot) RuntimeConfig() RuntimeConfig {
	ib.cfgMu.RLock()
	defer ib.cfgMu.RUnlock()
	if ib.runtimeConfig == nil {
		return DefaultRuntimeConfig()
	}
	return *ib.runtimeConfig
}

// Uptime is the time since Run was called
func (ib *InfoBot) Uptime() time.Duration {
	if ib.startedAt.IsZero() {
		return 0
	}
	return time.Since(ib.startedAt)
}

// Stop signals a running bot to shut down
func (ib *InfoBot) Stop() {
	select {
	case ib.signalStop <- struct{}{}:
	default:
	}
}

// RegisterSlashCommands registers every slash command with discord
func (ib *InfoBot) RegisterSlashCommands(options ...discordgo.RequestOption) (
	[]*discordgo.ApplicationCommand,
	error,
) {
	return ib.discord.registerCommands(
		applicationCommands(ib.rtfm.Config().Sets, ib.translator != nil),
		options...,
	)
}

// Run connects to the database and discord, then handles commands
// until ctx is canceled or a stop signal is received.
func (ib *InfoBot) Run(ctx context.Context) error {
	// prevents concurrent runs
	ib.runMu.Lock()
	defer ib.runMu.Unlock()

	ib.signalStop = make(chan struct{}, 1)
	ib.startedAt = time.Now()
	logger := ib.logger

	if err := ib.ValidateConfig(); err != nil {
		logger.Error("invalid config", tint.Err(err))
		return err
	}

	ctx = WithLogger(ctx, logger)
	logger.LogAttrs(ctx, slog.LevelInfo, "starting", slog.Any("config", ib.config))

	// this is the 'runtime' context, which triggers a graceful shutdown
	// when canceled
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-ib.signalStop:
			logger.Warn("got stop signal, canceling")
			cancel()
		case <-ib.signals.stop:
			logger.Warn("got stop notification, canceling")
			cancel()
		case <-ctx.Done():
			return
		}
	}()

	startCtx, startCancel := context.WithTimeout(ctx, ib.config.StartupTimeout)
	defer startCancel()

	initErr := make(chan error, 1)
	go func() {
		logger.Debug("initializing run...")
		initErr <- ib.initRun(startCtx)
	}()

	select {
	case <-startCtx.Done():
		return fmt.Errorf("startup cancelled or timed out")
	case err := <-initErr:
		if err != nil {
			logger.ErrorContext(ctx, "init error", tint.Err(err))
			return err
		}
		logger.InfoContext(ctx, "init complete")
	}

	runtimeWG := ib.runtimeWG

	if ib.config.RTFM.WarmOnStart {
		runtimeWG.Add(1)
		go func() {
			defer runtimeWG.Done()
			if err := ib.rtfm.Warm(ctx); err != nil {
				logger.WarnContext(ctx, "error warming documentation indexes", tint.Err(err))
			}
		}()
	}

	if err := ib.initDiscordSession(ctx); err != nil {
		logger.ErrorContext(ctx, "error creating discord session", tint.Err(err))
		return err
	}

	if err := ib.discordInit(ctx); err != nil {
		return ib.shutdown(ctx, runtimeWG, err)
	}

	ib.startRuntimeConfigRefresher(ctx, runtimeWG, logger)
	ib.startAFKRefresher(ctx, runtimeWG, logger)
	ib.startJanitor(ctx, runtimeWG)

	for _, channel := range []string{
		ib.dbNotifier.RuntimeConfigChannelName(),
		ib.dbNotifier.AFKChannelName(),
		ib.dbNotifier.StopChannelName(),
	} {
		if channel == "" {
			continue
		}
		runtimeWG.Add(1)
		go func() {
			defer runtimeWG.Done()
			if e := ib.dbNotifier.Listen(ctx, channel); e != nil {
				logger.ErrorContext(
					ctx,
					"error listening to notification channel",
					"channel", channel,
					tint.Err(e),
				)
			}
		}()
	}

	select {
	case ib.signalReady <- struct{}{}:
		logger.InfoContext(ctx, "sent ready signal")
	default:
	}

	// block until something cancels the main runtime context
	<-ctx.Done()

	return ib.shutdown(ctx, runtimeWG, nil)
}

// initRun opens the database, and loads (or creates) the runtime config
// and AFK statuses
func (ib *InfoBot) initRun(ctx context.Context) error {
	if ib.db == nil {
		ib.logger.Debug("initializing DB...")
		if err := ib.initDB(ctx); err != nil {
			return fmt.Errorf("error initializing database: %w", err)
		}
		ib.logger.Debug("finished initializing DB")
	}

	if ib.dbNotifier == nil {
		notifier, err := newDBNotifier(
			ib.config.DatabaseType,
			ib.config.Database,
			ib.db,
			ib.signals,
			ib.logger,
		)
		if err != nil {
			return fmt.Errorf("error creating db notifier: %w", err)
		}
		ib.dbNotifier = notifier
	}

	botState, created, err := LoadRuntimeConfig(ctx, ib.db)
	if err != nil {
		return fmt.Errorf("error getting config: %w", err)
	}
	if created {
		ib.logger.InfoContext(ctx, "created default runtime config")
	}
	if validationErr := structValidator.Struct(botState); validationErr != nil {
		return fmt.Errorf("invalid runtime config: %w", validationErr)
	}

	ib.cfgMu.Lock()
	ib.runtimeConfig = botState
	ib.cfgMu.Unlock()
	ib.setRuntimeLevels(*botState)

	if err = ib.afk.load(ctx); err != nil {
		return fmt.Errorf("error loading afk statuses: %w", err)
	}
	return nil
}

func (ib *InfoBot) initDB(ctx context.Context) error {
	logger := contextLoggerOr(ctx, ib.logger)

	gormLogger := newGORMLogger(
		newTintHandler(ib.config.DatabaseLogLevel),
		ib.config.DatabaseSlowThreshold,
	)
	db, err := getDB(ib.config.DatabaseType, ib.config.Database, gormLogger)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}

	if ib.config.DatabaseType == dbTypeSQLite {
		if err = configureSQLite(ctx, db); err != nil {
			return err
		}
	}

	logger.Debug("migrating database...")
	if err = migrate(ctx, db); err != nil {
		logger.Error("error migrating database", tint.Err(err))
		return fmt.Errorf("error migrating database: %w", err)
	}
	logger.Debug("finished migrating database")

	ib.db = NewDatabase(
		db,
		componentLogger(ib.config.DatabaseLogLevel, "database"),
		ib.config.DatabaseType == dbTypePostgres,
	)
	return nil
}

func (ib *InfoBot) initDiscordSession(ctx context.Context) error {
	if ib.discord.session == nil {
		disc, discErr := ib.discord.newSession(ib.config.HTTPClient)
		if discErr != nil {
			return fmt.Errorf("error creating discord session: %w", discErr)
		}
		ib.discord.session = disc
	}

	ib.discord.removeHandlers()

	ib.discord.session.SetIdentify(
		discordgo.Identify{
			Intents:  ib.config.Discord.GatewayIntents,
			Presence: discordgo.GatewayStatusUpdate{Status: string(discordgo.StatusOnline)},
		},
	)

	if ib.getInteractionHandlerFunc == nil {
		ib.getInteractionHandlerFunc = func(
			_ context.Context,
			i *discordgo.InteractionCreate,
		) InteractionHandler {
			return GatewayHandler{
				session:     ib.discord.session,
				interaction: i,
				config:      ib.RuntimeConfig(),
				logger: ib.discord.logger.With(
					slog.Group("interaction", interactionLogAttrs(*i)...),
				),
			}
		}
	}

	ib.discord.addHandlers(ctx)
	return nil
}

// discordInit opens the discord websocket connection and registers commands
func (ib *InfoBot) discordInit(ctx context.Context) error {
	ib.logger.InfoContext(ctx, "connecting to discord")
	if err := ib.discord.session.Open(); err != nil {
		ib.logger.ErrorContext(ctx, "error connecting to discord!", tint.Err(err))
		return fmt.Errorf("error connecting to discord: %w", err)
	}
	if err := ib.discord.updateStatusComplex(
		getDiscordPresenceStatusUpdate(ib.RuntimeConfig()),
	); err != nil {
		ib.logger.ErrorContext(ctx, "error updating discord status", tint.Err(err))
	}
	if _, err := ib.RegisterSlashCommands(); err != nil {
		return fmt.Errorf("error registering commands: %w", err)
	}
	return nil
}

// dispatchInteraction handles an interaction received from the gateway
// on its own goroutine, tracked by the runtime WaitGroup
func (ib *InfoBot) dispatchInteraction(ctx context.Context, i *discordgo.InteractionCreate) {
	handler := ib.getInteractionHandlerFunc(ctx, i)
	ib.runtimeWG.Add(1)
	go func() {
		defer ib.runtimeWG.Done()
		ib.handleInteraction(ctx, handler)
	}()
}

func (ib *InfoBot) startRuntimeConfigRefresher(
	ctx context.Context,
	runtimeWG *sync.WaitGroup,
	logger *slog.Logger,
) {
	runtimeConfigTTL := ib.config.RuntimeConfigTTL

	runtimeWG.Add(1)
	go func() {
		defer runtimeWG.Done()

		var tick <-chan time.Time
		if runtimeConfigTTL > 0 {
			ticker := time.NewTicker(runtimeConfigTTL)
			defer ticker.Stop()
			tick = ticker.C
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-tick:
				logger.Debug("refreshing runtime config from ticker")
				ib.refreshRuntimeConfig(ctx)
			case <-ib.signals.runtimeConfig:
				logger.Info("refreshing runtime config from notification")
				ib.refreshRuntimeConfig(ctx)
			}
		}
	}()
}

// refreshRuntimeConfig reloads the runtime config from the database,
// applying log levels and updating the bot's status if it changed
func (ib *InfoBot) refreshRuntimeConfig(ctx context.Context) {
	ctx, cancel := withDBTimeout(ctx)
	defer cancel()

	var refreshed RuntimeConfig
	if err := ib.db.DB().WithContext(ctx).Last(&refreshed).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			ib.logger.Error("error getting runtime config", tint.Err(err))
		}
		return
	}

	ib.cfgMu.Lock()
	previous := ib.runtimeConfig
	ib.runtimeConfig = &refreshed
	ib.cfgMu.Unlock()

	ib.setRuntimeLevels(refreshed)

	if previous != nil && previous.DiscordCustomStatus != refreshed.DiscordCustomStatus &&
		ib.discord.session != nil {
		if err := ib.discord.updateStatusComplex(
			getDiscordPresenceStatusUpdate(refreshed),
		); err != nil {
			ib.logger.Error("error updating discord status", tint.Err(err))
		}
	}
	ib.logger.Debug("refreshed runtime config")
}

func (ib *InfoBot) startAFKRefresher(
	ctx context.Context,
	runtimeWG *sync.WaitGroup,
	logger *slog.Logger,
) {
	afkCacheTTL := ib.config.AFKCacheTTL

	runtimeWG.Add(1)
	go func() {
		defer runtimeWG.Done()

		var tick <-chan time.Time
		if afkCacheTTL > 0 {
			ticker := time.NewTicker(afkCacheTTL)
			defer ticker.Stop()
			tick = ticker.C
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-tick:
				if err := ib.afk.load(ctx); err != nil {
					logger.ErrorContext(ctx, "error reloading afk statuses", tint.Err(err))
				}
			case userID := <-ib.signals.afkUpdated:
				ib.afk.refresh(ctx, userID)
			}
		}
	}()
}

// startJanitor periodically drops expired pagers and idle cooldowns
func (ib *InfoBot) startJanitor(ctx context.Context, runtimeWG *sync.WaitGroup) {
	runtimeWG.Add(1)
	go func() {
		defer runtimeWG.Done()
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				pagers := ib.pages.sweep(now)
				cooldowns := ib.cooldowns.prune(now)
				if pagers > 0 || cooldowns > 0 {
					ib.logger.Debug(
						"removed expired state",
						"pagers", pagers,
						"cooldowns", cooldowns,
					)
				}
			}
		}
	}()
}

// setRuntimeLevels sets the logging levels of each component from the
// given runtime config
func (ib *InfoBot) setRuntimeLevels(state RuntimeConfig) {
	ib.config.LogLevel.Set(state.LogLevel.Level())
	ib.config.Discord.LogLevel.Set(state.DiscordLogLevel.Level())
	ib.config.Discord.DiscordGoLogLevel.Set(state.DiscordGoLogLevel.Level())
	ib.config.DatabaseLogLevel.Set(state.DatabaseLogLevel.Level())
	ib.config.RTFM.LogLevel.Set(state.RTFMLogLevel.Level())
	ib.config.Translate.LogLevel.Set(state.TranslateLogLevel.Level())
	if ib.discord.session != nil {
		if err := ib.discord.session.SetLogLevel(state.DiscordGoLogLevel.Level()); err != nil {
			ib.logger.Warn("error setting discordgo log level", tint.Err(err))
		}
	}
}

func (ib *InfoBot) shutdown(
	ctx context.Context,
	runtimeWG *sync.WaitGroup,
	cause error,
) error {
	ib.logger.WarnContext(ctx, "shutting down")
	defer func() {
		select {
		case ib.eventShutdown <- struct{}{}:
		default:
		}
	}()

	shutdownStart := time.Now()
	closeCtx, closeCancel := context.WithTimeout(
		context.Background(),
		ib.config.ShutdownTimeout,
	)
	defer closeCancel()

	// stop receiving new events before waiting on in-flight commands
	if ib.discord.session != nil {
		ib.discord.removeHandlers()
	}

	gracefulShutdownCh := make(chan struct{}, 1)
	go func() {
		runtimeWG.Wait()
		ib.logger.InfoContext(
			ctx,
			"finished handling in-flight requests",
			"runtime_stop_duration", time.Since(shutdownStart),
		)
		gracefulShutdownCh <- struct{}{}
	}()

	var err error
	select {
	case <-gracefulShutdownCh:
	case <-closeCtx.Done():
		ib.logger.Warn("in-flight requests did not finish in time, forcing close")
		err = errors.New("shutdown timed out")
	}

	if ib.discord.session != nil {
		ib.logger.InfoContext(ctx, "closing discord session")
		if closeErr := ib.discord.session.Close(); closeErr != nil {
			ib.logger.ErrorContext(ctx, "error closing discord session", tint.Err(closeErr))
		}
	}

	if ib.db != nil {
		if sqlDB, dbErr := ib.db.DB().DB(); dbErr == nil {
			if closeErr := sqlDB.Close(); closeErr != nil {
				ib.logger.ErrorContext(ctx, "error closing database", tint.Err(closeErr))
			}
		}
	}

	ib.logger.InfoContext(
		ctx,
		"shutdown complete",
		"shutdown_duration", time.Since(shutdownStart),
	)
	return errors.Join(cause, err)
}

// handleRecover logs a recovered panic along with its stack trace
func (*InfoBot) handleRecover(ctx context.Context, rc any) {
	logger, ok := ContextLogger(ctx)
	if logger == nil || !ok {
		logger = slog.Default()
	}
	stackTrace := string(debug.Stack())
	if nerr, ok := rc.(error); ok {
		logger.ErrorContext(
			ctx,
			"recovered from panic",
			tint.Err(nerr),
			"stack_trace", stackTrace,
		)
		return
	}
	if nerr, ok := rc.(string); ok {
		logger.ErrorContext(
			ctx,
			"recovered from panic",
			tint.Err(errors.New(nerr)),
			"stack_trace", stackTrace,
		)
		return
	}
	logger.ErrorContext(
		ctx,
		"recovered from panic",
		"panic_arg", rc,
		"stack_trace", stackTrace,
	)
}

func (ib *InfoBot) handleInteraction(
	ctx context.Context,
	handler InteractionHandler,
) {
	logger := handler.Logger()
	i := handler.GetInteraction()

	discordUser := getDiscordUser(i)
	if discordUser == nil {
		logger.ErrorContext(
			ctx,
			"no user found in interaction",
			"interaction", structToSlogValue(i),
		)
		return
	}

	ctx = WithLogger(ctx, logger)
	logger.InfoContext(ctx, "received new interaction", "user", structToSlogValue(discordUser))

	if handler.Config().RecoverPanic {
		defer func() {
			if rc := recover(); rc != nil {
				ib.handleRecover(ctx, rc)
				respondError(ctx, handler)
			}
		}()
	}

	wg := &sync.WaitGroup{}
	defer wg.Wait()

	if i.Type != discordgo.InteractionApplicationCommandAutocomplete {
		interactionLog, err := newInteractionLog(i, discordUser)
		if err != nil {
			logger.ErrorContext(ctx, "error marshaling interaction", tint.Err(err))
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, createErr := ib.db.Create(ctx, interactionLog); createErr != nil {
					logger.ErrorContext(ctx, "error logging interaction", tint.Err(createErr))
				}
			}()
		}
	}

	if discordUser.Bot {
		logger.WarnContext(ctx, "user is bot, ignoring", "user", discordUser)
		return
	}

	switch i.Type {
	case discordgo.InteractionPing:
		_ = handler.Respond(
			ctx, &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponsePong,
			},
		)
	case discordgo.InteractionApplicationCommandAutocomplete:
		if i.ApplicationCommandData().Name == DiscordSlashCommandRTFM {
			ib.autocompleteRTFM(ctx, handler)
		}
	case discordgo.InteractionMessageComponent:
		ib.handleComponent(ctx, handler, discordUser)
	case discordgo.InteractionApplicationCommand:
		commandName := i.ApplicationCommandData().Name
		command, ok := ib.commands[commandName]
		if !ok {
			logger.WarnContext(ctx, "unknown command", "command", commandName)
			respondError(ctx, handler)
			return
		}

		u, _, err := ib.db.GetOrCreateUser(ctx, *discordUser)
		if err != nil {
			logger.ErrorContext(ctx, "error getting user", tint.Err(err))
			respondError(ctx, handler)
			return
		}

		logger = logger.With(slog.Group("user", userLogAttrs(*u)...))
		ctx = WithLogger(ctx, logger)
		ib.commandsHandled.Add(1)
		command(ctx, handler, u)
	}
}

// handleComponent routes button presses by the prefix of their custom ID
func (ib *InfoBot) handleComponent(
	ctx context.Context,
	handler InteractionHandler,
	u *discordgo.User,
) {
	customID := handler.GetInteraction().MessageComponentData().CustomID
	prefix, _, _ := strings.Cut(customID, customIDSeparator)
	switch prefix {
	case paginatorCustomIDPrefix:
		ib.pages.handleComponent(ctx, handler, u, customID)
	case todoClearCustomIDPrefix:
		ib.todoClearComponent(ctx, handler, u, customID)
	default:
		handler.Logger().WarnContext(ctx, "unknown component", "custom_id", customID)
	}
}

// withCooldown wraps a command with the per-user
// [RuntimeConfig.InfoCommandCooldown]
func (ib *InfoBot) withCooldown(command commandFunc) commandFunc {
	return func(ctx context.Context, handler InteractionHandler, u *User) {
		config := handler.Config()
		commandName := handler.GetInteraction().ApplicationCommandData().Name
		remaining := ib.cooldowns.reserve(commandName, u.ID, config.InfoCommandCooldown.Duration)
		if remaining > 0 {
			handler.Logger().InfoContext(ctx, "user on cooldown", "remaining", remaining)
			msg := config.DiscordCooldownMessage
			if strings.Contains(msg, "%s") {
				msg = fmt.Sprintf(msg, remaining.Round(100*time.Millisecond).String())
			}
			_ = respondContent(ctx, handler, true, msg)
			return
		}
		command(ctx, handler, u)
	}
}
