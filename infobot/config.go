//nolint:lll // struct tags can't be split
package infobot

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	openai "github.com/sashabaranov/go-openai"
)

const (
	EnvvarSetEnvPrefix     = "INFOBOT_ENV_PREFIX"
	DefaultEnvPrefix       = "IB"
	DefaultDatabaseType    = "sqlite"
	DefaultDatabase        = "infobot.sqlite3"
	DefaultLogLevel        = slog.LevelInfo
	DefaultStartupTimeout  = 30 * time.Second
	DefaultShutdownTimeout = 20 * time.Second

	DefaultDiscordGatewayIntent = discordgo.IntentsAllWithoutPrivileged |
		discordgo.IntentsMessageContent
	DefaultDiscordLogLevel         = slog.LevelWarn
	DefaultDiscordgoLogLevel       = slog.LevelWarn
	DefaultDiscordErrorMessage     = "sorry, something went wrong!"
	DefaultDiscordCooldownMessage  = "You're on cooldown! Try again in %s."
	DefaultDiscordCustomStatus     = "/rtfm"
	DefaultDiscordStartupMessage   = "I'm here!"
	DefaultDiscordPingURL          = "https://discord.com/"
	discordMaxMessageLength        = 2000
	discordMaxEmbedDescriptionSize = 4096

	DefaultDatabaseSlowThreshold = 200 * time.Millisecond
	DefaultDatabaseLogLevel      = slog.LevelInfo
	DefaultRTFMLogLevel          = slog.LevelInfo

	DefaultTranslateLogLevel             = slog.LevelInfo
	DefaultTranslateModel                = openai.GPT4oMini
	DefaultTranslateMaxRequestsPerSecond = 1
	DefaultTranslateTargetLanguage       = "en"

	DefaultWikiBaseURL = "https://en.wikipedia.org/api/rest_v1"

	DefaultRuntimeConfigTTL = 5 * time.Minute
	DefaultAFKCacheTTL      = time.Hour
	DefaultUserAgent        = "infobot (https://github.com/arcward/infobot)"
)

type Config struct {
	// Database connection string
	Database string `yaml:"database" mapstructure:"database" json:"database"`

	// DatabaseType specifies the type of database, either 'sqlite' or 'postgres'
	DatabaseType string `yaml:"database_type" mapstructure:"database_type" json:"database_type" binding:"oneof=sqlite postgres"`

	// DatabaseLogLevel sets the log level for database operations
	DatabaseLogLevel *slog.LevelVar `yaml:"database_log_level" mapstructure:"database_log_level" json:"database_log_level"`

	// DatabaseSlowThreshold is the duration threshold for identifying slow database queries
	DatabaseSlowThreshold time.Duration `yaml:"database_slow_threshold" mapstructure:"database_slow_threshold" json:"database_slow_threshold"`

	// RTFM configures documentation lookups
	RTFM *RTFMConfig `yaml:"rtfm" mapstructure:"rtfm" json:"rtfm"`

	// Translate configures the /translate command
	Translate *TranslateConfig `yaml:"translate" mapstructure:"translate" json:"translate"`

	// Wiki configures the /wiki command
	Wiki *WikiConfig `yaml:"wiki" mapstructure:"wiki" json:"wiki"`

	// Discord configures aspects of the Discord bot itself
	Discord *DiscordConfig `yaml:"discord" mapstructure:"discord" json:"discord"`

	// LogLevel is the base log level, for the default logger
	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`

	// StartupTimeout sets a limit on the amount of time the bot has to
	// initialize. If this is passed, the bot will abort startup.
	StartupTimeout time.Duration `yaml:"startup_timeout" mapstructure:"startup_timeout" json:"startup_timeout"`

	// ShutdownTimeout is the time to allow for a graceful shutdown. After this
	// elapses, the bot will force close all connections and exit.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout" json:"shutdown_timeout"`

	// RuntimeConfigTTL sets the time-to-live for the RuntimeConfig cache.
	// If this TTL is set above 0, the config will be refreshed from the
	// database at least every TTL duration. If using PostgreSQL,
	// LISTEN/NOTIFY will be used to announce updates in addition to this.
	RuntimeConfigTTL time.Duration `yaml:"runtime_config_ttl" mapstructure:"runtime_config_ttl" json:"runtime_config_ttl"`

	// AFKCacheTTL works like RuntimeConfigTTL, for the in-memory AFK cache
	AFKCacheTTL time.Duration `yaml:"afk_cache_ttl" mapstructure:"afk_cache_ttl" json:"afk_cache_ttl"`

	// UserAgent is sent with outgoing HTTP requests (inventories, wiki)
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent" json:"user_agent"`

	HTTPClient *http.Client `log:"[redacted]"`
}

func (c Config) LogValue() slog.Value {
	return structToSlogValue(c)
}

// RTFMConfig configures documentation set lookups
type RTFMConfig struct {
	// DocSetsFile is a path to a YAML file defining the available
	// documentation sets. When empty, the built-in sets are used.
	DocSetsFile string `yaml:"docsets_file" mapstructure:"docsets_file" json:"docsets_file"`

	// FetchTimeout limits how long fetching a single inventory may take
	FetchTimeout time.Duration `yaml:"fetch_timeout" mapstructure:"fetch_timeout" json:"fetch_timeout" binding:"min=1s"`

	// DefaultLimit is the number of results shown by /rtfm
	DefaultLimit int `yaml:"default_limit" mapstructure:"default_limit" json:"default_limit" binding:"min=1,max=25"`

	// AutocompleteLimit is the number of choices offered while typing
	AutocompleteLimit int `yaml:"autocomplete_limit" mapstructure:"autocomplete_limit" json:"autocomplete_limit" binding:"min=1,max=25"`

	// WarmOnStart builds every documentation set at startup, rather
	// than on first use
	WarmOnStart bool `yaml:"warm_on_start" mapstructure:"warm_on_start" json:"warm_on_start"`

	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`
}

// TranslateConfig configures OpenAI-backed translation
type TranslateConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled" json:"enabled"`

	// OpenAI API token
	Token string `yaml:"token" mapstructure:"token" json:"token" log:"[redacted]" binding:"required_if=Enabled true"`

	// Chat completion model used for translation
	Model string `yaml:"model" mapstructure:"model" json:"model" binding:"required_if=Enabled true"`

	// TargetLanguage is the BCP 47 tag text is translated into
	TargetLanguage string `yaml:"target_language" mapstructure:"target_language" json:"target_language" binding:"omitempty,bcp47_language_tag"`

	// MaxRequestsPerSecond limits calls to the OpenAI API
	MaxRequestsPerSecond float64 `yaml:"max_requests_per_second" mapstructure:"max_requests_per_second" json:"max_requests_per_second" binding:"min=0"`

	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`
}

// WikiConfig configures the Wikipedia summary lookup
type WikiConfig struct {
	// BaseURL of the Wikipedia REST API
	BaseURL string `yaml:"base_url" mapstructure:"base_url" json:"base_url" binding:"required,url"`
}

// DiscordConfig configures the discord bot itself.
//
//nolint:lll // can't break tags
type DiscordConfig struct {
	// Discord bot token (from the 'Bot' tab in the discord dev portal)
	Token string `yaml:"token" mapstructure:"token" json:"token" log:"[redacted]" binding:"required"`

	// Discord application ID (from the 'General Information' tab in the discord dev portal)
	ApplicationID string `yaml:"application_id" mapstructure:"application_id" json:"application_id" binding:"required"`

	// GuildID specifies the guild ID used when registering slash commands.
	// Leave empty for commands to be registered as global.
	GuildID string `yaml:"guild_id" mapstructure:"guild_id" json:"guild_id"`

	// Base discord logging level
	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`

	// Log level for the `discordgo` library's logger
	DiscordGoLogLevel *slog.LevelVar `yaml:"discordgo_log_level" mapstructure:"discordgo_log_level" json:"discordgo_log_level"`

	// If specified, and [RuntimeConfig.DiscordNotificationChannelID] is set,
	// the bot will send the specified message to that channel ID whenever it
	// connects to the discord gateway.
	StartupMessage string `yaml:"startup_message" mapstructure:"startup_message" json:"startup_message"`

	// Discord gateway intents. See: https://discord.com/developers/docs/topics/gateway#gateway-intents
	GatewayIntents discordgo.Intent `yaml:"gateway_intents" mapstructure:"gateway_intents" json:"gateway_intents"`

	// PingURL is requested by /ping to measure REST latency
	PingURL string `yaml:"ping_url" mapstructure:"ping_url" json:"ping_url" binding:"omitempty,url"`
}

// DefaultConfig returns a Config with all default settings populated
func DefaultConfig() *Config {
	mainLogLevel := &slog.LevelVar{}
	discordLogLevel := &slog.LevelVar{}
	discordgoLogLevel := &slog.LevelVar{}
	dbLogLevel := &slog.LevelVar{}
	rtfmLogLevel := &slog.LevelVar{}
	translateLogLevel := &slog.LevelVar{}

	mainLogLevel.Set(DefaultLogLevel)
	discordLogLevel.Set(DefaultDiscordLogLevel)
	discordgoLogLevel.Set(DefaultDiscordgoLogLevel)
	dbLogLevel.Set(DefaultDatabaseLogLevel)
	rtfmLogLevel.Set(DefaultRTFMLogLevel)
	translateLogLevel.Set(DefaultTranslateLogLevel)

	return &Config{
		DatabaseType:          DefaultDatabaseType,
		Database:              DefaultDatabase,
		DatabaseLogLevel:      dbLogLevel,
		DatabaseSlowThreshold: DefaultDatabaseSlowThreshold,
		LogLevel:              mainLogLevel,
		StartupTimeout:        DefaultStartupTimeout,
		ShutdownTimeout:       DefaultShutdownTimeout,
		RuntimeConfigTTL:      DefaultRuntimeConfigTTL,
		AFKCacheTTL:           DefaultAFKCacheTTL,
		UserAgent:             DefaultUserAgent,
		RTFM: &RTFMConfig{
			FetchTimeout:      DefaultRTFMFetchTimeout,
			DefaultLimit:      DefaultRTFMLimit,
			AutocompleteLimit: DefaultRTFMAutocompleteLimit,
			LogLevel:          rtfmLogLevel,
		},
		Translate: &TranslateConfig{
			Model:                DefaultTranslateModel,
			TargetLanguage:       DefaultTranslateTargetLanguage,
			MaxRequestsPerSecond: DefaultTranslateMaxRequestsPerSecond,
			LogLevel:             translateLogLevel,
		},
		Wiki: &WikiConfig{
			BaseURL: DefaultWikiBaseURL,
		},
		Discord: &DiscordConfig{
			GatewayIntents:    DefaultDiscordGatewayIntent,
			LogLevel:          discordLogLevel,
			DiscordGoLogLevel: discordgoLogLevel,
			StartupMessage:    DefaultDiscordStartupMessage,
			PingURL:           DefaultDiscordPingURL,
		},
	}
}
