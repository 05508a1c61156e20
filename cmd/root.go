package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"syscall"

	"github.com/arcward/infobot/infobot"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfg        = infobot.DefaultConfig()
	configFile string
)

// logLevelKeys are the config keys holding a *slog.LevelVar
var logLevelKeys = []string{
	"log_level",
	"database_log_level",
	"discord.log_level",
	"discord.discordgo_log_level",
	"rtfm.log_level",
	"translate.log_level",
}

var rootCmd = &cobra.Command{
	Use:           "infobot [flags]",
	Short:         "Discord bot for documentation lookups and informational commands",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return viper.Unmarshal(
			cfg,
			viper.DecodeHook(
				mapstructure.ComposeDecodeHookFunc(
					mapstructure.StringToTimeDurationHookFunc(),
					LevelToStringHookFunc(),
				),
			),
		)
	},
}

func getLogLevel(level string) (slog.Level, error) {
	switch strings.ToUpper(level) {
	case slog.LevelDebug.String():
		return slog.LevelDebug, nil
	case slog.LevelInfo.String():
		return slog.LevelInfo, nil
	case slog.LevelWarn.String():
		return slog.LevelWarn, nil
	case slog.LevelError.String():
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", level)
	}
}

// LevelToStringHookFunc decodes log level names into *slog.LevelVar.
// When the target field already holds a *slog.LevelVar, mapstructure
// decodes into the pointed-to struct rather than the pointer, so both
// targets are matched.
func LevelToStringHookFunc() mapstructure.DecodeHookFuncType {
	levelVarType := reflect.TypeOf(slog.LevelVar{})
	return func(
		f reflect.Type,
		t reflect.Type,
		data any,
	) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}

		typ := t
		if typ.Kind() == reflect.Ptr {
			typ = typ.Elem()
		}
		if typ != levelVarType {
			return data, nil
		}
		lvl, err := getLogLevel(reflect.ValueOf(data).String())
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %s", data)
		}
		lvlVar := &slog.LevelVar{}
		lvlVar.Set(lvl)
		return lvlVar, nil
	}
}

func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	rootCmd.SetContext(ctx)
	signals := make(chan os.Signal, 1)
	signal.Notify(
		signals,
		os.Interrupt,
		syscall.SIGHUP,
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer func() {
		signal.Stop(signals)
		cancel()
	}()
	go func() {
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
			//
		}
	}()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		cancel()
		os.Exit(1)
	}
}

func setDefaults() {
	viper.SetDefault("database", infobot.DefaultDatabase)
	viper.SetDefault("database_type", infobot.DefaultDatabaseType)
	viper.SetDefault("database_slow_threshold", infobot.DefaultDatabaseSlowThreshold)
	viper.SetDefault("database_log_level", infobot.DefaultDatabaseLogLevel.String())

	viper.SetDefault("runtime_config_ttl", infobot.DefaultRuntimeConfigTTL)
	viper.SetDefault("afk_cache_ttl", infobot.DefaultAFKCacheTTL)
	viper.SetDefault("user_agent", infobot.DefaultUserAgent)

	viper.SetDefault("log_level", infobot.DefaultLogLevel.String())
	viper.SetDefault("startup_timeout", infobot.DefaultStartupTimeout)
	viper.SetDefault("shutdown_timeout", infobot.DefaultShutdownTimeout)

	// Documentation lookups
	viper.SetDefault("rtfm.docsets_file", "")
	viper.SetDefault("rtfm.fetch_timeout", infobot.DefaultRTFMFetchTimeout)
	viper.SetDefault("rtfm.default_limit", infobot.DefaultRTFMLimit)
	viper.SetDefault("rtfm.autocomplete_limit", infobot.DefaultRTFMAutocompleteLimit)
	viper.SetDefault("rtfm.warm_on_start", false)
	viper.SetDefault("rtfm.log_level", infobot.DefaultRTFMLogLevel.String())

	// Translation
	viper.SetDefault("translate.enabled", false)
	viper.SetDefault("translate.token", "")
	viper.SetDefault("translate.model", infobot.DefaultTranslateModel)
	viper.SetDefault("translate.target_language", infobot.DefaultTranslateTargetLanguage)
	viper.SetDefault(
		"translate.max_requests_per_second",
		infobot.DefaultTranslateMaxRequestsPerSecond,
	)
	viper.SetDefault("translate.log_level", infobot.DefaultTranslateLogLevel.String())

	viper.SetDefault("wiki.base_url", infobot.DefaultWikiBaseURL)

	// Discord config
	viper.SetDefault("discord.token", "")
	viper.SetDefault("discord.application_id", "")
	viper.SetDefault("discord.guild_id", "")
	viper.SetDefault("discord.log_level", infobot.DefaultDiscordLogLevel.String())
	viper.SetDefault(
		"discord.discordgo_log_level",
		infobot.DefaultDiscordgoLogLevel.String(),
	)
	viper.SetDefault("discord.gateway_intents", infobot.DefaultDiscordGatewayIntent)
	viper.SetDefault("discord.startup_message", infobot.DefaultDiscordStartupMessage)
	viper.SetDefault("discord.ping_url", infobot.DefaultDiscordPingURL)
}

func initConfig() {
	if configFile == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found")
		}
	} else {
		log.Println("loading env from file", configFile)
		if err := godotenv.Load(configFile); err != nil {
			log.Printf("unable to load %s: %v", configFile, err)
		}
	}

	setDefaults()

	envPrefix := os.Getenv(infobot.EnvvarSetEnvPrefix)
	if envPrefix == "" {
		envPrefix = infobot.DefaultEnvPrefix
	}
	viper.SetEnvPrefix(envPrefix)

	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)
	viper.AutomaticEnv()

	// levels are decoded into *slog.LevelVar by LevelToStringHookFunc,
	// so they're only checked here
	for _, key := range logLevelKeys {
		if _, err := getLogLevel(viper.GetString(key)); err != nil {
			log.Fatalf("error parsing %s: %v", key, err)
		}
	}
}

//goland:noinspection GoLinter,GoLinter
func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(
		&configFile,
		"config",
		"",
		"Environment file to load settings from (default: .env)",
	)
}
