package infobot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/mitchellh/mapstructure"
	"gorm.io/gorm"
)

const DefaultInfoCommandCooldown = 5 * time.Second

var ErrUnknownRuntimeConfigKey = errors.New("unknown runtime config key")

// RuntimeConfig stores settings that can be modified while the bot is
// running, and are persisted across restarts.
//
//nolint:lll // struct tags can't be split
type RuntimeConfig struct {
	ModelUintID
	ModelUnixTime

	// RecoverPanic determines whether the bot should recover from panics
	// while processing user commands
	RecoverPanic bool `json:"recover_panic" gorm:"not null;default:false"`

	// DiscordCustomStatus is the custom status message displayed for the bot on Discord.
	DiscordCustomStatus string `json:"discord_custom_status" gorm:"type:string" binding:"max=128"`

	// Error message to send to the user if an error is encountered during
	// their command execution
	DiscordErrorMessage string `json:"discord_error_message" gorm:"type:string" binding:"min=1,max=2000"`

	// Message sent to a user who's on cooldown. %s is replaced with the
	// remaining time.
	DiscordCooldownMessage string `json:"discord_cooldown_message" gorm:"type:string" binding:"min=1,max=2000"`

	// If specified, the bot will send its startup message to this channel
	DiscordNotificationChannelID string `json:"discord_notification_channel_id" gorm:"type:string"`

	// InfoCommandCooldown is the per-user cooldown for commands which make
	// extra Discord API requests (userinfo, avatar, banner)
	InfoCommandCooldown Duration `json:"info_command_cooldown" gorm:"type:string"`

	// LogLevel is the general logging level for the application.
	LogLevel DBLogLevel `gorm:"default:INFO;type:string;check:log_level in ('INFO', 'WARN', 'ERROR', 'DEBUG')" json:"log_level" binding:"oneof=INFO WARN ERROR DEBUG"`

	// DiscordLogLevel is the logging level for Discord-related operations.
	DiscordLogLevel DBLogLevel `gorm:"default:INFO;type:string;check:discord_log_level in ('INFO', 'WARN', 'ERROR', 'DEBUG')" json:"discord_log_level" binding:"oneof=INFO WARN ERROR DEBUG"`

	// DiscordGoLogLevel is the logging level for the DiscordGo library.
	DiscordGoLogLevel DBLogLevel `gorm:"default:INFO;column:discordgo_log_level;type:string;check:discordgo_log_level in ('INFO', 'WARN', 'ERROR', 'DEBUG')" json:"discordgo_log_level" binding:"oneof=INFO WARN ERROR DEBUG"`

	// DatabaseLogLevel is the logging level for database operations.
	DatabaseLogLevel DBLogLevel `gorm:"default:INFO;type:string;check:database_log_level in ('INFO', 'WARN', 'ERROR', 'DEBUG')" json:"database_log_level" binding:"oneof=INFO WARN ERROR DEBUG"`

	// RTFMLogLevel is the logging level for documentation lookups.
	RTFMLogLevel DBLogLevel `gorm:"default:INFO;column:rtfm_log_level;type:string;check:rtfm_log_level in ('INFO', 'WARN', 'ERROR', 'DEBUG')" json:"rtfm_log_level" binding:"oneof=INFO WARN ERROR DEBUG"`

	// TranslateLogLevel is the logging level for translation.
	TranslateLogLevel DBLogLevel `gorm:"default:INFO;type:string;check:translate_log_level in ('INFO', 'WARN', 'ERROR', 'DEBUG')" json:"translate_log_level" binding:"oneof=INFO WARN ERROR DEBUG"`
}

func (RuntimeConfig) TableName() string {
	return "config"
}

func (r RuntimeConfig) LogValue() slog.Value {
	return structToSlogValue(r)
}

func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		RecoverPanic:           false,
		DiscordCustomStatus:    DefaultDiscordCustomStatus,
		DiscordErrorMessage:    DefaultDiscordErrorMessage,
		DiscordCooldownMessage: DefaultDiscordCooldownMessage,
		InfoCommandCooldown:    Duration{DefaultInfoCommandCooldown},
		LogLevel:               DBLogLevelInfo,
		DiscordLogLevel:        DBLogLevelInfo,
		DiscordGoLogLevel:      DBLogLevelWarn,
		DatabaseLogLevel:       DBLogLevelInfo,
		RTFMLogLevel:           DBLogLevelInfo,
		TranslateLogLevel:      DBLogLevelInfo,
	}
}

// LoadRuntimeConfig returns the stored RuntimeConfig, creating it with
// default values if it doesn't exist
func LoadRuntimeConfig(ctx context.Context, db DBI) (*RuntimeConfig, bool, error) {
	var state RuntimeConfig
	rv := db.DB().WithContext(ctx).Limit(1).Find(&state)
	if rv.Error != nil {
		return nil, false, rv.Error
	}
	if rv.RowsAffected > 0 {
		return &state, false, nil
	}
	state = DefaultRuntimeConfig()
	if _, err := db.Create(ctx, &state); err != nil {
		return nil, false, err
	}
	return &state, true, nil
}

// RuntimeConfigUpdate is a partial update to RuntimeConfig. Nil fields
// are left unchanged.
//
//nolint:lll // can't break tags
type RuntimeConfigUpdate struct {
	RecoverPanic *bool `json:"recover_panic,omitempty" mapstructure:"recover_panic"`

	DiscordCustomStatus          *string `json:"discord_custom_status,omitempty" mapstructure:"discord_custom_status" binding:"omitnil,max=128"`
	DiscordErrorMessage          *string `json:"discord_error_message,omitempty" mapstructure:"discord_error_message" binding:"omitnil,min=1,max=2000"`
	DiscordCooldownMessage       *string `json:"discord_cooldown_message,omitempty" mapstructure:"discord_cooldown_message" binding:"omitnil,min=1,max=2000"`
	DiscordNotificationChannelID *string `json:"discord_notification_channel_id,omitempty" mapstructure:"discord_notification_channel_id"`

	InfoCommandCooldown *Duration `json:"info_command_cooldown,omitempty" mapstructure:"info_command_cooldown"`

	LogLevel          *DBLogLevel `json:"log_level,omitempty" mapstructure:"log_level" binding:"omitnil,oneof=INFO WARN ERROR DEBUG"`
	DiscordLogLevel   *DBLogLevel `json:"discord_log_level,omitempty" mapstructure:"discord_log_level" binding:"omitnil,oneof=INFO WARN ERROR DEBUG"`
	DiscordGoLogLevel *DBLogLevel `json:"discordgo_log_level,omitempty" mapstructure:"discordgo_log_level" binding:"omitnil,oneof=INFO WARN ERROR DEBUG"`
	DatabaseLogLevel  *DBLogLevel `json:"database_log_level,omitempty" mapstructure:"database_log_level" binding:"omitnil,oneof=INFO WARN ERROR DEBUG"`
	RTFMLogLevel      *DBLogLevel `json:"rtfm_log_level,omitempty" mapstructure:"rtfm_log_level" binding:"omitnil,oneof=INFO WARN ERROR DEBUG"`
	TranslateLogLevel *DBLogLevel `json:"translate_log_level,omitempty" mapstructure:"translate_log_level" binding:"omitnil,oneof=INFO WARN ERROR DEBUG"`
}

func (b RuntimeConfigUpdate) validate() error {
	if b.InfoCommandCooldown != nil && b.InfoCommandCooldown.Duration < 0 {
		return errors.New("info_command_cooldown must be >= 0")
	}
	return structValidator.Struct(b)
}

// changes returns the column/value pairs for every field that's set
func (b RuntimeConfigUpdate) changes() map[string]any {
	values := map[string]any{}
	val := reflect.ValueOf(b)
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		fv := val.Field(i)
		if fv.IsNil() {
			continue
		}
		column, _, _ := strings.Cut(typ.Field(i).Tag.Get("json"), ",")
		values[column] = fv.Elem().Interface()
	}
	return values
}

// RuntimeConfigKeys returns the keys accepted by ParseRuntimeConfigUpdate
func RuntimeConfigKeys() []string {
	typ := reflect.TypeOf(RuntimeConfigUpdate{})
	keys := make([]string, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		keys = append(keys, typ.Field(i).Tag.Get("mapstructure"))
	}
	return keys
}

// ParseRuntimeConfigUpdate builds an update setting key to value, where
// value is parsed according to the field's type (ex: "true", "5s", "debug")
func ParseRuntimeConfigUpdate(key string, value string) (RuntimeConfigUpdate, error) {
	var update RuntimeConfigUpdate

	known := false
	for _, k := range RuntimeConfigKeys() {
		if k == key {
			known = true
			break
		}
	}
	if !known {
		return update, fmt.Errorf("%w: %q", ErrUnknownRuntimeConfigKey, key)
	}

	decoder, err := mapstructure.NewDecoder(
		&mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				durationDecodeHook,
				dbLogLevelDecodeHook,
			),
			WeaklyTypedInput: true,
			ErrorUnused:      true,
			Result:           &update,
		},
	)
	if err != nil {
		return update, err
	}
	if err = decoder.Decode(map[string]any{key: value}); err != nil {
		return update, err
	}
	return update, update.validate()
}

func durationDecodeHook(f reflect.Type, t reflect.Type, data any) (any, error) {
	if f.Kind() != reflect.String || t != reflect.TypeOf(Duration{}) {
		return data, nil
	}
	var d Duration
	if err := d.parse(data.(string)); err != nil {
		return nil, err
	}
	return d, nil
}

func dbLogLevelDecodeHook(f reflect.Type, t reflect.Type, data any) (any, error) {
	if f.Kind() != reflect.String || t != reflect.TypeOf(DBLogLevel("")) {
		return data, nil
	}
	var l DBLogLevel
	if err := l.Set(data.(string)); err != nil {
		return nil, err
	}
	return l, nil
}

// UpdateRuntimeConfig validates and applies update to the stored
// RuntimeConfig, returning the updated config
func UpdateRuntimeConfig(
	ctx context.Context,
	db DBI,
	update RuntimeConfigUpdate,
) (*RuntimeConfig, error) {
	if err := update.validate(); err != nil {
		return nil, err
	}
	current, _, err := LoadRuntimeConfig(ctx, db)
	if err != nil {
		return nil, err
	}
	changes := update.changes()
	if len(changes) == 0 {
		return current, nil
	}

	err = db.Transaction(
		ctx,
		func(tx *gorm.DB) error {
			if e := tx.Model(current).Updates(changes).Error; e != nil {
				return e
			}
			return tx.Where("id = ?", current.ID).Take(current).Error
		},
	)
	if err != nil {
		return nil, err
	}
	return current, nil
}

func getDiscordPresenceStatusUpdate(config RuntimeConfig) discordgo.UpdateStatusData {
	status := discordgo.UpdateStatusData{Status: string(discordgo.StatusOnline)}
	if config.DiscordCustomStatus != "" {
		status.Activities = []*discordgo.Activity{
			{
				Name:  "Custom Status",
				Type:  discordgo.ActivityTypeCustom,
				State: config.DiscordCustomStatus,
			},
		}
	}
	return status
}
