package infobot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lmittmann/tint"
)

const (
	postgresNotifyChannelRuntimeConfigUpdated = "infobot_reload_runtime_config"
	postgresNotifyChannelAFKUpdated           = "infobot_afk_updated"
	postgresNotifyChannelStop                 = "infobot_stop"
	recordSeparator                           = string(rune(30))
)

var (
	dbNotifierSendTimeout = 15 * time.Second
	dbNotifierRetryDelay  = 5 * time.Second
)

// notifySignals are the channels a running bot reads notifications from
type notifySignals struct {
	runtimeConfig chan bool
	afkUpdated    chan string
	stop          chan struct{}
}

func newNotifySignals() *notifySignals {
	return &notifySignals{
		runtimeConfig: make(chan bool, 1),
		afkUpdated:    make(chan string, 16),
		stop:          make(chan struct{}, 1),
	}
}

// DBNotifier notifies bot instances of database changes and other
// events. With SQLite, notifications are delivered in-process. With
// PostgreSQL, they're sent with NOTIFY, so other instances sharing
// the database receive them as well.
type DBNotifier interface {
	RuntimeConfigChannelName() string

	// ReloadRuntimeConfig sends a notification to bot instances to
	// reload their runtime configuration from the DB
	ReloadRuntimeConfig(context.Context) bool

	AFKChannelName() string

	// AFKUpdated notifies bot instances that a user's AFK status
	// changed, and should be reloaded
	AFKUpdated(ctx context.Context, userID string) bool

	StopChannelName() string

	// Stop sends a shutdown signal to all bots
	Stop(context.Context) bool

	// ID returns the identifier for this notifier, used to filter
	// out its own notifications
	ID() string

	// Listen blocks, forwarding notifications received on the given
	// channel until ctx is done
	Listen(ctx context.Context, channel string) error
}

// NewDBNotifier returns a DBNotifier which only sends notifications,
// for use outside a running bot (ex: from the CLI). With SQLite, which
// only delivers notifications in-process, sends report false.
func NewDBNotifier(
	databaseType string,
	dsn string,
	db DBI,
	logger *slog.Logger,
) (DBNotifier, error) {
	return newDBNotifier(databaseType, dsn, db, nil, logger)
}

func newDBNotifier(
	databaseType string,
	dsn string,
	db DBI,
	signals *notifySignals,
	logger *slog.Logger,
) (DBNotifier, error) {
	notifyID, err := generateRandomHexString(16)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With(loggerNameKey, "db_notifier")
	switch databaseType {
	case dbTypeSQLite:
		return &sqliteNotifier{
			logger:   log,
			signals:  signals,
			notifyID: notifyID,
		}, nil
	case dbTypePostgres:
		return &postgresNotifier{
			db:       db,
			dsn:      dsn,
			signals:  signals,
			logger:   log,
			notifyID: notifyID,
		}, nil
	default:
		return nil, errors.New("invalid database type")
	}
}

type sqliteNotifier struct {
	logger   *slog.Logger
	signals  *notifySignals
	notifyID string
}

func (s *sqliteNotifier) Listen(_ context.Context, channel string) error {
	s.logger.Debug("listener called", "channel", channel)
	return nil
}

func (sqliteNotifier) RuntimeConfigChannelName() string {
	return ""
}

func (sqliteNotifier) AFKChannelName() string {
	return ""
}

func (sqliteNotifier) StopChannelName() string {
	return ""
}

func (s *sqliteNotifier) ID() string {
	return s.notifyID
}

func (s *sqliteNotifier) Stop(ctx context.Context) bool {
	s.logger.Info("notifying stop signal")
	if s.signals == nil {
		return false
	}
	return sendSignal(ctx, s.logger, s.signals.stop, struct{}{})
}

func (s *sqliteNotifier) AFKUpdated(ctx context.Context, userID string) bool {
	s.logger.Debug("got afk update notification", "user_id", userID)
	if s.signals == nil {
		return false
	}
	return sendSignal(ctx, s.logger, s.signals.afkUpdated, userID)
}

func (s *sqliteNotifier) ReloadRuntimeConfig(ctx context.Context) bool {
	s.logger.Info("got runtime config reload notification")
	if s.signals == nil {
		return false
	}
	return sendSignal(ctx, s.logger, s.signals.runtimeConfig, true)
}

func sendSignal[T any](ctx context.Context, logger *slog.Logger, ch chan<- T, v T) bool {
	select {
	case ch <- v:
		return true
	case <-ctx.Done():
		logger.Warn("timeout sending signal", tint.Err(ctx.Err()))
		return false
	}
}

type postgresNotifier struct {
	db       DBI
	dsn      string
	signals  *notifySignals
	logger   *slog.Logger
	notifyID string
}

func (postgresNotifier) RuntimeConfigChannelName() string {
	return postgresNotifyChannelRuntimeConfigUpdated
}

func (postgresNotifier) AFKChannelName() string {
	return postgresNotifyChannelAFKUpdated
}

func (postgresNotifier) StopChannelName() string {
	return postgresNotifyChannelStop
}

func (p *postgresNotifier) ID() string {
	return p.notifyID
}

func (p *postgresNotifier) notify(ctx context.Context, channel string, payload string) bool {
	err := p.db.DB().WithContext(ctx).Exec(
		"SELECT pg_notify(?, ?)",
		channel,
		payload,
	).Error
	if err != nil {
		p.logger.ErrorContext(
			ctx,
			"Error sending NOTIFY",
			"channel", channel,
			tint.Err(err),
		)
		return false
	}
	p.logger.InfoContext(
		ctx,
		"sent notification",
		"channel", channel,
		"pg_notify_id", p.ID(),
	)
	return true
}

func (p *postgresNotifier) Stop(ctx context.Context) bool {
	return p.notify(ctx, p.StopChannelName(), p.ID())
}

func (p *postgresNotifier) ReloadRuntimeConfig(ctx context.Context) bool {
	return p.notify(ctx, p.RuntimeConfigChannelName(), p.ID())
}

func (p *postgresNotifier) AFKUpdated(ctx context.Context, userID string) bool {
	return p.notify(ctx, p.AFKChannelName(), newAFKUpdatedNotificationMessage(p.ID(), userID))
}

func (p *postgresNotifier) Listen(ctx context.Context, channel string) error {
	if p.signals == nil {
		return errors.New("notifier has no listener signals")
	}
	p.logger.Info("starting db listener", "channel", channel)

	config, err := pgxpool.ParseConfig(p.dsn)
	if err != nil {
		p.logger.ErrorContext(ctx, "Error parsing database config", tint.Err(err))
		return err
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		p.logger.ErrorContext(ctx, "Error creating connection pool", tint.Err(err))
		return err
	}
	defer pool.Close()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		p.logger.ErrorContext(ctx, "Error acquiring connection", tint.Err(err))
		return err
	}
	defer conn.Release()

	if _, err = conn.Exec(ctx, fmt.Sprintf("LISTEN %s", channel)); err != nil {
		p.logger.ErrorContext(ctx, "Error setting up listener", tint.Err(err))
		return err
	}
	logger := p.logger.With("channel", channel)
	logger.InfoContext(ctx, "Started listening on channel")

	for ctx.Err() == nil {
		notification, e := conn.Conn().WaitForNotification(ctx)
		if e != nil {
			if ctx.Err() != nil {
				break
			}
			logger.ErrorContext(ctx, "Error waiting for notification", tint.Err(e))
			time.Sleep(dbNotifierRetryDelay)
			continue
		}

		switch channel {
		case p.RuntimeConfigChannelName():
			if notification.Payload == p.ID() {
				continue
			}
			logger.InfoContext(ctx, "Received notification for runtime config update")
			p.forward(ctx, logger, func() bool {
				return trySend(p.signals.runtimeConfig, true)
			})
		case p.AFKChannelName():
			notifierID, userID := parseAFKUpdatedNotification(notification.Payload)
			if notifierID == p.ID() {
				continue
			}
			logger.DebugContext(ctx, "Received afk update", "user_id", userID)
			p.forward(ctx, logger, func() bool {
				return trySend(p.signals.afkUpdated, userID)
			})
		case p.StopChannelName():
			logger.InfoContext(ctx, "received stop signal via NOTIFY")
			p.forward(ctx, logger, func() bool {
				return trySend(p.signals.stop, struct{}{})
			})
		default:
			logger.Warn("Received unknown notification", "notification_channel", notification.Channel)
		}
	}

	return nil
}

// forward retries send until it succeeds or dbNotifierSendTimeout passes
func (p *postgresNotifier) forward(ctx context.Context, logger *slog.Logger, send func() bool) {
	timeout := time.NewTimer(dbNotifierSendTimeout)
	defer timeout.Stop()
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for !send() {
		select {
		case <-ctx.Done():
			return
		case <-timeout.C:
			logger.Warn("timed out forwarding notification")
			return
		case <-tick.C:
		}
	}
}

func trySend[T any](ch chan<- T, v T) bool {
	select {
	case ch <- v:
		return true
	default:
		return false
	}
}

func parseAFKUpdatedNotification(s string) (notifierID, userID string) {
	before, after, _ := strings.Cut(s, recordSeparator)
	return before, after
}

func newAFKUpdatedNotificationMessage(notifierID string, userID string) string {
	return strings.Join([]string{notifierID, userID}, recordSeparator)
}
