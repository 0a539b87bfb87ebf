package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"
	"gorm.io/gorm"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

const notifyFunctionSQL = `CREATE OR REPLACE FUNCTION notify_table_change() RETURNS trigger AS $$
BEGIN
  PERFORM pg_notify(TG_ARGV[0], json_build_object('table', TG_TABLE_NAME, 'type', TG_OP)::text);
  RETURN NULL;
END;
$$ LANGUAGE plpgsql`

// InstallTriggers makes Postgres NOTIFY channel once per write statement on
// each table. Payloads decode into Change.
func InstallTriggers(db *gorm.DB, channel string, tables ...string) error {
	if db.Dialector.Name() != "postgres" {
		return fmt.Errorf("notify triggers need postgres, got %s", db.Dialector.Name())
	}
	if !identRe.MatchString(channel) {
		return fmt.Errorf("invalid channel name %q", channel)
	}
	if err := db.Exec(notifyFunctionSQL).Error; err != nil {
		return fmt.Errorf("create notify function: %w", err)
	}
	for _, t := range tables {
		if !identRe.MatchString(t) {
			return fmt.Errorf("invalid table name %q", t)
		}
		if err := db.Exec(fmt.Sprintf(`DROP TRIGGER IF EXISTS %s_notify ON %s`, t, t)).Error; err != nil {
			return fmt.Errorf("drop trigger %s: %w", t, err)
		}
		stmt := fmt.Sprintf(`CREATE TRIGGER %s_notify AFTER INSERT OR UPDATE OR DELETE ON %s
FOR EACH STATEMENT EXECUTE FUNCTION notify_table_change('%s')`, t, t, channel)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create trigger %s: %w", t, err)
		}
	}
	return nil
}

// PGListener forwards Postgres notifications into a Hub.
type PGListener struct {
	pool    *pgxpool.Pool
	channel string
	hub     *Hub
	log     *slog.Logger
	backoff time.Duration
}

func NewPGListener(pool *pgxpool.Pool, channel string, hub *Hub, log *slog.Logger) *PGListener {
	return &PGListener{pool: pool, channel: channel, hub: hub, log: log, backoff: time.Second}
}

// Run listens until ctx is done, reconnecting after connection loss.
func (l *PGListener) Run(ctx context.Context) error {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		l.log.Warn("realtime.listen.lost", "channel", l.channel, "err", err)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.backoff):
		}
	}
}

func (l *PGListener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire conn: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", l.channel, err)
	}
	l.log.Info("realtime.listen", "channel", l.channel)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		c, err := decodePayload(n.Payload)
		if err != nil {
			l.log.Warn("realtime.payload.invalid", "payload", n.Payload, "err", err)
			continue
		}
		l.hub.Publish(c)
	}
}

func decodePayload(payload string) (Change, error) {
	var c Change
	if err := json.UnmarshalFromString(payload, &c); err != nil {
		return Change{}, fmt.Errorf("decode notification: %w", err)
	}
	if c.Table == "" {
		return Change{}, fmt.Errorf("notification without table")
	}
	switch c.Type {
	case EventInsert, EventUpdate, EventDelete:
	default:
		return Change{}, fmt.Errorf("unknown event type %q", c.Type)
	}
	if c.At.IsZero() {
		c.At = time.Now()
	}
	return c, nil
}
