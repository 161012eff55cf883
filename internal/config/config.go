package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"trivia-bot"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	LogLevel                string        `env:"LOG_LEVEL" envDefault:"info"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres Postgres
	Redis    Redis
	Telegram Telegram
	Trivia   Trivia
	Security Security
	Export   Export
	OpenTDB  OpenTDB
}

// Postgres captures connection info for the SQL database. An empty host
// selects the in-memory store, which is only meant for development.
type Postgres struct {
	Host     string `env:"PG_HOST" envDefault:""`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER" envDefault:"trivia"`
	Password string `env:"PG_PASSWORD" envDefault:""`
	Database string `env:"PG_DATABASE" envDefault:"trivia"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
	MaxConns int32  `env:"PG_MAX_CONNS" envDefault:"10"`
}

// Enabled reports whether a database is configured.
func (p Postgres) Enabled() bool { return p.Host != "" }

// DSN builds a libpq style connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// Redis backs the start lock, leaderboard pub/sub and the notify roster.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Telegram configures the bot connection.
type Telegram struct {
	Token        string  `env:"TELEGRAM_TOKEN,notEmpty"`
	PollTimeout  int     `env:"TELEGRAM_POLL_TIMEOUT" envDefault:"60"`
	StaffUserIDs []int64 `env:"TELEGRAM_STAFF_USER_IDS" envSeparator:"," envDefault:""`
	Debug        bool    `env:"TELEGRAM_DEBUG" envDefault:"false"`
}

// Trivia groups contest defaults.
type Trivia struct {
	PointsPerWin       int     `env:"TRIVIA_POINTS_PER_WIN" envDefault:"1"`
	AnswerWindow       float64 `env:"TRIVIA_ANSWER_WINDOW" envDefault:"0.75"`
	AdminRole          string  `env:"TRIVIA_ADMIN_ROLE" envDefault:"admin"`
	StaffRole          string  `env:"TRIVIA_STAFF_ROLE" envDefault:"staff"`
	NotifyRole         string  `env:"TRIVIA_NOTIFY_ROLE" envDefault:"trivia"`
	StaffChannelID     string  `env:"TRIVIA_STAFF_CHANNEL_ID" envDefault:""`
	LeaderboardLimit   int     `env:"TRIVIA_LEADERBOARD_LIMIT" envDefault:"10"`
	LeaderboardChannel string  `env:"TRIVIA_LEADERBOARD_PUBSUB" envDefault:"lb:updates"`
}

// Security stores secrets for the staff API.
type Security struct {
	JWTSecret string        `env:"JWT_SECRET,notEmpty"`
	JWTIssuer string        `env:"JWT_ISSUER" envDefault:"trivia-bot"`
	TokenTTL  time.Duration `env:"JWT_TTL" envDefault:"720h"`
}

// Export configures the periodic Google Sheets standings export.
type Export struct {
	SpreadsheetID   string        `env:"SHEETS_SPREADSHEET_ID" envDefault:""`
	CredentialsFile string        `env:"SHEETS_CREDENTIALS_FILE" envDefault:""`
	Interval        time.Duration `env:"EXPORT_INTERVAL" envDefault:"5m"`
}

// Enabled reports whether the Sheets export worker should run.
func (e Export) Enabled() bool { return e.SpreadsheetID != "" }

// OpenTDB configures the optional Open Trivia DB importer.
type OpenTDB struct {
	BaseURL     string        `env:"OPENTDB_BASE_URL" envDefault:"https://opentdb.com"`
	HTTPTimeout time.Duration `env:"OPENTDB_HTTP_TIMEOUT" envDefault:"6s"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Trivia.AnswerWindow <= 0 || cfg.Trivia.AnswerWindow > 1 {
		return nil, fmt.Errorf("parse config: TRIVIA_ANSWER_WINDOW must be in (0, 1], got %v", cfg.Trivia.AnswerWindow)
	}
	return cfg, nil
}

// LoadSection parses a single group (e.g. Postgres) for tools that do not need the full bot config.
func LoadSection(section any) error {
	if err := env.ParseWithOptions(section, env.Options{RequiredIfNoDef: true}); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
