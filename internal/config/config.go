package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Варианты хранилища
const (
	StorageBackendPostgres = "postgres"
	StorageBackendMemory   = "memory"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server     ServerConfig     // Настройки HTTP сервера
	Storage    StorageConfig    // Выбор хранилища
	Database   DatabaseConfig   // Настройки подключения к БД
	JWT        JWTConfig        // Настройки JWT авторизации
	Invitation InvitationConfig // Правила команд и приглашений
	Sweep      SweepConfig      // Фоновая очистка просроченных приглашений
	Directory  DirectoryConfig  // Синхронизация справочника пользователей
	SMTP       SMTPConfig       // Отправка писем с приглашениями
	Redis      RedisConfig      // Распределенная блокировка очистки
	Log        LogConfig        // Настройки логирования
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port string `envconfig:"SERVER_PORT" default:"8080"`
	Host string `envconfig:"SERVER_HOST" default:"0.0.0.0"`
}

// StorageConfig определяет, где хранятся команды и приглашения
type StorageConfig struct {
	Backend string `envconfig:"STORAGE_BACKEND" default:"postgres"` // postgres | memory
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host        string `envconfig:"DB_HOST" default:"localhost"`
	Port        string `envconfig:"DB_PORT" default:"5432"`
	User        string `envconfig:"DB_USER" default:"teamhub"`
	Password    string `envconfig:"DB_PASSWORD" default:"teamhub_pass"`
	Name        string `envconfig:"DB_NAME" default:"teamhub"`
	SSLMode     string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns    int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns    int32  `envconfig:"DB_MIN_CONNS" default:"5"`
	AutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"true"`
}

// JWTConfig содержит настройки JWT авторизации
type JWTConfig struct {
	Secret          string   `envconfig:"JWT_SECRET" required:"true"`
	ExpirationHours int      `envconfig:"JWT_EXPIRATION_HOURS" default:"24"`
	AdminUserIDs    []string `envconfig:"ADMIN_USER_IDS"`
}

// DirectoryConfig содержит общий секрет провайдера идентичности для POST /users/upsert
type DirectoryConfig struct {
	SyncToken string `envconfig:"DIRECTORY_SYNC_TOKEN" required:"true"`
}

// InvitationConfig содержит правила команд и приглашений
type InvitationConfig struct {
	TTL            time.Duration `envconfig:"INVITATION_TTL" default:"168h"`
	MaxTeamSize    int           `envconfig:"TEAM_MAX_SIZE" default:"4"` // 0 - без ограничения
	InviteLinkBase string        `envconfig:"INVITE_LINK_BASE" default:"http://localhost:4200/teams/invitations"`
}

// SweepConfig содержит настройки фоновой очистки
type SweepConfig struct {
	Enabled  bool          `envconfig:"SWEEP_ENABLED" default:"true"`
	Interval time.Duration `envconfig:"SWEEP_INTERVAL" default:"1m"`
}

// SMTPConfig содержит настройки почтового сервера. Пустой Host отключает отправку
type SMTPConfig struct {
	Host      string        `envconfig:"SMTP_HOST"`
	Port      int           `envconfig:"SMTP_PORT" default:"587"`
	Username  string        `envconfig:"SMTP_USERNAME"`
	Password  string        `envconfig:"SMTP_PASSWORD"`
	FromEmail string        `envconfig:"SMTP_FROM_EMAIL" default:"noreply@teamhub.local"`
	FromName  string        `envconfig:"SMTP_FROM_NAME" default:"TeamHub"`
	Timeout   time.Duration `envconfig:"SMTP_TIMEOUT" default:"15s"`
}

// RedisConfig содержит настройки Redis. Пустой Addr отключает распределенную блокировку
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// LogConfig содержит настройки логирования
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"` // json | console
}

// GetExpiration возвращает срок действия токена как time.Duration
func (j JWTConfig) GetExpiration() time.Duration {
	return time.Duration(j.ExpirationHours) * time.Hour
}

// DSN возвращает строку подключения к PostgreSQL
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	// required:"true" пропускает заданную, но пустую переменную
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt secret must not be empty")
	}
	if c.Directory.SyncToken == "" {
		return fmt.Errorf("directory sync token must not be empty")
	}
	switch c.Storage.Backend {
	case StorageBackendPostgres, StorageBackendMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Invitation.TTL <= 0 {
		return fmt.Errorf("invitation ttl must be positive")
	}
	if c.Invitation.MaxTeamSize < 0 {
		return fmt.Errorf("team max size must not be negative")
	}
	if c.Sweep.Enabled && c.Sweep.Interval <= 0 {
		return fmt.Errorf("sweep interval must be positive")
	}
	return nil
}

// Load читает конфигурацию из переменных окружения
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
