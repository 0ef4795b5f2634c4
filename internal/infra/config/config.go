package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	JWT       JWTSettings       `mapstructure:"jwt"`
	Session   SessionSettings   `mapstructure:"session"`
	Lockout   LockoutSettings   `mapstructure:"lockout"`
	TwoFactor TwoFactorSettings `mapstructure:"two_factor"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
	Argon2    Argon2Settings    `mapstructure:"argon2"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// RedisSettings configures the Redis connection backing the lockout guard.
type RedisSettings struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	DB            int    `mapstructure:"db"`
	Password      string `mapstructure:"password"`
	TLSEnabled    bool   `mapstructure:"tls_enabled"`
	LockoutPrefix string `mapstructure:"lockout_prefix"`
}

// KafkaSettings configures the event bus producer.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	Enabled     bool     `mapstructure:"enabled"`
}

type JWTSettings struct {
	KeyDirectory    string        `mapstructure:"key_directory"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
	// GraceWindow bounds post-rotation reuse of a superseded refresh token.
	GraceWindow time.Duration `mapstructure:"grace_window"`
}

// SessionSettings controls session lifetimes.
type SessionSettings struct {
	TTL         time.Duration `mapstructure:"ttl"`
	RememberTTL time.Duration `mapstructure:"remember_ttl"`
}

// LockoutSettings controls the brute-force guard.
type LockoutSettings struct {
	Threshold int           `mapstructure:"threshold"`
	Duration  time.Duration `mapstructure:"duration"`
}

// TwoFactorSettings controls the two-factor flows.
type TwoFactorSettings struct {
	PendingTTL            time.Duration `mapstructure:"pending_ttl"`
	SudoWindow            time.Duration `mapstructure:"sudo_window"`
	RecoveryCodeCount     int           `mapstructure:"recovery_code_count"`
	RecoveryWarnThreshold int           `mapstructure:"recovery_warn_threshold"`
	// SecretKey is the hex-encoded 32-byte key protecting TOTP secrets at rest.
	SecretKey string `mapstructure:"secret_key"`
}

type TelemetrySettings struct {
	MetricsPort  int     `mapstructure:"metrics_port"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

// Argon2Settings configures Argon2id password hashing parameters.
type Argon2Settings struct {
	Memory      uint32 `mapstructure:"memory"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("AUTH")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.lockout_prefix",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.enabled",
		"jwt.key_directory",
		"jwt.access_token_ttl",
		"jwt.refresh_token_ttl",
		"jwt.grace_window",
		"session.ttl",
		"session.remember_ttl",
		"lockout.threshold",
		"lockout.duration",
		"two_factor.pending_ttl",
		"two_factor.sudo_window",
		"two_factor.recovery_code_count",
		"two_factor.recovery_warn_threshold",
		"two_factor.secret_key",
		"telemetry.metrics_port",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
		"argon2.memory",
		"argon2.iterations",
		"argon2.parallelism",
		"argon2.salt_length",
		"argon2.key_length",
	}); err != nil {
		return nil, err
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "social-platform-auth")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "auth")
	v.SetDefault("postgres.database", "auth")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", time.Hour)
	v.SetDefault("postgres.max_conn_idle_time", 30*time.Minute)
	v.SetDefault("postgres.health_check_period", time.Minute)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lockout_prefix", "auth:lockout")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_prefix", "auth")
	v.SetDefault("kafka.enabled", false)

	v.SetDefault("jwt.key_directory", "./keys")
	v.SetDefault("jwt.access_token_ttl", 15*time.Minute)
	v.SetDefault("jwt.refresh_token_ttl", 30*24*time.Hour)
	v.SetDefault("jwt.grace_window", time.Minute)

	v.SetDefault("session.ttl", 15*time.Minute)
	v.SetDefault("session.remember_ttl", 30*24*time.Hour)

	v.SetDefault("lockout.threshold", 5)
	v.SetDefault("lockout.duration", 15*time.Minute)

	v.SetDefault("two_factor.pending_ttl", 5*time.Minute)
	v.SetDefault("two_factor.sudo_window", 5*time.Minute)
	v.SetDefault("two_factor.recovery_code_count", 8)
	v.SetDefault("two_factor.recovery_warn_threshold", 2)

	v.SetDefault("telemetry.metrics_port", 9090)
	v.SetDefault("telemetry.service_name", "social-platform-auth")
	v.SetDefault("telemetry.sampling_rate", 1.0)

	v.SetDefault("argon2.memory", 64*1024)
	v.SetDefault("argon2.iterations", 3)
	v.SetDefault("argon2.parallelism", 4)
	v.SetDefault("argon2.salt_length", 16)
	v.SetDefault("argon2.key_length", 32)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}
