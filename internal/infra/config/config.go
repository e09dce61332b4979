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
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
	Auth      AuthSettings      `mapstructure:"auth"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Policy    PolicySettings    `mapstructure:"policy"`
	Providers ProviderSettings  `mapstructure:"providers"`
	Engine    EngineSettings    `mapstructure:"engine"`
}

type AppSettings struct {
	Name           string   `mapstructure:"name"`
	Env            string   `mapstructure:"env"`
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
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

// RedisSettings configures Redis connection and key prefixes.
type RedisSettings struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	DB           int    `mapstructure:"db"`
	Password     string `mapstructure:"password"`
	TLSEnabled   bool   `mapstructure:"tls_enabled"`
	IntelPrefix  string `mapstructure:"intel_prefix"`
	StepUpPrefix string `mapstructure:"step_up_prefix"`
}

// KafkaSettings configures the Kafka producer.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	Async       bool     `mapstructure:"async"`
}

type TelemetrySettings struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

// AuthSettings configures the service-token check on administrative routes.
type AuthSettings struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// RateLimitSettings throttles the scoring endpoint per client IP. A limit of
// zero disables the middleware.
type RateLimitSettings struct {
	EvaluateMaxAttempts int           `mapstructure:"evaluate_max_attempts"`
	WindowDuration      time.Duration `mapstructure:"window_duration"`
}

// PolicySettings holds the decision thresholds. They are deployment policy:
// risk appetite is tuned here, never in code.
type PolicySettings struct {
	BlockScore         int `mapstructure:"block_score"`
	BlockCriticals     int `mapstructure:"block_criticals"`
	ChallengeScore     int `mapstructure:"challenge_score"`
	ChallengeCriticals int `mapstructure:"challenge_criticals"`
}

// ProviderSettings bounds fraud-intelligence lookups. A slow intel backend
// must never stall an authentication decision; the lookup degrades to an
// unknown signal after Timeout and at most Retries retries.
type ProviderSettings struct {
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
}

// EngineSettings configures scoring behaviour outside the policy thresholds.
type EngineSettings struct {
	BotKeystrokeSpeed float64       `mapstructure:"bot_keystroke_speed"`
	BotMouseSpeed     float64       `mapstructure:"bot_mouse_speed"`
	StepUpWindow      time.Duration `mapstructure:"step_up_window"`
	// FailClosed withholds approval when the attempt record could not be
	// persisted. Default is fail-open: recording is audit, not a gate.
	FailClosed bool `mapstructure:"fail_closed"`
	// ApprovedRetention is how long approved attempts are kept before the
	// retention sweeper purges them. Blocked and challenged attempts are
	// kept for investigation.
	ApprovedRetention time.Duration `mapstructure:"approved_retention"`
	RetentionSchedule string        `mapstructure:"retention_schedule"`
	// IntelSeedPath points at a JSON intelligence seed file. Empty uses the
	// built-in demo tables.
	IntelSeedPath string `mapstructure:"intel_seed_path"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("RISK")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"app.allowed_origins",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.intel_prefix",
		"redis.step_up_prefix",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.async",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
		"auth.jwt_secret",
		"auth.issuer",
		"rate_limit.evaluate_max_attempts",
		"rate_limit.window_duration",
		"policy.block_score",
		"policy.block_criticals",
		"policy.challenge_score",
		"policy.challenge_criticals",
		"providers.timeout",
		"providers.retries",
		"engine.bot_keystroke_speed",
		"engine.bot_mouse_speed",
		"engine.step_up_window",
		"engine.fail_closed",
		"engine.approved_retention",
		"engine.retention_schedule",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "risk-engine")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.allowed_origins", []string{"*"})

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "risk")
	v.SetDefault("postgres.password", "risk_password")
	v.SetDefault("postgres.database", "risk")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.intel_prefix", "risk:intel")
	v.SetDefault("redis.step_up_prefix", "risk:step-up")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_prefix", "risk")
	v.SetDefault("kafka.async", true)

	v.SetDefault("telemetry.otlp_endpoint", "http://localhost:4318")
	v.SetDefault("telemetry.service_name", "risk-engine")
	v.SetDefault("telemetry.sampling_rate", 1.0)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "risk-engine")

	v.SetDefault("rate_limit.evaluate_max_attempts", 0)
	v.SetDefault("rate_limit.window_duration", "1m")

	v.SetDefault("policy.block_score", 80)
	v.SetDefault("policy.block_criticals", 2)
	v.SetDefault("policy.challenge_score", 50)
	v.SetDefault("policy.challenge_criticals", 1)

	v.SetDefault("providers.timeout", "200ms")
	v.SetDefault("providers.retries", 1)

	v.SetDefault("engine.bot_keystroke_speed", 100)
	v.SetDefault("engine.bot_mouse_speed", 150)
	v.SetDefault("engine.step_up_window", "10m")
	v.SetDefault("engine.fail_closed", false)
	v.SetDefault("engine.approved_retention", "24h")
	v.SetDefault("engine.retention_schedule", "@hourly")
	v.SetDefault("engine.intel_seed_path", "")
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "RISK_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
