package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type AppConf struct {
	Env                 string `mapstructure:"env"`
	Port                int    `mapstructure:"port"`
	ReadTimeoutSeconds  int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds"`
	ShutdownSeconds     int    `mapstructure:"shutdown_seconds"`
	CORSOrigins         string `mapstructure:"cors_origins"`
}

type MongoConf struct {
	URI                    string `mapstructure:"uri"`
	Database               string `mapstructure:"database"`
	EnrolleeCollection     string `mapstructure:"enrollee_collection"`
	ReferralCollection     string `mapstructure:"referral_collection"`
	NotificationCollection string `mapstructure:"notification_collection"`
	AccountCollection      string `mapstructure:"account_collection"`
	CounterCollection      string `mapstructure:"counter_collection"`
	ConnectRetrySeconds    int    `mapstructure:"connect_retry_seconds"`
}

type RedisConf struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConf struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
	// circuit breaker around the producer
	MaxFailures uint32 `mapstructure:"max_failures"`
	OpenSeconds int    `mapstructure:"open_seconds"`
}

type JWTConf struct {
	Secret     string `mapstructure:"secret"`
	TTLMinutes int    `mapstructure:"ttl_minutes"`
	Issuer     string `mapstructure:"issuer"`
}

type AdminConf struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

type RateLimitConf struct {
	EnrollPerMinute int `mapstructure:"enroll_per_minute"`
}

type ReportConf struct {
	OutputDir string `mapstructure:"output_dir"`
	URLPrefix string `mapstructure:"url_prefix"`
	LogoPath  string `mapstructure:"logo_path"`
}

type S3Conf struct {
	Enabled    bool   `mapstructure:"enabled"`
	Region     string `mapstructure:"region"`
	Bucket     string `mapstructure:"bucket"`
	Endpoint   string `mapstructure:"endpoint"`
	PresignTTL int    `mapstructure:"presign_ttl_seconds"`
}

type Config struct {
	App       AppConf       `mapstructure:"app"`
	Mongo     MongoConf     `mapstructure:"mongodb"`
	Redis     RedisConf     `mapstructure:"redis"`
	Kafka     KafkaConf     `mapstructure:"kafka"`
	JWT       JWTConf       `mapstructure:"jwt"`
	Admin     AdminConf     `mapstructure:"admin"`
	RateLimit RateLimitConf `mapstructure:"ratelimit"`
	Report    ReportConf    `mapstructure:"report"`
	S3        S3Conf        `mapstructure:"s3"`
	Log       struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`

	// derived
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	TokenTTL        time.Duration
	PresignTTL      time.Duration
	ConnectRetry    time.Duration
}

// Load reads the YAML file at path, then lets environment variables override
// any key (mongodb.uri -> MONGODB_URI).
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	derive(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", 5000)
	v.SetDefault("app.cors_origins", "*")
	v.SetDefault("mongodb.database", "konga")
	v.SetDefault("mongodb.enrollee_collection", "enrollees")
	v.SetDefault("mongodb.referral_collection", "referrals")
	v.SetDefault("mongodb.notification_collection", "notifications")
	v.SetDefault("mongodb.account_collection", "users")
	v.SetDefault("mongodb.counter_collection", "counters")
	v.SetDefault("kafka.topic", "enrollment-events")
	v.SetDefault("kafka.group_id", "notification-writer")
	v.SetDefault("jwt.issuer", "konga-enrollment")
	v.SetDefault("ratelimit.enroll_per_minute", 10)
	v.SetDefault("report.output_dir", "public/pdfs")
	v.SetDefault("report.url_prefix", "/pdfs")
}

func derive(cfg *Config) {
	if cfg.App.ReadTimeoutSeconds == 0 {
		cfg.App.ReadTimeoutSeconds = 15
	}
	if cfg.App.WriteTimeoutSeconds == 0 {
		cfg.App.WriteTimeoutSeconds = 30
	}
	if cfg.App.ShutdownSeconds == 0 {
		cfg.App.ShutdownSeconds = 15
	}
	if cfg.JWT.TTLMinutes == 0 {
		cfg.JWT.TTLMinutes = 60 * 24
	}
	if cfg.S3.PresignTTL == 0 {
		cfg.S3.PresignTTL = 600
	}
	if cfg.Mongo.ConnectRetrySeconds == 0 {
		cfg.Mongo.ConnectRetrySeconds = 60
	}
	if cfg.Kafka.MaxFailures == 0 {
		cfg.Kafka.MaxFailures = 5
	}
	if cfg.Kafka.OpenSeconds == 0 {
		cfg.Kafka.OpenSeconds = 30
	}
	cfg.ReadTimeout = time.Duration(cfg.App.ReadTimeoutSeconds) * time.Second
	cfg.WriteTimeout = time.Duration(cfg.App.WriteTimeoutSeconds) * time.Second
	cfg.ShutdownTimeout = time.Duration(cfg.App.ShutdownSeconds) * time.Second
	cfg.TokenTTL = time.Duration(cfg.JWT.TTLMinutes) * time.Minute
	cfg.PresignTTL = time.Duration(cfg.S3.PresignTTL) * time.Second
	cfg.ConnectRetry = time.Duration(cfg.Mongo.ConnectRetrySeconds) * time.Second
}

func validate(cfg *Config) error {
	if cfg.App.Port <= 0 {
		return errors.New("app.port is missing or invalid")
	}
	if cfg.Mongo.URI == "" {
		return errors.New("mongodb.uri is empty (set MONGODB_URI)")
	}
	if cfg.JWT.Secret == "" {
		return errors.New("jwt.secret is empty (set JWT_SECRET)")
	}
	if cfg.Report.OutputDir == "" {
		return errors.New("report.output_dir is missing")
	}
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) == 0 {
		return errors.New("kafka enabled but kafka.brokers is empty")
	}
	if cfg.S3.Enabled && (cfg.S3.Bucket == "" || cfg.S3.Region == "") {
		return errors.New("s3 enabled but s3.bucket or s3.region is missing")
	}
	if (cfg.Admin.Email == "") != (cfg.Admin.Password == "") {
		return errors.New("admin.email and admin.password must be set together")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}
