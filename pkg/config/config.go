package config

import (
	"context"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/vault-client-go"
	"github.com/spf13/viper"
	_ "github.com/spf13/viper/remote"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	config       = viper.New()
	configHolder atomic.Value
	backend      = "consul"
	backendAddr  = "127.0.0.1:8500"
	backendPath  = "endurancy/development"
	configType   = "yaml"
)

type Config struct {
	AppEnv     string `mapstructure:"APP_ENV"`
	AppName    string `mapstructure:"APP_NAME"`
	AppVersion string `mapstructure:"APP_VERSION"`
	PublicURL  string `mapstructure:"PUBLIC_URL"`
	TLS        struct {
		Enable   bool   `mapstructure:"ENABLE"`
		CertPath string `mapstructure:"CERT_PATH"`
		KeyPath  string `mapstructure:"KEY_PATH"`
	} `mapstructure:"TLS"`
	Otel struct {
		Addr     string `mapstructure:"ADDR"`
		Protocol string `mapstructure:"PROTOCOL"`
	} `mapstructure:"OTEL"`
	Pyroscope struct {
		Addr       string `mapstructure:"ADDR"`
		User       string `mapstructure:"USER"`
		Password   string `mapstructure:"PASSWORD"`
		Contention bool   `mapstructure:"CONTENTION"`
	} `mapstructure:"PYROSCOPE"`
	Log struct {
		File       string `mapstructure:"FILE"`
		MaxSizeMB  int    `mapstructure:"MAX_SIZE_MB"`
		MaxBackups int    `mapstructure:"MAX_BACKUPS"`
		MaxAgeDays int    `mapstructure:"MAX_AGE_DAYS"`
	} `mapstructure:"LOG"`
	Server struct {
		Addr         string        `mapstructure:"ADDR"`
		ReadTimeout  time.Duration `mapstructure:"READ_TIMEOUT"`
		WriteTimeout time.Duration `mapstructure:"WRITE_TIMEOUT"`
		IdleTimeout  time.Duration `mapstructure:"IDLE_TIMEOUT"`
		DrainTimeout time.Duration `mapstructure:"DRAIN_TIMEOUT"`
		CorsOrigins  []string      `mapstructure:"CORS_ORIGINS"`
	} `mapstructure:"HTTP_SERVER"`
	Grpc struct {
		Addr string `mapstructure:"ADDR"`
	} `mapstructure:"GRPC_SERVER"`
	Session struct {
		Type     string        `mapstructure:"TYPE"`
		Name     string        `mapstructure:"NAME"`
		Secret   string        `mapstructure:"SECRET"`
		TTL      time.Duration `mapstructure:"TTL"`
		Secure   bool          `mapstructure:"SECURE"`
		CSRF     bool          `mapstructure:"CSRF"`
		TestAuth bool          `mapstructure:"TEST_AUTH"`
	} `mapstructure:"SESSION"`
	Database struct {
		Type           string `mapstructure:"TYPE"`
		Host           string `mapstructure:"HOST"`
		Port           string `mapstructure:"PORT"`
		DBNAME         string `mapstructure:"DBNAME"`
		User           string `mapstructure:"USER"`
		Password       string `mapstructure:"PASSWORD"`
		SSLMode        string `mapstructure:"SSLMODE"`
		Timezone       string `mapstructure:"TIMEZONE"`
		AutoMigrate    bool   `mapstructure:"AUTO_MIGRATE"`
		ConnectionPool struct {
			MaxIdleConn     int           `mapstructure:"MAX_IDLE_CONN"`
			MaxOpenConns    int           `mapstructure:"MAX_OPEN_CONNS"`
			ConnMaxLifetime time.Duration `mapstructure:"CONN_MAX_LIFETIME"`
			ConnMaxIdleTime time.Duration `mapstructure:"CONN_MAX_IDLE_TIME"`
		} `mapstructure:"CONNECTION_POOL"`
	} `mapstructure:"DATABASE"`
	Redis struct {
		Addr        string        `mapstructure:"ADDR"`
		Password    string        `mapstructure:"PASSWORD"`
		DB          int           `mapstructure:"DB"`
		PoolSize    int           `mapstructure:"POOL_SIZE"`
		PoolTimeout time.Duration `mapstructure:"POOL_TIMEOUT"`
	} `mapstructure:"REDIS"`
	AccessControl struct {
		Model  string `mapstructure:"MODEL"`
		Policy string `mapstructure:"POLICY"`
	} `mapstructure:"ACCESS_CONTROL"`
	Mail struct {
		Provider     string `mapstructure:"PROVIDER"`
		From         string `mapstructure:"FROM"`
		ResendAPIKey string `mapstructure:"RESEND_API_KEY"`
		SMTPHost     string `mapstructure:"SMTP_HOST"`
		SMTPPort     int    `mapstructure:"SMTP_PORT"`
		SMTPUser     string `mapstructure:"SMTP_USER"`
		SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	} `mapstructure:"MAIL"`
	Flagsmith struct {
		Addr   string `mapstructure:"ADDR"`
		ApiKey string `mapstructure:"API_KEY"`
	} `mapstructure:"FLAGSMITH"`
	Minio struct {
		Endpoint   string `mapstructure:"ENDPOINT"`
		AccessKey  string `mapstructure:"ACCESS_KEY"`
		SecretKey  string `mapstructure:"SECRET_KEY"`
		Secure     bool   `mapstructure:"SECURE"`
		BucketName string `mapstructure:"BUCKET_NAME"`
	} `mapstructure:"MINIO"`
	Consul struct {
		Addr string `mapstructure:"ADDR"`
	} `mapstructure:"CONSUL"`
	Temporal struct {
		Addr      string `mapstructure:"ADDR"`
		Namespace string `mapstructure:"NAMESPACE"`
		TaskQueue string `mapstructure:"TASK_QUEUE"`
	} `mapstructure:"TEMPORAL"`
	Carteirinha struct {
		SigningKey string        `mapstructure:"SIGNING_KEY"`
		Validity   time.Duration `mapstructure:"VALIDITY"`
	} `mapstructure:"CARTEIRINHA"`
	Stripe struct {
		PublishableKey string `mapstructure:"PUBLISHABLE_KEY"`
	} `mapstructure:"STRIPE"`
	Features struct {
		VerifyLeadEmailDomain bool   `mapstructure:"VERIFY_LEAD_EMAIL_DOMAIN"`
		AffiliateCodePrefix   string `mapstructure:"AFFILIATE_CODE_PREFIX"`
	} `mapstructure:"FEATURES"`
}

var Module = fx.Module("config", fx.Provide(LoadConfig))
var RemoteModule = fx.Module("remote.config", fx.Provide(LoadRemote))

type Params struct {
	fx.In
	Vault *vault.Client `optional:"true"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "endurancy")
	v.SetDefault("HTTP_SERVER.ADDR", "8080")
	v.SetDefault("HTTP_SERVER.READ_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_SERVER.WRITE_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_SERVER.IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("HTTP_SERVER.DRAIN_TIMEOUT", 5*time.Second)
	v.SetDefault("GRPC_SERVER.ADDR", ":9090")
	v.SetDefault("SESSION.TYPE", "redis")
	v.SetDefault("SESSION.NAME", "endurancy.sid")
	v.SetDefault("SESSION.TTL", 24*time.Hour)
	v.SetDefault("DATABASE.TYPE", "postgres")
	v.SetDefault("DATABASE.SSLMODE", "disable")
	v.SetDefault("DATABASE.TIMEZONE", "America/Sao_Paulo")
	v.SetDefault("REDIS.ADDR", "127.0.0.1:6379")
	v.SetDefault("MAIL.PROVIDER", "smtp")
	v.SetDefault("MAIL.SMTP_PORT", 587)
	v.SetDefault("TEMPORAL.NAMESPACE", "default")
	v.SetDefault("TEMPORAL.TASK_QUEUE", "endurancy-onboarding")
	v.SetDefault("CARTEIRINHA.VALIDITY", 365*24*time.Hour)
	v.SetDefault("FEATURES.AFFILIATE_CODE_PREFIX", "END")
	v.SetDefault("LOG.MAX_SIZE_MB", 100)
	v.SetDefault("LOG.MAX_BACKUPS", 7)
	v.SetDefault("LOG.MAX_AGE_DAYS", 28)
}

func LoadConfig(p Params) *Config {
	setDefaults(config)

	config.SetConfigName("config")
	config.SetConfigType("yaml")
	config.AddConfigPath(".")

	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv()

	if err := config.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			zap.L().Error("failed to read config file", zap.Error(err))
			os.Exit(1)
		}
	}

	var cfg Config
	if err := config.Unmarshal(&cfg); err != nil {
		zap.L().Error("failed to unmarshal config", zap.Error(err))
		os.Exit(1)
	}

	if p.Vault != nil {
		if err := overlaySecrets(context.Background(), p.Vault, &cfg); err != nil {
			zap.L().Error("failed get secret from vault", zap.Error(err))
			os.Exit(1)
		}
	}

	return &cfg
}

// overlaySecrets replaces credentials with the values stored under
// secret/<APP_ENV> in Vault.
func overlaySecrets(ctx context.Context, client *vault.Client, cfg *Config) error {
	zap.L().Info("Starting Get Secrets", zap.String("path", cfg.AppEnv))
	secret, err := client.Secrets.KvV2Read(ctx, cfg.AppEnv, vault.WithMountPath("secret"))
	if err != nil {
		return err
	}
	zap.L().Info("Success Get Secret")

	get := func(key, fallback string) string {
		if val, ok := secret.Data.Data[key].(string); ok && val != "" {
			return val
		}
		return fallback
	}

	cfg.Database.User = get("postgres_user", cfg.Database.User)
	cfg.Database.Password = get("postgres_password", cfg.Database.Password)
	cfg.Redis.Password = get("redis_password", cfg.Redis.Password)
	cfg.Session.Secret = get("session_secret", cfg.Session.Secret)
	cfg.Mail.SMTPPassword = get("smtp_password", cfg.Mail.SMTPPassword)
	cfg.Mail.ResendAPIKey = get("resend_api_key", cfg.Mail.ResendAPIKey)
	cfg.Minio.SecretKey = get("minio_secret_key", cfg.Minio.SecretKey)
	cfg.Flagsmith.ApiKey = get("flagsmith_api_key", cfg.Flagsmith.ApiKey)
	cfg.Carteirinha.SigningKey = get("carteirinha_signing_key", cfg.Carteirinha.SigningKey)
	cfg.Pyroscope.Password = get("pyroscope_password", cfg.Pyroscope.Password)
	return nil
}

// Current returns the most recent remotely loaded config, or nil when the
// remote provider is not in use.
func Current() *Config {
	if v, ok := configHolder.Load().(*Config); ok {
		return v
	}
	return nil
}

func LoadRemote(p Params) *Config {
	if p.Vault == nil {
		zap.L().Error("vault can't provide")
		os.Exit(1)
	}

	if v, ok := os.LookupEnv("REMOTE_CONFIG_PROVIDER"); ok {
		backend = v
	}

	if v, ok := os.LookupEnv("REMOTE_CONFIG_ADDR"); ok {
		backendAddr = v
	}

	if v, ok := os.LookupEnv("REMOTE_CONFIG_PATH"); ok {
		backendPath = v
	}

	setDefaults(config)
	config.SetConfigType(configType)
	if err := config.AddRemoteProvider(backend, backendAddr, backendPath); err != nil {
		zap.L().Error("failed to add remote config provider", zap.Error(err))
		os.Exit(1)
	}

	if err := config.ReadRemoteConfig(); err != nil {
		zap.L().Error("failed to read remote config", zap.Error(err))
		os.Exit(1)
	}

	var cfg Config
	if err := config.Unmarshal(&cfg); err != nil {
		os.Exit(1)
	}

	if err := overlaySecrets(context.Background(), p.Vault, &cfg); err != nil {
		zap.L().Error("failed get secret from vault", zap.Error(err))
		os.Exit(1)
	}
	configHolder.Store(&cfg)

	go func() {
		for {
			time.Sleep(time.Second * 5)

			if err := config.WatchRemoteConfig(); err != nil {
				zap.L().Error("unable to read remote config", zap.Error(err))
				continue
			}

			var next Config
			if err := config.Unmarshal(&next); err != nil {
				continue
			}
			if err := overlaySecrets(context.Background(), p.Vault, &next); err != nil {
				zap.L().Warn("keeping previous secrets", zap.Error(err))
				next = *Current()
			}
			configHolder.Store(&next)
		}
	}()

	return &cfg
}
