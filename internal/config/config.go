package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Log      LogConfig
	Order    OrderConfig
	Gateway  GatewayConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Mail     MailConfig
}

type ServerConfig struct {
	Port           int
	RequestTimeout time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// ShippingCostPolicy decides what happens to a shipping cost that does not parse.
type ShippingCostPolicy string

const (
	ShippingCostDefaultZero ShippingCostPolicy = "default_zero"
	ShippingCostReject      ShippingCostPolicy = "reject"
)

type OrderConfig struct {
	MaxRetryAttempts          int
	TxTimeout                 time.Duration
	OnUnparseableShippingCost ShippingCostPolicy
}

type GatewayConfig struct {
	BaseURL         string
	AccessToken     string
	Currency        string
	FrontendOrigin  string
	NotificationURL string
	Timeout         time.Duration
}

type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	PreferenceTTL time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout", "15s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "storefront")
	v.SetDefault("database.password", "secret")
	v.SetDefault("database.name", "storefront")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("order.max_retry_attempts", 3)
	v.SetDefault("order.tx_timeout", "5s")
	v.SetDefault("order.on_unparseable_shipping_cost", string(ShippingCostDefaultZero))

	v.SetDefault("gateway.base_url", "https://api.mercadopago.com")
	v.SetDefault("gateway.access_token", "")
	v.SetDefault("gateway.currency", "ARS")
	v.SetDefault("gateway.frontend_origin", "http://localhost:5173")
	v.SetDefault("gateway.notification_url", "")
	v.SetDefault("gateway.timeout", "10s")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.preference_ttl", "30m")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "order-events")

	v.SetDefault("mail.host", "")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "no-reply@storefront.local")
	v.SetDefault("mail.timeout", "5s")
}

// Load reads the YAML file at path (optional) and applies environment
// overrides, e.g. DATABASE_HOST overrides database.host.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	policy := ShippingCostPolicy(v.GetString("order.on_unparseable_shipping_cost"))
	if policy != ShippingCostDefaultZero && policy != ShippingCostReject {
		return nil, fmt.Errorf("invalid order.on_unparseable_shipping_cost %q", policy)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetInt("server.port"),
			RequestTimeout: v.GetDuration("server.request_timeout"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			Name:            v.GetString("database.name"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Order: OrderConfig{
			MaxRetryAttempts:          v.GetInt("order.max_retry_attempts"),
			TxTimeout:                 v.GetDuration("order.tx_timeout"),
			OnUnparseableShippingCost: policy,
		},
		Gateway: GatewayConfig{
			BaseURL:         v.GetString("gateway.base_url"),
			AccessToken:     v.GetString("gateway.access_token"),
			Currency:        v.GetString("gateway.currency"),
			FrontendOrigin:  v.GetString("gateway.frontend_origin"),
			NotificationURL: v.GetString("gateway.notification_url"),
			Timeout:         v.GetDuration("gateway.timeout"),
		},
		Redis: RedisConfig{
			Addr:          v.GetString("redis.addr"),
			Password:      v.GetString("redis.password"),
			DB:            v.GetInt("redis.db"),
			PreferenceTTL: v.GetDuration("redis.preference_ttl"),
		},
		Kafka: KafkaConfig{
			Brokers: v.GetStringSlice("kafka.brokers"),
			Topic:   v.GetString("kafka.topic"),
		},
		Mail: MailConfig{
			Host:     v.GetString("mail.host"),
			Port:     v.GetInt("mail.port"),
			Username: v.GetString("mail.username"),
			Password: v.GetString("mail.password"),
			From:     v.GetString("mail.from"),
			Timeout:  v.GetDuration("mail.timeout"),
		},
	}

	if cfg.Order.MaxRetryAttempts < 1 {
		cfg.Order.MaxRetryAttempts = 1
	}

	return cfg, nil
}
