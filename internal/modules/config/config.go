package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const configFilePathENV = "CONFIG_FILE"

// Config is the process-level configuration: endpoints, credentials
// and loop timings. The trading settings themselves live in Postgres
// and are edited through the admin surface, not here.
type Config struct {
	DB string `mapstructure:"db_dsn"`

	Binance struct {
		APIKey    string `mapstructure:"api_key"`
		APISecret string `mapstructure:"api_secret"`
		BaseURL   string `mapstructure:"base_url"`
		WSURL     string `mapstructure:"ws_url"`
	} `mapstructure:"binance"`

	Telegram struct {
		Token  string `mapstructure:"token"`
		ChatID int64  `mapstructure:"chat_id"`
	} `mapstructure:"telegram"`

	Jaeger struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"jaeger"`

	Admin struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"admin"`

	Health struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"health"`

	Loop struct {
		Cadence     time.Duration `mapstructure:"cadence"`
		IdleWait    time.Duration `mapstructure:"idle_wait"`
		Backoff     time.Duration `mapstructure:"backoff"`
		CandleLimit int           `mapstructure:"candle_limit"`
	} `mapstructure:"loop"`
}

func NewConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("binance.base_url", "https://fapi.binance.com")
	v.SetDefault("binance.ws_url", "wss://fstream.binance.com/ws")
	v.SetDefault("admin.addr", ":8081")
	v.SetDefault("health.addr", ":8080")
	v.SetDefault("loop.cadence", time.Second)
	v.SetDefault("loop.idle_wait", 5*time.Second)
	v.SetDefault("loop.backoff", 5*time.Second)
	v.SetDefault("loop.candle_limit", 100)
	v.SetDefault("jaeger.port", 6831)

	configFileName := "values_local"
	if name := os.Getenv(configFilePathENV); name != "" {
		configFileName = name
	}
	v.SetConfigName(configFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath("configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		// a missing file is fine, env + defaults carry the rest
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config file")
		}
	}

	// secrets come from the environment in deployment
	for key, env := range map[string]string{
		"db_dsn":             "DATABASE_DSN",
		"binance.api_key":    "BINANCE_API_KEY",
		"binance.api_secret": "BINANCE_API_SECRET",
		"telegram.token":     "TELEGRAM_TOKEN",
		"telegram.chat_id":   "TELEGRAM_CHAT_ID",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, errors.Wrap(err, "bind env")
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	return &config, nil
}
