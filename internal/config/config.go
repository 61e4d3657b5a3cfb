package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Binance Binance `mapstructure:"binance"`
	Trading Trading `mapstructure:"trading"`
	Logger  Logger  `mapstructure:"logger"`
	Server  Server  `mapstructure:"server"`
}

// Binance holds the configuration for the Binance API.
type Binance struct {
	ApiKey         string  `mapstructure:"apiKey"`
	SecretKey      string  `mapstructure:"secretKey"`
	Testnet        bool    `mapstructure:"testnet"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Server holds the configuration for the log viewer web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Trading holds the configuration for the trading logic.
type Trading struct {
	Symbol            string  `mapstructure:"symbol"`
	QuoteAsset        string  `mapstructure:"quote_asset"`
	Interval          string  `mapstructure:"interval"`
	KlineLimit        int     `mapstructure:"kline_limit"`
	ShortWindow       int     `mapstructure:"short_window"`
	LongWindow        int     `mapstructure:"long_window"`
	PollInterval      int     `mapstructure:"poll_interval"`
	BackoffInterval   int     `mapstructure:"backoff_interval"`
	RiskPercentage    float64 `mapstructure:"risk_percentage"`
	StopLossPct       float64 `mapstructure:"stop_loss_percentage"`
	TakeProfitPct     float64 `mapstructure:"take_profit_percentage"`
	SafetyMargin      string  `mapstructure:"safety_margin"`
	QuoteBalanceFloor string  `mapstructure:"quote_balance_floor"`
	DryRun            bool    `mapstructure:"dry_run"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("binance.rate_limit", 20)      // requests per second
	viper.SetDefault("binance.rate_limit_burst", 5) // burst size
	viper.SetDefault("trading.quote_asset", "USDT")
	viper.SetDefault("trading.interval", "15m")
	viper.SetDefault("trading.kline_limit", 500)
	viper.SetDefault("trading.short_window", 8)
	viper.SetDefault("trading.long_window", 20)
	viper.SetDefault("trading.poll_interval", 60)     // seconds between cycles
	viper.SetDefault("trading.backoff_interval", 600) // long wait after cooldown/low balance
	viper.SetDefault("trading.risk_percentage", 2)
	viper.SetDefault("trading.stop_loss_percentage", 2)
	viper.SetDefault("trading.take_profit_percentage", 3)
	viper.SetDefault("trading.safety_margin", "0.01")
	viper.SetDefault("trading.quote_balance_floor", "0.01")
	viper.SetDefault("logger.file", "trading_log.txt")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
