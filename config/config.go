package config

import (
	"sync"
	"time"

	"github.com/spf13/viper"
)

var once sync.Once

func InitConfig() {
	once.Do(func() {
		viper.AutomaticEnv()

		viper.BindEnv("telegram_bot_token", "TELEGRAM_BOT_TOKEN")
		viper.BindEnv("db_path", "DB_PATH")
		viper.BindEnv("http_port", "HTTP_PORT")
		viper.BindEnv("metrics_port", "METRICS_PORT")
		viper.BindEnv("webapp_url", "WEBAPP_URL")
		viper.BindEnv("static_dir", "STATIC_DIR")
		viper.BindEnv("debug", "DEBUG")
		viper.BindEnv("lang", "LANG")
		viper.BindEnv("check_interval", "CHECK_INTERVAL")
		viper.BindEnv("steam_timeout", "STEAM_TIMEOUT")
		viper.BindEnv("steam_rps", "STEAM_RPS")
		viper.BindEnv("steam_currency", "STEAM_CURRENCY")
		viper.BindEnv("page_size", "PAGE_SIZE")

		viper.SetDefault("db_path", "/app/data/tracker.db")
		viper.SetDefault("http_port", 8080)
		viper.SetDefault("metrics_port", 9090)
		viper.SetDefault("static_dir", "public_html")
		viper.SetDefault("debug", false)
		viper.SetDefault("lang", "en")
		viper.SetDefault("check_interval", time.Hour)
		viper.SetDefault("steam_timeout", 20*time.Second)
		viper.SetDefault("steam_rps", 0.2)
		viper.SetDefault("steam_currency", 5)
		viper.SetDefault("page_size", 20)
	})
}

func GetString(key string) string {
	InitConfig()
	return viper.GetString(key)
}

func GetInt(key string) int {
	InitConfig()
	return viper.GetInt(key)
}

func GetBool(key string) bool {
	InitConfig()
	return viper.GetBool(key)
}

func GetFloat64(key string) float64 {
	InitConfig()
	return viper.GetFloat64(key)
}

func GetDuration(key string) time.Duration {
	InitConfig()
	return viper.GetDuration(key)
}
