package bootstrap

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ServerPort    string `mapstructure:"SERVER_PORT"`
	RedisUrl      string `mapstructure:"REDIS_URL"`
	MongoUri      string `mapstructure:"MONGO_URI"`
	IsLocalCors   bool   `mapstructure:"LOCAL_CORS"`
	GameIdleHours int    `mapstructure:"GAME_IDLE_HOURS"`
	ScoreGoal     int    `mapstructure:"SCORE_GOAL"`
}

func Setup(cfgPath string) (*Config, error) {
	viper.SetConfigFile(cfgPath)

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	var cfg Config

	err = viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	if cfg.GameIdleHours <= 0 {
		cfg.GameIdleHours = 24
	}
	if cfg.ScoreGoal <= 0 {
		cfg.ScoreGoal = 150
	}

	return &cfg, nil
}

// GameIdleTTL — допустимое время простоя игры до ленивой очистки.
func (c *Config) GameIdleTTL() time.Duration {
	return time.Duration(c.GameIdleHours) * time.Hour
}
