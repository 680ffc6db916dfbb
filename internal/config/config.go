package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

// 存储后端
const (
	STORE_MEMORY = "memory"
	STORE_SQLITE = "sqlite"
	STORE_REDIS  = "redis"
)

type AppConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
	LogDev   bool   `mapstructure:"log_dev"`

	// memory 单进程跑，sqlite 落盘，redis 支持多实例
	StoreBackend  string `mapstructure:"store_backend"`
	SQLitePath    string `mapstructure:"sqlite_path"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	RequestTimeoutSec int `mapstructure:"request_timeout_sec"`
	RoomTTLMinutes    int `mapstructure:"room_ttl_minutes"`
}

// RequestTimeout 单次存储操作的超时，0 表示不限
func (c *AppConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// RoomTTL 房间多久没有写入就算过期，0 表示永不过期
func (c *AppConfig) RoomTTL() time.Duration {
	return time.Duration(c.RoomTTLMinutes) * time.Minute
}

var cfg *AppConfig

func GetConfig() *AppConfig {
	if cfg == nil {
		cfg = InitConfig()
	}

	return cfg
}

func InitConfig() *AppConfig {
	v := viper.New()

	v.SetConfigFile("app_config")
	v.SetConfigType("json")
	v.AddConfigPath(".")

	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_dev", true)
	v.SetDefault("store_backend", STORE_MEMORY)
	v.SetDefault("sqlite_path", "werewolf.db")
	v.SetDefault("redis_addr", "127.0.0.1:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("request_timeout_sec", 5)
	v.SetDefault("room_ttl_minutes", 720)

	// 配置文件可以不存在，全默认值也能把服务跑起来
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(fmt.Errorf("加载配置失败: %w", err))
	}

	var config AppConfig

	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("解析配置失败: %w", err))
	}

	return &config
}
