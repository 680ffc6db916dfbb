package main

import (
	"context"
	"fmt"

	"github.com/KachaKSK/werewolf-game/internal/api/http"
	"github.com/KachaKSK/werewolf-game/internal/config"
	"github.com/KachaKSK/werewolf-game/internal/logger"
	"github.com/KachaKSK/werewolf-game/internal/service"
	"github.com/KachaKSK/werewolf-game/internal/state"
	"github.com/KachaKSK/werewolf-game/internal/store"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// 加载配置
	cfg := config.InitConfig()

	// 初始化日志器
	logger.InitLogger(cfg.LogLevel, cfg.LogDev)

	// 打开房间存储
	rooms, feed, err := openStore(cfg)
	if err != nil {
		zap.S().Fatalf("初始化存储失败: %v", err)
	}
	defer rooms.Close()

	// 组装应用状态
	appState := state.NewAppState(
		cfg,
		rooms,
		service.NewManager(rooms, feed, cfg.RequestTimeout()),
	)

	// 启动服务器
	http.RunServer(appState)
}

func openStore(cfg *config.AppConfig) (store.RoomStore, store.Feed, error) {
	switch cfg.StoreBackend {
	case config.STORE_REDIS:
		cli := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		if err := cli.Ping(context.Background()).Err(); err != nil {
			return nil, nil, fmt.Errorf("连接 Redis 失败: %w", err)
		}

		st := store.NewRedis(cli, cfg.RoomTTL())

		return st, st, nil

	case config.STORE_SQLITE:
		st, err := store.NewSQLite(cfg.SQLitePath, cfg.RoomTTL())
		if err != nil {
			return nil, nil, err
		}

		return st, st, nil

	case config.STORE_MEMORY:
		st := store.NewMemory(cfg.RoomTTL())

		return st, st, nil

	default:
		return nil, nil, fmt.Errorf("未知的存储后端: %s", cfg.StoreBackend)
	}
}
