package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/KachaKSK/werewolf-game/internal/room"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	redisRoomPrefix = "werewolf:room:"
	redisFeedPrefix = "werewolf:feed:"
)

// 发布到频道的变更标记，订阅方收到后自己拉取最新文档
const (
	MARKER_UPDATED = "updated"
	MARKER_REMOVED = "removed"
)

type feedMarker struct {
	Event  string `json:"event"`
	RoomID string `json:"room_id"`
}

// Redis 多实例部署时的共享后端
// 文档按键存储，变更通过 pub/sub 扩散到所有实例
// 过期不走清理协程，直接用键的 TTL，每次写入刷新
type Redis struct {
	cli *redis.Client
	ttl time.Duration
}

func NewRedis(cli *redis.Client, ttl time.Duration) *Redis {
	return &Redis{
		cli: cli,
		ttl: ttl,
	}
}

func roomKey(roomID string) string {
	return redisRoomPrefix + roomID
}

func feedKey(roomID string) string {
	return redisFeedPrefix + roomID
}

func (r *Redis) Get(ctx context.Context, roomID string) (*room.Room, error) {
	data, err := r.cli.Get(ctx, roomKey(roomID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRoomNotFound
		}

		return nil, fmt.Errorf("读取房间文档失败: %w", err)
	}

	var rm room.Room

	if err := json.Unmarshal(data, &rm); err != nil {
		return nil, fmt.Errorf("解析房间文档失败: %w", err)
	}

	return &rm, nil
}

func (r *Redis) Insert(ctx context.Context, rm *room.Room) error {
	data, err := json.Marshal(rm)
	if err != nil {
		return fmt.Errorf("序列化房间文档失败: %w", err)
	}

	ok, err := r.cli.SetNX(ctx, roomKey(rm.ID), data, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("写入房间文档失败: %w", err)
	}
	if !ok {
		return ErrRoomExists
	}

	r.publish(ctx, rm.ID, MARKER_UPDATED)

	return nil
}

func (r *Redis) Replace(ctx context.Context, roomID string, rm *room.Room) error {
	data, err := json.Marshal(rm)
	if err != nil {
		return fmt.Errorf("序列化房间文档失败: %w", err)
	}

	// XX 语义保证替换不会复活已删除的房间
	ok, err := r.cli.SetXX(ctx, roomKey(roomID), data, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("写入房间文档失败: %w", err)
	}
	if !ok {
		return ErrRoomNotFound
	}

	r.publish(ctx, roomID, MARKER_UPDATED)

	return nil
}

func (r *Redis) Delete(ctx context.Context, roomID string) error {
	deleted, err := r.cli.Del(ctx, roomKey(roomID)).Result()
	if err != nil {
		return fmt.Errorf("删除房间文档失败: %w", err)
	}

	if deleted > 0 {
		r.publish(ctx, roomID, MARKER_REMOVED)
	}

	return nil
}

func (r *Redis) publish(ctx context.Context, roomID string, event string) {
	marker, err := json.Marshal(feedMarker{
		Event:  event,
		RoomID: roomID,
	})
	if err != nil {
		zap.L().Error("序列化变更标记失败", zap.Error(err))
		return
	}

	// 写入已经成功，通知失败只记日志
	// 掉线的订阅方靠下一次拉取追平
	if err := r.cli.Publish(ctx, feedKey(roomID), marker).Err(); err != nil {
		zap.L().Warn(
			"发布变更标记失败",
			zap.String("room_id", roomID),
			zap.Error(err),
		)
	}
}

func (r *Redis) Subscribe(roomID string, onEvent func(Event)) *Subscription {
	ps := r.cli.Subscribe(context.Background(), feedKey(roomID))

	go func() {
		for msg := range ps.Channel() {
			var marker feedMarker

			if err := json.Unmarshal([]byte(msg.Payload), &marker); err != nil {
				zap.L().Warn(
					"解析变更标记失败",
					zap.String("room_id", roomID),
					zap.Error(err),
				)

				continue
			}

			switch marker.Event {
			case MARKER_REMOVED:
				onEvent(Removed{RoomID: roomID})

			case MARKER_UPDATED:
				// 标记不带文档内容，收到后拉一次最新版本
				// 密集写入时可能跳过中间版本，语义上等价于事件乱序
				rm, err := r.Get(context.Background(), roomID)
				if err != nil {
					if errors.Is(err, ErrRoomNotFound) {
						onEvent(Removed{RoomID: roomID})
						continue
					}

					zap.L().Warn(
						"拉取最新房间文档失败",
						zap.String("room_id", roomID),
						zap.Error(err),
					)

					continue
				}

				onEvent(Updated{Room: rm})
			}
		}
	}()

	return newSubscription(func() {
		if err := ps.Close(); err != nil {
			zap.L().Warn(
				"关闭订阅失败",
				zap.String("room_id", roomID),
				zap.Error(err),
			)
		}
	})
}

func (r *Redis) Close() error {
	return r.cli.Close()
}
