package store

import (
	"context"
	"errors"
	"sync"

	"github.com/KachaKSK/werewolf-game/internal/room"
)

var (
	ErrRoomNotFound = errors.New("房间不存在")
	ErrRoomExists   = errors.New("房间已存在")
)

// RoomStore 房间文档的存取接口
// 不提供字段级更新，调用方必须整份读改写
type RoomStore interface {
	Get(ctx context.Context, roomID string) (*room.Room, error)
	Insert(ctx context.Context, rm *room.Room) error
	Replace(ctx context.Context, roomID string, rm *room.Room) error
	Delete(ctx context.Context, roomID string) error
	Close() error
}

// Feed 按房间订阅变更事件
// 至少送达一次，密集写入之间不保证顺序
// 每个 Updated 都带整份文档，订阅方直接整体替换本地缓存
type Feed interface {
	Subscribe(roomID string, onEvent func(Event)) *Subscription
}

type Event interface {
	isFeedEvent()
}

// Updated 房间文档有了新版本
type Updated struct {
	Room *room.Room
}

// Removed 房间文档已被删除
type Removed struct {
	RoomID string
}

func (Updated) isFeedEvent() {}
func (Removed) isFeedEvent() {}

type Subscription struct {
	once   sync.Once
	cancel func()
}

func newSubscription(cancel func()) *Subscription {
	return &Subscription{cancel: cancel}
}

// Cancel 退订，可以重复调用
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}
