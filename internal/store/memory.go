package store

import (
	"context"
	"sync"
	"time"

	"github.com/KachaKSK/werewolf-game/internal/room"

	"go.uber.org/zap"
)

// Memory 进程内存后端，默认配置和测试都用它
type Memory struct {
	hub *hub

	mu    sync.RWMutex
	rooms map[string]*room.Room

	closeOnce sync.Once
	done      chan struct{}
}

// NewMemory 创建内存后端
// ttl 大于 0 时启动清理协程，超时未写入的房间按删除处理
func NewMemory(ttl time.Duration) *Memory {
	m := &Memory{
		hub:   newHub(),
		rooms: make(map[string]*room.Room),
		done:  make(chan struct{}),
	}

	if ttl > 0 {
		go m.startCleanupLoop(ttl)
	}

	return m
}

func (m *Memory) startCleanupLoop(ttl time.Duration) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return

		case <-ticker.C:
			cutoff := time.Now().Add(-ttl)

			m.mu.Lock()

			expired := make([]string, 0)
			for roomID, rm := range m.rooms {
				if rm.UpdatedAt.Before(cutoff) {
					expired = append(expired, roomID)
					delete(m.rooms, roomID)
				}
			}

			m.mu.Unlock()

			for _, roomID := range expired {
				zap.S().Infof("房间 %s 长时间无写入，开始清理", roomID)
				m.hub.publish(roomID, Removed{RoomID: roomID})
			}
		}
	}
}

func (m *Memory) Get(_ context.Context, roomID string) (*room.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rm, ok := m.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}

	return rm.Clone(), nil
}

func (m *Memory) Insert(_ context.Context, rm *room.Room) error {
	m.mu.Lock()

	if _, ok := m.rooms[rm.ID]; ok {
		m.mu.Unlock()
		return ErrRoomExists
	}

	m.rooms[rm.ID] = rm.Clone()

	m.mu.Unlock()

	m.hub.publish(rm.ID, Updated{Room: rm.Clone()})

	return nil
}

func (m *Memory) Replace(_ context.Context, roomID string, rm *room.Room) error {
	m.mu.Lock()

	if _, ok := m.rooms[roomID]; !ok {
		m.mu.Unlock()
		return ErrRoomNotFound
	}

	m.rooms[roomID] = rm.Clone()

	m.mu.Unlock()

	m.hub.publish(roomID, Updated{Room: rm.Clone()})

	return nil
}

func (m *Memory) Delete(_ context.Context, roomID string) error {
	m.mu.Lock()

	_, ok := m.rooms[roomID]
	delete(m.rooms, roomID)

	m.mu.Unlock()

	// 删除幂等，但不存在时也没有可通知的订阅方
	if ok {
		m.hub.publish(roomID, Removed{RoomID: roomID})
	}

	return nil
}

func (m *Memory) Subscribe(roomID string, onEvent func(Event)) *Subscription {
	return m.hub.subscribe(roomID, onEvent)
}

func (m *Memory) Close() error {
	m.closeOnce.Do(func() {
		close(m.done)
	})

	return nil
}
