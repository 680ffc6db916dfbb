package store

import (
	"sync"

	"go.uber.org/zap"
)

// 进程内的变更事件分发器，memory 和 sqlite 两种后端共用
type hub struct {
	mu   sync.RWMutex
	subs map[string]map[int64]*hubSub
	next int64
}

type hubSub struct {
	events chan Event
	done   chan struct{}
}

func newHub() *hub {
	return &hub{
		subs: make(map[string]map[int64]*hubSub),
	}
}

func (h *hub) subscribe(roomID string, onEvent func(Event)) *Subscription {
	sub := &hubSub{
		events: make(chan Event, 16),
		done:   make(chan struct{}),
	}

	h.mu.Lock()

	h.next++
	id := h.next

	if h.subs[roomID] == nil {
		h.subs[roomID] = make(map[int64]*hubSub)
	}
	h.subs[roomID][id] = sub

	h.mu.Unlock()

	// 每个订阅一个派发协程，回调串行执行
	// 慢回调只拖慢自己，不会阻塞写入方
	go func() {
		for {
			select {
			case <-sub.done:
				return

			case ev := <-sub.events:
				onEvent(ev)
			}
		}
	}()

	return newSubscription(func() {
		h.mu.Lock()

		if set, ok := h.subs[roomID]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(h.subs, roomID)
			}
		}

		h.mu.Unlock()

		close(sub.done)
	})
}

func (h *hub) publish(roomID string, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs[roomID] {
		select {
		case sub.events <- ev:
		default:
			// 每个事件都带整份文档，丢掉中间版本不影响收敛
			zap.L().Warn(
				"订阅通道已满，丢弃变更事件",
				zap.String("room_id", roomID),
			)
		}
	}
}
