package service

import (
	"context"
	"errors"
	"sync"

	"github.com/KachaKSK/werewolf-game/internal/roles"
	"github.com/KachaKSK/werewolf-game/internal/room"
	"github.com/KachaKSK/werewolf-game/internal/store"

	"go.uber.org/zap"
)

// 会话状态机
// NoRoom -> Joining -> InRoom -> (Leaving | Kicked | RoomDeleted) -> NoRoom
// Kicked 和 RoomDeleted 会停留到下一次加入动作
const (
	SESSION_NO_ROOM      = "NoRoom"
	SESSION_JOINING      = "Joining"
	SESSION_IN_ROOM      = "InRoom"
	SESSION_LEAVING      = "Leaving"
	SESSION_KICKED       = "Kicked"
	SESSION_ROOM_DELETED = "RoomDeleted"
)

// Session 一条客户端连接对应一个会话
// 它是房间文档唯一的改动入口，持有订阅并维护本地缓存
// 缓存只被订阅事件整体替换，从不做字段级合并
type Session struct {
	mgr *Manager

	mu       sync.RWMutex
	state    string
	identity string
	roomID   string
	cached   *room.Room
	sub      *store.Subscription

	onChange func(*room.Room)
}

// OnRoomChanged 注册文档变化时的回调，传 nil 表示房间没了
// 必须在加入房间之前设置
func (s *Session) OnRoomChanged(fn func(*room.Room)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Session) State() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state
}

func (s *Session) Identity() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.identity
}

func (s *Session) RoomID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.roomID
}

// CachedRoom 返回本地缓存的副本，没有缓存时返回 nil
func (s *Session) CachedRoom() *room.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cached.Clone()
}

// JoinRoom 加入房间并开始监听它的变更
// 同一持久身份重复加入不会产生新玩家，只更新昵称
func (s *Session) JoinRoom(ctx context.Context, roomID, clientIdentity, displayName string) (*room.Room, error) {
	if roomID == "" {
		return nil, errors.New("房间 ID 不能为空")
	}
	if displayName == "" {
		return nil, errors.New("加入者名称不能为空")
	}

	s.mu.Lock()

	switch s.state {
	case SESSION_NO_ROOM, SESSION_KICKED, SESSION_ROOM_DELETED:
	default:
		s.mu.Unlock()
		return nil, ErrAlreadyInRoom
	}

	if clientIdentity == "" {
		clientIdentity = room.GenID()
	}

	s.state = SESSION_JOINING
	s.identity = clientIdentity
	s.roomID = roomID

	s.mu.Unlock()

	opCtx, cancel := s.mgr.opContext(ctx)
	defer cancel()

	doc, err := s.mgr.store.Get(opCtx, roomID)
	if err != nil {
		s.reset(SESSION_NO_ROOM)
		return nil, translateErr(err)
	}

	roles.NormalizeRoom(doc)

	if idx := doc.FindPlayerByIdentity(clientIdentity); idx >= 0 {
		doc.Players[idx].DisplayName = displayName
	} else {
		doc.Players = append(doc.Players, room.Player{
			DisplayID:      room.ShortID(),
			DisplayName:    displayName,
			ClientIdentity: clientIdentity,
			Status:         room.STATUS_ALIVE,
			AssignedRoles:  make([]room.RoleInstance, 0),
		})
	}

	doc.Touch()

	if err := s.mgr.store.Replace(opCtx, roomID, doc); err != nil {
		s.reset(SESSION_NO_ROOM)
		return nil, translateErr(err)
	}

	sub := s.mgr.feed.Subscribe(roomID, s.handleFeedEvent)

	s.mu.Lock()
	s.state = SESSION_IN_ROOM
	s.cached = doc.Clone()
	s.sub = sub
	s.mu.Unlock()

	zap.S().Infof("玩家 %s 加入房间 %s", displayName, roomID)

	return doc, nil
}

// LeaveRoom 主动退出
// 写入成败都把本地会话收回 NoRoom，残留交给惰性清理
func (s *Session) LeaveRoom(ctx context.Context) error {
	s.mu.Lock()

	if s.state != SESSION_IN_ROOM {
		s.mu.Unlock()
		return ErrNotInRoom
	}

	s.state = SESSION_LEAVING
	roomID := s.roomID
	identity := s.identity

	s.mu.Unlock()

	err := removePlayer(ctx, s.mgr, roomID, identity)

	s.reset(SESSION_NO_ROOM)

	if err != nil {
		return translateErr(err)
	}

	zap.S().Infof("玩家退出房间 %s", roomID)

	return nil
}

// Depart 页面关闭时的尽力而为退出，不等待结果
// 没写成也没关系，残留玩家由房主手动请出或随房间过期
func (s *Session) Depart() {
	s.mu.Lock()

	if s.state != SESSION_IN_ROOM {
		s.mu.Unlock()
		return
	}

	s.state = SESSION_LEAVING
	roomID := s.roomID
	identity := s.identity

	s.mu.Unlock()

	go func() {
		if err := removePlayer(context.Background(), s.mgr, roomID, identity); err != nil {
			zap.S().Debugf("离开房间 %s 的兜底写入失败: %v", roomID, err)
		}
	}()

	s.reset(SESSION_NO_ROOM)
}

// KickPlayer 房主把别的玩家请出房间
func (s *Session) KickPlayer(ctx context.Context, targetDisplayID string) (*room.Room, error) {
	identity := s.Identity()

	doc, err := s.mutate(ctx, func(doc *room.Room) error {
		if doc.HostID != identity {
			return ErrNotHost
		}

		idx := doc.FindPlayerByDisplayID(targetDisplayID)
		if idx < 0 {
			return ErrPlayerNotFound
		}

		if doc.Players[idx].ClientIdentity == identity {
			return ErrCannotKickSelf
		}

		doc.RemovePlayerAt(idx)

		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.S().Infof("房间 %s 的玩家 %s 被请出", doc.ID, targetDisplayID)

	return doc, nil
}

// Rename 更新自己的昵称
func (s *Session) Rename(ctx context.Context, displayName string) (*room.Room, error) {
	if displayName == "" {
		return nil, errors.New("昵称不能为空")
	}

	identity := s.Identity()

	return s.mutate(ctx, func(doc *room.Room) error {
		idx := doc.FindPlayerByIdentity(identity)
		if idx < 0 {
			return ErrPlayerNotFound
		}

		doc.Players[idx].DisplayName = displayName

		return nil
	})
}

// mutate 对当前房间做一次整份读改写
// apply 返回错误则什么都不写，本地缓存也不动
func (s *Session) mutate(ctx context.Context, apply func(doc *room.Room) error) (*room.Room, error) {
	s.mu.RLock()

	if s.state != SESSION_IN_ROOM {
		s.mu.RUnlock()
		return nil, ErrNotInRoom
	}
	roomID := s.roomID

	s.mu.RUnlock()

	opCtx, cancel := s.mgr.opContext(ctx)
	defer cancel()

	doc, err := s.mgr.store.Get(opCtx, roomID)
	if err != nil {
		return nil, translateErr(err)
	}

	roles.NormalizeRoom(doc)

	if err := apply(doc); err != nil {
		return nil, err
	}

	doc.Touch()

	if err := s.mgr.store.Replace(opCtx, roomID, doc); err != nil {
		return nil, translateErr(err)
	}

	return doc, nil
}

// removePlayer 把玩家移出房间文档
// 房主离开时在同一次写入里把列表首位立为新房主
// 走空的房间直接删除，不留空文档
func removePlayer(ctx context.Context, m *Manager, roomID, clientIdentity string) error {
	opCtx, cancel := m.opContext(ctx)
	defer cancel()

	doc, err := m.store.Get(opCtx, roomID)
	if err != nil {
		if errors.Is(err, store.ErrRoomNotFound) {
			// 房间已经没了，等价于已经离开
			return nil
		}

		return err
	}

	roles.NormalizeRoom(doc)

	idx := doc.FindPlayerByIdentity(clientIdentity)
	if idx < 0 {
		return nil
	}

	doc.RemovePlayerAt(idx)

	if len(doc.Players) == 0 {
		zap.S().Infof("房间 %s 已无玩家，删除文档", roomID)
		return m.store.Delete(opCtx, roomID)
	}

	if doc.HostID == clientIdentity {
		doc.HostID = doc.Players[0].ClientIdentity
		zap.S().Infof("房间 %s 房主离开，%s 接任", roomID, doc.Players[0].DisplayName)
	}

	doc.Touch()

	return m.store.Replace(opCtx, roomID, doc)
}

func (s *Session) handleFeedEvent(ev store.Event) {
	switch event := ev.(type) {
	case store.Updated:
		s.handleUpdated(event.Room)
	case store.Removed:
		s.handleRemoved(event.RoomID)
	}
}

func (s *Session) handleUpdated(doc *room.Room) {
	s.mu.Lock()

	if s.state != SESSION_IN_ROOM || doc.ID != s.roomID {
		s.mu.Unlock()
		return
	}

	roles.NormalizeRoom(doc)

	// 存储不会单独推送"你被移除了"
	// 唯一可靠的信号是每次更新后检查自己还在不在玩家列表里
	if doc.FindPlayerByIdentity(s.identity) < 0 {
		roomID := s.roomID

		s.state = SESSION_KICKED
		s.roomID = ""
		s.cached = nil
		sub := s.sub
		s.sub = nil
		cb := s.onChange

		s.mu.Unlock()

		if sub != nil {
			sub.Cancel()
		}

		zap.S().Infof("检测到被移出房间 %s", roomID)

		if cb != nil {
			cb(nil)
		}

		return
	}

	// 送达的文档就是权威版本，整体替换缓存
	s.cached = doc.Clone()
	cb := s.onChange

	s.mu.Unlock()

	if cb != nil {
		cb(doc)
	}
}

func (s *Session) handleRemoved(roomID string) {
	s.mu.Lock()

	if s.state != SESSION_IN_ROOM || roomID != s.roomID {
		s.mu.Unlock()
		return
	}

	// 房间被删不算错误，只是一次状态迁移，不自动重进
	s.state = SESSION_ROOM_DELETED
	s.roomID = ""
	s.cached = nil
	sub := s.sub
	s.sub = nil
	cb := s.onChange

	s.mu.Unlock()

	if sub != nil {
		sub.Cancel()
	}

	zap.S().Infof("所在房间 %s 已被删除", roomID)

	if cb != nil {
		cb(nil)
	}
}

func (s *Session) reset(state string) {
	s.mu.Lock()

	s.state = state
	s.roomID = ""
	s.cached = nil
	sub := s.sub
	s.sub = nil

	s.mu.Unlock()

	if sub != nil {
		sub.Cancel()
	}
}
