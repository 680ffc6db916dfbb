package service

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/KachaKSK/werewolf-game/internal/roles"
	"github.com/KachaKSK/werewolf-game/internal/room"
	"github.com/KachaKSK/werewolf-game/internal/store"

	"go.uber.org/zap"
)

// 房间码撞车时的最大重试次数
const MAX_CODE_RETRIES = 5

type CreateRoomRequest struct {
	RoomName    string `json:"room_name"`
	CreatorName string `json:"creator_name"`
	// 浏览器本地持有的持久身份，可空，空则由服务端生成
	ClientIdentity string `json:"client_identity,omitempty"`
}

type CreateRoomResponse struct {
	RoomID  string      `json:"room_id"`
	Creator room.Player `json:"creator"`
}

// Manager 持有存储和变更订阅的入口
// 建房走它，之后每条连接再从它派生各自的 Session
type Manager struct {
	store   store.RoomStore
	feed    store.Feed
	timeout time.Duration

	// 发牌用的随机源工厂，测试替换成固定种子
	// 返回 nil 表示使用全局随机源
	newRand func() *rand.Rand
}

func NewManager(st store.RoomStore, feed store.Feed, timeout time.Duration) *Manager {
	return &Manager{
		store:   st,
		feed:    feed,
		timeout: timeout,
		newRand: func() *rand.Rand { return nil },
	}
}

// NewSession 为一条客户端连接派生会话
func (m *Manager) NewSession() *Session {
	return &Session{
		mgr:   m,
		state: SESSION_NO_ROOM,
	}
}

func (m *Manager) CreateRoom(ctx context.Context, req CreateRoomRequest) (CreateRoomResponse, error) {
	if req.RoomName == "" {
		return CreateRoomResponse{}, errors.New("房间名称不能为空")
	}
	if req.CreatorName == "" {
		return CreateRoomResponse{}, errors.New("创建者名称不能为空")
	}

	identity := req.ClientIdentity
	if identity == "" {
		identity = room.GenID()
	}

	host := room.Player{
		DisplayID:      room.ShortID(),
		DisplayName:    req.CreatorName,
		ClientIdentity: identity,
		Status:         room.STATUS_ALIVE,
		AssignedRoles:  make([]room.RoleInstance, 0),
	}

	rm := &room.Room{
		Name:    req.RoomName,
		HostID:  identity,
		Players: []room.Player{host},
		Config: room.Config{
			RoleSettings:  roles.DefaultSettings(),
			GemCategories: make([]room.GemCategorySetting, 0),
			RoleImageMap:  roles.NewImageMap(m.newRand()),
			CenterPool:    make([]room.RoleInstance, 0),
			GameState:     room.STATE_LOBBY,
		},
	}

	opCtx, cancel := m.opContext(ctx)
	defer cancel()

	// 短码可能撞车，换一个接着试，有限次数内不成就放弃
	for attempt := 0; attempt < MAX_CODE_RETRIES; attempt++ {
		rm.ID = room.GenerateCode()
		rm.Touch()

		err := m.store.Insert(opCtx, rm)
		if err == nil {
			zap.S().Infof("房间 %s 由 %s 创建", rm.ID, req.CreatorName)

			return CreateRoomResponse{
				RoomID:  rm.ID,
				Creator: host,
			}, nil
		}

		if errors.Is(err, store.ErrRoomExists) {
			zap.S().Debugf("房间码 %s 撞车，重新生成", rm.ID)
			continue
		}

		return CreateRoomResponse{}, translateErr(err)
	}

	return CreateRoomResponse{}, errors.New("生成房间码失败，请重试")
}

func (m *Manager) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, m.timeout)
}

// 存储层的超时换成对用户可见的固定文案
func translateErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimedOut
	}

	return err
}
