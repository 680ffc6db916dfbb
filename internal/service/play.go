package service

import (
	"context"
	"errors"

	"github.com/KachaKSK/werewolf-game/internal/deal"
	"github.com/KachaKSK/werewolf-game/internal/room"

	"go.uber.org/zap"
)

// 对局推进类操作，全部只有房主可以触发

// DealRoles 洗牌发角色
// 只能在大厅阶段发，发完阶段推进到夜晚
// 想重发必须先 ResetToLobby，不存在静默重洗
func (s *Session) DealRoles(ctx context.Context) (*room.Room, error) {
	identity := s.Identity()
	rng := s.mgr.newRand()

	doc, err := s.mutate(ctx, func(doc *room.Room) error {
		if doc.HostID != identity {
			return ErrNotHost
		}

		if doc.Config.GameState != room.STATE_LOBBY {
			return ErrAlreadyDealt
		}

		return deal.Deal(doc, rng)
	})
	if err != nil {
		return nil, err
	}

	zap.S().Infof(
		"房间 %s 发牌完成，%d 名玩家，中央牌堆 %d 张",
		doc.ID, len(doc.Players), len(doc.Config.CenterPool),
	)

	return doc, nil
}

// SetPlayerStatus 标记玩家的存活状态
func (s *Session) SetPlayerStatus(ctx context.Context, targetDisplayID, status string) (*room.Room, error) {
	if status != room.STATUS_ALIVE && status != room.STATUS_DEAD {
		return nil, errors.New("无效的存活状态")
	}

	identity := s.Identity()

	return s.mutate(ctx, func(doc *room.Room) error {
		if doc.HostID != identity {
			return ErrNotHost
		}

		idx := doc.FindPlayerByDisplayID(targetDisplayID)
		if idx < 0 {
			return ErrPlayerNotFound
		}

		doc.Players[idx].Status = status

		return nil
	})
}

// AdvancePhase 在夜晚和白天之间推进，发牌之前不可用
func (s *Session) AdvancePhase(ctx context.Context) (*room.Room, error) {
	identity := s.Identity()

	return s.mutate(ctx, func(doc *room.Room) error {
		if doc.HostID != identity {
			return ErrNotHost
		}

		switch doc.Config.GameState {
		case room.STATE_NIGHT:
			doc.Config.GameState = room.STATE_DAY
		case room.STATE_DAY:
			doc.Config.GameState = room.STATE_NIGHT
		default:
			return ErrNotDealt
		}

		return nil
	})
}

// ResetToLobby 清掉上一轮的发牌结果，回到大厅
// 牌面归零、状态复活，画师变体沿用建房时那一套
func (s *Session) ResetToLobby(ctx context.Context) (*room.Room, error) {
	identity := s.Identity()

	return s.mutate(ctx, func(doc *room.Room) error {
		if doc.HostID != identity {
			return ErrNotHost
		}

		for i := range doc.Players {
			doc.Players[i].AssignedRoles = make([]room.RoleInstance, 0)
			doc.Players[i].Status = room.STATUS_ALIVE
		}

		doc.Config.CenterPool = make([]room.RoleInstance, 0)
		doc.Config.GameState = room.STATE_LOBBY

		return nil
	})
}
