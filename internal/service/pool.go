package service

import (
	"context"

	"github.com/KachaKSK/werewolf-game/internal/roles"
	"github.com/KachaKSK/werewolf-game/internal/room"
)

// 角色池配置，房间里的任何玩家都可以改
// 每个操作都是一次整份文档的读改写

// AdjustRoleCount 给角色计数加上 delta
// 界面只有加减一的按钮，越界时收在 0，不报错
func (s *Session) AdjustRoleCount(ctx context.Context, roleName string, delta int) (*room.Room, error) {
	if _, ok := roles.Lookup(roleName); !ok {
		return nil, ErrRoleUnknown
	}

	return s.mutate(ctx, func(doc *room.Room) error {
		idx := doc.Config.FindRoleSetting(roleName)
		if idx < 0 {
			return ErrRoleUnknown
		}

		next := doc.Config.RoleSettings[idx].Count + delta
		if next < 0 {
			next = 0
		}

		doc.Config.RoleSettings[idx].Count = next

		return nil
	})
}

// ToggleRoleDisabled 翻转角色的停用开关
// 定义里标记为永久停用的角色不允许翻转
func (s *Session) ToggleRoleDisabled(ctx context.Context, roleName string) (*room.Room, error) {
	def, ok := roles.Lookup(roleName)
	if !ok {
		return nil, ErrRoleUnknown
	}
	if def.AlwaysDisabled {
		return nil, ErrRoleLocked
	}

	return s.mutate(ctx, func(doc *room.Room) error {
		idx := doc.Config.FindRoleSetting(roleName)
		if idx < 0 {
			return ErrRoleUnknown
		}

		doc.Config.RoleSettings[idx].IsDisabled = !doc.Config.RoleSettings[idx].IsDisabled

		return nil
	})
}

// AddGemCategory 添加一个宝石类别，开启按类别抽取
// 重复添加把失败报给调用方，文档原样不动
func (s *Session) AddGemCategory(ctx context.Context, categoryName string) (*room.Room, error) {
	if !roles.KnownGem(categoryName) {
		return nil, ErrGemUnknown
	}

	return s.mutate(ctx, func(doc *room.Room) error {
		if doc.Config.FindGemCategory(categoryName) >= 0 {
			return ErrGemExists
		}

		doc.Config.GemCategories = append(doc.Config.GemCategories, room.GemCategorySetting{
			CategoryName: categoryName,
			Count:        1,
		})

		return nil
	})
}

func (s *Session) RemoveGemCategory(ctx context.Context, categoryName string) (*room.Room, error) {
	return s.mutate(ctx, func(doc *room.Room) error {
		idx := doc.Config.FindGemCategory(categoryName)
		if idx < 0 {
			return ErrGemNotFound
		}

		doc.Config.GemCategories = append(
			doc.Config.GemCategories[:idx],
			doc.Config.GemCategories[idx+1:]...,
		)

		return nil
	})
}

// AdjustGemCount 给宝石类别的抽取数加上 delta，越界收在 0
func (s *Session) AdjustGemCount(ctx context.Context, categoryName string, delta int) (*room.Room, error) {
	return s.mutate(ctx, func(doc *room.Room) error {
		idx := doc.Config.FindGemCategory(categoryName)
		if idx < 0 {
			return ErrGemNotFound
		}

		next := doc.Config.GemCategories[idx].Count + delta
		if next < 0 {
			next = 0
		}

		doc.Config.GemCategories[idx].Count = next

		return nil
	})
}
