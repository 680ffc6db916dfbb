package service

import "errors"

var (
	ErrNotInRoom     = errors.New("当前不在任何房间里")
	ErrAlreadyInRoom = errors.New("已经在房间里了")

	ErrNotHost        = errors.New("只有房主可以执行该操作")
	ErrPlayerNotFound = errors.New("玩家不存在")
	ErrCannotKickSelf = errors.New("不能把自己请出房间")

	ErrRoleUnknown = errors.New("未知的角色")
	ErrRoleLocked  = errors.New("该角色已被永久停用")
	ErrGemUnknown  = errors.New("未知的宝石类别")
	ErrGemExists   = errors.New("该宝石类别已经添加过")
	ErrGemNotFound = errors.New("该宝石类别尚未添加")

	ErrAlreadyDealt = errors.New("本轮已经发过牌，回到大厅后才能重发")
	ErrNotDealt     = errors.New("还没有发过牌")

	ErrTimedOut = errors.New("请求超时，请稍后重试")
)
