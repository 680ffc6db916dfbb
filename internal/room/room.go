package room

import (
	"time"
)

// 游戏阶段，保存在房间文档里，随文档同步给所有客户端
const (
	STATE_LOBBY = "lobby"
	STATE_NIGHT = "night"
	STATE_DAY   = "day"
)

// 玩家存活状态
const (
	STATUS_ALIVE = "alive"
	STATUS_DEAD  = "dead"
)

// 一张已发出的角色牌，发牌时从角色定义复制而来
// 写入文档后不再修改
type RoleInstance struct {
	InstanceID string `json:"instance_id"`
	RoleName   string `json:"role_name"`
	Gem        string `json:"gem"`
	Image      string `json:"image"`
}

type Player struct {
	DisplayID      string         `json:"display_id"`
	DisplayName    string         `json:"display_name"`
	ClientIdentity string         `json:"client_identity"`
	Status         string         `json:"status"`
	AssignedRoles  []RoleInstance `json:"assigned_roles"`
}

type RoleSetting struct {
	RoleName   string `json:"role_name"`
	Count      int    `json:"count"`
	IsDisabled bool   `json:"is_disabled"`
}

type GemCategorySetting struct {
	CategoryName string `json:"category_name"`
	Count        int    `json:"count"`
}

type Config struct {
	RoleSettings  []RoleSetting        `json:"role_settings"`
	GemCategories []GemCategorySetting `json:"gem_categories"`
	// 每个角色固定一个画师变体，建房时生成一次
	// 所有客户端据此渲染同一张图
	RoleImageMap map[string]string `json:"role_image_map"`
	CenterPool   []RoleInstance    `json:"center_pool"`
	GameState    string            `json:"game_state"`
}

// 一场聚会对应一个房间文档，整份读整份写
// host_id 恒等于 players 中某一项的 client_identity
// （players 为空时房间应当被删除）
type Room struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	HostID    string    `json:"host_id"`
	Players   []Player  `json:"players"`
	Config    Config    `json:"config"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone 深拷贝整份文档
// 读写两侧都只操作副本，避免缓存被半截修改
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}

	cloned := *r

	cloned.Players = make([]Player, len(r.Players))
	for i, p := range r.Players {
		cloned.Players[i] = p
		cloned.Players[i].AssignedRoles = cloneInstances(p.AssignedRoles)
	}

	cloned.Config.RoleSettings = make([]RoleSetting, len(r.Config.RoleSettings))
	copy(cloned.Config.RoleSettings, r.Config.RoleSettings)

	cloned.Config.GemCategories = make([]GemCategorySetting, len(r.Config.GemCategories))
	copy(cloned.Config.GemCategories, r.Config.GemCategories)

	cloned.Config.RoleImageMap = make(map[string]string, len(r.Config.RoleImageMap))
	for role, image := range r.Config.RoleImageMap {
		cloned.Config.RoleImageMap[role] = image
	}

	cloned.Config.CenterPool = cloneInstances(r.Config.CenterPool)

	return &cloned
}

func cloneInstances(src []RoleInstance) []RoleInstance {
	dst := make([]RoleInstance, len(src))
	copy(dst, src)
	return dst
}

// Touch 更新文档的最后写入时间，过期清理依赖这个字段
func (r *Room) Touch() {
	r.UpdatedAt = time.Now().UTC()
}

// FindPlayerByIdentity 按持久身份查找玩家，返回下标，找不到返回 -1
func (r *Room) FindPlayerByIdentity(clientIdentity string) int {
	for i := range r.Players {
		if r.Players[i].ClientIdentity == clientIdentity {
			return i
		}
	}

	return -1
}

// FindPlayerByDisplayID 按展示 ID 查找玩家，返回下标，找不到返回 -1
func (r *Room) FindPlayerByDisplayID(displayID string) int {
	for i := range r.Players {
		if r.Players[i].DisplayID == displayID {
			return i
		}
	}

	return -1
}

// RemovePlayerAt 删除下标处的玩家，保持其余玩家的相对顺序
func (r *Room) RemovePlayerAt(idx int) {
	r.Players = append(r.Players[:idx], r.Players[idx+1:]...)
}

// FindRoleSetting 按角色名查找配置项，返回下标，找不到返回 -1
func (c *Config) FindRoleSetting(roleName string) int {
	for i := range c.RoleSettings {
		if c.RoleSettings[i].RoleName == roleName {
			return i
		}
	}

	return -1
}

// FindGemCategory 按类别名查找宝石配置，返回下标，找不到返回 -1
func (c *Config) FindGemCategory(categoryName string) int {
	for i := range c.GemCategories {
		if c.GemCategories[i].CategoryName == categoryName {
			return i
		}
	}

	return -1
}
