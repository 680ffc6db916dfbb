package roles

import (
	"math/rand"

	"github.com/KachaKSK/werewolf-game/internal/room"
)

// 牌背宝石，按阵营和职能给角色分类
// 宝石模式发牌时按类别抽取
const (
	GEM_RUBY     = "ruby"     // 狼人阵营
	GEM_EMERALD  = "emerald"  // 村民阵营
	GEM_SAPPHIRE = "sapphire" // 查验类神职
	GEM_AMBER    = "amber"    // 行动类神职
	GEM_OBSIDIAN = "obsidian" // 第三方
)

// 一种角色的静态定义
// Variants 是可选的画师变体，建房时随机选定一个写进文档
type Definition struct {
	Name           string
	Gem            string
	DefaultCount   int
	AlwaysDisabled bool
	Variants       []string
}

var catalog = []Definition{
	{
		Name:         "Villager",
		Gem:          GEM_EMERALD,
		DefaultCount: 2,
		Variants: []string{
			"assets/roles/villager_a.webp",
			"assets/roles/villager_b.webp",
			"assets/roles/villager_c.webp",
		},
	},
	{
		Name:         "Werewolf",
		Gem:          GEM_RUBY,
		DefaultCount: 2,
		Variants: []string{
			"assets/roles/werewolf_a.webp",
			"assets/roles/werewolf_b.webp",
		},
	},
	{
		Name:         "Minion",
		Gem:          GEM_RUBY,
		DefaultCount: 1,
		Variants: []string{
			"assets/roles/minion_a.webp",
		},
	},
	{
		Name:         "Mason",
		Gem:          GEM_EMERALD,
		DefaultCount: 2,
		Variants: []string{
			"assets/roles/mason_a.webp",
			"assets/roles/mason_b.webp",
		},
	},
	{
		Name:         "Seer",
		Gem:          GEM_SAPPHIRE,
		DefaultCount: 1,
		Variants: []string{
			"assets/roles/seer_a.webp",
			"assets/roles/seer_b.webp",
		},
	},
	{
		Name:         "Insomniac",
		Gem:          GEM_SAPPHIRE,
		DefaultCount: 1,
		Variants: []string{
			"assets/roles/insomniac_a.webp",
		},
	},
	{
		Name:         "Robber",
		Gem:          GEM_AMBER,
		DefaultCount: 1,
		Variants: []string{
			"assets/roles/robber_a.webp",
		},
	},
	{
		Name:         "Troublemaker",
		Gem:          GEM_AMBER,
		DefaultCount: 1,
		Variants: []string{
			"assets/roles/troublemaker_a.webp",
			"assets/roles/troublemaker_b.webp",
		},
	},
	{
		Name:         "Drunk",
		Gem:          GEM_AMBER,
		DefaultCount: 1,
		Variants: []string{
			"assets/roles/drunk_a.webp",
		},
	},
	{
		Name:         "Hunter",
		Gem:          GEM_EMERALD,
		DefaultCount: 1,
		Variants: []string{
			"assets/roles/hunter_a.webp",
		},
	},
	{
		Name:         "Tanner",
		Gem:          GEM_OBSIDIAN,
		DefaultCount: 1,
		Variants: []string{
			"assets/roles/tanner_a.webp",
		},
	},
	{
		// 美术已经就位，夜晚技能还没实装，先锁死
		Name:           "Doppelganger",
		Gem:            GEM_OBSIDIAN,
		DefaultCount:   0,
		AlwaysDisabled: true,
		Variants: []string{
			"assets/roles/doppelganger_a.webp",
		},
	},
}

// All 返回整套角色定义的副本
func All() []Definition {
	all := make([]Definition, len(catalog))
	copy(all, catalog)
	return all
}

// Lookup 按角色名查找定义
func Lookup(name string) (Definition, bool) {
	for _, def := range catalog {
		if def.Name == name {
			return def, true
		}
	}

	return Definition{}, false
}

// KnownGem 判断是不是目录里出现过的宝石类别
func KnownGem(name string) bool {
	for _, def := range catalog {
		if def.Gem == name {
			return true
		}
	}

	return false
}

// DefaultSettings 生成建房时的初始角色配置
// 每个已知角色一条，计数取默认值
func DefaultSettings() []room.RoleSetting {
	settings := make([]room.RoleSetting, 0, len(catalog))

	for _, def := range catalog {
		settings = append(settings, room.RoleSetting{
			RoleName:   def.Name,
			Count:      def.DefaultCount,
			IsDisabled: def.AlwaysDisabled,
		})
	}

	return settings
}

// NewImageMap 为每个角色随机选定一个画师变体
// 结果写进房间文档，之后所有客户端渲染同一张图
// rng 传 nil 时使用全局随机源
func NewImageMap(rng *rand.Rand) map[string]string {
	pick := rand.Intn
	if rng != nil {
		pick = rng.Intn
	}

	images := make(map[string]string, len(catalog))

	for _, def := range catalog {
		images[def.Name] = def.Variants[pick(len(def.Variants))]
	}

	return images
}

// NormalizeRoom 把读出来的文档补齐成完整形态
// 旧版本客户端写入的文档可能缺字段，读侧统一兜底
func NormalizeRoom(rm *room.Room) {
	if rm.Players == nil {
		rm.Players = make([]room.Player, 0)
	}

	for i := range rm.Players {
		if rm.Players[i].Status == "" {
			rm.Players[i].Status = room.STATUS_ALIVE
		}
		if rm.Players[i].AssignedRoles == nil {
			rm.Players[i].AssignedRoles = make([]room.RoleInstance, 0)
		}
	}

	switch rm.Config.GameState {
	case room.STATE_LOBBY, room.STATE_NIGHT, room.STATE_DAY:
	default:
		// 缺失或者不认识的阶段一律回大厅
		rm.Config.GameState = room.STATE_LOBBY
	}

	if rm.Config.RoleSettings == nil {
		rm.Config.RoleSettings = DefaultSettings()
	} else {
		// 补上缺失的已知角色，已有的条目不动
		for _, def := range catalog {
			if rm.Config.FindRoleSetting(def.Name) >= 0 {
				continue
			}

			rm.Config.RoleSettings = append(rm.Config.RoleSettings, room.RoleSetting{
				RoleName:   def.Name,
				Count:      def.DefaultCount,
				IsDisabled: def.AlwaysDisabled,
			})
		}
	}

	// 永久停用的角色不允许任何写入方重新启用
	for i := range rm.Config.RoleSettings {
		if def, ok := Lookup(rm.Config.RoleSettings[i].RoleName); ok && def.AlwaysDisabled {
			rm.Config.RoleSettings[i].IsDisabled = true
		}
	}

	if rm.Config.GemCategories == nil {
		rm.Config.GemCategories = make([]room.GemCategorySetting, 0)
	}

	if rm.Config.RoleImageMap == nil {
		rm.Config.RoleImageMap = NewImageMap(nil)
	} else {
		for _, def := range catalog {
			if _, ok := rm.Config.RoleImageMap[def.Name]; !ok {
				rm.Config.RoleImageMap[def.Name] = def.Variants[rand.Intn(len(def.Variants))]
			}
		}
	}

	if rm.Config.CenterPool == nil {
		rm.Config.CenterPool = make([]room.RoleInstance, 0)
	}
}
