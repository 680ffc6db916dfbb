package deal

import (
	"fmt"
	"math/rand"

	"github.com/KachaKSK/werewolf-game/internal/roles"
	"github.com/KachaKSK/werewolf-game/internal/room"
)

// InsufficientRolesError 启用的角色不够给每个玩家发一张
// 发牌整体放弃，文档不写入任何改动
type InsufficientRolesError struct {
	Needed    int
	Available int
}

func (e *InsufficientRolesError) Error() string {
	return fmt.Sprintf("启用的角色数量不足：需要 %d 张，只有 %d 张", e.Needed, e.Available)
}

// Deal 把启用的角色展开成一叠牌，洗匀后给每个玩家发一张
// 多出来的牌面朝下进中央牌堆，随后把阶段推进到夜晚
// 只修改传入的文档，由调用方负责整份写回
// rng 传 nil 时使用全局随机源
func Deal(rm *room.Room, rng *rand.Rand) error {
	pool := buildPool(rm, rng)

	if len(pool) < len(rm.Players) {
		return &InsufficientRolesError{
			Needed:    len(rm.Players),
			Available: len(pool),
		}
	}

	// 一次洗牌决定全部归属：前面的发给玩家，剩下的进中央
	shuffleInstances(pool, rng)

	// 玩家顺序独立再洗一次，消除入场顺序带来的位置偏差
	order := playerOrder(len(rm.Players), rng)

	for i, playerIdx := range order {
		rm.Players[playerIdx].AssignedRoles = []room.RoleInstance{pool[i]}
	}

	rm.Config.CenterPool = pool[len(rm.Players):]
	rm.Config.GameState = room.STATE_NIGHT

	return nil
}

// buildPool 按当前配置展开发牌用的多重集合
// 配置了宝石类别时按类别抽取，否则按每个角色的计数展开
func buildPool(rm *room.Room, rng *rand.Rand) []room.RoleInstance {
	cfg := &rm.Config

	if len(cfg.GemCategories) > 0 {
		return buildGemPool(cfg, rng)
	}

	pool := make([]room.RoleInstance, 0)

	for _, setting := range cfg.RoleSettings {
		def, ok := roles.Lookup(setting.RoleName)
		if !ok || setting.IsDisabled || def.AlwaysDisabled {
			continue
		}

		for i := 0; i < setting.Count; i++ {
			pool = append(pool, newInstance(def, cfg))
		}
	}

	return pool
}

func buildGemPool(cfg *room.Config, rng *rand.Rand) []room.RoleInstance {
	pool := make([]room.RoleInstance, 0)

	for _, category := range cfg.GemCategories {
		members := make([]roles.Definition, 0)

		for _, setting := range cfg.RoleSettings {
			def, ok := roles.Lookup(setting.RoleName)
			if !ok || setting.IsDisabled || def.AlwaysDisabled {
				continue
			}
			if def.Gem != category.CategoryName {
				continue
			}

			members = append(members, def)
		}

		// 同一类别内抽互不相同的角色
		// 要的比有的多时收缩到全量
		shuffleDefinitions(members, rng)

		take := category.Count
		if take > len(members) {
			take = len(members)
		}

		for _, def := range members[:take] {
			pool = append(pool, newInstance(def, cfg))
		}
	}

	return pool
}

// newInstance 从角色定义复制出一张牌
// 图片在这里就解析定稿，客户端拿到的都是同一个变体
func newInstance(def roles.Definition, cfg *room.Config) room.RoleInstance {
	image := cfg.RoleImageMap[def.Name]
	if image == "" && len(def.Variants) > 0 {
		image = def.Variants[0]
	}

	return room.RoleInstance{
		InstanceID: room.GenID(),
		RoleName:   def.Name,
		Gem:        def.Gem,
		Image:      image,
	}
}

func shuffleInstances(pool []room.RoleInstance, rng *rand.Rand) {
	swap := func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	}

	if rng != nil {
		rng.Shuffle(len(pool), swap)
		return
	}

	rand.Shuffle(len(pool), swap)
}

func shuffleDefinitions(defs []roles.Definition, rng *rand.Rand) {
	swap := func(i, j int) {
		defs[i], defs[j] = defs[j], defs[i]
	}

	if rng != nil {
		rng.Shuffle(len(defs), swap)
		return
	}

	rand.Shuffle(len(defs), swap)
}

func playerOrder(n int, rng *rand.Rand) []int {
	if rng != nil {
		return rng.Perm(n)
	}

	return rand.Perm(n)
}
