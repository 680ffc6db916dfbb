package deal

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"testing/quick"

	"github.com/KachaKSK/werewolf-game/internal/roles"
	"github.com/KachaKSK/werewolf-game/internal/room"
)

// lobbyRoom 造一个所有角色计数清零的大厅房间
// 每个用例只启用自己关心的角色
func lobbyRoom(playerCount int) *room.Room {
	rm := &room.Room{
		ID:   "ABCD23",
		Name: "Fog Hollow",
	}

	for i := 0; i < playerCount; i++ {
		rm.Players = append(rm.Players, room.Player{
			DisplayID:      fmt.Sprintf("p%d", i+1),
			DisplayName:    fmt.Sprintf("Player %d", i+1),
			ClientIdentity: fmt.Sprintf("identity-%d", i+1),
		})
	}

	roles.NormalizeRoom(rm)

	for i := range rm.Config.RoleSettings {
		rm.Config.RoleSettings[i].Count = 0
	}

	return rm
}

func setCount(t *testing.T, rm *room.Room, roleName string, count int) {
	t.Helper()

	idx := rm.Config.FindRoleSetting(roleName)
	if idx < 0 {
		t.Fatalf("role %q missing from settings", roleName)
	}

	rm.Config.RoleSettings[idx].Count = count
}

// tally 统计已发出的牌和中央牌堆里每个角色出现的次数
func tally(rm *room.Room) map[string]int {
	counts := make(map[string]int)

	for _, p := range rm.Players {
		for _, inst := range p.AssignedRoles {
			counts[inst.RoleName]++
		}
	}
	for _, inst := range rm.Config.CenterPool {
		counts[inst.RoleName]++
	}

	return counts
}

func TestDealTwoPlayersLeavesTwoInCenter(t *testing.T) {
	rm := lobbyRoom(2)
	setCount(t, rm, "Villager", 3)
	setCount(t, rm, "Werewolf", 1)

	if err := Deal(rm, rand.New(rand.NewSource(1<<32 | 2))); err != nil {
		t.Fatalf("deal should succeed, got: %v", err)
	}

	for _, p := range rm.Players {
		if len(p.AssignedRoles) != 1 {
			t.Fatalf("player %s should hold exactly one role, got %d", p.DisplayID, len(p.AssignedRoles))
		}
	}

	if len(rm.Config.CenterPool) != 2 {
		t.Fatalf("want 2 roles in the center pool, got %d", len(rm.Config.CenterPool))
	}

	counts := tally(rm)
	if counts["Villager"] != 3 || counts["Werewolf"] != 1 {
		t.Fatalf("multiset not conserved: %v", counts)
	}

	if rm.Config.GameState != room.STATE_NIGHT {
		t.Fatalf("deal should advance game state to night, got %q", rm.Config.GameState)
	}
}

func TestDealInsufficientLeavesRoomUntouched(t *testing.T) {
	rm := lobbyRoom(3)
	setCount(t, rm, "Villager", 1)

	err := Deal(rm, rand.New(rand.NewSource(1<<32 | 2)))

	var insufficient *InsufficientRolesError
	if !errors.As(err, &insufficient) {
		t.Fatalf("want InsufficientRolesError, got: %v", err)
	}
	if insufficient.Needed != 3 || insufficient.Available != 1 {
		t.Fatalf("shortfall numbers wrong: needed %d available %d", insufficient.Needed, insufficient.Available)
	}

	for _, p := range rm.Players {
		if len(p.AssignedRoles) != 0 {
			t.Fatalf("aborted deal must not assign roles")
		}
	}
	if len(rm.Config.CenterPool) != 0 {
		t.Fatalf("aborted deal must not fill the center pool")
	}
	if rm.Config.GameState != room.STATE_LOBBY {
		t.Fatalf("aborted deal must not advance the game state")
	}
}

func TestDealSkipsDisabledRoles(t *testing.T) {
	rm := lobbyRoom(2)
	setCount(t, rm, "Villager", 2)
	setCount(t, rm, "Werewolf", 5)

	idx := rm.Config.FindRoleSetting("Werewolf")
	rm.Config.RoleSettings[idx].IsDisabled = true

	if err := Deal(rm, rand.New(rand.NewSource(3<<32 | 4))); err != nil {
		t.Fatalf("deal should succeed, got: %v", err)
	}

	counts := tally(rm)
	if counts["Werewolf"] != 0 {
		t.Fatalf("disabled role appeared in the deal: %v", counts)
	}
	if counts["Villager"] != 2 {
		t.Fatalf("want 2 villagers in play, got %v", counts)
	}
}

func TestDealSkipsPermanentlyDisabledRoles(t *testing.T) {
	rm := lobbyRoom(2)
	setCount(t, rm, "Villager", 2)

	// 即使开关被硬掰开，定义里锁死的角色也不能进牌堆
	idx := rm.Config.FindRoleSetting("Doppelganger")
	rm.Config.RoleSettings[idx].Count = 5
	rm.Config.RoleSettings[idx].IsDisabled = false

	if err := Deal(rm, rand.New(rand.NewSource(5<<32 | 6))); err != nil {
		t.Fatalf("deal should succeed, got: %v", err)
	}

	if counts := tally(rm); counts["Doppelganger"] != 0 {
		t.Fatalf("permanently disabled role appeared in the deal: %v", counts)
	}
}

func TestDealStampsImagesFromMap(t *testing.T) {
	rm := lobbyRoom(2)
	setCount(t, rm, "Villager", 3)

	rm.Config.RoleImageMap["Villager"] = "assets/roles/villager_c.webp"

	if err := Deal(rm, rand.New(rand.NewPCG(7, 8))); err != nil {
		t.Fatalf("deal should succeed, got: %v", err)
	}

	check := func(inst room.RoleInstance) {
		if inst.RoleName != "Villager" {
			t.Fatalf("unexpected role %q in play", inst.RoleName)
		}
		if inst.Image != "assets/roles/villager_c.webp" {
			t.Fatalf("instance not stamped with the mapped image, got %q", inst.Image)
		}
		if inst.InstanceID == "" {
			t.Fatalf("instance id missing")
		}
		if inst.Gem == "" {
			t.Fatalf("gem missing from instance")
		}
	}

	for _, p := range rm.Players {
		for _, inst := range p.AssignedRoles {
			check(inst)
		}
	}
	for _, inst := range rm.Config.CenterPool {
		check(inst)
	}
}

func TestDealGemModePicksDistinctRoles(t *testing.T) {
	rm := lobbyRoom(1)

	// 琥珀类的成员：Robber、Troublemaker、Drunk
	setCount(t, rm, "Robber", 1)
	setCount(t, rm, "Troublemaker", 1)
	setCount(t, rm, "Drunk", 1)

	rm.Config.GemCategories = []room.GemCategorySetting{
		{CategoryName: roles.GEM_AMBER, Count: 2},
	}

	if err := Deal(rm, rand.New(rand.NewPCG(9, 10))); err != nil {
		t.Fatalf("deal should succeed, got: %v", err)
	}

	counts := tally(rm)

	total := 0
	for roleName, n := range counts {
		if n != 1 {
			t.Fatalf("gem mode dealt role %q %d times, want distinct picks", roleName, n)
		}

		def, ok := roles.Lookup(roleName)
		if !ok || def.Gem != roles.GEM_AMBER {
			t.Fatalf("gem mode dealt role %q outside the requested category", roleName)
		}

		total += n
	}

	if total != 2 {
		t.Fatalf("want 2 instances from the amber category, got %d", total)
	}
}

func TestDealGemModeClampsToMembership(t *testing.T) {
	rm := lobbyRoom(1)
	setCount(t, rm, "Robber", 1)
	setCount(t, rm, "Troublemaker", 1)
	setCount(t, rm, "Drunk", 1)

	// 要 99 个，但琥珀类只有 3 种角色
	rm.Config.GemCategories = []room.GemCategorySetting{
		{CategoryName: roles.GEM_AMBER, Count: 99},
	}

	if err := Deal(rm, rand.New(rand.NewPCG(11, 12))); err != nil {
		t.Fatalf("deal should succeed, got: %v", err)
	}

	counts := tally(rm)

	total := 0
	for _, n := range counts {
		total += n
	}

	if total != 3 {
		t.Fatalf("category pick should clamp to its 3 members, got %d", total)
	}
}

func TestDealSameSeedSameOutcome(t *testing.T) {
	build := func() *room.Room {
		rm := lobbyRoom(3)
		setCount(t, rm, "Villager", 3)
		setCount(t, rm, "Werewolf", 2)
		setCount(t, rm, "Seer", 1)
		return rm
	}

	first := build()
	second := build()

	if err := Deal(first, rand.New(rand.NewPCG(21, 22))); err != nil {
		t.Fatalf("deal should succeed, got: %v", err)
	}
	if err := Deal(second, rand.New(rand.NewPCG(21, 22))); err != nil {
		t.Fatalf("deal should succeed, got: %v", err)
	}

	for i := range first.Players {
		a := first.Players[i].AssignedRoles[0].RoleName
		b := second.Players[i].AssignedRoles[0].RoleName

		if a != b {
			t.Fatalf("same seed gave player %d different roles: %q vs %q", i, a, b)
		}
	}

	for i := range first.Config.CenterPool {
		a := first.Config.CenterPool[i].RoleName
		b := second.Config.CenterPool[i].RoleName

		if a != b {
			t.Fatalf("same seed gave center slot %d different roles: %q vs %q", i, a, b)
		}
	}
}

func TestDealConservationProperty(t *testing.T) {
	f := func(villagers, werewolves, seers, players uint8) bool {
		v := int(villagers % 6)
		w := int(werewolves % 6)
		s := int(seers % 2)
		playerCount := int(players%4) + 1

		rm := lobbyRoom(playerCount)
		setCount(t, rm, "Villager", v)
		setCount(t, rm, "Werewolf", w)
		setCount(t, rm, "Seer", s)

		total := v + w + s

		err := Deal(rm, rand.New(rand.NewPCG(uint64(v)+1, uint64(w)+1)))

		if total < playerCount {
			var insufficient *InsufficientRolesError
			return errors.As(err, &insufficient)
		}

		if err != nil {
			return false
		}

		for _, p := range rm.Players {
			if len(p.AssignedRoles) != 1 {
				return false
			}
		}

		if len(rm.Config.CenterPool) != total-playerCount {
			return false
		}

		counts := tally(rm)

		return counts["Villager"] == v && counts["Werewolf"] == w && counts["Seer"] == s
	}

	if err := quick.Check(f, nil); err != nil {
		t.Fatalf("conservation property violated: %v", err)
	}
}
