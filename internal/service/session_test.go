package service

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/KachaKSK/werewolf-game/internal/room"
	"github.com/KachaKSK/werewolf-game/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *store.Memory) {
	t.Helper()

	m := store.NewMemory(0)
	t.Cleanup(func() { m.Close() })

	mgr := NewManager(m, m, time.Second)
	mgr.newRand = func() *rand.Rand {
		return rand.New(rand.NewPCG(42, 7))
	}

	return mgr, m
}

func createRoom(t *testing.T, mgr *Manager) CreateRoomResponse {
	t.Helper()

	resp, err := mgr.CreateRoom(context.Background(), CreateRoomRequest{
		RoomName:       "Fog Hollow",
		CreatorName:    "Host",
		ClientIdentity: "identity-host",
	})
	require.NoError(t, err)

	return resp
}

func joinAs(t *testing.T, mgr *Manager, roomID, identity, name string) *Session {
	t.Helper()

	s := mgr.NewSession()

	_, err := s.JoinRoom(context.Background(), roomID, identity, name)
	require.NoError(t, err)

	return s
}

func displayIDOf(t *testing.T, st *store.Memory, roomID, identity string) string {
	t.Helper()

	doc, err := st.Get(context.Background(), roomID)
	require.NoError(t, err)

	idx := doc.FindPlayerByIdentity(identity)
	require.GreaterOrEqual(t, idx, 0, "identity %s not in room", identity)

	return doc.Players[idx].DisplayID
}

func TestCreateRoomSeedsHostAndDefaults(t *testing.T) {
	mgr, st := newTestManager(t)

	resp := createRoom(t, mgr)

	assert.Len(t, resp.RoomID, room.CODE_LENGTH)
	assert.Equal(t, "Host", resp.Creator.DisplayName)
	assert.Equal(t, "identity-host", resp.Creator.ClientIdentity)

	doc, err := st.Get(context.Background(), resp.RoomID)
	require.NoError(t, err)

	assert.Equal(t, "Fog Hollow", doc.Name)
	require.Len(t, doc.Players, 1)
	assert.Equal(t, "identity-host", doc.HostID)
	assert.Equal(t, doc.Players[0].ClientIdentity, doc.HostID)
	assert.Equal(t, room.STATE_LOBBY, doc.Config.GameState)
	assert.NotEmpty(t, doc.Config.RoleSettings)
	assert.NotEmpty(t, doc.Config.RoleImageMap)
	assert.Empty(t, doc.Config.CenterPool)
}

func TestCreateRoomValidatesInput(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.CreateRoom(ctx, CreateRoomRequest{CreatorName: "Host"})
	require.Error(t, err)

	_, err = mgr.CreateRoom(ctx, CreateRoomRequest{RoomName: "Fog Hollow"})
	require.Error(t, err)
}

func TestJoinRoomMissingRoom(t *testing.T) {
	mgr, _ := newTestManager(t)

	s := mgr.NewSession()

	_, err := s.JoinRoom(context.Background(), "NOPE42", "identity-bob", "Bob")
	require.ErrorIs(t, err, store.ErrRoomNotFound)
	assert.Equal(t, SESSION_NO_ROOM, s.State())
}

func TestJoinRoomIsIdempotentPerIdentity(t *testing.T) {
	mgr, _ := newTestManager(t)
	resp := createRoom(t, mgr)
	ctx := context.Background()

	s1 := mgr.NewSession()
	_, err := s1.JoinRoom(ctx, resp.RoomID, "identity-bob", "Bob")
	require.NoError(t, err)
	assert.Equal(t, SESSION_IN_ROOM, s1.State())

	// 同一个身份换昵称重进，只改名，不产生重复玩家
	s2 := mgr.NewSession()
	doc, err := s2.JoinRoom(ctx, resp.RoomID, "identity-bob", "Bobby")
	require.NoError(t, err)

	require.Len(t, doc.Players, 2)

	idx := doc.FindPlayerByIdentity("identity-bob")
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, "Bobby", doc.Players[idx].DisplayName)
}

func TestJoinRoomRejectedWhileInRoom(t *testing.T) {
	mgr, _ := newTestManager(t)
	resp := createRoom(t, mgr)

	s := joinAs(t, mgr, resp.RoomID, "identity-bob", "Bob")

	_, err := s.JoinRoom(context.Background(), resp.RoomID, "identity-bob", "Bob")
	require.ErrorIs(t, err, ErrAlreadyInRoom)
}

func TestLeaveRoomPromotesNextHostInSameWrite(t *testing.T) {
	mgr, st := newTestManager(t)
	resp := createRoom(t, mgr)
	ctx := context.Background()

	host := joinAs(t, mgr, resp.RoomID, "identity-host", "Host")
	joinAs(t, mgr, resp.RoomID, "identity-bob", "Bob")
	joinAs(t, mgr, resp.RoomID, "identity-carol", "Carol")

	require.NoError(t, host.LeaveRoom(ctx))
	assert.Equal(t, SESSION_NO_ROOM, host.State())

	doc, err := st.Get(ctx, resp.RoomID)
	require.NoError(t, err)

	// 原列表第二位接任，并且和移除发生在同一次写入里
	require.Len(t, doc.Players, 2)
	assert.Equal(t, "identity-bob", doc.HostID)
	assert.Equal(t, doc.Players[0].ClientIdentity, doc.HostID)
	assert.Equal(t, -1, doc.FindPlayerByIdentity("identity-host"))
}

func TestLastLeaveDeletesRoom(t *testing.T) {
	mgr, st := newTestManager(t)
	resp := createRoom(t, mgr)
	ctx := context.Background()

	host := joinAs(t, mgr, resp.RoomID, "identity-host", "Host")

	require.NoError(t, host.LeaveRoom(ctx))

	_, err := st.Get(ctx, resp.RoomID)
	require.ErrorIs(t, err, store.ErrRoomNotFound)
}

func TestLeaveRoomWhenNotJoined(t *testing.T) {
	mgr, _ := newTestManager(t)

	s := mgr.NewSession()
	require.ErrorIs(t, s.LeaveRoom(context.Background()), ErrNotInRoom)
}

func TestKickRequiresHost(t *testing.T) {
	mgr, st := newTestManager(t)
	resp := createRoom(t, mgr)
	ctx := context.Background()

	joinAs(t, mgr, resp.RoomID, "identity-host", "Host")
	bob := joinAs(t, mgr, resp.RoomID, "identity-bob", "Bob")
	joinAs(t, mgr, resp.RoomID, "identity-carol", "Carol")

	carolDisplayID := displayIDOf(t, st, resp.RoomID, "identity-carol")

	_, err := bob.KickPlayer(ctx, carolDisplayID)
	require.ErrorIs(t, err, ErrNotHost)

	doc, err := st.Get(ctx, resp.RoomID)
	require.NoError(t, err)
	assert.Len(t, doc.Players, 3, "rejected kick must not change the document")
}

func TestKickSelfRejected(t *testing.T) {
	mgr, st := newTestManager(t)
	resp := createRoom(t, mgr)

	host := joinAs(t, mgr, resp.RoomID, "identity-host", "Host")
	hostDisplayID := displayIDOf(t, st, resp.RoomID, "identity-host")

	_, err := host.KickPlayer(context.Background(), hostDisplayID)
	require.ErrorIs(t, err, ErrCannotKickSelf)
}

func TestKickMissingPlayer(t *testing.T) {
	mgr, _ := newTestManager(t)
	resp := createRoom(t, mgr)

	host := joinAs(t, mgr, resp.RoomID, "identity-host", "Host")

	_, err := host.KickPlayer(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestKickedPlayerDetectsForcedRemoval(t *testing.T) {
	mgr, st := newTestManager(t)
	resp := createRoom(t, mgr)
	ctx := context.Background()

	host := joinAs(t, mgr, resp.RoomID, "identity-host", "Host")

	bobEvents := make(chan *room.Room, 16)

	bob := mgr.NewSession()
	bob.OnRoomChanged(func(rm *room.Room) { bobEvents <- rm })

	_, err := bob.JoinRoom(ctx, resp.RoomID, "identity-bob", "Bob")
	require.NoError(t, err)

	bobDisplayID := displayIDOf(t, st, resp.RoomID, "identity-bob")

	doc, err := host.KickPlayer(ctx, bobDisplayID)
	require.NoError(t, err)
	assert.Equal(t, -1, doc.FindPlayerByIdentity("identity-bob"))

	// 被请出的一方只能靠"自己还在不在玩家列表里"发现这件事
	require.Eventually(t, func() bool {
		return bob.State() == SESSION_KICKED
	}, time.Second, 10*time.Millisecond)

	waitForGone(t, bobEvents)

	assert.Nil(t, bob.CachedRoom())
	assert.Equal(t, "", bob.RoomID())
}

func TestKickedPlayerCanRejoin(t *testing.T) {
	mgr, st := newTestManager(t)
	resp := createRoom(t, mgr)
	ctx := context.Background()

	host := joinAs(t, mgr, resp.RoomID, "identity-host", "Host")
	bob := joinAs(t, mgr, resp.RoomID, "identity-bob", "Bob")

	bobDisplayID := displayIDOf(t, st, resp.RoomID, "identity-bob")

	_, err := host.KickPlayer(ctx, bobDisplayID)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return bob.State() == SESSION_KICKED
	}, time.Second, 10*time.Millisecond)

	doc, err := bob.JoinRoom(ctx, resp.RoomID, "identity-bob", "Bob")
	require.NoError(t, err)

	assert.Equal(t, SESSION_IN_ROOM, bob.State())
	assert.GreaterOrEqual(t, doc.FindPlayerByIdentity("identity-bob"), 0)
}

func TestRoomDeletionMovesWatchersToRoomDeleted(t *testing.T) {
	mgr, st := newTestManager(t)
	resp := createRoom(t, mgr)
	ctx := context.Background()

	bobEvents := make(chan *room.Room, 16)

	bob := mgr.NewSession()
	bob.OnRoomChanged(func(rm *room.Room) { bobEvents <- rm })

	_, err := bob.JoinRoom(ctx, resp.RoomID, "identity-bob", "Bob")
	require.NoError(t, err)

	// 模拟房间被人扫掉：过期清理或者最后一人离开
	require.NoError(t, st.Delete(ctx, resp.RoomID))

	require.Eventually(t, func() bool {
		return bob.State() == SESSION_ROOM_DELETED
	}, time.Second, 10*time.Millisecond)

	waitForGone(t, bobEvents)

	assert.Nil(t, bob.CachedRoom())
}

func TestWatcherReceivesWholeDocumentOnEveryChange(t *testing.T) {
	mgr, _ := newTestManager(t)
	resp := createRoom(t, mgr)
	ctx := context.Background()

	bobEvents := make(chan *room.Room, 16)

	bob := mgr.NewSession()
	bob.OnRoomChanged(func(rm *room.Room) { bobEvents <- rm })

	_, err := bob.JoinRoom(ctx, resp.RoomID, "identity-bob", "Bob")
	require.NoError(t, err)

	// 另一个客户端改名，订阅方应当收到整份新文档
	carol := joinAs(t, mgr, resp.RoomID, "identity-carol", "Carol")
	_, err = carol.Rename(ctx, "Caroline")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		cached := bob.CachedRoom()
		if cached == nil {
			return false
		}

		idx := cached.FindPlayerByIdentity("identity-carol")

		return idx >= 0 && cached.Players[idx].DisplayName == "Caroline"
	}, time.Second, 10*time.Millisecond)
}

func TestDepartIsBestEffort(t *testing.T) {
	mgr, st := newTestManager(t)
	resp := createRoom(t, mgr)
	ctx := context.Background()

	joinAs(t, mgr, resp.RoomID, "identity-host", "Host")
	bob := joinAs(t, mgr, resp.RoomID, "identity-bob", "Bob")

	bob.Depart()

	// 本地立刻收回，远端的移除允许晚一点到
	assert.Equal(t, SESSION_NO_ROOM, bob.State())

	require.Eventually(t, func() bool {
		doc, err := st.Get(ctx, resp.RoomID)
		if err != nil {
			return false
		}

		return doc.FindPlayerByIdentity("identity-bob") == -1
	}, time.Second, 10*time.Millisecond)
}

// waitForGone 等回调送来 nil，中途的整份更新可以路过
func waitForGone(t *testing.T, events chan *room.Room) {
	t.Helper()

	deadline := time.After(time.Second)

	for {
		select {
		case rm := <-events:
			if rm == nil {
				return
			}

		case <-deadline:
			t.Fatalf("timed out waiting for the removal callback")
		}
	}
}
