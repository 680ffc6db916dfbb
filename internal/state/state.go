package state

import (
	"github.com/KachaKSK/werewolf-game/internal/config"
	"github.com/KachaKSK/werewolf-game/internal/service"
	"github.com/KachaKSK/werewolf-game/internal/store"
)

type AppState struct {
	Cfg      *config.AppConfig
	Rooms    store.RoomStore
	Sessions *service.Manager
}

func NewAppState(
	cfg *config.AppConfig,
	rooms store.RoomStore,
	sessions *service.Manager,
) *AppState {
	return &AppState{
		Cfg:      cfg,
		Rooms:    rooms,
		Sessions: sessions,
	}
}
