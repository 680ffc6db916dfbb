package http

import (
	"fmt"

	"github.com/KachaKSK/werewolf-game/internal/api/http/websocket"
	"github.com/KachaKSK/werewolf-game/internal/state"

	"github.com/kataras/iris/v12"
)

func RunServer(appState *state.AppState) {
	app := iris.Default()

	app.HandleDir(
		"/",
		iris.Dir("./werewolf-fe"),
		iris.DirOptions{
			IndexName: "index.html",
			SPA:       true,
			Compress:  true,
		},
	)

	api := app.Party("/api/v1")

	api.Post("/rooms/create", CreateRoom(appState))

	api.Get("/rooms/{room_id}/qr", RoomQR(appState))

	api.Get("/ws/watch", websocket.WatchRoom(appState))

	addr := fmt.Sprintf(
		"%s:%d",
		appState.Cfg.Host,
		appState.Cfg.Port,
	)

	app.Listen(addr)
}
