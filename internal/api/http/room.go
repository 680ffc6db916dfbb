package http

import (
	"errors"
	"fmt"

	"github.com/KachaKSK/werewolf-game/internal/service"
	"github.com/KachaKSK/werewolf-game/internal/state"
	"github.com/KachaKSK/werewolf-game/internal/store"

	"github.com/kataras/iris/v12"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

func CreateRoom(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		var req service.CreateRoomRequest

		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StatusCode(iris.StatusBadRequest)
			ctx.JSON(iris.Map{
				"error": "请求参数无效",
			})
			return
		}

		resp, err := appState.Sessions.CreateRoom(ctx.Request().Context(), req)
		if err != nil {
			ctx.StatusCode(iris.StatusBadRequest)
			ctx.JSON(iris.Map{
				"error": err.Error(),
			})
			return
		}

		ctx.JSON(resp)
	}
}

// RoomQR 生成进房链接的二维码，扫码打开前端并带上房间码
func RoomQR(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		roomID := ctx.Params().Get("room_id")

		// 死码不给二维码
		if _, err := appState.Rooms.Get(ctx.Request().Context(), roomID); err != nil {
			if errors.Is(err, store.ErrRoomNotFound) {
				ctx.StatusCode(iris.StatusNotFound)
				ctx.JSON(iris.Map{
					"error": err.Error(),
				})
				return
			}

			ctx.StatusCode(iris.StatusInternalServerError)
			ctx.JSON(iris.Map{
				"error": err.Error(),
			})
			return
		}

		// 反向代理后面拿不到真实协议，看转发头
		scheme := "http"
		if proto := ctx.GetHeader("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		} else if ctx.Request().TLS != nil {
			scheme = "https"
		}

		joinURL := fmt.Sprintf("%s://%s/?room=%s", scheme, ctx.Host(), roomID)

		png, err := qrcode.Encode(joinURL, qrcode.Medium, 320)
		if err != nil {
			zap.L().Error("生成二维码失败", zap.Error(err))
			ctx.StatusCode(iris.StatusInternalServerError)
			ctx.JSON(iris.Map{
				"error": "生成二维码失败",
			})
			return
		}

		ctx.ContentType("image/png")
		ctx.Write(png)
	}
}
