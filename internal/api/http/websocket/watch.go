package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/KachaKSK/werewolf-game/internal/room"
	"github.com/KachaKSK/werewolf-game/internal/service"
	"github.com/KachaKSK/werewolf-game/internal/state"

	"github.com/gorilla/websocket"
	"github.com/kataras/iris/v12"
	"go.uber.org/zap"
)

// WatchRoom 一条连接伺候一个玩家
// 首帧必须是加入请求，之后读循环收操作、写协程推文档
func WatchRoom(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		conn, err := upgrader.Upgrade(
			ctx.ResponseWriter(),
			ctx.Request(),
			nil,
		)
		if err != nil {
			zap.L().Error("升级到WebSocket失败", zap.Error(err))
			ctx.StatusCode(iris.StatusBadRequest)
			return
		}

		defer conn.Close()

		prepareConn(conn)

		respCh := make(chan ResponseWrapper, 64)

		// 读取首帧，必须是加入房间的请求
		_, msg, err := conn.ReadMessage()
		if err != nil {
			zap.L().Error(
				"读取首帧失败",
				zap.String("client_ip", ctx.RemoteAddr()),
				zap.Error(err),
			)

			return
		}

		var wrapper RequestWrapper

		if err := json.Unmarshal(msg, &wrapper); err != nil {
			zap.L().Error(
				"解析首帧失败",
				zap.String("client_ip", ctx.RemoteAddr()),
				zap.Error(err),
			)

			return
		}

		req := TryUnwrapJoinRoomRequest(wrapper)
		if req == nil {
			zap.L().Error(
				"首帧不是JoinRoom类型",
				zap.String("client_ip", ctx.RemoteAddr()),
				zap.Any("wrapper", wrapper),
			)

			return
		}

		sess := appState.Sessions.NewSession()

		// 文档每次变化都整份推给客户端
		// 回调给 nil 表示自己被请出去或者房间没了
		sess.OnRoomChanged(func(rm *room.Room) {
			if rm == nil {
				switch sess.State() {
				case service.SESSION_KICKED:
					pushResp(respCh, WrapResponse(RESP_KICKED, nil))
				default:
					pushResp(respCh, WrapResponse(RESP_ROOM_REMOVED, nil))
				}

				return
			}

			pushResp(respCh, WrapResponse(RESP_ROOM_UPDATED, RoomUpdatedResponse{Room: *rm}))
		})

		doc, err := sess.JoinRoom(
			context.Background(),
			req.RoomID,
			req.ClientIdentity,
			req.JoinerName,
		)
		if err != nil {
			zap.L().Error(
				"加入房间失败",
				zap.String("client_ip", ctx.RemoteAddr()),
				zap.Error(err),
			)

			conn.WriteJSON(WrapErrResponse(err.Error()))

			return
		}

		pushJoined(sess, doc, respCh)

		zap.L().Info(
			"玩家成功加入房间",
			zap.String("client_ip", ctx.RemoteAddr()),
			zap.String("room_id", doc.ID),
			zap.String("player_name", req.JoinerName),
		)

		clientIP := ctx.RemoteAddr()

		// 写协程的退出信号以及退出完成通知
		writeQuit := make(chan struct{})
		pumpDone := make(chan struct{})

		// 写入协程
		go func() {
			defer close(pumpDone)

			ticker := time.NewTicker(HEARTBEAT_INTERVAL)
			defer ticker.Stop()

			for {
				select {
				case <-writeQuit:
					// 读循环结束了，把攒着的响应冲出去再退出
					for {
						select {
						case resp := <-respCh:
							if err := conn.WriteJSON(resp); err != nil {
								return
							}

						default:
							zap.L().Info(
								"WebSocket写入协程退出",
								zap.String("client_ip", clientIP),
							)
							return
						}
					}

				case <-ticker.C:
					conn.SetWriteDeadline(time.Now().Add(HEARTBEAT_TIMEOUT))

					if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
						zap.L().Error(
							"发送心跳失败",
							zap.String("client_ip", clientIP),
							zap.Error(err),
						)
						return
					}

					zap.L().Debug(
						"发送心跳",
						zap.String("client_ip", clientIP),
					)

				case resp := <-respCh:
					if err := conn.WriteJSON(resp); err != nil {
						zap.L().Error(
							"发送消息失败",
							zap.String("client_ip", clientIP),
							zap.Error(err),
						)
						return
					}

					zap.L().Debug(
						"发送消息",
						zap.String("client_ip", clientIP),
						zap.String("resp_type", resp.RespType),
					)
				}
			}
		}()

		// 读取协程（主协程）
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(
					err,
					websocket.CloseGoingAway,
					websocket.CloseAbnormalClosure,
				) {
					zap.L().Error(
						"读取消息失败",
						zap.String("client_ip", clientIP),
						zap.Error(err),
					)
				}

				break
			}

			var wrapper RequestWrapper

			if err := json.Unmarshal(msg, &wrapper); err != nil {
				zap.L().Error(
					"解析消息失败",
					zap.String("client_ip", clientIP),
					zap.Error(err),
				)

				pushResp(respCh, WrapErrResponse("无效的请求格式"))

				continue
			}

			handleRequest(sess, wrapper, respCh)
		}

		// 连接断开，尽力而为地把玩家移出房间
		// 没写成也无妨，残留玩家由房主请出或随房间过期
		zap.L().Info(
			"客户端连接断开，执行兜底退出",
			zap.String("client_ip", clientIP),
		)

		sess.Depart()

		close(writeQuit)
		<-pumpDone
	}
}

// handleRequest 把一帧请求派发到会话上
// 改动成功不单独回执，订阅推送的 RoomUpdated 就是确认
func handleRequest(sess *service.Session, wrapper RequestWrapper, respCh chan ResponseWrapper) {
	ctx := context.Background()

	var err error

	switch wrapper.ReqType {
	case REQ_JOIN_ROOM:
		// 被请出或房间被删之后，同一条连接可以再次加入
		req := TryUnwrapJoinRoomRequest(wrapper)
		if req == nil {
			pushResp(respCh, WrapErrResponse("无效的请求格式"))
			return
		}

		var doc *room.Room

		doc, err = sess.JoinRoom(ctx, req.RoomID, req.ClientIdentity, req.JoinerName)
		if err == nil {
			pushJoined(sess, doc, respCh)
		}

	case REQ_LEAVE_ROOM:
		err = sess.LeaveRoom(ctx)
		if err == nil {
			pushResp(respCh, WrapResponse(RESP_LEAVE_ROOM, nil))
		}

	case REQ_KICK_PLAYER:
		req := TryUnwrapKickPlayerRequest(wrapper)
		if req == nil {
			pushResp(respCh, WrapErrResponse("无效的请求格式"))
			return
		}

		_, err = sess.KickPlayer(ctx, req.TargetDisplayID)

	case REQ_RENAME:
		req := TryUnwrapRenameRequest(wrapper)
		if req == nil {
			pushResp(respCh, WrapErrResponse("无效的请求格式"))
			return
		}

		_, err = sess.Rename(ctx, req.DisplayName)

	case REQ_ADJUST_ROLE_COUNT:
		req := TryUnwrapAdjustRoleCountRequest(wrapper)
		if req == nil {
			pushResp(respCh, WrapErrResponse("无效的请求格式"))
			return
		}

		_, err = sess.AdjustRoleCount(ctx, req.RoleName, req.Delta)

	case REQ_TOGGLE_ROLE_DISABLED:
		req := TryUnwrapToggleRoleDisabledRequest(wrapper)
		if req == nil {
			pushResp(respCh, WrapErrResponse("无效的请求格式"))
			return
		}

		_, err = sess.ToggleRoleDisabled(ctx, req.RoleName)

	case REQ_ADD_GEM_CATEGORY:
		req := TryUnwrapAddGemCategoryRequest(wrapper)
		if req == nil {
			pushResp(respCh, WrapErrResponse("无效的请求格式"))
			return
		}

		_, err = sess.AddGemCategory(ctx, req.CategoryName)

	case REQ_REMOVE_GEM_CATEGORY:
		req := TryUnwrapRemoveGemCategoryRequest(wrapper)
		if req == nil {
			pushResp(respCh, WrapErrResponse("无效的请求格式"))
			return
		}

		_, err = sess.RemoveGemCategory(ctx, req.CategoryName)

	case REQ_ADJUST_GEM_COUNT:
		req := TryUnwrapAdjustGemCountRequest(wrapper)
		if req == nil {
			pushResp(respCh, WrapErrResponse("无效的请求格式"))
			return
		}

		_, err = sess.AdjustGemCount(ctx, req.CategoryName, req.Delta)

	case REQ_SET_PLAYER_STATUS:
		req := TryUnwrapSetPlayerStatusRequest(wrapper)
		if req == nil {
			pushResp(respCh, WrapErrResponse("无效的请求格式"))
			return
		}

		_, err = sess.SetPlayerStatus(ctx, req.TargetDisplayID, req.Status)

	case REQ_DEAL_ROLES:
		_, err = sess.DealRoles(ctx)

	case REQ_ADVANCE_PHASE:
		_, err = sess.AdvancePhase(ctx)

	case REQ_RESET_TO_LOBBY:
		_, err = sess.ResetToLobby(ctx)

	default:
		pushResp(respCh, WrapErrResponse("未知的请求类型"))
		return
	}

	if err != nil {
		pushResp(respCh, WrapErrResponse(err.Error()))
	}
}

func pushJoined(sess *service.Session, doc *room.Room, respCh chan ResponseWrapper) {
	idx := doc.FindPlayerByIdentity(sess.Identity())
	if idx < 0 {
		pushResp(respCh, WrapErrResponse("加入房间失败"))
		return
	}

	pushResp(respCh, WrapResponse(RESP_JOIN_ROOM, JoinRoomResponse{
		Room:   *doc,
		Joiner: doc.Players[idx],
	}))
}

func pushResp(respCh chan<- ResponseWrapper, resp ResponseWrapper) {
	select {
	case respCh <- resp:
	default:
		zap.L().Warn(
			"响应通道已满，丢弃一条响应",
			zap.String("resp_type", resp.RespType),
		)
	}
}
