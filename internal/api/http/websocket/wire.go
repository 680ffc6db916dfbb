package websocket

import (
	"encoding/json"

	"github.com/KachaKSK/werewolf-game/internal/room"

	"go.uber.org/zap"
)

// 请求类型
const (
	REQ_JOIN_ROOM            = "JoinRoom"
	REQ_LEAVE_ROOM           = "LeaveRoom"
	REQ_KICK_PLAYER          = "KickPlayer"
	REQ_RENAME               = "Rename"
	REQ_ADJUST_ROLE_COUNT    = "AdjustRoleCount"
	REQ_TOGGLE_ROLE_DISABLED = "ToggleRoleDisabled"
	REQ_ADD_GEM_CATEGORY     = "AddGemCategory"
	REQ_REMOVE_GEM_CATEGORY  = "RemoveGemCategory"
	REQ_ADJUST_GEM_COUNT     = "AdjustGemCount"
	REQ_DEAL_ROLES           = "DealRoles"
	REQ_SET_PLAYER_STATUS    = "SetPlayerStatus"
	REQ_ADVANCE_PHASE        = "AdvancePhase"
	REQ_RESET_TO_LOBBY       = "ResetToLobby"
)

type RequestWrapper struct {
	ReqType string          `json:"request_type"`
	Data    json.RawMessage `json:"data"`
}

type JoinRoomRequest struct {
	RoomID     string `json:"room_id"`
	JoinerName string `json:"joiner_name"`
	// 浏览器本地持有的持久身份，带着重进不会产生重复玩家
	ClientIdentity string `json:"client_identity,omitempty"`
}

type KickPlayerRequest struct {
	TargetDisplayID string `json:"target_display_id"`
}

type RenameRequest struct {
	DisplayName string `json:"display_name"`
}

type AdjustRoleCountRequest struct {
	RoleName string `json:"role_name"`
	Delta    int    `json:"delta"`
}

type ToggleRoleDisabledRequest struct {
	RoleName string `json:"role_name"`
}

type AddGemCategoryRequest struct {
	CategoryName string `json:"category_name"`
}

type RemoveGemCategoryRequest struct {
	CategoryName string `json:"category_name"`
}

type AdjustGemCountRequest struct {
	CategoryName string `json:"category_name"`
	Delta        int    `json:"delta"`
}

type SetPlayerStatusRequest struct {
	TargetDisplayID string `json:"target_display_id"`
	Status          string `json:"status"`
}

func TryUnwrapJoinRoomRequest(wrapper RequestWrapper) *JoinRoomRequest {
	if wrapper.ReqType != REQ_JOIN_ROOM {
		return nil
	}

	var joinRoomRequest JoinRoomRequest

	err := json.Unmarshal(wrapper.Data, &joinRoomRequest)
	if err != nil {
		zap.L().Error(
			"Failed to unwrap JoinRoomRequest",
			zap.Error(err),
			zap.Any("wrapper", wrapper),
		)
		return nil
	}

	return &joinRoomRequest
}

func TryUnwrapKickPlayerRequest(wrapper RequestWrapper) *KickPlayerRequest {
	if wrapper.ReqType != REQ_KICK_PLAYER {
		return nil
	}

	var kickPlayerRequest KickPlayerRequest

	err := json.Unmarshal(wrapper.Data, &kickPlayerRequest)
	if err != nil {
		zap.L().Error(
			"Failed to unwrap KickPlayerRequest",
			zap.Error(err),
			zap.Any("wrapper", wrapper),
		)
		return nil
	}

	return &kickPlayerRequest
}

func TryUnwrapRenameRequest(wrapper RequestWrapper) *RenameRequest {
	if wrapper.ReqType != REQ_RENAME {
		return nil
	}

	var renameRequest RenameRequest

	err := json.Unmarshal(wrapper.Data, &renameRequest)
	if err != nil {
		zap.L().Error(
			"Failed to unwrap RenameRequest",
			zap.Error(err),
			zap.Any("wrapper", wrapper),
		)
		return nil
	}

	return &renameRequest
}

func TryUnwrapAdjustRoleCountRequest(wrapper RequestWrapper) *AdjustRoleCountRequest {
	if wrapper.ReqType != REQ_ADJUST_ROLE_COUNT {
		return nil
	}

	var adjustRoleCountRequest AdjustRoleCountRequest

	err := json.Unmarshal(wrapper.Data, &adjustRoleCountRequest)
	if err != nil {
		zap.L().Error(
			"Failed to unwrap AdjustRoleCountRequest",
			zap.Error(err),
			zap.Any("wrapper", wrapper),
		)
		return nil
	}

	return &adjustRoleCountRequest
}

func TryUnwrapToggleRoleDisabledRequest(wrapper RequestWrapper) *ToggleRoleDisabledRequest {
	if wrapper.ReqType != REQ_TOGGLE_ROLE_DISABLED {
		return nil
	}

	var toggleRoleDisabledRequest ToggleRoleDisabledRequest

	err := json.Unmarshal(wrapper.Data, &toggleRoleDisabledRequest)
	if err != nil {
		zap.L().Error(
			"Failed to unwrap ToggleRoleDisabledRequest",
			zap.Error(err),
			zap.Any("wrapper", wrapper),
		)
		return nil
	}

	return &toggleRoleDisabledRequest
}

func TryUnwrapAddGemCategoryRequest(wrapper RequestWrapper) *AddGemCategoryRequest {
	if wrapper.ReqType != REQ_ADD_GEM_CATEGORY {
		return nil
	}

	var addGemCategoryRequest AddGemCategoryRequest

	err := json.Unmarshal(wrapper.Data, &addGemCategoryRequest)
	if err != nil {
		zap.L().Error(
			"Failed to unwrap AddGemCategoryRequest",
			zap.Error(err),
			zap.Any("wrapper", wrapper),
		)
		return nil
	}

	return &addGemCategoryRequest
}

func TryUnwrapRemoveGemCategoryRequest(wrapper RequestWrapper) *RemoveGemCategoryRequest {
	if wrapper.ReqType != REQ_REMOVE_GEM_CATEGORY {
		return nil
	}

	var removeGemCategoryRequest RemoveGemCategoryRequest

	err := json.Unmarshal(wrapper.Data, &removeGemCategoryRequest)
	if err != nil {
		zap.L().Error(
			"Failed to unwrap RemoveGemCategoryRequest",
			zap.Error(err),
			zap.Any("wrapper", wrapper),
		)
		return nil
	}

	return &removeGemCategoryRequest
}

func TryUnwrapAdjustGemCountRequest(wrapper RequestWrapper) *AdjustGemCountRequest {
	if wrapper.ReqType != REQ_ADJUST_GEM_COUNT {
		return nil
	}

	var adjustGemCountRequest AdjustGemCountRequest

	err := json.Unmarshal(wrapper.Data, &adjustGemCountRequest)
	if err != nil {
		zap.L().Error(
			"Failed to unwrap AdjustGemCountRequest",
			zap.Error(err),
			zap.Any("wrapper", wrapper),
		)
		return nil
	}

	return &adjustGemCountRequest
}

func TryUnwrapSetPlayerStatusRequest(wrapper RequestWrapper) *SetPlayerStatusRequest {
	if wrapper.ReqType != REQ_SET_PLAYER_STATUS {
		return nil
	}

	var setPlayerStatusRequest SetPlayerStatusRequest

	err := json.Unmarshal(wrapper.Data, &setPlayerStatusRequest)
	if err != nil {
		zap.L().Error(
			"Failed to unwrap SetPlayerStatusRequest",
			zap.Error(err),
			zap.Any("wrapper", wrapper),
		)
		return nil
	}

	return &setPlayerStatusRequest
}

// 响应类型
const (
	RESP_ERROR = "Error"

	RESP_JOIN_ROOM    = "JoinRoom"
	RESP_LEAVE_ROOM   = "LeaveRoom"
	RESP_ROOM_UPDATED = "RoomUpdated"
	RESP_ROOM_REMOVED = "RoomRemoved"
	RESP_KICKED       = "Kicked"
)

type ResponseWrapper struct {
	RespType string `json:"response_type"`
	Data     any    `json:"data"`
	ErrMsg   string `json:"error_message,omitempty"`
}

type JoinRoomResponse struct {
	Room   room.Room   `json:"room"`
	Joiner room.Player `json:"joiner"`
}

type RoomUpdatedResponse struct {
	Room room.Room `json:"room"`
}

func WrapResponse(respType string, data any) ResponseWrapper {
	return ResponseWrapper{
		RespType: respType,
		Data:     data,
	}
}

func WrapErrResponse(errMsg string) ResponseWrapper {
	return ResponseWrapper{
		RespType: RESP_ERROR,
		ErrMsg:   errMsg,
	}
}
