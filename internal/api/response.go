package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"sudooom.im.mahjong/internal/game/mahjong/core"
	"sudooom.im.mahjong/pkg/proto"
)

const (
	CodeInvalidParams = "INVALID_PARAMS"
	CodeServerError   = "INTERNAL"
)

// Response 统一响应结构
type Response struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// Success 成功响应
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Code:    proto.CodeOK,
		Message: "success",
		Data:    data,
	})
}

// ErrorWithMsg 自定义错误消息
func ErrorWithMsg(c *gin.Context, code, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

// ErrorFromGameError 按 GameError 的代码响应, 其他错误视为内部错误
func ErrorFromGameError(c *gin.Context, err error) {
	var gameErr *core.GameError
	if errors.As(err, &gameErr) {
		ErrorWithMsg(c, gameErr.Code, gameErr.Message)
		return
	}
	ErrorWithMsg(c, CodeServerError, "服务器内部错误")
}
