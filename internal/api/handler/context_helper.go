package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"villasun/backend/internal/api/middleware"
	"villasun/backend/internal/service"
	pkgerrors "villasun/backend/pkg/errors"
	"villasun/backend/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	s := c.GetString(middleware.CtxUserID)
	if s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetActor 当前调用者（user_id + role）
func MustGetActor(c *gin.Context) (service.Actor, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return service.Actor{}, false
	}
	role := c.GetString(middleware.CtxRole)
	if role == "" {
		response.Unauthorized(c, 10002, "未认证")
		return service.Actor{}, false
	}
	return service.Actor{UserID: userID, Role: role}, true
}

// tokenSession 当前 Access Token 的 jti 与过期时间（登出时吊销）
func tokenSession(c *gin.Context) (string, time.Time) {
	jti := c.GetString(middleware.CtxTokenJTI)
	exp, _ := c.Get(middleware.CtxTokenExp)
	t, _ := exp.(time.Time)
	return jti, t
}

// bindJSON 绑定并校验 JSON；请求体超限返回 413，其它错误返回 400
func bindJSON(c *gin.Context, obj interface{}, code int) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		writeBindError(c, err, code)
		return false
	}
	return true
}

// bindQuery 绑定并校验查询参数
func bindQuery(c *gin.Context, obj interface{}, code int) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		writeBindError(c, err, code)
		return false
	}
	return true
}

func writeBindError(c *gin.Context, err error, code int) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.PayloadTooLarge(c)
		return
	}
	response.ErrorWithDetails(c, http.StatusBadRequest, code, "参数校验失败", err.Error())
}

// handleCommonError 各模块共用的错误映射，未知错误返回 500
func handleCommonError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrStaleState):
		response.Conflict(c, 10006, "数据已被其他操作修改，请刷新后重试")
	case errors.Is(err, service.ErrNoPermission):
		response.Forbidden(c, 10003, "无权操作")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 12002, "员工不存在")
	case errors.Is(err, service.ErrInvalidGoalPeriod):
		response.BadRequest(c, 10001, "无效的日期或月份")
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}
