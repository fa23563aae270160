package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"villasun/backend/internal/api/middleware"
	"villasun/backend/internal/dto"
	"villasun/backend/internal/service"
	"villasun/backend/pkg/jwt"
	"villasun/backend/pkg/response"
)

// UserHandler 员工模块 HTTP 处理器
type UserHandler struct {
	userSvc service.UserService
	jwtMgr  *jwt.Manager
	checker middleware.TokenChecker
	logger  *zap.Logger
}

// NewUserHandler 创建 UserHandler
// jwtMgr 与 checker 供 delete-user 函数自行校验会话
func NewUserHandler(userSvc service.UserService, jwtMgr *jwt.Manager, checker middleware.TokenChecker, logger *zap.Logger) *UserHandler {
	return &UserHandler{userSvc: userSvc, jwtMgr: jwtMgr, checker: checker, logger: logger}
}

// ListUsers 员工列表（管理员）
// GET /api/v1/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	var req dto.UserListRequest
	if !bindQuery(c, &req, 10001) {
		return
	}

	users, total, err := h.userSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OKPage(c, users, total, req.GetPage(), req.GetPageSize())
}

// GetUser 员工详情（管理员）
// GET /api/v1/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleUserError(c, err)
		return
	}
	response.OK(c, user)
}

// CreateUser 创建员工（管理员）
// POST /api/v1/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req dto.CreateUserRequest
	if !bindJSON(c, &req, 10001) {
		return
	}
	admin, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.userSvc.Create(c.Request.Context(), admin, &req)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.Created(c, result)
}

// UpdateUser 更新员工信息（管理员）
// PUT /api/v1/users/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req dto.UpdateUserRequest
	if !bindJSON(c, &req, 10001) {
		return
	}
	admin, ok := MustGetActor(c)
	if !ok {
		return
	}

	user, err := h.userSvc.Update(c.Request.Context(), admin, c.Param("id"), &req)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, user)
}

// ResetPassword 重置员工密码（管理员）
// POST /api/v1/users/:id/reset-password
func (h *UserHandler) ResetPassword(c *gin.Context) {
	result, err := h.userSvc.ResetPassword(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleUserError(c, err)
		return
	}
	response.OK(c, result)
}

// DeleteUser 删除员工及其全部数据（管理员）
// DELETE /api/v1/users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	admin, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.userSvc.Delete(c.Request.Context(), admin, c.Param("id"))
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, result)
}

// ImportUsers 从 Excel 批量导入员工（管理员）
// POST /api/v1/users/import
// multipart/form-data, field="file"
func (h *UserHandler) ImportUsers(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.PayloadTooLarge(c)
			return
		}
		response.BadRequest(c, 12010, "请上传 Excel 文件")
		return
	}
	defer file.Close()

	rows, err := h.userSvc.ParseImportFile(file)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	result, err := h.userSvc.ImportUsers(c.Request.Context(), rows)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.Created(c, result)
}

// DeleteUserFunction delete-user 函数入口
// POST /functions/v1/delete-user
// 响应格式沿用前端约定：成功 {success, message, deletedUserId}，失败 400 {success:false, error}
func (h *UserHandler) DeleteUserFunction(c *gin.Context) {
	token, err := middleware.BearerToken(c)
	if errors.Is(err, middleware.ErrMissingToken) {
		h.functionError(c, "Missing authorization header")
		return
	}
	if err != nil {
		h.functionError(c, "Unauthorized")
		return
	}

	claims, err := middleware.ParseSession(c.Request.Context(), token, h.jwtMgr, h.checker, h.logger)
	if err != nil {
		h.functionError(c, "Unauthorized")
		return
	}

	// 请求体解析错误在权限校验之后才返回，非管理员一律得到 Admin only
	var req dto.DeleteUserFunctionRequest
	bindErr := c.ShouldBindJSON(&req)
	if errors.Is(bindErr, io.EOF) {
		bindErr = nil
	}

	caller := service.Actor{UserID: claims.UserID, Role: claims.Role}
	result, err := h.userSvc.Delete(c.Request.Context(), caller, req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoPermission):
			h.functionError(c, "Unauthorized: Admin only")
		case errors.Is(err, service.ErrUserIDRequired) && bindErr != nil:
			h.functionError(c, "Invalid request body: "+bindErr.Error())
		case errors.Is(err, service.ErrUserIDRequired):
			h.functionError(c, "userId is required")
		case errors.Is(err, service.ErrUserSelfDelete):
			h.functionError(c, "Cannot delete your own account")
		default:
			h.functionError(c, err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, dto.FunctionResponse{
		Success:       true,
		Message:       "User deleted successfully",
		DeletedUserID: result.DeletedUserID,
	})
}

func (h *UserHandler) functionError(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, dto.FunctionResponse{Success: false, Error: msg})
}

func (h *UserHandler) handleUserError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEmailExists):
		response.Conflict(c, 12001, "邮箱已被使用")
	case errors.Is(err, service.ErrUserSelfRoleChange):
		response.BadRequest(c, 12003, "不能修改自己的角色")
	case errors.Is(err, service.ErrUserSelfDelete):
		response.BadRequest(c, 12004, "不能删除自己的账号")
	case errors.Is(err, service.ErrUserIDRequired):
		response.BadRequest(c, 12005, "缺少员工 ID")
	case errors.Is(err, service.ErrImportNoData),
		errors.Is(err, service.ErrImportTooManyRows),
		errors.Is(err, service.ErrImportBadHeader):
		response.BadRequest(c, 12011, err.Error())
	default:
		handleCommonError(c, err)
	}
}
