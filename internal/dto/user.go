package dto

// ── 员工管理 DTO ──

// UserListRequest 员工列表查询参数
type UserListRequest struct {
	PaginationRequest
	Role string `form:"role" binding:"omitempty,oneof=staff admin"`
}

// CreateUserRequest 创建员工请求
type CreateUserRequest struct {
	Email             string `json:"email"              binding:"required,email"`
	FullName          string `json:"full_name"          binding:"required,min=2,max=100"`
	Role              string `json:"role"               binding:"required,oneof=staff admin"`
	AvatarColor       string `json:"avatar_color"       binding:"omitempty,max=20"`
	PreferredLanguage string `json:"preferred_language" binding:"omitempty,oneof=de en km"`
}

// UpdateUserRequest 更新员工信息请求
type UpdateUserRequest struct {
	FullName          *string `json:"full_name"          binding:"omitempty,min=2,max=100"`
	Role              *string `json:"role"               binding:"omitempty,oneof=staff admin"`
	AvatarColor       *string `json:"avatar_color"       binding:"omitempty,max=20"`
	PreferredLanguage *string `json:"preferred_language" binding:"omitempty,oneof=de en km"`
}

// DeleteUserFunctionRequest delete-user 函数请求体（字段名沿用前端约定）
type DeleteUserFunctionRequest struct {
	UserID string `json:"userId"`
}

// ImportUserError 导入失败行
type ImportUserError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportedUser 导入成功行（临时密码只返回这一次）
type ImportedUser struct {
	Row          int    `json:"row"`
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	TempPassword string `json:"temp_password"`
}

// ImportUserResponse 批量导入结果
type ImportUserResponse struct {
	Total   int               `json:"total"`
	Success int               `json:"success"`
	Failed  int               `json:"failed"`
	Errors  []ImportUserError `json:"errors,omitempty"`
	Created []ImportedUser    `json:"created,omitempty"`
}

// ResetPasswordResponse 重置密码响应
type ResetPasswordResponse struct {
	TempPassword string `json:"temp_password"`
}
