package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"villasun/backend/internal/dto"
	"villasun/backend/internal/model"
	"villasun/backend/internal/repository"
)

// ── 员工模块业务错误 ──

var (
	ErrUserSelfRoleChange = errors.New("不能修改自己的角色")
	ErrUserSelfDelete     = errors.New("不能删除自己的账号")
	ErrUserIDRequired     = errors.New("缺少员工 ID")
	ErrEmailExists        = errors.New("邮箱已被使用")
	ErrNoPermission       = errors.New("无权操作")
)

// UserService 员工业务接口
type UserService interface {
	Create(ctx context.Context, admin Actor, req *dto.CreateUserRequest) (*dto.CreateUserResponse, error)
	GetByID(ctx context.Context, id string) (*dto.ProfileResponse, error)
	List(ctx context.Context, req *dto.UserListRequest) ([]dto.ProfileResponse, int64, error)
	Update(ctx context.Context, admin Actor, id string, req *dto.UpdateUserRequest) (*dto.ProfileResponse, error)
	ResetPassword(ctx context.Context, id string) (*dto.ResetPasswordResponse, error)
	// Delete 删除员工及其全部关联数据；调用者必须是管理员档案
	Delete(ctx context.Context, caller Actor, id string) (*dto.DeleteUserResult, error)
	ParseImportFile(reader io.Reader) ([]ImportUserRow, error)
	ImportUsers(ctx context.Context, rows []ImportUserRow) (*dto.ImportUserResponse, error)
}

// ImportUserRow Excel 导入解析后的单行数据
type ImportUserRow struct {
	Row      int
	FullName string
	Email    string
	Role     string
	Language string
}

type userService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, logger *zap.Logger) UserService {
	return &userService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *userService) Create(ctx context.Context, admin Actor, req *dto.CreateUserRequest) (*dto.CreateUserResponse, error) {
	if _, err := s.repo.AuthIdentity.GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询认证身份失败", zap.Error(err))
		return nil, err
	}

	tempPassword, err := generateTempPassword(10)
	if err != nil {
		s.logger.Error("生成临时密码失败", zap.Error(err))
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	profile := newProfile(req.Email, req.FullName, req.Role, req.AvatarColor, req.PreferredLanguage)
	if err := s.createAccount(ctx, profile, hash); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailExists
		}
		s.logger.Error("创建员工失败", zap.String("email", req.Email), zap.Error(err))
		return nil, err
	}

	s.logger.Info("员工已创建",
		zap.String("admin_id", admin.UserID),
		zap.String("user_id", profile.ID),
		zap.String("role", profile.Role),
	)
	return &dto.CreateUserResponse{User: toProfileResponse(profile), TempPassword: tempPassword}, nil
}

func newProfile(email, fullName, role, avatarColor, language string) *model.Profile {
	if role == "" {
		role = model.RoleStaff
	}
	if language == "" {
		language = "de"
	}
	return &model.Profile{
		ID:                uuid.NewString(),
		Email:             strings.ToLower(strings.TrimSpace(email)),
		FullName:          strings.TrimSpace(fullName),
		Role:              role,
		AvatarColor:       avatarColor,
		PreferredLanguage: language,
	}
}

// createAccount 身份与档案同 id，在同一事务内写入
func (s *userService) createAccount(ctx context.Context, profile *model.Profile, hash []byte) error {
	return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.AuthIdentity.Create(ctx, &model.AuthIdentity{
			ID:           profile.ID,
			Email:        profile.Email,
			PasswordHash: string(hash),
		}); err != nil {
			return err
		}
		return tx.Profile.Create(ctx, profile)
	})
}

// ────────────────────── Query ──────────────────────

func (s *userService) GetByID(ctx context.Context, id string) (*dto.ProfileResponse, error) {
	profile, err := s.repo.Profile.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询员工失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	resp := toProfileResponse(profile)
	return &resp, nil
}

func (s *userService) List(ctx context.Context, req *dto.UserListRequest) ([]dto.ProfileResponse, int64, error) {
	profiles, total, err := s.repo.Profile.List(ctx, req.Role, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询员工列表失败", zap.Error(err))
		return nil, 0, err
	}
	list := make([]dto.ProfileResponse, 0, len(profiles))
	for i := range profiles {
		list = append(list, toProfileResponse(&profiles[i]))
	}
	return list, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *userService) Update(ctx context.Context, admin Actor, id string, req *dto.UpdateUserRequest) (*dto.ProfileResponse, error) {
	profile, err := s.repo.Profile.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询员工失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if req.Role != nil && *req.Role != profile.Role {
		if id == admin.UserID {
			return nil, ErrUserSelfRoleChange
		}
		profile.Role = *req.Role
	}
	if req.FullName != nil {
		profile.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.AvatarColor != nil {
		profile.AvatarColor = *req.AvatarColor
	}
	if req.PreferredLanguage != nil {
		profile.PreferredLanguage = *req.PreferredLanguage
	}

	if err := s.repo.Profile.Update(ctx, profile); err != nil {
		s.logger.Error("更新员工失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	resp := toProfileResponse(profile)
	return &resp, nil
}

// ────────────────────── ResetPassword ──────────────────────

func (s *userService) ResetPassword(ctx context.Context, id string) (*dto.ResetPasswordResponse, error) {
	if _, err := s.repo.AuthIdentity.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询认证身份失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	tempPassword, err := generateTempPassword(10)
	if err != nil {
		s.logger.Error("生成临时密码失败", zap.Error(err))
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}
	if err := s.repo.AuthIdentity.UpdatePassword(ctx, id, string(hash)); err != nil {
		s.logger.Error("重置密码失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return &dto.ResetPasswordResponse{TempPassword: tempPassword}, nil
}

// ────────────────────── Delete ──────────────────────

// Delete 删除顺序：关联数据 → 档案（同一事务）→ 认证身份
// 认证身份删除失败（含不存在）只记录告警，整体仍视为成功
func (s *userService) Delete(ctx context.Context, caller Actor, id string) (*dto.DeleteUserResult, error) {
	// 角色以数据库档案为准，不信任 Token 中的声明
	callerProfile, err := s.repo.Profile.GetByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoPermission
		}
		s.logger.Error("查询调用者档案失败", zap.String("caller_id", caller.UserID), zap.Error(err))
		return nil, err
	}
	if !callerProfile.IsAdmin() {
		return nil, ErrNoPermission
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrUserIDRequired
	}
	if id == caller.UserID {
		return nil, ErrUserSelfDelete
	}

	result := &dto.DeleteUserResult{DeletedUserID: id}
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		steps, err := tx.UserData.DeleteUserData(ctx, id)
		if err != nil {
			return err
		}
		for _, step := range steps {
			result.RowsCleaned += step.Affected
		}

		n, err := tx.Profile.Delete(ctx, id)
		if err != nil {
			return fmt.Errorf("删除档案失败: %w", err)
		}
		result.ProfileDeleted = n > 0

		// 被删员工的 id 只记录在 details 中，target_user_id 外键此时已无对象
		return logAdminAction(ctx, tx, caller.UserID, model.AdminActionDeleteUser, nil, model.JSONMap{
			"deleted_user_id": id,
			"profile_deleted": result.ProfileDeleted,
			"rows_cleaned":    result.RowsCleaned,
		})
	})
	if err != nil {
		s.logger.Error("删除员工数据失败", zap.String("user_id", id), zap.Error(err))
		return nil, err
	}

	if err := s.repo.AuthIdentity.Delete(ctx, id); err != nil {
		s.logger.Warn("删除认证身份失败，员工数据已清理",
			zap.String("user_id", id),
			zap.Error(err),
		)
	} else {
		result.IdentityDeleted = true
	}

	s.logger.Info("员工已删除",
		zap.String("admin_id", caller.UserID),
		zap.String("user_id", id),
		zap.Int64("rows_cleaned", result.RowsCleaned),
	)
	return result, nil
}

// ────────────────────── ParseImportFile ──────────────────────

const maxImportRows = 500

var (
	ErrImportNoData      = errors.New("Excel文件无数据行（第一行为表头）")
	ErrImportTooManyRows = fmt.Errorf("数据行数超过上限 %d 行", maxImportRows)
	ErrImportBadHeader   = errors.New("Excel表头缺少必要列（姓名/邮箱）")
)

// ParseImportFile 解析导入 Excel 文件，返回解析后的行数据
func (s *userService) ParseImportFile(reader io.Reader) ([]ImportUserRow, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("无法解析Excel文件: %w", err)
	}
	defer f.Close()

	excelRows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}
	if len(excelRows) < 2 {
		return nil, ErrImportNoData
	}

	// 解析表头（支持灵活列序）
	colIndex := parseHeaderIndex(excelRows[0])
	if colIndex["name"] < 0 || colIndex["email"] < 0 {
		return nil, ErrImportBadHeader
	}

	cell := func(row []string, key string) string {
		if idx := colIndex[key]; idx >= 0 && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	var rows []ImportUserRow
	for i := 1; i < len(excelRows); i++ {
		item := ImportUserRow{
			Row:      i + 1,
			FullName: cell(excelRows[i], "name"),
			Email:    cell(excelRows[i], "email"),
			Role:     strings.ToLower(cell(excelRows[i], "role")),
			Language: strings.ToLower(cell(excelRows[i], "language")),
		}
		// 跳过全空行
		if item.FullName == "" && item.Email == "" {
			continue
		}
		rows = append(rows, item)
	}

	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if len(rows) > maxImportRows {
		return nil, ErrImportTooManyRows
	}
	return rows, nil
}

// parseHeaderIndex 解析 Excel 表头，返回列名 -> 列索引映射
func parseHeaderIndex(header []string) map[string]int {
	idx := map[string]int{"name": -1, "email": -1, "role": -1, "language": -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "姓名", "name", "full_name":
			idx["name"] = i
		case "邮箱", "email", "e-mail":
			idx["email"] = i
		case "角色", "role":
			idx["role"] = i
		case "语言", "language", "sprache":
			idx["language"] = i
		}
	}
	return idx
}

// ────────────────────── ImportUsers ──────────────────────

// ImportUsers 逐行校验后逐个创建账号；单行失败不影响其他行
func (s *userService) ImportUsers(ctx context.Context, rows []ImportUserRow) (*dto.ImportUserResponse, error) {
	resp := &dto.ImportUserResponse{Total: len(rows)}
	fail := func(row int, reason string) {
		resp.Failed++
		resp.Errors = append(resp.Errors, dto.ImportUserError{Row: row, Reason: reason})
	}

	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		if row.FullName == "" || row.Email == "" {
			fail(row.Row, "必填字段为空")
			continue
		}
		if _, err := mail.ParseAddress(row.Email); err != nil {
			fail(row.Row, fmt.Sprintf("邮箱格式错误: %s", row.Email))
			continue
		}
		if row.Role != "" && row.Role != model.RoleStaff && row.Role != model.RoleAdmin {
			fail(row.Row, fmt.Sprintf("未知角色: %s", row.Role))
			continue
		}
		email := strings.ToLower(row.Email)
		if seen[email] {
			fail(row.Row, fmt.Sprintf("文件内邮箱重复: %s", row.Email))
			continue
		}
		seen[email] = true

		if _, err := s.repo.AuthIdentity.GetByEmail(ctx, email); err == nil {
			fail(row.Row, fmt.Sprintf("邮箱已存在: %s", row.Email))
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询认证身份失败", zap.Int("row", row.Row), zap.Error(err))
			return nil, err
		}

		tempPassword, err := generateTempPassword(10)
		if err != nil {
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
		if err != nil {
			fail(row.Row, "密码哈希失败")
			continue
		}

		profile := newProfile(email, row.FullName, row.Role, "", row.Language)
		if err := s.createAccount(ctx, profile, hash); err != nil {
			s.logger.Warn("导入员工写入失败", zap.Int("row", row.Row), zap.Error(err))
			fail(row.Row, "写入数据库失败")
			continue
		}
		resp.Success++
		resp.Created = append(resp.Created, dto.ImportedUser{
			Row:          row.Row,
			UserID:       profile.ID,
			Email:        profile.Email,
			TempPassword: tempPassword,
		})
	}

	s.logger.Info("员工导入完成",
		zap.Int("total", resp.Total),
		zap.Int("success", resp.Success),
		zap.Int("failed", resp.Failed),
		zap.Time("at", time.Now()),
	)
	return resp, nil
}

// generateTempPassword 生成指定长度的临时密码（保证包含字母和数字）
func generateTempPassword(length int) (string, error) {
	const letters = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"
	const digits = "23456789"
	const all = letters + digits

	if length < 4 {
		length = 8
	}
	result := make([]byte, length)

	pick := func(set string) (byte, error) {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
		if err != nil {
			return 0, err
		}
		return set[n.Int64()], nil
	}

	var err error
	// 保证至少1个字母+1个数字
	if result[0], err = pick(letters); err != nil {
		return "", err
	}
	if result[1], err = pick(digits); err != nil {
		return "", err
	}
	for i := 2; i < length; i++ {
		if result[i], err = pick(all); err != nil {
			return "", err
		}
	}

	// Fisher-Yates 洗牌
	for i := length - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		result[i], result[j.Int64()] = result[j.Int64()], result[i]
	}
	return string(result), nil
}
