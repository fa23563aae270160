package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"villasun/backend/internal/model"
)

// AuthIdentityRepository 认证身份数据访问接口
type AuthIdentityRepository interface {
	Create(ctx context.Context, identity *model.AuthIdentity) error
	GetByID(ctx context.Context, id string) (*model.AuthIdentity, error)
	GetByEmail(ctx context.Context, email string) (*model.AuthIdentity, error)
	UpdatePassword(ctx context.Context, id, hash string) error
	TouchSignIn(ctx context.Context, id string, at time.Time) error
	// Delete 删除身份；不存在时返回 gorm.ErrRecordNotFound
	Delete(ctx context.Context, id string) error
}

// ProfileRepository 员工档案数据访问接口
type ProfileRepository interface {
	Create(ctx context.Context, profile *model.Profile) error
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	GetByEmail(ctx context.Context, email string) (*model.Profile, error)
	List(ctx context.Context, role string, offset, limit int) ([]model.Profile, int64, error)
	ListByIDs(ctx context.Context, ids []string) ([]model.Profile, error)
	Update(ctx context.Context, profile *model.Profile) error
	AddPoints(ctx context.Context, id string, delta int) error
	ResetAllPoints(ctx context.Context) (int64, error)
	Leaderboard(ctx context.Context, limit int) ([]model.Profile, error)
	// Delete 删除档案，返回影响行数（不存在时为 0，不视为错误）
	Delete(ctx context.Context, id string) (int64, error)
}

// ── AuthIdentity Repository 实现 ──

type authIdentityRepo struct {
	db *gorm.DB
}

// NewAuthIdentityRepo 创建 AuthIdentityRepository 实例
func NewAuthIdentityRepo(db *gorm.DB) AuthIdentityRepository {
	return &authIdentityRepo{db: db}
}

func (r *authIdentityRepo) Create(ctx context.Context, identity *model.AuthIdentity) error {
	return r.db.WithContext(ctx).Create(identity).Error
}

func (r *authIdentityRepo) GetByID(ctx context.Context, id string) (*model.AuthIdentity, error) {
	var identity model.AuthIdentity
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&identity).Error; err != nil {
		return nil, err
	}
	return &identity, nil
}

func (r *authIdentityRepo) GetByEmail(ctx context.Context, email string) (*model.AuthIdentity, error) {
	var identity model.AuthIdentity
	err := r.db.WithContext(ctx).
		Where("lower(email) = lower(?)", email).
		First(&identity).Error
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

func (r *authIdentityRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	return r.db.WithContext(ctx).
		Model(&model.AuthIdentity{}).
		Where("id = ?", id).
		Update("password_hash", hash).Error
}

func (r *authIdentityRepo) TouchSignIn(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.AuthIdentity{}).
		Where("id = ?", id).
		Update("last_sign_in_at", at).Error
}

func (r *authIdentityRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.AuthIdentity{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ── Profile Repository 实现 ──

type profileRepo struct {
	db *gorm.DB
}

// NewProfileRepo 创建 ProfileRepository 实例
func NewProfileRepo(db *gorm.DB) ProfileRepository {
	return &profileRepo{db: db}
}

func (r *profileRepo) Create(ctx context.Context, profile *model.Profile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *profileRepo) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	var profile model.Profile
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepo) GetByEmail(ctx context.Context, email string) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).
		Where("lower(email) = lower(?)", email).
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepo) List(ctx context.Context, role string, offset, limit int) ([]model.Profile, int64, error) {
	var profiles []model.Profile
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Profile{})
	if role != "" {
		db = db.Where("role = ?", role)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).
		Order("full_name ASC").
		Find(&profiles).Error; err != nil {
		return nil, 0, err
	}

	return profiles, total, nil
}

func (r *profileRepo) ListByIDs(ctx context.Context, ids []string) ([]model.Profile, error) {
	var profiles []model.Profile
	if len(ids) == 0 {
		return profiles, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error
	return profiles, err
}

func (r *profileRepo) Update(ctx context.Context, profile *model.Profile) error {
	return r.db.WithContext(ctx).
		Model(profile).
		Updates(map[string]interface{}{
			"full_name":          profile.FullName,
			"role":               profile.Role,
			"avatar_color":       profile.AvatarColor,
			"preferred_language": profile.PreferredLanguage,
		}).Error
}

func (r *profileRepo) AddPoints(ctx context.Context, id string, delta int) error {
	result := r.db.WithContext(ctx).
		Model(&model.Profile{}).
		Where("id = ?", id).
		Update("total_points", gorm.Expr("total_points + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *profileRepo) ResetAllPoints(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Profile{}).
		Where("total_points <> 0").
		Update("total_points", 0)
	return result.RowsAffected, result.Error
}

func (r *profileRepo) Leaderboard(ctx context.Context, limit int) ([]model.Profile, error) {
	var profiles []model.Profile
	err := r.db.WithContext(ctx).
		Where("role = ?", model.RoleStaff).
		Order("total_points DESC, full_name ASC").
		Limit(limit).
		Find(&profiles).Error
	return profiles, err
}

func (r *profileRepo) Delete(ctx context.Context, id string) (int64, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Profile{})
	return result.RowsAffected, result.Error
}
