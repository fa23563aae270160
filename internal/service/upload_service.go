package service

import (
	"context"
	"io"

	"go.uber.org/zap"

	"villasun/backend/internal/dto"
)

// PhotoStorage 照片存储（本地实现见 pkg/storage）
type PhotoStorage interface {
	Save(category, filename string, r io.Reader) (string, error)
}

// UploadService 照片上传
type UploadService interface {
	Upload(ctx context.Context, actor Actor, category, filename string, r io.Reader) (*dto.UploadResponse, error)
}

type uploadService struct {
	store  PhotoStorage
	logger *zap.Logger
}

// NewUploadService 创建 UploadService 实例
func NewUploadService(store PhotoStorage, logger *zap.Logger) UploadService {
	return &uploadService{store: store, logger: logger}
}

func (s *uploadService) Upload(ctx context.Context, actor Actor, category, filename string, r io.Reader) (*dto.UploadResponse, error) {
	if category == "" {
		category = "patrol"
	}
	url, err := s.store.Save(category, filename, r)
	if err != nil {
		s.logger.Warn("保存上传文件失败",
			zap.String("user_id", actor.UserID),
			zap.String("category", category),
			zap.Error(err),
		)
		return nil, err
	}
	s.logger.Info("文件已上传", zap.String("user_id", actor.UserID), zap.String("url", url))
	return &dto.UploadResponse{URL: url}, nil
}
