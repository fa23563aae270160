// Package storage 照片上传的本地磁盘存储
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrInvalidCategory = errors.New("无效的上传分类")
	ErrUnsupportedType = errors.New("不支持的文件类型")
	ErrTooLarge        = errors.New("文件过大")
)

var categoryPattern = regexp.MustCompile(`^[a-z0-9_-]{1,32}$`)

// 允许的图片扩展名
var allowedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".heic": true,
}

// Local 本地目录存储，返回的 URL = publicURL/<category>/<uuid>.<ext>
type Local struct {
	dir       string
	publicURL string
	maxBytes  int64
}

// NewLocal 创建本地存储，dir 不存在时自动创建
func NewLocal(dir, publicURL string, maxBytes int64) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建上传目录失败: %w", err)
	}
	return &Local{dir: dir, publicURL: strings.TrimRight(publicURL, "/"), maxBytes: maxBytes}, nil
}

// Dir 返回存储根目录（用于静态文件服务）
func (s *Local) Dir() string {
	return s.dir
}

// Save 保存文件并返回可访问的 URL
func (s *Local) Save(category, filename string, r io.Reader) (string, error) {
	if !categoryPattern.MatchString(category) {
		return "", ErrInvalidCategory
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExt[ext] {
		return "", ErrUnsupportedType
	}

	if err := os.MkdirAll(filepath.Join(s.dir, category), 0o755); err != nil {
		return "", fmt.Errorf("创建分类目录失败: %w", err)
	}

	name := uuid.NewString() + ext
	dst := filepath.Join(s.dir, category, name)
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("创建文件失败: %w", err)
	}

	// 多读 1 字节用于判断是否超限
	written, err := io.Copy(f, io.LimitReader(r, s.maxBytes+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("写入文件失败: %w", err)
	}
	if written > s.maxBytes {
		_ = os.Remove(dst)
		return "", ErrTooLarge
	}

	return path.Join(s.publicURL, category, name), nil
}
