package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalSave(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocal(dir, "/uploads/", 16)
	if err != nil {
		t.Fatalf("NewLocal 失败: %v", err)
	}

	url, err := s.Save("patrol", "IMG_001.JPG", bytes.NewReader([]byte("photo")))
	if err != nil {
		t.Fatalf("Save 失败: %v", err)
	}
	if !strings.HasPrefix(url, "/uploads/patrol/") || !strings.HasSuffix(url, ".jpg") {
		t.Errorf("URL 格式错误: %s", url)
	}

	name := strings.TrimPrefix(url, "/uploads/patrol/")
	data, err := os.ReadFile(filepath.Join(dir, "patrol", name))
	if err != nil {
		t.Fatalf("读取文件失败: %v", err)
	}
	if string(data) != "photo" {
		t.Errorf("文件内容不一致: %q", data)
	}
}

func TestLocalSave_Rejects(t *testing.T) {
	s, _ := NewLocal(t.TempDir(), "/uploads", 4)

	if _, err := s.Save("../etc", "a.jpg", bytes.NewReader(nil)); !errors.Is(err, ErrInvalidCategory) {
		t.Errorf("期望 ErrInvalidCategory，实际 %v", err)
	}
	if _, err := s.Save("patrol", "a.exe", bytes.NewReader(nil)); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("期望 ErrUnsupportedType，实际 %v", err)
	}
	if _, err := s.Save("patrol", "a.png", bytes.NewReader([]byte("12345"))); !errors.Is(err, ErrTooLarge) {
		t.Errorf("期望 ErrTooLarge，实际 %v", err)
	}
}
