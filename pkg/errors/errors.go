package errors

import "errors"

// ErrStaleState 条件更新未命中：记录状态已被其他操作修改
// 仓储层在 "WHERE status = ?" 之类的状态迁移更新影响 0 行时返回
var ErrStaleState = errors.New("数据已被其他操作修改，请刷新后重试")
