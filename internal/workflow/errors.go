package workflow

import (
	"errors"
	"fmt"
)

// 这些错误是引擎对外的全部失败形态，调用方用 errors.Is/As 区分后
// 渲染各自的提示信息，引擎本身不做重试
var (
	ErrNotFound          = errors.New("申请不存在")
	ErrConflict          = errors.New("申请已被他人处理")
	ErrPermissionDenied  = errors.New("无权执行该操作")
	ErrInvalidTransition = errors.New("当前状态不允许该操作")
)

// ValidationError 表示提交的申请缺少或带有与类型矛盾的字段
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(field string, format string, args ...any) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}
