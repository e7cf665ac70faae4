package orm

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrRecordNotFound key 下没有任何字段
var ErrRecordNotFound = errors.New("record not found")

// ConfigurationError schema 或索引声明不合法，在 Define 时返回
type ConfigurationError struct {
	Entity string
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid definition of %s: %s", e.Entity, e.Reason)
	}
	return fmt.Sprintf("invalid definition of %s.%s: %s", e.Entity, e.Field, e.Reason)
}

// ValidationError 字段校验失败，此时不会写入任何字段
type ValidationError struct {
	Field    string
	Expected string
	Actual   string
	Err      error
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("field level validation failed for: %s", e.Field)
	if fix := e.Fix(); fix != "" {
		msg += ". " + fix
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Fix 描述期望的类型与实际提供的类型
func (e *ValidationError) Fix() string {
	if e.Expected == "" {
		return ""
	}
	return fmt.Sprintf("%s must be of type %s: a %s value was provided", e.Field, e.Expected, e.Actual)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// UnknownFieldError 记录中的字段不在 schema 中，errors.As 可以按 *ValidationError 匹配
type UnknownFieldError struct {
	ValidationError
}

func newUnknownFieldError(field string) *UnknownFieldError {
	return &UnknownFieldError{ValidationError{Field: field}}
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("field level validation failed for: %s. Unknown field", e.Field)
}

func (e *UnknownFieldError) Unwrap() error {
	return &e.ValidationError
}

// IndexProvisioningError 删除或创建索引失败，Define 只记录日志不返回
type IndexProvisioningError struct {
	Index string
	Op    string
	Err   error
}

func (e *IndexProvisioningError) Error() string {
	return fmt.Sprintf("%s index %s failed: %v", e.Op, e.Index, e.Err)
}

func (e *IndexProvisioningError) Unwrap() error {
	return e.Err
}
