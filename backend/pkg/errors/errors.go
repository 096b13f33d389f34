package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrValidation 所有 ValidationError 均满足 errors.Is(err, ErrValidation)
var ErrValidation = errors.New("参数校验失败")

// FieldError 单个字段的校验失败
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationError 聚合多个字段错误，一次性返回给调用方
type ValidationError struct {
	merr *multierror.Error
}

// Add 追加字段错误
func (v *ValidationError) Add(field, format string, args ...interface{}) {
	v.merr = multierror.Append(v.merr, &FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Fields 返回全部字段错误
func (v *ValidationError) Fields() []FieldError {
	if v == nil || v.merr == nil {
		return nil
	}
	out := make([]FieldError, 0, len(v.merr.Errors))
	for _, err := range v.merr.Errors {
		var fe *FieldError
		if errors.As(err, &fe) {
			out = append(out, *fe)
		}
	}
	return out
}

// HasErrors 是否存在字段错误
func (v *ValidationError) HasErrors() bool {
	return v != nil && v.merr != nil && len(v.merr.Errors) > 0
}

// ErrOrNil 无错误时返回 nil，便于 `return v.ErrOrNil()`
func (v *ValidationError) ErrOrNil() error {
	if !v.HasErrors() {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	fields := v.Fields()
	parts := make([]string, 0, len(fields))
	for _, fe := range fields {
		parts = append(parts, fe.Error())
	}
	return "参数校验失败: " + strings.Join(parts, "; ")
}

// Is 使 errors.Is(err, ErrValidation) 成立
func (v *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidation 构造单字段校验错误
func NewValidation(field, format string, args ...interface{}) *ValidationError {
	v := &ValidationError{}
	v.Add(field, format, args...)
	return v
}

// AsValidation 取出错误链中的 ValidationError
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
