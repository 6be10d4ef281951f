// Package errors 定义排班服务的错误码和 AppError，错误码决定 HTTP 状态
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code 错误码
type Code string

const (
	// 通用错误码
	CodeUnknown        Code = "UNKNOWN"
	CodeInternal       Code = "INTERNAL_ERROR"
	CodeInvalidInput   Code = "INVALID_INPUT"
	CodeNotFound       Code = "NOT_FOUND"
	CodeTimeout        Code = "TIMEOUT"
	CodeRateLimited    Code = "RATE_LIMITED"
	CodeValidationFail Code = "VALIDATION_FAILED"

	// 构建初始排班失败，两者都不会产生部分结果
	CodeNoFeasibleSolution Code = "NO_FEASIBLE_SOLUTION"
	CodeCapacityExceeded   Code = "CAPACITY_EXCEEDED"

	// 输入数据
	CodeDuplicateID   Code = "DUPLICATE_ID"
	CodeConfigInvalid Code = "CONFIG_INVALID"

	// 外部存储
	CodeDatabaseError Code = "DATABASE_ERROR"
	CodeCacheError    Code = "CACHE_ERROR"
)

// AppError 应用错误
type AppError struct {
	Code       Code                   `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	HTTPStatus int                    `json:"-"`
	Cause      error                  `json:"-"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails 添加详细信息
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithField 附加结构化字段（person_id、line_id 等），随错误响应返回
func (e *AppError) WithField(key string, value interface{}) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	e.Fields[key] = value
	return e
}

// New 创建新错误
func New(code Code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code Code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// codeToHTTPStatus 错误码转HTTP状态码
func codeToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeValidationFail, CodeDuplicateID, CodeConfigInvalid:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeNoFeasibleSolution, CodeCapacityExceeded:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Is 检查错误是否为特定类型
func Is(err error, code Code) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode 获取错误码
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetHTTPStatus 获取HTTP状态码
func GetHTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// InvalidInput 请求字段无效
func InvalidInput(field, reason string) *AppError {
	return New(CodeInvalidInput, fmt.Sprintf("字段 '%s' 无效: %s", field, reason)).WithField("field", field)
}

// NotFound 创建资源不存在错误
func NotFound(resource, id string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s '%s' 不存在", resource, id))
}

// Unplaceable 人员无法放入任何线路
func Unplaceable(personID string) *AppError {
	return New(CodeNoFeasibleSolution,
		fmt.Sprintf("No valid line for %s: coworker constraints cannot be satisfied", personID)).
		WithField("person_id", personID)
}

// CapacityExceeded 线路锁定人数超过上限
func CapacityExceeded(lineID, staffed, maxHeadcount int) *AppError {
	return New(CodeCapacityExceeded,
		fmt.Sprintf("Line %d has %d staff, expected max %d", lineID, staffed, maxHeadcount)).
		WithField("line_id", lineID).
		WithField("staffed", staffed).
		WithField("max_headcount", maxHeadcount)
}

// DuplicateID 创建ID重复错误
func DuplicateID(resource, id string) *AppError {
	return New(CodeDuplicateID, fmt.Sprintf("%s ID '%s' 重复", resource, id)).WithField("id", id)
}

// InvalidConfig 创建配置无效错误
func InvalidConfig(reason string) *AppError {
	return New(CodeConfigInvalid, "配置无效").WithDetails(reason)
}

// ValidationErrors 验证错误集合
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// ValidationError 单个验证错误
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error 实现 error 接口
func (ve *ValidationErrors) Error() string {
	if len(ve.Errors) == 0 {
		return "验证失败"
	}
	return fmt.Sprintf("验证失败: %s - %s", ve.Errors[0].Field, ve.Errors[0].Message)
}

// Add 添加验证错误
func (ve *ValidationErrors) Add(field, message string) {
	ve.Errors = append(ve.Errors, ValidationError{Field: field, Message: message})
}

// HasErrors 检查是否有错误
func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Errors) > 0
}

// ToAppError 转换为 AppError
func (ve *ValidationErrors) ToAppError() *AppError {
	err := New(CodeValidationFail, "验证失败")
	err.Fields = make(map[string]interface{})
	for _, e := range ve.Errors {
		err.Fields[e.Field] = e.Message
	}
	return err
}
