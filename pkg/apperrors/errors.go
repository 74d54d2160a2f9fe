// Package apperrors 定义服务层与HTTP层共享的错误分类
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 错误类别
type Kind string

const (
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	KindForbidden       Kind = "FORBIDDEN"
	KindNotFound        Kind = "NOT_FOUND"
	KindValidation      Kind = "VALIDATION_ERROR"
	KindDomain          Kind = "DOMAIN_ERROR"
	KindInvalidPage     Kind = "INVALID_PAGE"
	KindConflict        Kind = "CONFLICT"
	KindInternal        Kind = "INTERNAL_SERVER_ERROR"
)

// Error 带类别的应用错误
type Error struct {
	Kind    Kind
	Message string
	Field   string // 仅 Validation 使用
	Err     error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Unauthenticated 401
func Unauthenticated(message string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: message}
}

// Forbidden 403，只应由权限网关产生
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// NotFound 404，resource 为资源名，例如 "organization"
func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Message: resource + " not found"}
}

// Validation 400，字段级校验失败
func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// Domain 400，业务规则冲突
func Domain(message string) *Error {
	return &Error{Kind: KindDomain, Message: message}
}

// InvalidPage 400，请求页超出范围
func InvalidPage(page, totalPages int) *Error {
	return &Error{Kind: KindInvalidPage, Message: fmt.Sprintf("page %d is out of range (total pages: %d)", page, totalPages)}
}

// Conflict 409，存储层唯一约束冲突
func Conflict(message string, err error) *Error {
	return &Error{Kind: KindConflict, Message: message, Err: err}
}

// KindOf 返回错误链中第一个 *Error 的类别，非应用错误返回 KindInternal
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is 判断错误是否属于指定类别
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus 类别对应的HTTP状态码
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindDomain, KindInvalidPage:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
