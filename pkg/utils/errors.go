package utils

import (
	"errors"
	"fmt"
	"net/http"

	"ddash-backend/pkg/apperrors"
)

// WriteError 把服务层错误映射为统一错误响应；未知错误只记录日志，不向客户端暴露细节
func WriteError(w http.ResponseWriter, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		fmt.Printf("❌ Unhandled error: %v\n", err)
		WriteInternalServerErrorResponse(w, "Internal server error occurred")
		return
	}

	switch appErr.Kind {
	case apperrors.KindUnauthenticated:
		WriteUnauthorizedResponse(w, appErr.Message)
	case apperrors.KindForbidden:
		WriteForbiddenResponse(w, appErr.Message)
	case apperrors.KindNotFound:
		WriteNotFoundResponse(w, appErr.Message)
	case apperrors.KindValidation:
		WriteValidationErrorResponse(w, appErr.Message, appErr.Field)
	case apperrors.KindConflict:
		WriteConflictResponse(w, appErr.Message)
	default:
		WriteErrorResponseWithCode(w, apperrors.HTTPStatus(appErr.Kind), string(appErr.Kind), appErr.Message, "")
	}
}
