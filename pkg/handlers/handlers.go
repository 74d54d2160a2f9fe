// Package handlers HTTP 层：解析请求、调用服务、写统一响应
package handlers

import (
	"net/http"

	chiRoute "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"ddash-backend/pkg/apperrors"
	"ddash-backend/pkg/pagination"
	"ddash-backend/pkg/utils"
)

// decodeBody parses a JSON body, rejecting unknown fields
func decodeBody(r *http.Request, v interface{}) error {
	if err := utils.ParseJSONBody(r, v); err != nil {
		return apperrors.Validation("body", "Invalid request body: "+err.Error())
	}
	return nil
}

// decodeOptionalBody is decodeBody for endpoints whose body may be omitted
func decodeOptionalBody(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return decodeBody(r, v)
}

// pageParams 读取 page / page_size 查询参数
func pageParams(r *http.Request) (pagination.Params, error) {
	q := r.URL.Query()
	return pagination.ParseParams(q.Get("page"), q.Get("page_size"))
}

// pathResources 路径参数对应的资源名（用于 404 消息）
var pathResources = map[string]string{
	"orgID":        "organization",
	"projectID":    "project",
	"taskID":       "task",
	"invitationID": "invitation",
	"userID":       "user",
}

// pathID reads a UUID path parameter in canonical form. Anything that is not a
// UUID cannot name an existing row, so it is reported as not found.
func pathID(r *http.Request, key string) (string, error) {
	id, err := uuid.Parse(chiRoute.URLParam(r, key))
	if err != nil {
		return "", apperrors.NotFound(pathResources[key])
	}
	return id.String(), nil
}
