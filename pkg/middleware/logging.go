package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// Logger 请求日志：生产环境输出单行 JSON，其他环境使用 Chi 的默认格式
func Logger(production bool) func(http.Handler) http.Handler {
	if production {
		return JSONLogger
	}
	return middleware.Logger
}

type logUserKey struct{}

// logUser is filled in by AuthMiddleware further down the chain
type logUser struct {
	id string
}

func setLogUser(ctx context.Context, userID string) {
	if lu, ok := ctx.Value(logUserKey{}).(*logUser); ok {
		lu.id = userID
	}
}

// JSONLogger 结构化请求日志
func JSONLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lu := &logUser{}
		r = r.WithContext(context.WithValue(r.Context(), logUserKey{}, lu))

		// 创建响应写入器包装器来捕获状态码
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		fmt.Printf(`{"time":"%s","request_id":"%s","method":"%s","path":"%s","status":%d,"bytes":%d,"duration":"%s","ip":"%s","user_id":"%s","user_agent":%q}`+"\n",
			time.Now().UTC().Format(time.RFC3339),
			middleware.GetReqID(r.Context()),
			r.Method,
			r.URL.Path,
			ww.Status(),
			ww.BytesWritten(),
			time.Since(start),
			getClientIP(r),
			lu.id,
			r.UserAgent(),
		)
	})
}

// getClientIP 获取客户端IP地址
func getClientIP(r *http.Request) string {
	// 检查X-Forwarded-For头（代理/负载均衡器）
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}

	// 检查X-Real-IP头
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// 使用RemoteAddr
	return r.RemoteAddr
}
