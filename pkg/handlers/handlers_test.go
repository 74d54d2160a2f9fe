package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	chiRoute "github.com/go-chi/chi/v5"

	"ddash-backend/pkg/apperrors"
)

func requestWithParam(key, value string) *http.Request {
	rctx := chiRoute.NewRouteContext()
	rctx.URLParams.Add(key, value)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	return req.WithContext(context.WithValue(req.Context(), chiRoute.RouteCtxKey, rctx))
}

func TestPathID(t *testing.T) {
	cases := []struct {
		key, value string
		want       string
		kind       apperrors.Kind
	}{
		{"taskID", "8f14e45f-ceea-467f-a8f5-3b1e2a5c9d10", "8f14e45f-ceea-467f-a8f5-3b1e2a5c9d10", ""},
		{"taskID", "8F14E45F-CEEA-467F-A8F5-3B1E2A5C9D10", "8f14e45f-ceea-467f-a8f5-3b1e2a5c9d10", ""},
		{"taskID", "not-a-uuid", "", apperrors.KindNotFound},
		{"orgID", "", "", apperrors.KindNotFound},
		{"userID", "1234", "", apperrors.KindNotFound},
	}
	for _, c := range cases {
		got, err := pathID(requestWithParam(c.key, c.value), c.key)
		if c.kind == "" {
			if err != nil || got != c.want {
				t.Errorf("pathID(%q): expected %q, got %q (%v)", c.value, c.want, got, err)
			}
			continue
		}
		if apperrors.KindOf(err) != c.kind {
			t.Errorf("pathID(%q): expected %s, got %v", c.value, c.kind, err)
		}
	}
}

func TestPathIDNamesResource(t *testing.T) {
	_, err := pathID(requestWithParam("projectID", "x"), "projectID")
	if err == nil || err.Error() != "project not found" {
		t.Errorf("Expected \"project not found\", got %v", err)
	}
}
