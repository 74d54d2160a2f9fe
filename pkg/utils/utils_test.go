package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ddash-backend/pkg/apperrors"
	"ddash-backend/pkg/models"
)

var testParams = PasswordParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func TestPasswordHashAndVerify(t *testing.T) {
	h := NewPasswordHasher(testParams)
	encoded, err := h.Hash("hunter2")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$m=1024,t=1,p=1$") {
		t.Errorf("Unexpected encoding: %s", encoded)
	}

	ok, err := h.Verify("hunter2", encoded)
	if err != nil || !ok {
		t.Fatalf("Expected password to verify, got ok=%v err=%v", ok, err)
	}
	ok, err = h.Verify("hunter3", encoded)
	if err != nil || ok {
		t.Fatalf("Expected wrong password to fail, got ok=%v err=%v", ok, err)
	}

	// a different hasher still verifies using the parameters embedded in the hash
	ok, _ = NewPasswordHasher(DefaultPasswordParams).Verify("hunter2", encoded)
	if !ok {
		t.Error("Expected verification with stored params")
	}

	if _, err := h.Verify("x", "plaintext"); err != ErrInvalidHash {
		t.Errorf("Expected ErrInvalidHash, got %v", err)
	}
}

func TestPasswordHashIsSalted(t *testing.T) {
	h := NewPasswordHasher(testParams)
	a, _ := h.Hash("same")
	b, _ := h.Hash("same")
	if a == b {
		t.Error("Expected different hashes for the same password")
	}
}

func TestJWTRoundTrip(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	svc := NewJWTService("secret", time.Minute, time.Hour, clock)
	user := &models.User{ID: "u-1", Email: "a@example.com"}

	pair, err := svc.GenerateTokenPair(user)
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}
	if pair.ExpiresIn != 60 {
		t.Errorf("Expected expires_in 60, got %d", pair.ExpiresIn)
	}

	claims, err := svc.ValidateTokenType(pair.AccessToken, models.TokenTypeAccess)
	if err != nil {
		t.Fatalf("ValidateTokenType failed: %v", err)
	}
	if claims.UserID != "u-1" || claims.ID == "" {
		t.Errorf("Unexpected claims %+v", claims)
	}

	if _, err := svc.ValidateTokenType(pair.AccessToken, models.TokenTypeRefresh); err == nil {
		t.Error("Expected access token to be rejected as refresh token")
	}
	if _, err := svc.ValidateTokenType(pair.RefreshToken, models.TokenTypeRefresh); err != nil {
		t.Errorf("Expected refresh token to validate, got %v", err)
	}

	// two minutes later the access token is expired but the refresh token is not
	now = now.Add(2 * time.Minute)
	if _, err := svc.ValidateToken(pair.AccessToken); err == nil {
		t.Error("Expected expired access token to fail")
	}
	if _, err := svc.ValidateToken(pair.RefreshToken); err != nil {
		t.Errorf("Expected refresh token still valid, got %v", err)
	}

	other := NewJWTService("other-secret", 0, 0, clock)
	if _, err := other.ValidateToken(pair.RefreshToken); err == nil {
		t.Error("Expected signature mismatch to fail")
	}
}

func TestWriteErrorMapsKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{apperrors.Unauthenticated("login"), http.StatusUnauthorized, "UNAUTHORIZED"},
		{apperrors.Forbidden("no"), http.StatusForbidden, "FORBIDDEN"},
		{apperrors.NotFound("task"), http.StatusNotFound, "NOT_FOUND"},
		{apperrors.Validation("title", "required"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{apperrors.Domain("not a contributor"), http.StatusBadRequest, "DOMAIN_ERROR"},
		{apperrors.InvalidPage(4, 3), http.StatusBadRequest, "INVALID_PAGE"},
		{fmt.Errorf("wrapped: %w", apperrors.NotFound("project")), http.StatusNotFound, "NOT_FOUND"},
		{fmt.Errorf("driver exploded"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		WriteError(rec, c.err)
		if rec.Code != c.status {
			t.Errorf("%v: expected status %d, got %d", c.err, c.status, rec.Code)
		}
		var resp APIResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if resp.Success || resp.Error == nil || resp.Error.Code != c.code {
			t.Errorf("%v: expected code %s, got %+v", c.err, c.code, resp.Error)
		}
	}
}

func TestGenerateTokenID(t *testing.T) {
	a, err := GenerateTokenID()
	if err != nil {
		t.Fatalf("GenerateTokenID failed: %v", err)
	}
	b, _ := GenerateTokenID()
	if a == b || len(a) != 22 {
		t.Errorf("Unexpected tokens %q %q", a, b)
	}
}
