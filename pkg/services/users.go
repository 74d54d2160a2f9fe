package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ddash-backend/pkg/apperrors"
	"ddash-backend/pkg/database"
	"ddash-backend/pkg/models"
	"ddash-backend/pkg/session"
	"ddash-backend/pkg/utils"
)

const invalidCredentials = "Incorrect email or password"

// UserService 注册、登录与令牌管理
type UserService struct {
	db      database.DatabaseInterface
	jwt     *utils.JWTService
	hasher  *utils.PasswordHasher
	revoker session.Revoker
	now     func() time.Time
}

func NewUserService(db database.DatabaseInterface, jwt *utils.JWTService, hasher *utils.PasswordHasher, revoker session.Revoker, now func() time.Time) *UserService {
	return &UserService{db: db, jwt: jwt, hasher: hasher, revoker: revoker, now: now}
}

// Register 创建用户；邮箱不区分大小写唯一
func (s *UserService) Register(ctx context.Context, req models.UserRegisterRequest) (*models.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	email := models.NormalizeEmail(req.Email)

	if _, err := s.db.GetUserByEmail(ctx, email); err == nil {
		return nil, apperrors.Domain("a user with this email already exists")
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := nowUTC(s.now)
	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		DisplayName:  strings.TrimSpace(req.DisplayName),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrConflict) {
			return nil, apperrors.Domain("a user with this email already exists")
		}
		return nil, err
	}
	return user, nil
}

// Authenticate 校验邮箱与密码并签发令牌对
func (s *UserService) Authenticate(ctx context.Context, req models.UserLoginRequest) (*models.TokenResponse, error) {
	user, err := s.db.GetUserByEmail(ctx, req.Email)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.Unauthenticated(invalidCredentials)
	}
	if err != nil {
		return nil, err
	}

	ok, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return nil, apperrors.Unauthenticated(invalidCredentials)
	}
	return s.jwt.GenerateTokenPair(user)
}

// Refresh exchanges a refresh token for a new access token
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*models.TokenResponse, error) {
	claims, err := s.jwt.ValidateTokenType(refreshToken, models.TokenTypeRefresh)
	if err != nil {
		return nil, apperrors.Unauthenticated("Invalid refresh token")
	}
	user, err := s.checkClaims(ctx, claims)
	if err != nil {
		return nil, err
	}
	return s.jwt.GenerateAccessToken(user)
}

// ResolveAccessToken validates an access token and loads its user
func (s *UserService) ResolveAccessToken(ctx context.Context, token string) (*models.User, *models.TokenClaims, error) {
	claims, err := s.jwt.ValidateTokenType(token, models.TokenTypeAccess)
	if err != nil {
		return nil, nil, apperrors.Unauthenticated("Invalid token")
	}
	user, err := s.checkClaims(ctx, claims)
	if err != nil {
		return nil, nil, err
	}
	return user, claims, nil
}

func (s *UserService) checkClaims(ctx context.Context, claims *models.TokenClaims) (*models.User, error) {
	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, apperrors.Unauthenticated("Token has been revoked")
	}
	user, err := s.db.GetUserByID(ctx, claims.UserID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.Unauthenticated("User no longer exists")
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Logout revokes the current access token and, when given, the refresh token
func (s *UserService) Logout(ctx context.Context, claims *models.TokenClaims, refreshToken string) error {
	if claims == nil {
		return apperrors.Unauthenticated("Authentication required")
	}
	var refreshClaims *models.TokenClaims
	if refreshToken != "" {
		rc, err := s.jwt.ValidateTokenType(refreshToken, models.TokenTypeRefresh)
		if err != nil || rc.UserID != claims.UserID {
			return apperrors.Validation("refresh_token", "refresh token is invalid")
		}
		refreshClaims = rc
	}

	if err := s.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt()); err != nil {
		return err
	}
	if refreshClaims == nil {
		return nil
	}
	return s.revoker.Revoke(ctx, refreshClaims.ID, refreshClaims.ExpiresAt())
}

// Get 获取用户
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.db.GetUserByID(ctx, id)
	return user, storeErr("user", err)
}
