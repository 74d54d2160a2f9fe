package utils

import (
	"fmt"
	"time"

	"ddash-backend/pkg/models"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// JWTService JWT服务
type JWTService struct {
	secretKey  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewJWTService 创建JWT服务；ttl 为零时使用默认值，now 为 nil 时使用 time.Now
func NewJWTService(secretKey string, accessTTL, refreshTTL time.Duration, now func() time.Time) *JWTService {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}
	if now == nil {
		now = time.Now
	}
	return &JWTService{
		secretKey:  []byte(secretKey),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        now,
	}
}

func (j *JWTService) sign(user *models.User, tokenType string, ttl time.Duration) (string, *models.TokenClaims, error) {
	jti, err := GenerateTokenID()
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token id: %w", err)
	}
	now := j.now()
	claims := &models.TokenClaims{
		ID:     jti,
		UserID: user.ID,
		Email:  user.Email,
		Type:   tokenType,
		Exp:    now.Add(ttl).Unix(),
		Iat:    now.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secretKey)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate %s token: %w", tokenType, err)
	}
	return token, claims, nil
}

// GenerateTokenPair 生成访问令牌和刷新令牌对
func (j *JWTService) GenerateTokenPair(user *models.User) (*models.TokenResponse, error) {
	access, accessClaims, err := j.sign(user, models.TokenTypeAccess, j.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, _, err := j.sign(user, models.TokenTypeRefresh, j.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &models.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    accessClaims.Exp - accessClaims.Iat,
		TokenType:    "Bearer",
	}, nil
}

// GenerateAccessToken 生成访问令牌
func (j *JWTService) GenerateAccessToken(user *models.User) (*models.TokenResponse, error) {
	access, claims, err := j.sign(user, models.TokenTypeAccess, j.accessTTL)
	if err != nil {
		return nil, err
	}
	return &models.TokenResponse{
		AccessToken: access,
		ExpiresIn:   claims.Exp - claims.Iat,
		TokenType:   "Bearer",
	}, nil
}

// ValidateToken 验证令牌签名与有效期
func (j *JWTService) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 验证签名方法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	}, jwt.WithTimeFunc(j.now))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.UserID == "" || claims.ID == "" {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// ValidateTokenType validates the token and checks its type ("access" or "refresh")
func (j *JWTService) ValidateTokenType(tokenString, tokenType string) (*models.TokenClaims, error) {
	claims, err := j.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != tokenType {
		return nil, fmt.Errorf("invalid token type: expected %s, got %s", tokenType, claims.Type)
	}
	return claims, nil
}
