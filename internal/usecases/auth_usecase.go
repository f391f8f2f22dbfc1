package usecases

import (
	"context"
	"crypto/subtle"
	"net/http"

	"go.uber.org/zap"

	domainerrors "usdc-bridge.backend/internal/domain/errors"
	"usdc-bridge.backend/pkg/crypto"
	"usdc-bridge.backend/pkg/jwt"
	"usdc-bridge.backend/pkg/logger"
)

// LoginInput is the operator login request
type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthUsecase authenticates the single configured operator
type AuthUsecase struct {
	username     string
	passwordHash string
	jwtService   *jwt.JWTService
}

// NewAuthUsecase creates a new auth usecase
func NewAuthUsecase(username, passwordHash string, jwtService *jwt.JWTService) *AuthUsecase {
	return &AuthUsecase{
		username:     username,
		passwordHash: passwordHash,
		jwtService:   jwtService,
	}
}

// Login checks the operator credentials and returns tokens
func (u *AuthUsecase) Login(ctx context.Context, input *LoginInput) (*jwt.TokenPair, error) {
	if u.passwordHash == "" {
		logger.Warn(ctx, "Operator login attempted with no password hash configured")
		return nil, domainerrors.NewAppError(http.StatusUnauthorized, domainerrors.CodeUnauthorized, "invalid credentials", domainerrors.ErrInvalidCredentials)
	}
	userOK := subtle.ConstantTimeCompare([]byte(input.Username), []byte(u.username)) == 1
	passOK := crypto.CheckPassword(input.Password, u.passwordHash)
	if !userOK || !passOK {
		logger.Info(ctx, "Operator login rejected", zap.String("username", input.Username))
		return nil, domainerrors.NewAppError(http.StatusUnauthorized, domainerrors.CodeUnauthorized, "invalid credentials", domainerrors.ErrInvalidCredentials)
	}

	return u.jwtService.GenerateTokenPair(jwt.OperatorID(u.username), u.username, jwt.RoleOperator)
}

// RefreshToken issues new tokens from a refresh token
func (u *AuthUsecase) RefreshToken(_ context.Context, refreshToken string) (*jwt.TokenPair, error) {
	claims, err := u.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, domainerrors.Unauthorized(err.Error())
	}
	if claims.Username != u.username {
		return nil, domainerrors.Unauthorized("operator no longer configured")
	}
	return u.jwtService.GenerateTokenPair(claims.OperatorID, claims.Username, claims.Role)
}
