package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token has expired")
	ErrWrongTokenType = errors.New("wrong token type")
)

const (
	RoleOperator = "OPERATOR"

	// Issuer is stamped on every token and required on validation
	Issuer = "usdc-bridge"

	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims represents JWT claims for a bridge operator
type Claims struct {
	OperatorID uuid.UUID `json:"operatorId"`
	Username   string    `json:"username"`
	Role       string    `json:"role"`
	TokenType  string    `json:"typ"`
	jwt.RegisteredClaims
}

// TokenPair is returned by login and refresh
type TokenPair struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// JWTService issues and checks operator tokens
type JWTService struct {
	secret        []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	parser        *jwt.Parser
}

var (
	signJWTToken = func(token *jwt.Token, secret []byte) (string, error) {
		return token.SignedString(secret)
	}
	now = time.Now
)

// NewJWTService creates a new JWT service
func NewJWTService(secret string, accessExpiry, refreshExpiry time.Duration) *JWTService {
	return &JWTService{
		secret:        []byte(secret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(Issuer),
			jwt.WithExpirationRequired(),
		),
	}
}

// GenerateTokenPair issues a short lived access token and a refresh token
func (s *JWTService) GenerateTokenPair(operatorID uuid.UUID, username, role string) (*TokenPair, error) {
	issued := now()
	accessToken, err := s.generateToken(operatorID, username, role, TokenTypeAccess, issued, s.accessExpiry)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.generateToken(operatorID, username, role, TokenTypeRefresh, issued, s.refreshExpiry)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    issued.Add(s.accessExpiry).UTC(),
	}, nil
}

// ValidateToken checks an access token. Refresh tokens are rejected.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, TokenTypeAccess)
}

// ValidateRefreshToken checks a refresh token. Access tokens are rejected.
func (s *JWTService) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, TokenTypeRefresh)
}

func (s *JWTService) validate(tokenString, tokenType string) (*Claims, error) {
	claims := &Claims{}
	token, err := s.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != tokenType {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

func (s *JWTService) generateToken(operatorID uuid.UUID, username, role, tokenType string, issued time.Time, expiry time.Duration) (string, error) {
	claims := &Claims{
		OperatorID: operatorID,
		Username:   username,
		Role:       role,
		TokenType:  tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   username,
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(issued.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(issued),
			NotBefore: jwt.NewNumericDate(issued),
		},
	}
	return signJWTToken(jwt.NewWithClaims(jwt.SigningMethodHS256, claims), s.secret)
}

// OperatorID derives a stable id for an operator username
func OperatorID(username string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("usdc-bridge:"+username))
}
