package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"escrowd/pkg/domain"
	dErrors "escrowd/pkg/domain-errors"
)

const issuer = "escrowd"

// Claims represents the JWT claims for our access tokens
type Claims struct {
	AccountID string `json:"account_id"`
	jwt.RegisteredClaims
}

// JWTService handles JWT creation and validation
type JWTService struct {
	signingKey []byte
	tokenTTL   time.Duration
}

func NewJWTService(signingKey string, tokenTTL time.Duration) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		tokenTTL:   tokenTTL,
	}
}

func (s *JWTService) GenerateToken(accountID domain.AccountID) (string, error) {
	now := time.Now()
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		AccountID: accountID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   accountID.String(),
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

// ValidateToken checks the signature and expiry of a bearer token and
// resolves the account identity it was issued for.
func (s *JWTService) ValidateToken(tokenString string) (domain.AccountID, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.NilAccount, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return domain.NilAccount, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	if !parsed.Valid {
		return domain.NilAccount, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return domain.NilAccount, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	accountID, err := domain.ParseAccountID(claims.AccountID)
	if err != nil {
		return domain.NilAccount, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return accountID, nil
}
