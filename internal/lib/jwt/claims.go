package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IdentityClaims описывает данные провайдера личности, хранящиеся в JWT.
type IdentityClaims struct {
	Name                 string `json:"name,omitempty"`  // Отображаемое имя
	Email                string `json:"email,omitempty"` // Электронная почта
	jwt.RegisteredClaims        // sub, iss, exp, iat
}

// GenerateToken создает JWT токен для subject, подписывая его секретным ключом.
func (j *MakerImpl) GenerateToken(subject, name, email string) (string, error) {
	now := time.Now()
	claims := IdentityClaims{
		Name:  name,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.secretKey))
}

// ParseToken парсит JWT токен, проверяет алгоритм, подпись, срок и издателя.
// Токен без sub считается недействительным.
func (j *MakerImpl) ParseToken(tokenStr string) (*IdentityClaims, error) {
	const op = "jwt.ParseToken"

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, &IdentityClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(j.secretKey), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*IdentityClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%s: %w", op, errors.New("token has no subject"))
	}
	return claims, nil
}
