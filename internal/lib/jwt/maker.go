// Package jwt реализует проверку JWT токенов провайдера личности.
//
// Токен подписан HS256 и несёт стандартный claim sub, а также name и email.
// Maker умеет и выпускать такие токены: это нужно тестам и локальной разработке (billingctl token).
package jwt

import (
	"time"
)

// Maker описывает интерфейс для генерации и парсинга JWT токенов.
type Maker interface {
	// GenerateToken выпускает токен для subject с необязательными name и email.
	GenerateToken(subject, name, email string) (string, error)
	// ParseToken проверяет подпись и срок действия, возвращает claims.
	ParseToken(tokenStr string) (*IdentityClaims, error)
}

// MakerImpl реализует интерфейс Maker с использованием секретного ключа
// и времени жизни токена (TTL).
type MakerImpl struct {
	secretKey string        // Секретный ключ для подписи токенов.
	issuer    string        // Ожидаемый iss; пустая строка отключает проверку.
	tokenTTL  time.Duration // Время жизни выпускаемых токенов.
}

// NewJWTMaker создаёт новый экземпляр MakerImpl на основе секретного ключа, издателя и TTL.
func NewJWTMaker(secretKey, issuer string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		issuer:    issuer,
		tokenTTL:  ttl,
	}
}
