package models

import "errors"

// Классы ошибок биллинга. Слои оборачивают их через fmt.Errorf("%s: %w", op, err),
// а HTTP-обработчики выбирают код ответа через errors.Is.
var (
	// ErrUnauthenticated — в запросе нет проверенной личности.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrNotFound — ожидаемая запись отсутствует.
	ErrNotFound = errors.New("not found")
	// ErrConfiguration — не задан секрет или идентификатор цены.
	ErrConfiguration = errors.New("billing is not configured")
	// ErrUpstream — платёжная система не вернула пригодный результат.
	ErrUpstream = errors.New("payment provider returned no usable result")
	// ErrMalformedEvent — в событии webhook нет данных для сопоставления.
	ErrMalformedEvent = errors.New("malformed webhook event")
	// ErrConflict — запись нарушает уникальность и принадлежит другому владельцу.
	ErrConflict = errors.New("conflicts with an existing record")
	// ErrVerification — подпись webhook отсутствует или неверна.
	ErrVerification = errors.New("webhook signature verification failed")
)
