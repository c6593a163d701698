package models

// Identity — проверенные данные вызывающего, полученные от провайдера личности.
// nil вместо *Identity означает неаутентифицированный запрос.
type Identity struct {
	Subject string `json:"subject"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
}
