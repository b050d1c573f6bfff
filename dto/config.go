package dto

// PublicConfigResponse is the bootstrap payload returned to trusted origins.
// SessionKey is the only place a session is ever minted.
type PublicConfigResponse struct {
	PublishableKey        string   `json:"publishable_key"`
	SupportedCurrencies   []string `json:"supported_currencies"`
	SupportedPaymentTypes []string `json:"supported_payment_types"`
	SessionKey            string   `json:"session_key"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	Environment string `json:"environment"`
}
