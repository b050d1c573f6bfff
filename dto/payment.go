package dto

type PaymentRequest struct {
	Name  string `json:"name" validate:"required,min=2,max=100"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"omitempty,phone"`

	// Amount in minor units (cents/centavos)
	Amount      int64  `json:"amount" validate:"required,gt=0,min_charge"`
	Currency    string `json:"currency" validate:"required,oneof=brl usd"`
	PaymentType string `json:"payment_type" validate:"required,oneof=one_time monthly yearly"`

	TurnstileToken string `json:"turnstile_token" validate:"required"`

	Language string `json:"language" validate:"omitempty,oneof=pt en"`
}

func (r PaymentRequest) Validate() error {
	return GetValidator().Struct(r)
}

type PaymentResponse struct {
	Success        bool   `json:"success"`
	PaymentID      string `json:"payment_id,omitempty"`
	ClientSecret   string `json:"client_secret,omitempty"`
	CustomerID     string `json:"customer_id,omitempty"`
	SubscriptionID string `json:"subscription_id,omitempty"`
	Message        string `json:"message"`
}

type CustomerPortalRequest struct {
	CustomerID string `json:"customer_id" validate:"required"`
	ReturnURL  string `json:"return_url" validate:"required,url"`
}

func (r CustomerPortalRequest) Validate() error {
	return GetValidator().Struct(r)
}

type CustomerPortalResponse struct {
	Success   bool   `json:"success"`
	PortalURL string `json:"portal_url,omitempty"`
	Message   string `json:"message"`
}
