package dto

import "testing"

func validPaymentRequest() PaymentRequest {
	return PaymentRequest{
		Name:           "Jane Doe",
		Email:          "jane@example.com",
		Amount:         1500,
		Currency:       "brl",
		PaymentType:    "one_time",
		TurnstileToken: "tok_abc",
		Language:       "pt",
	}
}

func TestPaymentRequestValid(t *testing.T) {
	if err := validPaymentRequest().Validate(); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}
}

func TestPaymentRequestInvalid(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*PaymentRequest)
	}{
		{"missing name", func(r *PaymentRequest) { r.Name = "" }},
		{"name too short", func(r *PaymentRequest) { r.Name = "J" }},
		{"bad email", func(r *PaymentRequest) { r.Email = "not-an-email" }},
		{"zero amount", func(r *PaymentRequest) { r.Amount = 0 }},
		{"below minimum charge", func(r *PaymentRequest) { r.Amount = 49 }},
		{"unsupported currency", func(r *PaymentRequest) { r.Currency = "eur" }},
		{"unknown payment type", func(r *PaymentRequest) { r.PaymentType = "weekly" }},
		{"missing turnstile token", func(r *PaymentRequest) { r.TurnstileToken = "" }},
		{"unknown language", func(r *PaymentRequest) { r.Language = "fr" }},
		{"bad phone", func(r *PaymentRequest) { r.Phone = "abc" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validPaymentRequest()
			tc.mutate(&req)
			if err := req.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestPaymentRequestOptionalFields(t *testing.T) {
	req := validPaymentRequest()
	req.Phone = ""
	req.Language = ""
	if err := req.Validate(); err != nil {
		t.Errorf("optional fields empty should pass: %v", err)
	}

	req.Phone = "+55 (11) 91234-5678"
	if err := req.Validate(); err != nil {
		t.Errorf("formatted phone should pass: %v", err)
	}
}

func TestPaymentRequestMinimumCharge(t *testing.T) {
	req := validPaymentRequest()
	req.Amount = 50
	if err := req.Validate(); err != nil {
		t.Errorf("amount at the minimum should pass: %v", err)
	}
}

func TestCustomerPortalRequest(t *testing.T) {
	ok := CustomerPortalRequest{CustomerID: "cus_123", ReturnURL: "https://ezyba.com/account"}
	if err := ok.Validate(); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}

	missing := CustomerPortalRequest{ReturnURL: "https://ezyba.com/account"}
	if err := missing.Validate(); err == nil {
		t.Error("missing customer_id should fail")
	}

	badURL := CustomerPortalRequest{CustomerID: "cus_123", ReturnURL: "not a url"}
	if err := badURL.Validate(); err == nil {
		t.Error("malformed return_url should fail")
	}
}

func TestFormatValidationErrors(t *testing.T) {
	req := validPaymentRequest()
	req.Email = "nope"
	req.Amount = 10

	err := req.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}

	fields := FormatValidationErrors(err)
	if len(fields) != 2 {
		t.Fatalf("got %d field errors, want 2: %+v", len(fields), fields)
	}
	for _, fe := range fields {
		if fe.Message == "" {
			t.Errorf("field %s has empty message", fe.Field)
		}
	}
}
