package handlers

import (
	"github.com/stripe/stripe-go/v79"

	"github.com/ezyba/payment_api/dto"
	"github.com/ezyba/payment_api/model"
)

type StripeServiceInterface interface {
	PublishableKey() string
	CreateOrGetCustomer(name, email, phone string) (*stripe.Customer, error)
	CreatePaymentIntent(req dto.PaymentRequest, customerID string) (*stripe.PaymentIntent, error)
	CreateSubscription(req dto.PaymentRequest, customerID string) (*stripe.Subscription, string, error)
	CreatePortalSession(customerID, returnURL string) (string, error)
}

type SessionServiceInterface interface {
	Issue(clientIP, userAgent string) (string, error)
}

type TurnstileServiceInterface interface {
	Verify(token, remoteIP string) (*dto.TurnstileResult, error)
}

type EmailServiceInterface interface {
	SendPaymentConfirmation(req dto.PaymentRequest, paymentID string, success bool) error
}

type PaymentStoreInterface interface {
	CreatePaymentRecord(record *model.PaymentRecord) error
	UpdatePaymentOutcome(id, outcome, providerID, subscriptionID, failureReason string) error
	GetPaymentsByEmail(email string, limit int) ([]model.PaymentRecord, error)
}

type MonitoringInterface interface {
	ObservePayment(outcome, paymentType string)
}
