package services

import (
	"errors"
	"fmt"
	"os"

	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v79"
	portalsession "github.com/stripe/stripe-go/v79/billingportal/session"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/paymentintent"
	"github.com/stripe/stripe-go/v79/price"
	"github.com/stripe/stripe-go/v79/subscription"

	"github.com/ezyba/payment_api/dto"
	"github.com/ezyba/payment_api/shared"
)

// StripeService is the payment-provider boundary. It owns no state beyond
// the configured keys; every method is a single provider round trip.
type StripeService struct {
	context.DefaultService

	secretKey      string
	publishableKey string
	productName    string
}

const STRIPE_SVC = "stripe_svc"

func (svc StripeService) Id() string {
	return STRIPE_SVC
}

func (svc *StripeService) Configure(ctx *context.Context) error {
	svc.secretKey = os.Getenv("STRIPE_SECRET_KEY")
	svc.publishableKey = os.Getenv("STRIPE_PUBLISHABLE_KEY")
	svc.productName = os.Getenv("COMPANY_NAME")
	if svc.productName == "" {
		svc.productName = "Ezyba"
	}

	return svc.DefaultService.Configure(ctx)
}

func (svc *StripeService) Start() error {
	if svc.secretKey == "" {
		return errors.New("STRIPE_SECRET_KEY is not configured")
	}
	stripe.Key = svc.secretKey
	return nil
}

func (svc *StripeService) PublishableKey() string {
	return svc.publishableKey
}

// CreateOrGetCustomer reuses an existing customer for the email when one
// exists so repeat payers do not accumulate duplicates.
func (svc *StripeService) CreateOrGetCustomer(name, email, phone string) (*stripe.Customer, error) {
	listParams := &stripe.CustomerListParams{Email: stripe.String(email)}
	listParams.Limit = stripe.Int64(1)

	iter := customer.List(listParams)
	for iter.Next() {
		existing := iter.Customer()
		log.WithField("customer_id", existing.ID).Info("Retrieved existing customer")
		return existing, nil
	}
	if err := iter.Err(); err != nil {
		return nil, svc.wrapProviderError(err, "customer lookup")
	}

	params := &stripe.CustomerParams{
		Name:  stripe.String(name),
		Email: stripe.String(email),
	}
	if phone != "" {
		params.Phone = stripe.String(phone)
	}

	created, err := customer.New(params)
	if err != nil {
		return nil, svc.wrapProviderError(err, "customer creation")
	}

	log.WithField("customer_id", created.ID).Info("Created new customer")
	return created, nil
}

func (svc *StripeService) CreatePaymentIntent(req dto.PaymentRequest, customerID string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
		Customer: stripe.String(customerID),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("customer_name", req.Name)
	params.AddMetadata("customer_email", req.Email)
	params.AddMetadata("payment_type", req.PaymentType)

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, svc.wrapProviderError(err, "payment intent")
	}

	log.WithField("payment_intent", intent.ID).Info("Created payment intent")
	return intent, nil
}

// CreateSubscription creates an ad-hoc recurring price then the subscription
// itself, returning the client secret of the first invoice's payment intent.
func (svc *StripeService) CreateSubscription(req dto.PaymentRequest, customerID string) (*stripe.Subscription, string, error) {
	interval := "month"
	if req.PaymentType == shared.PaymentTypeYearly {
		interval = "year"
	}

	priceParams := &stripe.PriceParams{
		UnitAmount: stripe.Int64(req.Amount),
		Currency:   stripe.String(req.Currency),
		Recurring: &stripe.PriceRecurringParams{
			Interval: stripe.String(interval),
		},
		ProductData: &stripe.PriceProductDataParams{
			Name: stripe.String(fmt.Sprintf("%s Service - %s", svc.productName, req.Name)),
		},
	}

	subscriptionPrice, err := price.New(priceParams)
	if err != nil {
		return nil, "", svc.wrapProviderError(err, "subscription price")
	}

	subParams := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(subscriptionPrice.ID)},
		},
		PaymentBehavior: stripe.String("default_incomplete"),
		PaymentSettings: &stripe.SubscriptionPaymentSettingsParams{
			SaveDefaultPaymentMethod: stripe.String("on_subscription"),
		},
	}
	subParams.AddExpand("latest_invoice.payment_intent")
	subParams.AddMetadata("customer_name", req.Name)
	subParams.AddMetadata("customer_email", req.Email)
	subParams.AddMetadata("payment_type", req.PaymentType)

	sub, err := subscription.New(subParams)
	if err != nil {
		return nil, "", svc.wrapProviderError(err, "subscription")
	}

	clientSecret := ""
	if sub.LatestInvoice != nil && sub.LatestInvoice.PaymentIntent != nil {
		clientSecret = sub.LatestInvoice.PaymentIntent.ClientSecret
	}

	log.WithField("subscription_id", sub.ID).Info("Created subscription")
	return sub, clientSecret, nil
}

func (svc *StripeService) CreatePortalSession(customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}

	session, err := portalsession.New(params)
	if err != nil {
		return "", svc.wrapProviderError(err, "portal session")
	}

	log.WithField("customer_id", customerID).Info("Created portal session")
	return session.URL, nil
}

// wrapProviderError keeps the provider's user-facing message for the caller
// and the full error server-side only.
func (svc *StripeService) wrapProviderError(err error, operation string) error {
	log.WithError(err).WithField("operation", operation).Error("Stripe error")

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return shared.NewUpstreamError(err, stripeErr.Msg)
	}
	return shared.NewUpstreamError(err, "")
}
