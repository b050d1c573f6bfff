package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ezyba/payment_api/dto"
	"github.com/ezyba/payment_api/model"
	"github.com/ezyba/payment_api/shared"
)

type PaymentHandler struct {
	stripeSvc    StripeServiceInterface
	sessionSvc   SessionServiceInterface
	turnstileSvc TurnstileServiceInterface
	emailSvc     EmailServiceInterface
	paymentStore PaymentStoreInterface
	monitorSvc   MonitoringInterface
}

func NewPaymentHandler(
	stripeSvc StripeServiceInterface,
	sessionSvc SessionServiceInterface,
	turnstileSvc TurnstileServiceInterface,
	emailSvc EmailServiceInterface,
	paymentStore PaymentStoreInterface,
	monitorSvc MonitoringInterface,
) *PaymentHandler {
	return &PaymentHandler{
		stripeSvc:    stripeSvc,
		sessionSvc:   sessionSvc,
		turnstileSvc: turnstileSvc,
		emailSvc:     emailSvc,
		paymentStore: paymentStore,
		monitorSvc:   monitorSvc,
	}
}

// @Summary Public Config
// @Description Returns the publishable key plus a freshly minted session key. Requires a trusted Origin/Referer; this is the only endpoint that mints sessions.
// @Tags payments
// @Produce json
// @Success 200 {object} shared.Response{data=dto.PublicConfigResponse}
// @Failure 403 {object} shared.Response
// @Router /api/v1/payments/config [get]
func (h *PaymentHandler) GetConfig(c *fiber.Ctx) error {
	clientIP := localString(c, shared.ClientIP)
	userAgent := c.Get(fiber.HeaderUserAgent)

	sessionKey, err := h.sessionSvc.Issue(clientIP, userAgent)
	if err != nil {
		return shared.NewInternalError(err)
	}

	return shared.ResponseOK(c, dto.PublicConfigResponse{
		PublishableKey:        h.stripeSvc.PublishableKey(),
		SupportedCurrencies:   []string{shared.CurrencyBRL, shared.CurrencyUSD},
		SupportedPaymentTypes: []string{shared.PaymentTypeOneTime, shared.PaymentTypeMonthly, shared.PaymentTypeYearly},
		SessionKey:            sessionKey,
	})
}

// @Summary Create Payment
// @Description Creates a one-time payment intent or a subscription
// @Tags payments
// @Accept json
// @Produce json
// @Param paymentRequest body dto.PaymentRequest true "Payment request"
// @Param X-Session-Key header string true "Session key from the config endpoint"
// @Success 200 {object} shared.Response{data=dto.PaymentResponse}
// @Failure 400 {object} dto.ValidationErrorResponse
// @Failure 401 {object} shared.Response
// @Router /api/v1/payments/create [post]
func (h *PaymentHandler) CreatePayment(c *fiber.Ctx) error {
	var req dto.PaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request")
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	requestID := uuid.NewString()[:8]
	clientIP := localString(c, shared.ClientIP)

	logger := log.WithFields(log.Fields{"request_id": requestID, "email": req.Email})
	logger.Info("Processing payment request")

	verification, err := h.turnstileSvc.Verify(req.TurnstileToken, clientIP)
	if err != nil {
		return shared.NewUpstreamError(err, "Captcha verification unavailable")
	}
	if !verification.Success {
		return shared.NewBadRequestError(nil, "Invalid captcha token")
	}

	record := &model.PaymentRecord{
		RequestID:   requestID,
		Email:       req.Email,
		Name:        req.Name,
		Amount:      req.Amount,
		Currency:    req.Currency,
		PaymentType: req.PaymentType,
		Outcome:     model.PaymentOutcomePending,
		ClientIP:    clientIP,
	}
	if err := h.paymentStore.CreatePaymentRecord(record); err != nil {
		// Audit trail failures never block a payment.
		logger.WithError(err).Error("Failed to create payment record")
	}

	customer, err := h.stripeSvc.CreateOrGetCustomer(req.Name, req.Email, req.Phone)
	if err != nil {
		h.recordFailure(record, req, err)
		return err
	}

	var resp dto.PaymentResponse
	if req.PaymentType == shared.PaymentTypeOneTime {
		intent, err := h.stripeSvc.CreatePaymentIntent(req, customer.ID)
		if err != nil {
			h.recordFailure(record, req, err)
			return err
		}

		h.recordSuccess(record, req, intent.ID, "")
		logger.WithField("payment_intent", intent.ID).Info("Payment successful")

		resp = dto.PaymentResponse{
			Success:      true,
			PaymentID:    intent.ID,
			ClientSecret: intent.ClientSecret,
			CustomerID:   customer.ID,
			Message:      "Payment intent created successfully",
		}
	} else {
		subscription, clientSecret, err := h.stripeSvc.CreateSubscription(req, customer.ID)
		if err != nil {
			h.recordFailure(record, req, err)
			return err
		}

		h.recordSuccess(record, req, subscription.ID, subscription.ID)

		resp = dto.PaymentResponse{
			Success:        true,
			PaymentID:      subscription.ID,
			ClientSecret:   clientSecret,
			CustomerID:     customer.ID,
			SubscriptionID: subscription.ID,
			Message:        "Subscription created successfully",
		}
	}

	return shared.ResponseOK(c, resp)
}

// @Summary Customer Portal
// @Description Creates a billing portal session for subscription management
// @Tags payments
// @Accept json
// @Produce json
// @Param portalRequest body dto.CustomerPortalRequest true "Portal request"
// @Param X-Session-Key header string true "Session key from the config endpoint"
// @Success 200 {object} shared.Response{data=dto.CustomerPortalResponse}
// @Router /api/v1/payments/customer-portal [post]
func (h *PaymentHandler) CustomerPortal(c *fiber.Ctx) error {
	var req dto.CustomerPortalRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request")
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	portalURL, err := h.stripeSvc.CreatePortalSession(req.CustomerID, req.ReturnURL)
	if err != nil {
		return err
	}

	return shared.ResponseOK(c, dto.CustomerPortalResponse{
		Success:   true,
		PortalURL: portalURL,
		Message:   "Portal session created successfully",
	})
}

// @Summary Payment History
// @Description Internal audit lookup by customer email, API-key protected
// @Tags payments
// @Produce json
// @Param email query string true "Customer email"
// @Success 200 {object} shared.Response
// @Failure 403 {object} shared.Response
// @Router /api/v1/payments/history [get]
func (h *PaymentHandler) GetPaymentHistory(c *fiber.Ctx) error {
	email := c.Query("email")
	if email == "" {
		return shared.NewBadRequestError(nil, "email is required")
	}

	records, err := h.paymentStore.GetPaymentsByEmail(email, c.QueryInt("limit"))
	if err != nil {
		return shared.NewInternalError(err)
	}

	return shared.ResponseOK(c, records)
}

func (h *PaymentHandler) recordSuccess(record *model.PaymentRecord, req dto.PaymentRequest, providerID, subscriptionID string) {
	h.monitorSvc.ObservePayment(model.PaymentOutcomeSuccess, req.PaymentType)

	if err := h.paymentStore.UpdatePaymentOutcome(record.ID, model.PaymentOutcomeSuccess, providerID, subscriptionID, ""); err != nil {
		log.WithError(err).Error("Failed to update payment record")
	}

	if err := h.emailSvc.SendPaymentConfirmation(req, providerID, true); err != nil {
		log.WithError(err).Error("Failed to send confirmation email")
	}
}

func (h *PaymentHandler) recordFailure(record *model.PaymentRecord, req dto.PaymentRequest, cause error) {
	h.monitorSvc.ObservePayment(model.PaymentOutcomeFailed, req.PaymentType)

	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	if err := h.paymentStore.UpdatePaymentOutcome(record.ID, model.PaymentOutcomeFailed, "", "", reason); err != nil {
		log.WithError(err).Error("Failed to update payment record")
	}

	if err := h.emailSvc.SendPaymentConfirmation(req, "N/A", false); err != nil {
		log.WithError(err).Error("Failed to send failure notification email")
	}
}

func localString(c *fiber.Ctx, key string) string {
	if v, ok := c.Locals(key).(string); ok && v != "" {
		return v
	}
	return "unknown"
}
