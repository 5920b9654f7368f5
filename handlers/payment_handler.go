package handlers

import (
	"context"
	"fmt"

	"github.com/anjiri1684/liquidity/models"
	"github.com/anjiri1684/liquidity/services"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type StkPushRequest struct {
	PhoneNumber  string `json:"phone_number" validate:"required"`
	CurrencyCode string `json:"currency_code" validate:"required"`
}

// RateSource provides market rates as KES per unit of each currency.
type RateSource interface {
	KESRates(ctx context.Context) (map[string]decimal.Decimal, error)
}

type currencyView struct {
	models.CurrencyProduct
	MarketRateKES *decimal.Decimal `json:"market_rate_kes,omitempty"`
}

type PaymentHandler struct {
	topups    *services.TopUpService
	callbacks *services.CallbackService
	payments  *services.PaymentService
	catalog   *services.CatalogService
	rates     RateSource
	log       *zap.Logger
}

func NewPaymentHandler(topups *services.TopUpService, callbacks *services.CallbackService, payments *services.PaymentService, catalog *services.CatalogService, rates RateSource, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		topups:    topups,
		callbacks: callbacks,
		payments:  payments,
		catalog:   catalog,
		rates:     rates,
		log:       log,
	}
}

func (h *PaymentHandler) InitiateSTKPush(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthenticated(c)
	}

	var req StkPushRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	payment, err := h.topups.InitiateTopUp(c.UserContext(), userID, req.PhoneNumber, req.CurrencyCode)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":             fmt.Sprintf("STK push of %s KES sent for %s. Check your phone.", payment.Amount.StringFixed(2), payment.CurrencyCode),
		"payment_id":          payment.ID,
		"checkout_request_id": payment.CheckoutRequestID,
		"amount":              payment.Amount,
		"currency":            payment.CurrencyCode,
		"status":              payment.Status,
	})
}

// MpesaCallback always answers 200 so the provider does not retry; the ack
// body carries the outcome.
func (h *PaymentHandler) MpesaCallback(c *fiber.Ctx) error {
	ack := h.callbacks.HandleSTKCallback(c.UserContext(), c.Body())
	return c.Status(fiber.StatusOK).JSON(ack)
}

func (h *PaymentHandler) History(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthenticated(c)
	}
	payments, err := h.payments.History(c.UserContext(), userID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(payments)
}

// Currencies lists the rentable products. With ?rates=true each product also
// carries the current market rate when one is available.
func (h *PaymentHandler) Currencies(c *fiber.Ctx) error {
	products, err := h.catalog.List(c.UserContext(), false)
	if err != nil {
		return respondError(c, h.log, err)
	}

	views := make([]currencyView, len(products))
	for i, p := range products {
		views[i] = currencyView{CurrencyProduct: p}
	}

	if c.QueryBool("rates") && h.rates != nil {
		rates, err := h.rates.KESRates(c.UserContext())
		if err != nil {
			h.log.Warn("market rates unavailable", zap.Error(err))
		} else {
			for i := range views {
				if rate, ok := rates[views[i].Code]; ok {
					rate := rate
					views[i].MarketRateKES = &rate
				}
			}
		}
	}

	return c.JSON(views)
}
