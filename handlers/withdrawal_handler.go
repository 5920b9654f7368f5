package handlers

import (
	"context"
	"time"

	"github.com/anjiri1684/liquidity/models"
	"github.com/anjiri1684/liquidity/notifications"
	"github.com/anjiri1684/liquidity/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// WalletNotifier pushes balance changes to a user's open connections.
type WalletNotifier interface {
	NotifyWallet(userID uuid.UUID, balance, amount decimal.Decimal, reason string)
}

type WithdrawalRequest struct {
	MobileNumber string          `json:"mobile_number" validate:"required"`
	Amount       decimal.Decimal `json:"amount"`
}

type WithdrawalDecisionRequest struct {
	AdminNotes string `json:"admin_notes"`
}

type WithdrawalHandler struct {
	withdrawals *services.WithdrawalService
	wallet      *services.WalletService
	notifier    WalletNotifier
	mailer      Mailer
	log         *zap.Logger
}

func NewWithdrawalHandler(withdrawals *services.WithdrawalService, wallet *services.WalletService, notifier WalletNotifier, mailer Mailer, log *zap.Logger) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawals: withdrawals, wallet: wallet, notifier: notifier, mailer: mailer, log: log}
}

func (h *WithdrawalHandler) Request(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthenticated(c)
	}

	var req WithdrawalRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	withdrawal, err := h.withdrawals.Submit(c.UserContext(), userID, req.MobileNumber, req.Amount)
	if err != nil {
		return respondError(c, h.log, err)
	}
	h.pushBalance(c.UserContext(), userID, withdrawal.Amount.Neg(), models.ReasonWithdrawalReserve)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":    "Withdrawal request submitted successfully.",
		"withdrawal": withdrawal,
	})
}

func (h *WithdrawalHandler) History(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthenticated(c)
	}
	withdrawals, err := h.withdrawals.History(c.UserContext(), userID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(withdrawals)
}

func (h *WithdrawalHandler) AdminList(c *fiber.Ctx) error {
	status := c.Query("status")
	switch status {
	case "", models.WithdrawalPending, models.WithdrawalProcessing, models.WithdrawalPaid, models.WithdrawalRejected:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid status filter"})
	}

	withdrawals, err := h.withdrawals.ListByStatus(c.UserContext(), status)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(withdrawals)
}

// AdminGet returns one withdrawal, escalating it first when it has waited past the deadline.
func (h *WithdrawalHandler) AdminGet(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid id"})
	}

	if _, err := h.withdrawals.EscalateIfDue(c.UserContext(), id, time.Now()); err != nil {
		return respondError(c, h.log, err)
	}
	withdrawal, err := h.withdrawals.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(withdrawal)
}

func (h *WithdrawalHandler) Approve(c *fiber.Ctx) error {
	return h.decide(c, h.withdrawals.Approve)
}

func (h *WithdrawalHandler) Reject(c *fiber.Ctx) error {
	return h.decide(c, h.withdrawals.Reject)
}

func (h *WithdrawalHandler) decide(c *fiber.Ctx, apply func(ctx context.Context, id uuid.UUID, notes string) (*models.Withdrawal, error)) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid id"})
	}

	var req WithdrawalDecisionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
		}
	}

	withdrawal, err := apply(c.UserContext(), id, req.AdminNotes)
	if err != nil {
		return respondError(c, h.log, err)
	}

	if withdrawal.Status == models.WithdrawalRejected {
		h.pushBalance(c.UserContext(), withdrawal.UserID, withdrawal.Amount, models.ReasonWithdrawalRefund)
	}

	if full, err := h.withdrawals.Get(c.UserContext(), withdrawal.ID); err == nil {
		subject, body := notifications.WithdrawalDecisionEmail(&full.User, full)
		h.mailer.SendAsync(full.User.FullName, full.User.Email, subject, body)
		withdrawal = full
	} else {
		h.log.Warn("failed to load withdrawal for notification", zap.String("withdrawal_id", id.String()), zap.Error(err))
	}

	return c.JSON(fiber.Map{
		"message":    "Withdrawal " + withdrawal.Status + ".",
		"withdrawal": withdrawal,
	})
}

func (h *WithdrawalHandler) pushBalance(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, reason string) {
	if h.notifier == nil {
		return
	}
	wallet, err := h.wallet.Balance(ctx, userID)
	if err != nil {
		h.log.Warn("failed to read balance for notification", zap.String("user_id", userID.String()), zap.Error(err))
		return
	}
	h.notifier.NotifyWallet(userID, wallet.Balance, amount, reason)
}
