package handlers

import (
	"github.com/anjiri1684/liquidity/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type WalletHandler struct {
	wallet    *services.WalletService
	rentals   *services.RentalService
	referrals *services.ReferralService
	auth      *services.AuthService
	log       *zap.Logger
}

func NewWalletHandler(wallet *services.WalletService, rentals *services.RentalService, referrals *services.ReferralService, auth *services.AuthService, log *zap.Logger) *WalletHandler {
	return &WalletHandler{wallet: wallet, rentals: rentals, referrals: referrals, auth: auth, log: log}
}

func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthenticated(c)
	}
	wallet, err := h.wallet.Balance(c.UserContext(), userID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(wallet)
}

func (h *WalletHandler) Transactions(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthenticated(c)
	}
	page, limit := pageParams(c)
	txs, total, err := h.wallet.Transactions(c.UserContext(), userID, page, limit)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(paged(txs, total, page, limit))
}

func (h *WalletHandler) Rentals(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthenticated(c)
	}
	rentals, err := h.rentals.ListRentals(c.UserContext(), userID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(rentals)
}

func (h *WalletHandler) PendingReturns(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthenticated(c)
	}
	total, err := h.rentals.PendingReturns(c.UserContext(), userID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"pending_returns": total, "currency": "KES"})
}

func (h *WalletHandler) Referrals(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthenticated(c)
	}
	referrals, err := h.referrals.List(c.UserContext(), userID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(referrals)
}

func (h *WalletHandler) ReferralSummary(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthenticated(c)
	}
	user, err := h.auth.Profile(c.UserContext(), userID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	summary, err := h.referrals.Summary(c.UserContext(), user)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(summary)
}
