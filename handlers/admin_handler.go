package handlers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/anjiri1684/liquidity/models"
	"github.com/anjiri1684/liquidity/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type UserStatusRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

type CurrencyRequest struct {
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	PriceKES decimal.Decimal `json:"price_kes"`
	Active   *bool           `json:"active"`
}

type AdminHandler struct {
	admin    *services.AdminService
	payments *services.PaymentService
	catalog  *services.CatalogService
	log      *zap.Logger
}

func NewAdminHandler(admin *services.AdminService, payments *services.PaymentService, catalog *services.CatalogService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, payments: payments, catalog: catalog, log: log}
}

func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	page, limit := pageParams(c)
	users, total, err := h.admin.ListUsers(c.UserContext(), c.Query("search"), page, limit)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(paged(users, total, page, limit))
}

func (h *AdminHandler) SetUserStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	var req UserStatusRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	user, err := h.admin.SetUserActive(c.UserContext(), id, *req.IsActive)
	if err != nil {
		return respondError(c, h.log, err)
	}

	status := "deactivated"
	if user.IsActive {
		status = "activated"
	}
	return c.JSON(fiber.Map{"message": fmt.Sprintf("User account has been %s", status), "user": user})
}

func (h *AdminHandler) ListPayments(c *fiber.Ctx) error {
	status := c.Query("status")
	switch status {
	case "", models.PaymentPending, models.PaymentCompleted, models.PaymentFailed:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid status filter"})
	}

	page, limit := pageParams(c)
	payments, total, err := h.payments.List(c.UserContext(), status, page, limit)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(paged(payments, total, page, limit))
}

func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	stats, err := h.admin.Dashboard(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(stats)
}

// TransactionReport exports completed top-ups between start_date and end_date
// (inclusive, YYYY-MM-DD) as CSV. The default range is the last month.
func (h *AdminHandler) TransactionReport(c *fiber.Ctx) error {
	startDate, err := time.ParseInLocation("2006-01-02", c.Query("start_date", time.Now().AddDate(0, -1, 0).Format("2006-01-02")), time.Local)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid start_date format. Use YYYY-MM-DD."})
	}
	endDate, err := time.ParseInLocation("2006-01-02", c.Query("end_date", time.Now().Format("2006-01-02")), time.Local)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid end_date format. Use YYYY-MM-DD."})
	}
	endOfDay := endDate.Add(24*time.Hour - time.Second)

	payments, err := h.payments.CompletedBetween(c.UserContext(), startDate, endOfDay)
	if err != nil {
		return respondError(c, h.log, err)
	}

	b := new(bytes.Buffer)
	w := csv.NewWriter(b)
	if err := w.Write([]string{"Payment ID", "Date", "Customer", "Phone", "Currency", "Amount (KES)", "M-Pesa Receipt"}); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to write CSV header"})
	}
	for _, p := range payments {
		row := []string{
			p.ID.String(),
			p.CreatedAt.Format("2006-01-02 15:04"),
			p.User.FullName,
			p.PhoneNumber,
			p.CurrencyCode,
			p.Amount.StringFixed(2),
			p.ReceiptNumber,
		}
		if err := w.Write(row); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to write CSV row"})
		}
	}
	w.Flush()

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=\"topups_%s_to_%s.csv\"", startDate.Format("2006-01-02"), endDate.Format("2006-01-02")))
	return c.Send(b.Bytes())
}

func (h *AdminHandler) ListCurrencies(c *fiber.Ctx) error {
	products, err := h.catalog.List(c.UserContext(), true)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(products)
}

func (h *AdminHandler) CreateCurrency(c *fiber.Ctx) error {
	var req CurrencyRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	product, err := h.catalog.Create(c.UserContext(), services.CurrencyProductInput(req))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

func (h *AdminHandler) UpdateCurrency(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid currency ID"})
	}

	var req CurrencyRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	product, err := h.catalog.Update(c.UserContext(), id, services.CurrencyProductInput(req))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(product)
}

func (h *AdminHandler) DeleteCurrency(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid currency ID"})
	}
	if err := h.catalog.Deactivate(c.UserContext(), id); err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
