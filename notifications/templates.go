package notifications

import (
	"fmt"
	"html"

	"github.com/anjiri1684/liquidity/models"
	"github.com/shopspring/decimal"
)

func WelcomeEmail(user *models.User) (string, string) {
	code := ""
	if user.ReferralCode != nil {
		code = *user.ReferralCode
	}
	return "Welcome to Liquidity", fmt.Sprintf(
		"<h1>Welcome, %s!</h1><p>Your wallet is ready. Share your referral code <b>%s</b> and earn half of every top-up your friends make.</p>",
		html.EscapeString(user.FullName), code)
}

func TopUpEmail(user *models.User, payment *models.MpesaPayment, rental *models.Rental, balance decimal.Decimal) (string, string) {
	return "Top-up received", fmt.Sprintf(
		"<h1>Payment received</h1><p>Hi %s, we received KES %s (M-Pesa receipt %s) for your %s rental.</p>"+
			"<p>Expected return: KES %s on %s.</p><p>Wallet balance: KES %s.</p>",
		html.EscapeString(user.FullName),
		payment.Amount.StringFixed(2), payment.ReceiptNumber, rental.Currency,
		rental.ExpectedReturn.StringFixed(2), rental.MaturesAt.Format("January 2, 2006"),
		balance.StringFixed(2))
}

func WithdrawalDecisionEmail(user *models.User, w *models.Withdrawal) (string, string) {
	switch w.Status {
	case models.WithdrawalPaid:
		return "Withdrawal paid", fmt.Sprintf(
			"<h1>Withdrawal paid</h1><p>Hi %s, KES %s has been sent to %s.</p>",
			html.EscapeString(user.FullName), w.Amount.StringFixed(2), w.MobileNumber)
	default:
		reason := "No reason was given."
		if w.AdminNotes != nil && *w.AdminNotes != "" {
			reason = *w.AdminNotes
		}
		return "Withdrawal rejected", fmt.Sprintf(
			"<h1>Withdrawal rejected</h1><p>Hi %s, your withdrawal of KES %s was rejected and the amount returned to your wallet.</p><p>%s</p>",
			html.EscapeString(user.FullName), w.Amount.StringFixed(2), html.EscapeString(reason))
	}
}
