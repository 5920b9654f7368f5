package utils

import (
	"crypto/rand"
	"errors"
	"math/big"

	"github.com/anjiri1684/liquidity/models"
	"gorm.io/gorm"
)

const referralCodeLength = 8
const referralAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const maxReferralCodeAttempts = 10

var ErrReferralCodeExhausted = errors.New("could not generate a unique referral code")

// GenerateUniqueReferralCode draws codes until one is unused. It must run on the
// same transaction that inserts the user.
func GenerateUniqueReferralCode(tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < maxReferralCodeAttempts; attempt++ {
		code, err := randomCode(referralCodeLength)
		if err != nil {
			return "", err
		}

		var count int64
		if err := tx.Model(&models.User{}).Where("referral_code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", ErrReferralCodeExhausted
}

// RandomToken returns n random characters from the referral alphabet.
func RandomToken(n int) (string, error) {
	return randomCode(n)
}

func randomCode(n int) (string, error) {
	max := big.NewInt(int64(len(referralAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = referralAlphabet[idx.Int64()]
	}
	return string(b), nil
}
