package stubledger

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

func (s *Server) handleProfile(c *fiber.Ctx) error {
	user := s.currentUser(c)
	settings, err := s.settings()
	if err != nil {
		return detail(c, fiber.StatusInternalServerError, "Settings not found")
	}

	btcUSD := user.BitcoinBalance.Mul(settings.BitcoinRateUSD)
	ethUSD := user.EthereumBalance.Mul(settings.EthereumRateUSD)
	totalUSD := btcUSD.Add(ethUSD)

	var referred int64
	if user.ReferralCode != "" {
		s.db.Model(&User{}).Where("referred_by_code = ?", user.ReferralCode).Count(&referred)
	}

	return c.JSON(fiber.Map{
		"id":                   user.ID,
		"user_id":              user.UserID,
		"name":                 user.Name,
		"email":                user.Email,
		"status":               user.Status,
		"is_flagged":           user.IsFlagged,
		"usd_balance":          totalUSD,
		"bitcoin_balance":      user.BitcoinBalance,
		"ethereum_balance":     user.EthereumBalance,
		"bitcoin_balance_usd":  btcUSD,
		"ethereum_balance_usd": ethUSD,
		"total_balance_usd":    totalUSD,
		"bitcoin_wallet":       user.BitcoinWallet,
		"ethereum_wallet":      user.EthereumWallet,
		"personal_mining_rate": user.PersonalMiningRate,
		"referral_code":        user.ReferralCode,
		"referred_users_count": referred,
		"email_verified":       user.EmailVerified,
		"created_at":           user.CreatedAt,
	})
}

// rateFor returns the USD rate for a normalized crypto type.
func rateFor(settings Settings, cryptoType string) decimal.Decimal {
	if cryptoType == "bitcoin" {
		return settings.BitcoinRateUSD
	}
	return settings.EthereumRateUSD
}

// balanceFor reads the user's balance for a normalized crypto type.
func balanceFor(user *User, cryptoType string) decimal.Decimal {
	if cryptoType == "bitcoin" {
		return user.BitcoinBalance
	}
	return user.EthereumBalance
}

// creditBalance adds amount to the user's balance for the crypto type.
func creditBalance(user *User, cryptoType string, amount decimal.Decimal) {
	if cryptoType == "bitcoin" {
		user.BitcoinBalance = user.BitcoinBalance.Add(amount)
	} else {
		user.EthereumBalance = user.EthereumBalance.Add(amount)
	}
}
