package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserSummary is the compact user payload returned alongside an access token
// on login. It is held by the session store for the lifetime of the session.
type UserSummary struct {
	ID           int    `json:"id"`
	UserID       string `json:"user_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Status       string `json:"status"`
	ReferralCode string `json:"referral_code"`
}

// UserProfile mirrors the full profile snapshot served by the ledger,
// including per-asset balances and their server-computed USD equivalents.
// The client never writes to this struct; it is replaced wholesale by
// profile refetches.
type UserProfile struct {
	ID                 int             `json:"id"`
	UserID             string          `json:"user_id"`
	Name               string          `json:"name"`
	Email              string          `json:"email"`
	Status             string          `json:"status"`
	IsFlagged          bool            `json:"is_flagged"`
	USDBalance         decimal.Decimal `json:"usd_balance"`
	BitcoinBalance     decimal.Decimal `json:"bitcoin_balance"`
	EthereumBalance    decimal.Decimal `json:"ethereum_balance"`
	BitcoinBalanceUSD  decimal.Decimal `json:"bitcoin_balance_usd"`
	EthereumBalanceUSD decimal.Decimal `json:"ethereum_balance_usd"`
	// TotalBalanceUSD is informational and server-computed. It is never
	// recomputed locally from the asset balances, so it can lag the rates.
	TotalBalanceUSD    decimal.Decimal `json:"total_balance_usd"`
	BitcoinWallet      string          `json:"bitcoin_wallet"`
	EthereumWallet     string          `json:"ethereum_wallet"`
	PersonalMiningRate *float64        `json:"personal_mining_rate"`
	ReferralCode       string          `json:"referral_code"`
	ReferredUsersCount int             `json:"referred_users_count"`
	EmailVerified      bool            `json:"email_verified"`
	CreatedAt          time.Time       `json:"created_at"`
}

// Balance returns the available balance for the given asset.
func (p UserProfile) Balance(crypto CryptoType) decimal.Decimal {
	if crypto == CryptoBitcoin {
		return p.BitcoinBalance
	}
	return p.EthereumBalance
}

// Summary projects the profile down to the fields the session store keeps.
func (p UserProfile) Summary() UserSummary {
	return UserSummary{
		ID:           p.ID,
		UserID:       p.UserID,
		Name:         p.Name,
		Email:        p.Email,
		Status:       p.Status,
		ReferralCode: p.ReferralCode,
	}
}

// LoginResponse is the payload of POST /api/login.
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        UserSummary `json:"user"`
}

// PinVerifyResponse is the payload of POST /api/verify-pin. The dashboard
// token unlocks balance-bearing views and expires independently of the
// login token.
type PinVerifyResponse struct {
	Message        string `json:"message"`
	DashboardToken string `json:"dashboard_token"`
	ExpiresIn      int    `json:"expires_in"`
}
