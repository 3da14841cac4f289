package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Withdrawal mirrors one withdrawal request owned by the current user.
// USDAmount is revalued by the ledger at read time, so two fetches of the
// same record can report different USD figures.
type Withdrawal struct {
	ID              int             `json:"id"`
	CryptoType      string          `json:"crypto_type"` // display name
	Amount          decimal.Decimal `json:"amount"`
	USDAmount       decimal.Decimal `json:"usd_amount"`
	WalletAddress   string          `json:"wallet_address"`
	Status          string          `json:"status"`
	TransactionHash string          `json:"transaction_hash"`
	CreatedAt       time.Time       `json:"created_at"`
}

// WithdrawalCreateRequest is the payload of POST /api/withdrawals/create.
type WithdrawalCreateRequest struct {
	CryptoType    CryptoType      `json:"crypto_type"`
	Amount        decimal.Decimal `json:"amount"`
	WalletAddress string          `json:"wallet_address"`
}
