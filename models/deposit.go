package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DepositStatus follows the ledger's review pipeline. Only pending deposits
// accept evidence uploads; confirmed and rejected are terminal for the client.
type DepositStatus string

const (
	DepositPending   DepositStatus = "pending"
	DepositSubmitted DepositStatus = "submitted"
	DepositConfirmed DepositStatus = "confirmed"
	DepositRejected  DepositStatus = "rejected"
)

// Deposit mirrors one crypto deposit record owned by the current user.
type Deposit struct {
	ID              int             `json:"id"`
	CryptoType      CryptoType      `json:"crypto_type"`
	Amount          decimal.Decimal `json:"amount"`
	USDAmount       decimal.Decimal `json:"usd_amount"`
	Status          DepositStatus   `json:"status"`
	TransactionHash *string         `json:"transaction_hash,omitempty"`
	EvidenceURL     *string         `json:"evidence_url,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// DepositInfo is the per-asset deposit destination served by
// GET /api/deposits/info/{crypto_type}.
type DepositInfo struct {
	CryptoType    CryptoType      `json:"crypto_type"`
	QRCodeURL     *string         `json:"qr_code_url"`
	WalletAddress string          `json:"wallet_address"`
	USDRate       decimal.Decimal `json:"usd_rate"`
}

// CryptoRates is the payload of GET /api/deposits/rates.
type CryptoRates struct {
	BitcoinUSDRate  decimal.Decimal `json:"bitcoin_usd_rate"`
	EthereumUSDRate decimal.Decimal `json:"ethereum_usd_rate"`
}

// ConvertRequest carries exactly one of Amount / USDAmount; the ledger
// fills in the other side at its current rate. The client never converts
// locally so the displayed rate always matches what deposit creation will
// apply.
type ConvertRequest struct {
	CryptoType CryptoType       `json:"crypto_type"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	USDAmount  *decimal.Decimal `json:"usd_amount,omitempty"`
}

// ConvertResult is the server-computed pair of linked amounts.
type ConvertResult struct {
	CryptoAmount decimal.Decimal `json:"crypto_amount"`
	USDAmount    decimal.Decimal `json:"usd_amount"`
	CryptoType   CryptoType      `json:"crypto_type"`
}

// DepositCreateRequest is the payload of POST /api/deposits/create.
type DepositCreateRequest struct {
	CryptoType      CryptoType       `json:"crypto_type"`
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	USDAmount       *decimal.Decimal `json:"usd_amount,omitempty"`
	TransactionHash string           `json:"transaction_hash,omitempty"`
}

// DepositCreateResult echoes the stored amounts and the destination wallet.
type DepositCreateResult struct {
	Message       string     `json:"message"`
	DepositID     int        `json:"deposit_id"`
	CryptoAmount  string     `json:"crypto_amount"`
	USDAmount     string     `json:"usd_amount"`
	QRCodeURL     *string    `json:"qr_code_url"`
	WalletAddress string     `json:"wallet_address"`
	CryptoType    CryptoType `json:"crypto_type"`
}

// EvidenceUploadResult is the payload of POST /api/deposits/{id}/upload-evidence.
type EvidenceUploadResult struct {
	Message     string `json:"message"`
	EvidenceURL string `json:"evidence_url"`
}
