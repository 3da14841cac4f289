package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferDirection is derived server-side relative to the requesting user;
// it is not an intrinsic property of the transfer record.
type TransferDirection string

const (
	TransferSent     TransferDirection = "sent"
	TransferReceived TransferDirection = "received"
)

// BasicUserInfo identifies a transfer counterparty.
type BasicUserInfo struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Transfer mirrors one settled peer transfer. Transfers are immutable once
// created, which is why the transfers cache never polls.
type Transfer struct {
	ID              int               `json:"id"`
	CryptoType      string            `json:"crypto_type"` // display name as stored by the ledger
	Amount          decimal.Decimal   `json:"amount"`
	USDAmount       decimal.Decimal   `json:"usd_amount"`
	TransactionHash string            `json:"transaction_hash"`
	CreatedAt       time.Time         `json:"created_at"`
	FromUser        BasicUserInfo     `json:"from_user"`
	ToUser          BasicUserInfo     `json:"to_user"`
	Direction       TransferDirection `json:"direction,omitempty"`
}

// TransferCreateRequest carries the resolved recipient: exactly one of
// ToEmail / ToUserID is set, never both.
type TransferCreateRequest struct {
	CryptoType CryptoType      `json:"crypto_type"`
	Amount     decimal.Decimal `json:"amount"`
	ToEmail    string          `json:"to_email,omitempty"`
	ToUserID   string          `json:"to_user_id,omitempty"`
}
