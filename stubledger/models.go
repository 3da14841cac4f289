// Package stubledger is a local emulator of the remote ledger service, so
// the client daemon can be developed and exercised without the production
// backend. It implements the endpoint surface the client talks to with the
// production semantics: continuous mining accrual, transfer settlement with
// USD revaluation, deposit review states and login lockout.
package stubledger

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID                  int    `gorm:"primaryKey"`
	UserID              string `gorm:"uniqueIndex;not null"` // numeric account identifier
	Email               string `gorm:"uniqueIndex;not null"`
	Name                string `gorm:"not null"`
	PasswordHash        string `gorm:"not null"`
	PinHash             string
	Status              string `gorm:"default:approved"`
	IsFlagged           bool
	BitcoinBalance      decimal.Decimal `gorm:"type:numeric(18,8);default:0"`
	EthereumBalance     decimal.Decimal `gorm:"type:numeric(18,8);default:0"`
	BitcoinWallet       string
	EthereumWallet      string
	PersonalMiningRate  *float64
	ReferralCode        string
	ReferredByCode      string
	EmailVerified       bool
	FailedLoginAttempts int
	LockedUntil         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Settings holds the admin-managed rates and deposit destinations.
// A single row exists.
type Settings struct {
	ID                    int             `gorm:"primaryKey"`
	BitcoinRateUSD        decimal.Decimal `gorm:"type:numeric(18,2);default:50000"`
	EthereumRateUSD       decimal.Decimal `gorm:"type:numeric(18,2);default:3000"`
	BitcoinWalletAddress  string
	EthereumWalletAddress string
	BitcoinDepositQR      *string
	EthereumDepositQR     *string
	GlobalMiningRate      float64 `gorm:"default:0.70"` // percent of deposit per day
	UpdatedAt             time.Time
}

type Deposit struct {
	ID              int    `gorm:"primaryKey"`
	UserID          int    `gorm:"index;not null"`
	CryptoType      string `gorm:"not null"`
	Amount          decimal.Decimal `gorm:"type:numeric(18,8);not null"`
	USDAmount       decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Status          string          `gorm:"default:pending;index"`
	TransactionHash *string
	EvidenceURL     *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Transfer struct {
	ID              int    `gorm:"primaryKey"`
	FromUserID      int    `gorm:"index;not null"`
	ToUserID        int    `gorm:"index;not null"`
	CryptoType      string `gorm:"not null"` // display name, as the production ledger stores it
	Amount          decimal.Decimal `gorm:"type:numeric(18,8);not null"`
	USDAmount       decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	TransactionHash string          `gorm:"not null"`
	CreatedAt       time.Time
}

type Withdrawal struct {
	ID              int    `gorm:"primaryKey"`
	UserID          int    `gorm:"index;not null"`
	CryptoType      string `gorm:"not null"`
	Amount          decimal.Decimal `gorm:"type:numeric(18,8);not null"`
	WalletAddress   string          `gorm:"not null"`
	Status          string          `gorm:"default:pending"`
	TransactionHash string
	CreatedAt       time.Time
}

type MiningSession struct {
	ID              int    `gorm:"primaryKey"`
	UserID          int    `gorm:"index;not null"`
	DepositID       int    `gorm:"not null"`
	CryptoType      string `gorm:"not null"`
	DepositedAmount decimal.Decimal `gorm:"type:numeric(18,8);not null"`
	MiningRate      float64         `gorm:"not null"` // percent per day, frozen at session start
	MinedAmount     decimal.Decimal `gorm:"type:numeric(18,8);default:0"`
	Status          string          `gorm:"default:Active;index"`
	StartedAt       time.Time
	LastMined       *time.Time
	PausedAt        *time.Time
	StoppedAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type OTP struct {
	ID        int    `gorm:"primaryKey"`
	Email     string `gorm:"index;not null"`
	Code      string `gorm:"not null"`
	Purpose   string `gorm:"not null"`
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

var secondsPerDay = decimal.NewFromInt(24 * 3600)

// AccruedAmount is the reward mined over elapsed time at ratePercent of the
// deposited amount per day.
func AccruedAmount(deposited decimal.Decimal, ratePercent float64, elapsed time.Duration) decimal.Decimal {
	if elapsed <= 0 {
		return decimal.Zero
	}
	perDay := deposited.Mul(decimal.NewFromFloat(ratePercent)).Div(decimal.NewFromInt(100))
	// Multiply before dividing so whole-second spans stay exact.
	return perDay.Mul(decimal.NewFromFloat(elapsed.Seconds())).Div(secondsPerDay)
}

// MiningCap is the total mineable reward for a session: ratePercent of the
// deposit. Progress percentage is measured against this cap.
func MiningCap(deposited decimal.Decimal, ratePercent float64) decimal.Decimal {
	return deposited.Mul(decimal.NewFromFloat(ratePercent)).Div(decimal.NewFromInt(100))
}

// ProgressPercent is the session's progress toward its cap, clamped to
// [0,100].
func ProgressPercent(mined, cap decimal.Decimal) float64 {
	if !cap.IsPositive() {
		return 0
	}
	p, _ := mined.Div(cap).Mul(decimal.NewFromInt(100)).Float64()
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
