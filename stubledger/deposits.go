package stubledger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"crypto-mining-client/utils"
)

func normalizeCrypto(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bitcoin", "btc":
		return "bitcoin", true
	case "ethereum", "eth":
		return "ethereum", true
	default:
		return "", false
	}
}

func (s *Server) handleDepositInfo(c *fiber.Ctx) error {
	cryptoType, ok := normalizeCrypto(c.Params("crypto_type"))
	if !ok {
		return detail(c, fiber.StatusBadRequest, fmt.Sprintf("Unsupported crypto type: %s", c.Params("crypto_type")))
	}

	settings, err := s.settings()
	if err != nil {
		return detail(c, fiber.StatusInternalServerError, "Settings not found")
	}

	var wallet string
	var qr *string
	if cryptoType == "bitcoin" {
		wallet, qr = settings.BitcoinWalletAddress, settings.BitcoinDepositQR
	} else {
		wallet, qr = settings.EthereumWalletAddress, settings.EthereumDepositQR
	}
	if wallet == "" {
		return detail(c, fiber.StatusNotFound, fmt.Sprintf("No wallet address configured for %s", cryptoType))
	}

	return c.JSON(fiber.Map{
		"crypto_type":    cryptoType,
		"qr_code_url":    qr,
		"wallet_address": wallet,
		"usd_rate":       rateFor(settings, cryptoType),
	})
}

func (s *Server) handleRates(c *fiber.Ctx) error {
	settings, err := s.settings()
	if err != nil {
		return detail(c, fiber.StatusNotFound, "Settings not found")
	}
	return c.JSON(fiber.Map{
		"bitcoin_usd_rate":  settings.BitcoinRateUSD,
		"ethereum_usd_rate": settings.EthereumRateUSD,
	})
}

type convertRequest struct {
	CryptoType string           `json:"crypto_type"`
	Amount     *decimal.Decimal `json:"amount"`
	USDAmount  *decimal.Decimal `json:"usd_amount"`
}

func (s *Server) handleConvert(c *fiber.Ctx) error {
	var req convertRequest
	if err := c.BodyParser(&req); err != nil {
		return detail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	cryptoType, ok := normalizeCrypto(req.CryptoType)
	if !ok {
		return detail(c, fiber.StatusBadRequest, fmt.Sprintf("Unsupported crypto type: %s", req.CryptoType))
	}
	if req.Amount != nil && req.USDAmount != nil {
		return detail(c, fiber.StatusBadRequest, "Provide either crypto amount or USD amount, not both")
	}
	if req.Amount == nil && req.USDAmount == nil {
		return detail(c, fiber.StatusBadRequest, "Provide either crypto amount or USD amount")
	}

	settings, err := s.settings()
	if err != nil {
		return detail(c, fiber.StatusInternalServerError, "Settings not found")
	}
	rate := rateFor(settings, cryptoType)

	if req.Amount != nil {
		return c.JSON(fiber.Map{
			"crypto_amount": req.Amount,
			"usd_amount":    req.Amount.Mul(rate).Round(2),
			"crypto_type":   cryptoType,
		})
	}
	return c.JSON(fiber.Map{
		"crypto_amount": req.USDAmount.Div(rate).Round(8),
		"usd_amount":    req.USDAmount,
		"crypto_type":   cryptoType,
	})
}

type depositCreateRequest struct {
	CryptoType      string           `json:"crypto_type"`
	Amount          *decimal.Decimal `json:"amount"`
	USDAmount       *decimal.Decimal `json:"usd_amount"`
	TransactionHash string           `json:"transaction_hash"`
}

func (s *Server) handleCreateDeposit(c *fiber.Ctx) error {
	user := s.currentUser(c)
	if user.IsFlagged {
		return detail(c, fiber.StatusForbidden, "Account flagged - deposits not allowed")
	}

	var req depositCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return detail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	cryptoType, ok := normalizeCrypto(req.CryptoType)
	if !ok {
		return detail(c, fiber.StatusBadRequest, fmt.Sprintf("Unsupported crypto type: %s", req.CryptoType))
	}

	settings, err := s.settings()
	if err != nil {
		return detail(c, fiber.StatusInternalServerError, "Settings not found")
	}
	rate := rateFor(settings, cryptoType)

	var cryptoAmount, usdAmount decimal.Decimal
	switch {
	case req.Amount != nil:
		cryptoAmount = *req.Amount
		usdAmount = cryptoAmount.Mul(rate).Round(2)
	case req.USDAmount != nil:
		usdAmount = *req.USDAmount
		cryptoAmount = usdAmount.Div(rate).Round(8)
	default:
		return detail(c, fiber.StatusBadRequest, "Provide either crypto amount or USD amount")
	}

	var wallet string
	var qr *string
	if cryptoType == "bitcoin" {
		wallet, qr = settings.BitcoinWalletAddress, settings.BitcoinDepositQR
	} else {
		wallet, qr = settings.EthereumWalletAddress, settings.EthereumDepositQR
	}
	if wallet == "" {
		return detail(c, fiber.StatusNotFound, fmt.Sprintf("No wallet address configured for %s", cryptoType))
	}

	deposit := Deposit{
		UserID:     user.ID,
		CryptoType: cryptoType,
		Amount:     cryptoAmount,
		USDAmount:  usdAmount,
		Status:     "pending",
	}
	if req.TransactionHash != "" {
		deposit.TransactionHash = &req.TransactionHash
	}
	if err := s.db.Create(&deposit).Error; err != nil {
		return detail(c, fiber.StatusInternalServerError, "Failed to create deposit")
	}

	log.Printf("📥 [DEPOSIT] User %d created %s deposit of %s ($%s)", user.ID, cryptoType, cryptoAmount, usdAmount)

	return c.JSON(fiber.Map{
		"message":        "Deposit created successfully",
		"deposit_id":     deposit.ID,
		"crypto_amount":  cryptoAmount.StringFixed(8),
		"usd_amount":     usdAmount.StringFixed(2),
		"qr_code_url":    qr,
		"wallet_address": wallet,
		"crypto_type":    cryptoType,
	})
}

var allowedEvidenceTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"application/pdf": true,
}

func (s *Server) handleUploadEvidence(c *fiber.Ctx) error {
	user := s.currentUser(c)
	depositID, err := c.ParamsInt("id")
	if err != nil {
		return detail(c, fiber.StatusBadRequest, "Invalid deposit id")
	}

	var deposit Deposit
	if err := s.db.Where("id = ? AND user_id = ?", depositID, user.ID).First(&deposit).Error; err != nil {
		return detail(c, fiber.StatusNotFound, "Deposit not found")
	}
	if deposit.Status != "pending" {
		return detail(c, fiber.StatusBadRequest, "Can only upload evidence for pending deposits")
	}

	fileHeader, err := c.FormFile("evidence_file")
	if err != nil {
		return detail(c, fiber.StatusBadRequest, "evidence_file is required")
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if !allowedEvidenceTypes[contentType] {
		return detail(c, fiber.StatusBadRequest, "Only images (JPEG, PNG, GIF) and PDF files are allowed")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return detail(c, fiber.StatusInternalServerError, "Failed to read evidence file")
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		return detail(c, fiber.StatusInternalServerError, "Failed to read evidence file")
	}

	key := utils.EvidenceObjectKey(fileHeader.Filename)

	var evidenceURL string
	if utils.R2Configured() {
		evidenceURL, err = utils.UploadEvidenceToR2(c.Context(), key, content, contentType)
		if err != nil {
			log.Printf("❌ [EVIDENCE] R2 upload failed: %v", err)
			return detail(c, fiber.StatusInternalServerError, "Failed to store evidence")
		}
	} else {
		// Local fallback for dev setups without R2 credentials.
		localPath := filepath.Join("uploads", key)
		if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
			return detail(c, fiber.StatusInternalServerError, "Failed to store evidence")
		}
		if err := os.WriteFile(localPath, content, 0o644); err != nil {
			return detail(c, fiber.StatusInternalServerError, "Failed to store evidence")
		}
		evidenceURL = "/" + filepath.ToSlash(localPath)
	}

	deposit.EvidenceURL = &evidenceURL
	if err := s.db.Save(&deposit).Error; err != nil {
		return detail(c, fiber.StatusInternalServerError, "Failed to store evidence")
	}

	return c.JSON(fiber.Map{
		"message":      "Evidence uploaded successfully",
		"evidence_url": evidenceURL,
	})
}

func (s *Server) handleSubmitDeposit(c *fiber.Ctx) error {
	user := s.currentUser(c)
	depositID, err := c.ParamsInt("id")
	if err != nil {
		return detail(c, fiber.StatusBadRequest, "Invalid deposit id")
	}

	var deposit Deposit
	if err := s.db.Where("id = ? AND user_id = ?", depositID, user.ID).First(&deposit).Error; err != nil {
		return detail(c, fiber.StatusNotFound, "Deposit not found")
	}
	if deposit.Status != "pending" {
		return detail(c, fiber.StatusBadRequest, "Deposit already submitted")
	}

	deposit.Status = "submitted"
	if err := s.db.Save(&deposit).Error; err != nil {
		return detail(c, fiber.StatusInternalServerError, "Failed to submit deposit")
	}
	return c.JSON(fiber.Map{"message": "Deposit submitted for admin review"})
}

func (s *Server) handleListDeposits(c *fiber.Ctx) error {
	user := s.currentUser(c)
	var deposits []Deposit
	if err := s.db.Where("user_id = ?", user.ID).Order("created_at desc").Find(&deposits).Error; err != nil {
		return detail(c, fiber.StatusInternalServerError, "Failed to load deposits")
	}

	out := make([]fiber.Map, 0, len(deposits))
	for _, d := range deposits {
		out = append(out, fiber.Map{
			"id":               d.ID,
			"crypto_type":      d.CryptoType,
			"amount":           d.Amount,
			"usd_amount":       d.USDAmount,
			"status":           d.Status,
			"transaction_hash": d.TransactionHash,
			"evidence_url":     d.EvidenceURL,
			"created_at":       d.CreatedAt,
		})
	}
	return c.JSON(out)
}

// handleConfirmDeposit confirms a submitted deposit, credits nothing
// directly and opens the deposit-to-mining allocation, as the production
// ledger does on admin confirmation.
func (s *Server) handleConfirmDeposit(c *fiber.Ctx) error {
	depositID, err := c.ParamsInt("id")
	if err != nil {
		return detail(c, fiber.StatusBadRequest, "Invalid deposit id")
	}

	var deposit Deposit
	if err := s.db.First(&deposit, depositID).Error; err != nil {
		return detail(c, fiber.StatusNotFound, "Deposit not found")
	}
	if deposit.Status == "confirmed" {
		return detail(c, fiber.StatusBadRequest, "Deposit already confirmed")
	}

	var user User
	if err := s.db.First(&user, deposit.UserID).Error; err != nil {
		return detail(c, fiber.StatusNotFound, "Deposit owner not found")
	}

	settings, err := s.settings()
	if err != nil {
		return detail(c, fiber.StatusInternalServerError, "Settings not found")
	}
	miningRate := settings.GlobalMiningRate
	if user.PersonalMiningRate != nil {
		miningRate = *user.PersonalMiningRate
	}

	now := time.Now().UTC()
	deposit.Status = "confirmed"

	session := MiningSession{
		UserID:          user.ID,
		DepositID:       deposit.ID,
		CryptoType:      deposit.CryptoType,
		DepositedAmount: deposit.Amount,
		MiningRate:      miningRate,
		Status:          "Active",
		StartedAt:       now,
		LastMined:       &now,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&deposit).Error; err != nil {
			return err
		}
		return tx.Create(&session).Error
	})
	if err != nil {
		return detail(c, fiber.StatusInternalServerError, "Failed to confirm deposit")
	}

	log.Printf("✅ [DEPOSIT] Confirmed deposit %d, opened mining session %d at %.2f%%/day", deposit.ID, session.ID, miningRate)
	return c.JSON(fiber.Map{"message": "Deposit confirmed", "mining_session_id": session.ID})
}
