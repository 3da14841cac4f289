package stubledger

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"crypto-mining-client/models"
)

type transferCreateRequest struct {
	CryptoType string          `json:"crypto_type"`
	Amount     decimal.Decimal `json:"amount"`
	ToEmail    string          `json:"to_email"`
	ToUserID   string          `json:"to_user_id"`
}

func userInfo(u User) fiber.Map {
	return fiber.Map{"id": u.ID, "email": u.Email, "name": u.Name}
}

func (s *Server) handleCreateTransfer(c *fiber.Ctx) error {
	user := s.currentUser(c)
	var req transferCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return detail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	cryptoType, ok := normalizeCrypto(req.CryptoType)
	if !ok {
		return detail(c, fiber.StatusBadRequest, "Unsupported crypto type")
	}
	if !req.Amount.IsPositive() {
		return detail(c, fiber.StatusBadRequest, "Amount must be positive")
	}

	var recipient User
	var err error
	if req.ToEmail != "" {
		err = s.db.Where("email = ?", req.ToEmail).First(&recipient).Error
	} else {
		err = s.db.Where("user_id = ?", req.ToUserID).First(&recipient).Error
	}
	if err != nil {
		return detail(c, fiber.StatusNotFound, "Recipient not found")
	}
	if recipient.ID == user.ID {
		return detail(c, fiber.StatusBadRequest, "Cannot transfer to yourself")
	}

	settings, err := s.settings()
	if err != nil {
		return detail(c, fiber.StatusInternalServerError, "Settings not found")
	}
	rate := rateFor(settings, cryptoType)

	if req.Amount.GreaterThan(balanceFor(user, cryptoType)) {
		return detail(c, fiber.StatusBadRequest, "Insufficient "+models.CryptoType(cryptoType).DisplayName()+" balance")
	}

	creditBalance(user, cryptoType, req.Amount.Neg())
	creditBalance(&recipient, cryptoType, req.Amount)

	transfer := Transfer{
		FromUserID:      user.ID,
		ToUserID:        recipient.ID,
		CryptoType:      models.CryptoType(cryptoType).DisplayName(),
		Amount:          req.Amount,
		USDAmount:       req.Amount.Mul(rate).Round(2),
		TransactionHash: uuid.New().String(),
		CreatedAt:       time.Now().UTC(),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(user).Error; err != nil {
			return err
		}
		if err := tx.Save(&recipient).Error; err != nil {
			return err
		}
		return tx.Create(&transfer).Error
	})
	if err != nil {
		return detail(c, fiber.StatusInternalServerError, "Failed to create transfer")
	}

	log.Printf("💸 [TRANSFER] %s -> %s: %s %s", user.Email, recipient.Email, transfer.Amount, transfer.CryptoType)

	return c.JSON(fiber.Map{
		"id":               transfer.ID,
		"crypto_type":      transfer.CryptoType,
		"amount":           transfer.Amount,
		"usd_amount":       transfer.USDAmount,
		"transaction_hash": transfer.TransactionHash,
		"created_at":       transfer.CreatedAt,
		"from_user":        userInfo(*user),
		"to_user":          userInfo(recipient),
	})
}

func (s *Server) handleListTransfers(c *fiber.Ctx) error {
	user := s.currentUser(c)
	var transfers []Transfer
	err := s.db.Where("from_user_id = ? OR to_user_id = ?", user.ID, user.ID).
		Order("created_at desc").Find(&transfers).Error
	if err != nil {
		return detail(c, fiber.StatusInternalServerError, "Failed to load transfers")
	}

	out := make([]fiber.Map, 0, len(transfers))
	for _, t := range transfers {
		direction := "received"
		if t.FromUserID == user.ID {
			direction = "sent"
		}

		var from, to User
		s.db.First(&from, t.FromUserID)
		s.db.First(&to, t.ToUserID)

		out = append(out, fiber.Map{
			"id":               t.ID,
			"crypto_type":      t.CryptoType,
			"amount":           t.Amount,
			"usd_amount":       t.USDAmount,
			"transaction_hash": t.TransactionHash,
			"created_at":       t.CreatedAt,
			"from_user":        userInfo(from),
			"to_user":          userInfo(to),
			"direction":        direction,
		})
	}
	return c.JSON(out)
}

type withdrawalCreateRequest struct {
	CryptoType    string          `json:"crypto_type"`
	Amount        decimal.Decimal `json:"amount"`
	WalletAddress string          `json:"wallet_address"`
}

func (s *Server) handleCreateWithdrawal(c *fiber.Ctx) error {
	user := s.currentUser(c)
	var req withdrawalCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return detail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	cryptoType, ok := normalizeCrypto(req.CryptoType)
	if !ok {
		return detail(c, fiber.StatusBadRequest, "Unsupported crypto type")
	}
	if !req.Amount.IsPositive() {
		return detail(c, fiber.StatusBadRequest, "Amount must be positive")
	}
	if req.WalletAddress == "" {
		return detail(c, fiber.StatusBadRequest, "Wallet address is required")
	}
	if req.Amount.GreaterThan(balanceFor(user, cryptoType)) {
		return detail(c, fiber.StatusBadRequest, "Insufficient balance")
	}

	settings, err := s.settings()
	if err != nil {
		return detail(c, fiber.StatusInternalServerError, "Settings not found")
	}
	rate := rateFor(settings, cryptoType)

	creditBalance(user, cryptoType, req.Amount.Neg())

	withdrawal := Withdrawal{
		UserID:          user.ID,
		CryptoType:      models.CryptoType(cryptoType).DisplayName(),
		Amount:          req.Amount,
		WalletAddress:   req.WalletAddress,
		Status:          "pending",
		TransactionHash: uuid.New().String(),
		CreatedAt:       time.Now().UTC(),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(user).Error; err != nil {
			return err
		}
		return tx.Create(&withdrawal).Error
	})
	if err != nil {
		return detail(c, fiber.StatusInternalServerError, "Failed to create withdrawal")
	}

	return c.JSON(fiber.Map{
		"id":               withdrawal.ID,
		"crypto_type":      withdrawal.CryptoType,
		"amount":           withdrawal.Amount,
		"usd_amount":       withdrawal.Amount.Mul(rate).Round(2),
		"wallet_address":   withdrawal.WalletAddress,
		"status":           withdrawal.Status,
		"transaction_hash": withdrawal.TransactionHash,
		"created_at":       withdrawal.CreatedAt,
	})
}

func (s *Server) handleListWithdrawals(c *fiber.Ctx) error {
	user := s.currentUser(c)
	var withdrawals []Withdrawal
	if err := s.db.Where("user_id = ?", user.ID).Order("created_at desc").Find(&withdrawals).Error; err != nil {
		return detail(c, fiber.StatusInternalServerError, "Failed to load withdrawals")
	}

	settings, err := s.settings()
	if err != nil {
		return detail(c, fiber.StatusInternalServerError, "Settings not found")
	}

	out := make([]fiber.Map, 0, len(withdrawals))
	for _, w := range withdrawals {
		cryptoType, _ := normalizeCrypto(w.CryptoType)
		// USD value is revalued at the current rate on every read.
		out = append(out, fiber.Map{
			"id":               w.ID,
			"crypto_type":      w.CryptoType,
			"amount":           w.Amount,
			"usd_amount":       w.Amount.Mul(rateFor(settings, cryptoType)).Round(2),
			"wallet_address":   w.WalletAddress,
			"status":           w.Status,
			"transaction_hash": w.TransactionHash,
			"created_at":       w.CreatedAt,
		})
	}
	return c.JSON(out)
}
