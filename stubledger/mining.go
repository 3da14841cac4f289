package stubledger

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// settleSession accrues the reward earned since the last settlement and
// credits it to the owner's balance. Paused and stopped sessions accrue
// nothing.
func settleSession(session *MiningSession, user *User, now time.Time) decimal.Decimal {
	if session.Status != "Active" {
		return decimal.Zero
	}
	last := session.StartedAt
	if session.LastMined != nil {
		last = *session.LastMined
	}

	mined := AccruedAmount(session.DepositedAmount, session.MiningRate, now.Sub(last))

	// Accrual stops at the session cap.
	cap := MiningCap(session.DepositedAmount, session.MiningRate)
	if session.MinedAmount.Add(mined).GreaterThan(cap) {
		mined = cap.Sub(session.MinedAmount)
		if mined.IsNegative() {
			mined = decimal.Zero
		}
	}

	session.MinedAmount = session.MinedAmount.Add(mined)
	session.LastMined = &now
	creditBalance(user, session.CryptoType, mined)
	return mined
}

func (s *Server) handleLiveProgress(c *fiber.Ctx) error {
	user := s.currentUser(c)
	now := time.Now().UTC()

	var sessions []MiningSession
	if err := s.db.Where("user_id = ? AND status <> ?", user.ID, "Stopped").
		Order("id").Find(&sessions).Error; err != nil {
		return detail(c, fiber.StatusInternalServerError, "Failed to load mining sessions")
	}

	totalMined := decimal.Zero
	out := make([]fiber.Map, 0, len(sessions))

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for i := range sessions {
			session := &sessions[i]
			mined := settleSession(session, user, now)
			totalMined = totalMined.Add(mined)
			if err := tx.Save(session).Error; err != nil {
				return err
			}

			cap := MiningCap(session.DepositedAmount, session.MiningRate)
			perSecond := AccruedAmount(session.DepositedAmount, session.MiningRate, time.Second)
			elapsedHours := now.Sub(session.StartedAt).Hours()

			out = append(out, fiber.Map{
				"session_id":          session.ID,
				"crypto_type":         session.CryptoType,
				"deposited_amount":    session.DepositedAmount,
				"mining_rate":         session.MiningRate,
				"current_mined":       session.MinedAmount,
				"mining_per_second":   perSecond,
				"progress_percentage": ProgressPercent(session.MinedAmount, cap),
				"elapsed_hours":       elapsedHours,
				"status":              session.Status,
				"balance":             balanceFor(user, session.CryptoType),
			})
		}
		return tx.Save(user).Error
	})
	if err != nil {
		return detail(c, fiber.StatusInternalServerError, "Failed to sync mining progress")
	}

	return c.JSON(fiber.Map{
		"message":     "Mining synced",
		"total_mined": totalMined,
		"sessions":    out,
	})
}

func (s *Server) handleMiningAction(action string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := s.currentUser(c)
		sessionID, err := c.ParamsInt("id")
		if err != nil {
			return detail(c, fiber.StatusBadRequest, "Invalid session id")
		}

		var session MiningSession
		if err := s.db.Where("id = ? AND user_id = ?", sessionID, user.ID).First(&session).Error; err != nil {
			return detail(c, fiber.StatusNotFound, "Mining session not found")
		}

		now := time.Now().UTC()
		switch action {
		case "pause":
			if session.Status != "Active" {
				return detail(c, fiber.StatusBadRequest, fmt.Sprintf("Cannot pause a %s session", session.Status))
			}
			settleSession(&session, user, now)
			session.Status = "Paused"
			session.PausedAt = &now
		case "resume":
			if session.Status != "Paused" {
				return detail(c, fiber.StatusBadRequest, fmt.Sprintf("Cannot resume a %s session", session.Status))
			}
			session.Status = "Active"
			session.PausedAt = nil
			session.LastMined = &now
		case "stop":
			if session.Status == "Stopped" {
				return detail(c, fiber.StatusBadRequest, "Session already stopped")
			}
			settleSession(&session, user, now)
			session.Status = "Stopped"
			session.StoppedAt = &now
		default:
			return detail(c, fiber.StatusBadRequest, "Unknown action")
		}

		err = s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Save(&session).Error; err != nil {
				return err
			}
			return tx.Save(user).Error
		})
		if err != nil {
			return detail(c, fiber.StatusInternalServerError, "Failed to update mining session")
		}

		past := map[string]string{"pause": "paused", "resume": "resumed", "stop": "stopped"}[action]
		log.Printf("⛏️ [MINING] Session %d %s by user %d", session.ID, past, user.ID)
		return c.JSON(fiber.Map{"message": fmt.Sprintf("Mining session %s successfully", past)})
	}
}
