package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"crypto-mining-client/stubledger"
	"crypto-mining-client/utils"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	secret := os.Getenv("LEDGER_JWT_SECRET")
	if secret == "" {
		log.Fatal("LEDGER_JWT_SECRET environment variable not set")
	}
	adminToken := os.Getenv("LEDGER_SERVICE_TOKEN")
	if adminToken == "" {
		log.Println("⚠️  LEDGER_SERVICE_TOKEN not set, admin endpoints disabled")
	}

	r2Ready, err := utils.InitR2()
	if err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}
	if !r2Ready {
		log.Println("⚠️  R2 not configured, deposit evidence stored on local disk")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&stubledger.User{},
		&stubledger.Settings{},
		&stubledger.Deposit{},
		&stubledger.Transfer{},
		&stubledger.Withdrawal{},
		&stubledger.MiningSession{},
		&stubledger.OTP{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if err := seedDemoUser(db); err != nil {
		log.Fatal("failed to seed demo data:", err)
	}

	app := stubledger.New(db, secret, adminToken)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Stub ledger running on http://localhost:%s", port)

	<-ctx.Done()
	log.Println("Shutting down stub ledger...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

// seedDemoUser creates a login for local development the first time the
// stub runs against an empty database.
func seedDemoUser(db *gorm.DB) error {
	var count int64
	if err := db.Model(&stubledger.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	pinHash, err := bcrypt.GenerateFromPassword([]byte("1234"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	demo := stubledger.User{
		UserID:          "10000001",
		Email:           "demo@example.com",
		Name:            "Demo Miner",
		PasswordHash:    string(passwordHash),
		PinHash:         string(pinHash),
		Status:          "approved",
		BitcoinBalance:  decimal.NewFromFloat(0.05),
		EthereumBalance: decimal.NewFromFloat(1.5),
		ReferralCode:    "DEMO1234",
		EmailVerified:   true,
	}
	if err := db.Create(&demo).Error; err != nil {
		return err
	}

	log.Println("✅ Seeded demo user demo@example.com (password: password123, pin: 1234)")
	return nil
}
