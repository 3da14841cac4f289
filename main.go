package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crypto-mining-client/models"
	"crypto-mining-client/services"
	"crypto-mining-client/workers"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	baseURL := os.Getenv("LEDGER_BASE_URL")
	if baseURL == "" {
		log.Fatal("LEDGER_BASE_URL environment variable not set")
	}

	sessionFile := os.Getenv("SESSION_FILE")
	if sessionFile == "" {
		sessionFile = ".session.json"
	}

	notifier := services.LogNotifier{}
	sessions := services.NewSessionStore(&services.FileSessionPersister{Path: sessionFile})
	api := services.NewAPIClient(baseURL, sessions, notifier)

	clock := clockwork.NewRealClock()
	authService := services.NewAuthService(api, sessions)
	profileService := services.NewProfileService(api, services.NewCache[models.UserProfile](clock))
	miningService := services.NewMiningService(api, services.NewCache[models.LiveProgress](clock), profileService)
	depositService := services.NewDepositService(api,
		services.NewCache[[]models.Deposit](clock),
		services.NewCache[models.DepositInfo](clock),
		services.NewCache[models.CryptoRates](clock),
		profileService)
	sessions.Subscribe(func() {
		if sessions.IsAuthenticated() {
			log.Printf("🔑 Session active for %s", sessions.User().Email)
		} else {
			log.Println("🔒 Session cleared")
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if sessions.IsAuthenticated() {
		log.Printf("✅ Restored session for %s", sessions.User().Email)
	} else if email := os.Getenv("LEDGER_EMAIL"); email != "" {
		password := os.Getenv("LEDGER_PASSWORD")
		if password == "" {
			log.Fatal("LEDGER_PASSWORD environment variable not set")
		}
		user, err := authService.Login(ctx, email, password)
		if err != nil {
			log.Fatal("failed to log in:", err)
		}
		log.Printf("✅ Logged in as %s (%s)", user.Name, user.UserID)
	} else {
		log.Println("⚠️  No stored session and no LEDGER_EMAIL set, polling waits for login")
	}

	poller, err := workers.NewPoller(nil, sessions)
	if err != nil {
		log.Fatal("failed to create poller:", err)
	}
	if err := workers.RegisterEntityPolls(poller, miningService, depositService); err != nil {
		log.Fatal("failed to register polls:", err)
	}
	if err := poller.Add("dashboard", 30*time.Second, func(ctx context.Context) error {
		return logDashboard(miningService)
	}); err != nil {
		log.Fatal("failed to register dashboard snapshot:", err)
	}
	poller.Start()

	log.Println("✅ Mining client running")
	log.Printf("✅ Polling mining progress every %s, deposits every %s", workers.MiningPollInterval, workers.DepositsPollInterval)

	<-ctx.Done()
	log.Println("Shutting down client...")
	if err := poller.Stop(); err != nil {
		log.Printf("Poller shutdown error: %v", err)
	}
}

// logDashboard prints the cached mining snapshot. It never fetches; the
// poll workers keep the cache warm.
func logDashboard(mining *services.MiningService) error {
	progress, ok := mining.Cached()
	if !ok {
		return nil
	}
	log.Printf("⛏️  Total mined: %s across %d session(s)", progress.TotalMined, len(progress.Sessions))
	for _, s := range progress.Sessions {
		log.Printf("   #%d %s: %s mined (%s, %s/h, ETA %s)",
			s.SessionID, s.CryptoType, s.CurrentMined,
			services.FormatProgress(s), services.PerHourRate(s), services.FormatETA(s))
	}
	return nil
}
