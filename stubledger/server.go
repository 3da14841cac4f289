package stubledger

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const accessTokenTTL = 30 * time.Minute

// Server wires the stub's handlers over a shared DB handle.
type Server struct {
	db         *gorm.DB
	secret     []byte
	adminToken string

	mu            sync.Mutex
	loginLimiters map[string]*rate.Limiter
}

// New builds the fiber app exposing the ledger endpoint surface. secret
// signs access tokens; adminToken guards the admin confirm endpoint the
// same way the production gateway uses a service token.
func New(db *gorm.DB, secret, adminToken string) *fiber.App {
	s := &Server{
		db:            db,
		secret:        []byte(secret),
		adminToken:    adminToken,
		loginLimiters: make(map[string]*rate.Limiter),
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 20 * 1024 * 1024, // evidence uploads
	})

	app.Post("/api/login", s.handleLogin)
	app.Post("/api/request-otp", s.handleRequestOTP)
	app.Post("/api/verify-otp", s.handleVerifyOTP)
	app.Get("/api/deposits/info/:crypto_type", s.handleDepositInfo)
	app.Get("/api/deposits/rates", s.handleRates)
	app.Post("/api/deposits/convert", s.handleConvert)
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	auth := app.Group("", s.requireAuth)
	auth.Post("/api/verify-pin", s.handleVerifyPIN)
	auth.Post("/api/change-password", s.handleChangePassword)
	auth.Post("/api/change-pin", s.handleChangePIN)
	auth.Get("/api/user/profile", s.handleProfile)
	auth.Post("/api/mining/live-progress", s.handleLiveProgress)
	auth.Put("/api/mining/:id/pause", s.handleMiningAction("pause"))
	auth.Put("/api/mining/:id/resume", s.handleMiningAction("resume"))
	auth.Put("/api/mining/:id/stop", s.handleMiningAction("stop"))
	auth.Post("/api/deposits/create", s.handleCreateDeposit)
	auth.Post("/api/deposits/:id/upload-evidence", s.handleUploadEvidence)
	auth.Post("/api/deposits/:id/submit", s.handleSubmitDeposit)
	auth.Get("/api/user/deposits", s.handleListDeposits)
	auth.Post("/api/transfers/create", s.handleCreateTransfer)
	auth.Get("/api/user/transfers", s.handleListTransfers)
	auth.Post("/api/withdrawals/create", s.handleCreateWithdrawal)
	auth.Get("/api/user/withdrawals", s.handleListWithdrawals)

	// Admin surface, guarded by the service token rather than a user JWT.
	app.Put("/api/admin/deposits/:id/confirm", s.requireServiceToken, s.handleConfirmDeposit)

	return app
}

func detail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"detail": message})
}

// requireAuth validates the bearer token and loads the user into locals.
func (s *Server) requireAuth(c *fiber.Ctx) error {
	header := c.Get("Authorization")
	if header == "" {
		return detail(c, fiber.StatusUnauthorized, "Not authenticated")
	}
	tokenStr := strings.TrimPrefix(header, "Bearer ")
	if tokenStr == header {
		return detail(c, fiber.StatusUnauthorized, "Invalid authorization header")
	}

	parsed, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return detail(c, fiber.StatusUnauthorized, "Could not validate credentials")
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return detail(c, fiber.StatusUnauthorized, "Could not validate credentials")
	}
	email, err := claims.GetSubject()
	if err != nil || email == "" {
		return detail(c, fiber.StatusUnauthorized, "Could not validate credentials")
	}

	var user User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		return detail(c, fiber.StatusUnauthorized, "Could not validate credentials")
	}
	if user.Status == "suspended" {
		return detail(c, fiber.StatusForbidden, "Account suspended")
	}

	c.Locals("user", &user)
	return c.Next()
}

func (s *Server) requireServiceToken(c *fiber.Ctx) error {
	if s.adminToken == "" || c.Get("X-Service-Token") != s.adminToken {
		log.Printf("🚫 [ADMIN] Rejected service-token request for %s", c.Path())
		return detail(c, fiber.StatusUnauthorized, "Invalid service token")
	}
	return c.Next()
}

func (s *Server) currentUser(c *fiber.Ctx) *User {
	u, _ := c.Locals("user").(*User)
	return u
}

func (s *Server) issueToken(email string, ttl time.Duration, tokenType string) (string, error) {
	claims := jwt.MapClaims{
		"sub": email,
		"exp": jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	if tokenType != "" {
		claims["type"] = tokenType
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// loginLimiter returns the per-email limiter enforcing 5 attempts/minute,
// as the production ledger does.
func (s *Server) loginLimiter(email string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loginLimiters[email]
	if !ok {
		l = rate.NewLimiter(rate.Every(12*time.Second), 5)
		s.loginLimiters[email] = l
	}
	return l
}

func (s *Server) settings() (Settings, error) {
	var settings Settings
	err := s.db.First(&settings).Error
	if err == gorm.ErrRecordNotFound {
		settings = Settings{}
		err = s.db.Create(&settings).Error
	}
	return settings, err
}
