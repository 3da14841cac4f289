package services

import (
	"context"
	"net/http"
	"strings"

	"crypto-mining-client/models"
)

// AuthService drives the login and credential-management flows. Successful
// login and PIN verification populate the session store; everything else
// leaves it untouched.
type AuthService struct {
	api      *APIClient
	sessions *SessionStore
}

func NewAuthService(api *APIClient, sessions *SessionStore) *AuthService {
	return &AuthService{api: api, sessions: sessions}
}

// Login authenticates against the ledger and installs the returned token
// and user snapshot atomically.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.UserSummary, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, newValidationError("email", "email is required")
	}
	if password == "" {
		return nil, newValidationError("password", "password is required")
	}

	resp, err := Call[models.LoginResponse](ctx, s.api, http.MethodPost, "/api/login", map[string]string{
		"email":    email,
		"password": password,
	}, false)
	if err != nil {
		return nil, err
	}

	user := resp.User
	s.sessions.Set(resp.AccessToken, &user)
	return &user, nil
}

// VerifyPIN exchanges the account PIN for a dashboard token, stored on the
// current session.
func (s *AuthService) VerifyPIN(ctx context.Context, pin string) error {
	if strings.TrimSpace(pin) == "" {
		return newValidationError("pin", "PIN is required")
	}
	resp, err := Call[models.PinVerifyResponse](ctx, s.api, http.MethodPost, "/api/verify-pin", map[string]string{
		"pin": pin,
	}, true)
	if err != nil {
		return err
	}
	s.sessions.SetDashboardToken(resp.DashboardToken)
	return nil
}

// Logout tears the local session down. The ledger keeps no server-side
// session state beyond token expiry.
func (s *AuthService) Logout() {
	s.sessions.Clear()
}

// RequestOTP asks the ledger to email a one-time code for the given
// purpose ("password_reset", "pin_reset", "verification").
func (s *AuthService) RequestOTP(ctx context.Context, email, purpose string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return newValidationError("email", "email is required")
	}
	_, err := s.api.Do(ctx, http.MethodPost, "/api/request-otp", map[string]string{
		"email":   email,
		"purpose": purpose,
	}, false)
	return err
}

// VerifyOTP checks a one-time code previously requested for the purpose.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code, purpose string) error {
	if strings.TrimSpace(code) == "" {
		return newValidationError("otp_code", "code is required")
	}
	_, err := s.api.Do(ctx, http.MethodPost, "/api/verify-otp", map[string]string{
		"email":    strings.TrimSpace(strings.ToLower(email)),
		"otp_code": code,
		"purpose":  purpose,
	}, false)
	return err
}

// ChangePassword rotates the account password. The current session token
// stays valid; the ledger does not revoke it on password change.
func (s *AuthService) ChangePassword(ctx context.Context, current, next string) error {
	if current == "" {
		return newValidationError("current_password", "current password is required")
	}
	if len(next) < 8 {
		return newValidationError("new_password", "new password must be at least 8 characters")
	}
	_, err := s.api.Do(ctx, http.MethodPost, "/api/change-password", map[string]string{
		"current_password": current,
		"new_password":     next,
	}, true)
	return err
}

// ChangePIN rotates the dashboard PIN.
func (s *AuthService) ChangePIN(ctx context.Context, current, next string) error {
	if current == "" {
		return newValidationError("current_pin", "current PIN is required")
	}
	if len(next) < 4 || !isAllDigits(next) {
		return newValidationError("new_pin", "new PIN must be at least 4 digits")
	}
	_, err := s.api.Do(ctx, http.MethodPost, "/api/change-pin", map[string]string{
		"current_pin": current,
		"new_pin":     next,
	}, true)
	return err
}
