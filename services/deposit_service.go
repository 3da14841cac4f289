package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/shopspring/decimal"

	"crypto-mining-client/models"
)

const depositsCacheKey = "user/deposits"

func depositInfoCacheKey(crypto models.CryptoType) string {
	return "deposits/info/" + string(crypto)
}

// DepositService drives the deposit pipeline: destination info, linked
// amount conversion, creation, evidence upload and submission. The deposits
// list refreshes on a 15s poll so server-side confirmations surface without
// a manual refresh.
type DepositService struct {
	api      *APIClient
	deposits *Cache[[]models.Deposit]
	info     *Cache[models.DepositInfo]
	rates    *Cache[models.CryptoRates]
	profile  *ProfileService
}

func NewDepositService(api *APIClient, deposits *Cache[[]models.Deposit], info *Cache[models.DepositInfo], rates *Cache[models.CryptoRates], profile *ProfileService) *DepositService {
	return &DepositService{api: api, deposits: deposits, info: info, rates: rates, profile: profile}
}

// Info returns the deposit destination (wallet address, QR, rate) for the
// asset. Keyed per crypto_type.
func (s *DepositService) Info(ctx context.Context, crypto models.CryptoType) (models.DepositInfo, error) {
	return s.info.Fetch(ctx, depositInfoCacheKey(crypto), func(ctx context.Context) (models.DepositInfo, error) {
		return Call[models.DepositInfo](ctx, s.api, http.MethodGet, "/api/deposits/info/"+string(crypto), nil, false)
	})
}

// Rates returns the current crypto/USD conversion rates.
func (s *DepositService) Rates(ctx context.Context) (models.CryptoRates, error) {
	return s.rates.Fetch(ctx, "deposits/rates", func(ctx context.Context) (models.CryptoRates, error) {
		return Call[models.CryptoRates](ctx, s.api, http.MethodGet, "/api/deposits/rates", nil, false)
	})
}

// ConvertFromCrypto asks the ledger for the USD value of a crypto amount.
// The two deposit-form amount fields are linked through these calls; the
// client never multiplies by a rate itself, so the shown figure always
// matches what deposit creation will apply.
func (s *DepositService) ConvertFromCrypto(ctx context.Context, crypto models.CryptoType, amount decimal.Decimal) (models.ConvertResult, error) {
	if !amount.IsPositive() {
		return models.ConvertResult{}, newValidationError("amount", "amount must be a positive number")
	}
	return Call[models.ConvertResult](ctx, s.api, http.MethodPost, "/api/deposits/convert", models.ConvertRequest{
		CryptoType: crypto,
		Amount:     &amount,
	}, false)
}

// ConvertFromUSD asks the ledger for the crypto value of a USD amount.
func (s *DepositService) ConvertFromUSD(ctx context.Context, crypto models.CryptoType, usdAmount decimal.Decimal) (models.ConvertResult, error) {
	if !usdAmount.IsPositive() {
		return models.ConvertResult{}, newValidationError("usd_amount", "amount must be a positive number")
	}
	return Call[models.ConvertResult](ctx, s.api, http.MethodPost, "/api/deposits/convert", models.ConvertRequest{
		CryptoType: crypto,
		USDAmount:  &usdAmount,
	}, false)
}

// List returns all deposits for the current user, newest first.
func (s *DepositService) List(ctx context.Context) ([]models.Deposit, error) {
	return s.deposits.Fetch(ctx, depositsCacheKey, s.fetchDeposits)
}

// Poll forces a refetch of the deposits list; the 15s poll worker calls
// this every tick.
func (s *DepositService) Poll(ctx context.Context) error {
	_, err := s.deposits.Refresh(ctx, depositsCacheKey, s.fetchDeposits)
	return err
}

func (s *DepositService) fetchDeposits(ctx context.Context) ([]models.Deposit, error) {
	return Call[[]models.Deposit](ctx, s.api, http.MethodGet, "/api/user/deposits", nil, true)
}

// Create records a new deposit intent. Exactly one of amount / usdAmount
// must be set; the ledger derives the other side at its current rate.
func (s *DepositService) Create(ctx context.Context, crypto models.CryptoType, amount, usdAmount *decimal.Decimal, transactionHash string) (models.DepositCreateResult, error) {
	if (amount == nil) == (usdAmount == nil) {
		return models.DepositCreateResult{}, newValidationError("amount", "provide either a crypto amount or a USD amount, not both")
	}
	if amount != nil && !amount.IsPositive() {
		return models.DepositCreateResult{}, newValidationError("amount", "amount must be a positive number")
	}
	if usdAmount != nil && !usdAmount.IsPositive() {
		return models.DepositCreateResult{}, newValidationError("usd_amount", "amount must be a positive number")
	}

	created, err := Call[models.DepositCreateResult](ctx, s.api, http.MethodPost, "/api/deposits/create", models.DepositCreateRequest{
		CryptoType:      crypto,
		Amount:          amount,
		USDAmount:       usdAmount,
		TransactionHash: transactionHash,
	}, true)
	if err != nil {
		return models.DepositCreateResult{}, err
	}

	s.deposits.Invalidate(depositsCacheKey)
	s.profile.Invalidate()
	return created, nil
}

// UploadEvidence attaches proof (screenshot or PDF) to a deposit. Only
// pending deposits accept evidence; everything else is rejected before the
// upload starts.
func (s *DepositService) UploadEvidence(ctx context.Context, depositID int, filename, contentType string, content io.Reader) (models.EvidenceUploadResult, error) {
	deposits, err := s.List(ctx)
	if err != nil {
		return models.EvidenceUploadResult{}, err
	}
	for _, d := range deposits {
		if d.ID == depositID && d.Status != models.DepositPending {
			return models.EvidenceUploadResult{}, newValidationError("status", "evidence can only be uploaded for pending deposits")
		}
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="evidence_file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return models.EvidenceUploadResult{}, fmt.Errorf("failed to build evidence upload: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return models.EvidenceUploadResult{}, fmt.Errorf("failed to read evidence file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return models.EvidenceUploadResult{}, fmt.Errorf("failed to build evidence upload: %w", err)
	}

	path := fmt.Sprintf("/api/deposits/%d/upload-evidence", depositID)
	payload, err := s.api.DoUpload(ctx, http.MethodPost, path, &buf, writer.FormDataContentType(), true)
	if err != nil {
		return models.EvidenceUploadResult{}, err
	}

	var result models.EvidenceUploadResult
	if err := decodeJSON(payload, &result); err != nil {
		return models.EvidenceUploadResult{}, err
	}
	s.deposits.Invalidate(depositsCacheKey)
	return result, nil
}

// Submit hands a pending deposit over for admin review.
func (s *DepositService) Submit(ctx context.Context, depositID int) error {
	deposits, err := s.List(ctx)
	if err != nil {
		return err
	}
	for _, d := range deposits {
		if d.ID == depositID && d.Status != models.DepositPending {
			return newValidationError("status", "deposit already submitted")
		}
	}

	path := fmt.Sprintf("/api/deposits/%d/submit", depositID)
	if _, err := s.api.Do(ctx, http.MethodPost, path, nil, true); err != nil {
		return err
	}
	s.deposits.Invalidate(depositsCacheKey)
	return nil
}
