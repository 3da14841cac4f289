package models

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CryptoType identifies an asset supported by the ledger service.
type CryptoType string

const (
	CryptoBitcoin  CryptoType = "bitcoin"
	CryptoEthereum CryptoType = "ethereum"
)

// ParseCryptoType normalizes user or wire input ("BTC", "Bitcoin", "ethereum")
// into a canonical CryptoType.
func ParseCryptoType(s string) (CryptoType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bitcoin", "btc":
		return CryptoBitcoin, nil
	case "ethereum", "eth":
		return CryptoEthereum, nil
	default:
		return "", fmt.Errorf("unsupported crypto type: %q", s)
	}
}

// DisplayName returns the frontend-friendly name ("Bitcoin", "Ethereum").
// A fresh caser per call; cases.Caser is not safe for concurrent use.
func (c CryptoType) DisplayName() string {
	return cases.Title(language.English).String(string(c))
}

// Symbol returns the short ticker symbol for the asset.
func (c CryptoType) Symbol() string {
	switch c {
	case CryptoBitcoin:
		return "BTC"
	case CryptoEthereum:
		return "ETH"
	default:
		return strings.ToUpper(string(c))
	}
}
