package models

import "testing"

func TestParseCryptoType(t *testing.T) {
	tests := []struct {
		in      string
		want    CryptoType
		wantErr bool
	}{
		{"bitcoin", CryptoBitcoin, false},
		{"  BTC ", CryptoBitcoin, false},
		{"Ethereum", CryptoEthereum, false},
		{"eth", CryptoEthereum, false},
		{"dogecoin", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseCryptoType(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCryptoType(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCryptoType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCryptoTypeDisplayNameAndSymbol(t *testing.T) {
	if got := CryptoBitcoin.DisplayName(); got != "Bitcoin" {
		t.Errorf("DisplayName = %q, want Bitcoin", got)
	}
	if got := CryptoEthereum.DisplayName(); got != "Ethereum" {
		t.Errorf("DisplayName = %q, want Ethereum", got)
	}
	if got := CryptoBitcoin.Symbol(); got != "BTC" {
		t.Errorf("Symbol = %q, want BTC", got)
	}
	if got := CryptoEthereum.Symbol(); got != "ETH" {
		t.Errorf("Symbol = %q, want ETH", got)
	}
}
