package token

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Code bounds for one-time passwords, both inclusive.
const (
	MinOTP = 100000
	MaxOTP = 999999
)

// RandomString returns n characters drawn uniformly from [a-zA-Z0-9].
func RandomString(n int) (string, error) {
	b := make([]byte, n)
	max := big.NewInt(int64(len(alphanumeric)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate random string: %w", err)
		}
		b[i] = alphanumeric[idx.Int64()]
	}
	return string(b), nil
}

// NewOTP returns a uniformly random six-digit code in [MinOTP, MaxOTP].
func NewOTP() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(MaxOTP-MinOTP+1))
	if err != nil {
		return 0, fmt.Errorf("generate otp: %w", err)
	}
	return MinOTP + int(n.Int64()), nil
}
