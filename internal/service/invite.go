package service

import (
	"crypto/rand"
	"math/big"
)

const (
	inviteAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	inviteLength   = 6
	inviteAttempts = 8
)

// InviteCodeFunc produces a candidate invite code.
type InviteCodeFunc func() (string, error)

// RandomInviteCode returns six uppercase alphanumerics.
func RandomInviteCode() (string, error) {
	buf := make([]byte, inviteLength)
	max := big.NewInt(int64(len(inviteAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = inviteAlphabet[n.Int64()]
	}
	return string(buf), nil
}
