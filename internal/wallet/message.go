package wallet

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Freshness errors returned by CheckMessage.
var (
	ErrMessageWalletMismatch = errors.New("signed message does not mention the claimed wallet")
	ErrMessageNoTimestamp    = errors.New("signed message carries no timestamp")
	ErrMessageStale          = errors.New("signed message timestamp outside tolerance window")
)

// DefaultTolerance is how far a signed message's embedded timestamp may
// drift from server time, in either direction.
const DefaultTolerance = 5 * time.Minute

// CheckMessage enforces the replay-binding rules on a signed message.
// Clients sign messages of the form "... for <wallet> at <unix-millis>".
// The message must mention the claimed wallet address and its trailing
// timestamp must fall within tolerance of now. Single-use consumption of the
// signature itself is handled separately by the nonce registry.
func CheckMessage(message, walletAddress string, now time.Time, tolerance time.Duration) error {
	if !strings.Contains(message, walletAddress) {
		return ErrMessageWalletMismatch
	}

	idx := strings.LastIndex(message, " at ")
	if idx < 0 {
		return ErrMessageNoTimestamp
	}
	millis, err := strconv.ParseInt(strings.TrimSpace(message[idx+4:]), 10, 64)
	if err != nil {
		return ErrMessageNoTimestamp
	}

	ts := time.UnixMilli(millis)
	drift := now.Sub(ts)
	if drift < 0 {
		drift = -drift
	}
	if drift > tolerance {
		return ErrMessageStale
	}
	return nil
}
