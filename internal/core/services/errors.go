package services

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/music-assist/backend/internal/core/domain"
)

// classifyProviderErr maps a raw provider call failure onto the domain
// taxonomy: deadline and network timeouts become ErrTimeout so callers
// can distinguish "try again later" from a rejected request; everything
// else becomes ErrProvider.
func classifyProviderErr(op string, err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w: %v", op, domain.ErrProvider, err)
}

// isTimeout reports whether err is a deadline expiry or a network
// timeout, as opposed to a provider-reported failure.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
