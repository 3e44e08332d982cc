// Package oracle – randomness providers
//
// A Provider is the underlying randomness source the oracle draws words from
// when a fulfillment is triggered without explicit words. Production
// deployments would back this with a verifiable randomness service; the
// bundled DevProvider reads the operating system's CSPRNG and is what local
// and test environments run with.
package oracle

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// Provider supplies n fixed-width random words.
type Provider interface {
	RandomWords(ctx context.Context, n int) ([]uint64, error)
}

// DevProvider draws words from crypto/rand.
type DevProvider struct{}

// RandomWords returns n words read from the OS entropy source.
func (DevProvider) RandomWords(_ context.Context, n int) ([]uint64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid word count %d", n)
	}
	buf := make([]byte, 8*n)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("read entropy: %w", err)
	}
	out := make([]uint64, n)
	for i := range out {
		out[i] = binary.BigEndian.Uint64(buf[i*8 : i*8+8])
	}
	return out, nil
}
