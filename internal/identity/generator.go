// Package identity mints the time-ordered 64-bit identifiers used as primary
// keys for users, authors, and comments.
package identity

import (
	"fmt"

	"github.com/sony/sonyflake"
)

// Generator produces unique, roughly creation-ordered identifiers. It is safe
// for concurrent use. The service owns a single Generator, constructed at
// startup and passed to whatever needs to mint ids.
type Generator struct {
	sf *sonyflake.Sonyflake
}

// NewGenerator constructs a Generator seeded with the default machine id
// derived from the host's private IP.
func NewGenerator() (*Generator, error) {
	sf, err := sonyflake.New(sonyflake.Settings{})
	if err != nil {
		return nil, fmt.Errorf("init id generator: %w", err)
	}
	return &Generator{sf: sf}, nil
}

// NextID returns the next identifier. Ids embed a timestamp component plus a
// machine and sequence discriminator, so they never repeat for the lifetime
// of the process. A failure here is fatal to the enclosing operation; callers
// must not fall back to a degraded id.
func (g *Generator) NextID() (int64, error) {
	id, err := g.sf.NextID()
	if err != nil {
		return 0, fmt.Errorf("generate id: %w", err)
	}
	return int64(id), nil
}
