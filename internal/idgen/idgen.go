// Package idgen mints random hex note ids.
package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// maxAttempts bounds collision re-rolls. Hitting it means the id space is
// effectively exhausted for the configured width.
const maxAttempts = 100

// ExistsFunc reports whether an id is already taken.
type ExistsFunc func(id string) (bool, error)

// Generator produces fixed-width random hex ids, re-rolling on collision.
type Generator struct {
	nbytes int
	exists ExistsFunc
}

// New returns a Generator producing ids of 2*nbytes hex characters.
// exists may be nil to skip collision checking.
func New(nbytes int, exists ExistsFunc) *Generator {
	return &Generator{nbytes: nbytes, exists: exists}
}

// Generate mints an id no existing note uses.
func (g *Generator) Generate() (string, error) {
	buf := make([]byte, g.nbytes)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("idgen: read random: %w", err)
		}
		id := hex.EncodeToString(buf)
		if g.exists == nil {
			return id, nil
		}
		taken, err := g.exists(id)
		if err != nil {
			return "", fmt.Errorf("idgen: check collision: %w", err)
		}
		if !taken {
			return id, nil
		}
	}
	return "", fmt.Errorf("idgen: gave up after %d collisions", maxAttempts)
}
