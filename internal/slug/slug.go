package slug

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/sjbitcode/url-shortener/internal/models"
)

const charset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const (
	DefaultLength      = 5
	DefaultMaxAttempts = 10
)

// ErrKeySpaceExhausted means every candidate drawn was already taken. With a
// base62 alphabet this points at a misconfigured key length, not bad luck.
var ErrKeySpaceExhausted = errors.New("key space exhausted")

var maxIdx = big.NewInt(int64(len(charset)))

// Generate returns a random Base62 string of the given length.
func Generate(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid key length %d", length)
	}
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, maxIdx)
		if err != nil {
			return "", err
		}
		b[i] = charset[n.Int64()]
	}
	return string(b), nil
}

// Generator hands out keys that are guaranteed free at the moment they are
// stored. It never checks for existence up front; it lets the reserve
// callback attempt the insert and draws again when the key turns out taken.
type Generator struct {
	Length      int
	MaxAttempts int

	// Source draws candidates; nil means Generate.
	Source func(length int) (string, error)
}

func NewGenerator(length int) *Generator {
	if length <= 0 {
		length = DefaultLength
	}
	return &Generator{Length: length, MaxAttempts: DefaultMaxAttempts}
}

// Reserve calls reserve with fresh candidates until one is accepted and
// returns that key. reserve signals a collision with models.ErrDuplicateKey;
// any other error aborts immediately.
func (g *Generator) Reserve(ctx context.Context, reserve func(ctx context.Context, key string) error) (string, error) {
	source := g.Source
	if source == nil {
		source = Generate
	}
	attempts := g.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	for range attempts {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate, err := source(g.Length)
		if err != nil {
			return "", fmt.Errorf("generate key: %w", err)
		}
		err = reserve(ctx, candidate)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, models.ErrDuplicateKey) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: %d candidates of length %d all taken", ErrKeySpaceExhausted, attempts, g.Length)
}
