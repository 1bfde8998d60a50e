// Package fingerprint computes stable content digests of normalized text.
//
// A fingerprint is the cheap equality test for "did this source change":
// two texts with the same fingerprint are treated as identical. Digests are
// computed over the UTF-8 bytes of the text and rendered as lower-case hex,
// so they are stable across runs and platforms.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"sort"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/nao1215/sitewatch/internal/normalize"
)

// Algorithm names a digest algorithm.
type Algorithm string

const (
	// SHA256 is the default algorithm.
	SHA256 Algorithm = "sha256"

	// SHA3_256 is SHA3-256 (FIPS 202).
	SHA3_256 Algorithm = "sha3-256"
)

// Default is the algorithm used when none is configured.
const Default = SHA256

// ErrUnknownAlgorithm is returned for algorithm names that are not supported.
var ErrUnknownAlgorithm = errors.New("unknown fingerprint algorithm")

var constructors = map[Algorithm]func() hash.Hash{
	SHA256:   sha256.New,
	SHA3_256: sha3.New256,
}

// Algorithms returns the supported algorithm names in sorted order.
func Algorithms() []string {
	names := make([]string, 0, len(constructors))
	for alg := range constructors {
		names = append(names, string(alg))
	}
	sort.Strings(names)
	return names
}

// ParseAlgorithm resolves a configured algorithm name.
// The empty string resolves to Default.
func ParseAlgorithm(name string) (Algorithm, error) {
	if name == "" {
		return Default, nil
	}
	alg := Algorithm(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := constructors[alg]; !ok {
		return "", fmt.Errorf("%w: %q (supported: %s)", ErrUnknownAlgorithm, name, strings.Join(Algorithms(), ", "))
	}
	return alg, nil
}

// Fingerprinter computes digests with one algorithm.
// The zero value is not usable; use New.
type Fingerprinter struct {
	alg     Algorithm
	newHash func() hash.Hash
}

// New returns a Fingerprinter for alg.
func New(alg Algorithm) (*Fingerprinter, error) {
	if alg == "" {
		alg = Default
	}
	ctor, ok := constructors[alg]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, alg)
	}
	return &Fingerprinter{alg: alg, newHash: ctor}, nil
}

// Algorithm returns the algorithm this Fingerprinter uses.
func (f *Fingerprinter) Algorithm() Algorithm {
	return f.alg
}

// Sum returns the hex digest of text.
// Invalid UTF-8 is replaced with U+FFFD first, so Sum never fails.
func (f *Fingerprinter) Sum(text string) string {
	h := f.newHash()
	h.Write([]byte(normalize.ValidUTF8(text))) //nolint:errcheck // hash.Hash.Write never returns an error
	return hex.EncodeToString(h.Sum(nil))
}

var defaultFingerprinter = &Fingerprinter{alg: Default, newHash: constructors[Default]}

// DefaultFingerprinter returns the Fingerprinter for Default.
func DefaultFingerprinter() *Fingerprinter {
	return defaultFingerprinter
}

// Sum returns the hex digest of text using the default algorithm.
func Sum(text string) string {
	return defaultFingerprinter.Sum(text)
}

// Short abbreviates a fingerprint for display.
func Short(fp string) string {
	const n = 12
	if len(fp) <= n {
		return fp
	}
	return fp[:n]
}
