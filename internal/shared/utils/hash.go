package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// HashAlgorithm represents the hashing algorithm to use
type HashAlgorithm string

const (
	SHA256 HashAlgorithm = "sha256"
	// Extensible: add more algorithms here
)

// Hasher provides extensible hashing functionality
type Hasher struct {
	algorithm HashAlgorithm
}

// NewHasher creates a new hasher with the specified algorithm
func NewHasher(algorithm HashAlgorithm) *Hasher {
	return &Hasher{
		algorithm: algorithm,
	}
}

// DefaultHasher returns a hasher with the default algorithm
func DefaultHasher() *Hasher {
	return NewHasher(SHA256)
}

// Hash computes a hash of the input data
func (h *Hasher) Hash(data []byte) string {
	switch h.algorithm {
	case SHA256:
		hash := sha256.Sum256(data)
		return hex.EncodeToString(hash[:])
	default:
		hash := sha256.Sum256(data)
		return hex.EncodeToString(hash[:])
	}
}

// HashString computes a hash of a string
func (h *Hasher) HashString(s string) string {
	return h.Hash([]byte(s))
}

// HashFields computes a hash from multiple fields
// Fields are concatenated with a delimiter for consistent hashing
func (h *Hasher) HashFields(fields ...string) string {
	// Sort fields for deterministic ordering
	sorted := make([]string, len(fields))
	copy(sorted, fields)
	sort.Strings(sorted)

	combined := strings.Join(sorted, "|")
	return h.HashString(combined)
}

// DedupKeyer derives the identity key used for single-instance matching.
// Two launches with the same key compete for one instance slot.
type DedupKeyer struct {
	hasher  *Hasher
	perUser bool
}

// NewDedupKeyer creates a keyer; perUser scopes keys to the launching user
func NewDedupKeyer(hasher *Hasher, perUser bool) *DedupKeyer {
	if hasher == nil {
		hasher = DefaultHasher()
	}
	return &DedupKeyer{hasher: hasher, perUser: perUser}
}

// Key derives the dedup key for an application launch
func (k *DedupKeyer) Key(appID, path, category, launchedBy string) string {
	fields := []string{
		"app:" + appID,
		"path:" + path,
		"cat:" + category,
	}
	if k.perUser {
		fields = append(fields, "user:"+launchedBy)
	}
	return k.hasher.HashFields(fields...)
}

// ShortHash returns an 8-character hash prefix for display and logging
func ShortHash(fullHash string) string {
	if len(fullHash) < 8 {
		return fullHash
	}
	return fullHash[:8]
}
