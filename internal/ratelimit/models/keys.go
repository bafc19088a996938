package models

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// KeyPrefixIP namespaces per-client-address windows.
const KeyPrefixIP = "ip"

const keyNamespace = "ratelimit"

// SanitizeKeySegment escapes delimiter characters in key segments so a
// user-controlled identifier containing ':' cannot address another bucket.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// NewIPKey builds the store key for a client address. The address is hashed
// so raw IPs are never written to the shared store.
func NewIPKey(clientID string) string {
	sum := blake2b.Sum256([]byte(clientID))
	return keyNamespace + ":" + KeyPrefixIP + ":" + SanitizeKeySegment(hex.EncodeToString(sum[:]))
}
