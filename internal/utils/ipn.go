// internal/utils/ipn.go
package utils

import (
	"crypto/sha512"
	"encoding/hex"
	"sort"
	"strings"
)

// IPNSignatureField is the form field carrying the processor's signature.
const IPNSignatureField = "sha_sign"

// ComputeIPNSignature builds the signature the processor is expected to send
// for the given payload: all fields except sha_sign, sorted by field name,
// values concatenated, passphrase appended, SHA-512, uppercase hex.
func ComputeIPNSignature(payload map[string]string, passphrase string) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		if k == IPNSignatureField {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(payload[k])
	}
	b.WriteString(passphrase)

	sum := sha512.Sum512([]byte(b.String()))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// VerifyIPNSignature reports whether the payload's sha_sign field matches the
// signature computed with the shared passphrase. An unset passphrase fails
// closed: nothing verifies.
func VerifyIPNSignature(payload map[string]string, passphrase string) bool {
	if passphrase == "" {
		return false
	}

	sig := payload[IPNSignatureField]
	if sig == "" {
		return false
	}

	return strings.EqualFold(sig, ComputeIPNSignature(payload, passphrase))
}
