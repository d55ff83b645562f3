package flow

import (
	"crypto"
	_ "crypto/sha256"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrDigestUnavailable = errors.New("flow: SHA-256 digest unavailable")
)

// digest is replaced in tests to simulate a missing hash implementation.
var digest = crypto.SHA256

// Fingerprint returns the 64 character lowercase hex SHA-256 digest identifying the flow.
// The timestamp is not part of the identity.
func Fingerprint(f *Flow) (string, error) {
	if !digest.Available() {
		return "", ErrDigestUnavailable
	}

	var b strings.Builder
	b.WriteString(strconv.Itoa(f.VlanID))
	b.WriteString(f.SourceMac)
	b.WriteString(f.DestinationMac)
	b.WriteString(strconv.Itoa(f.EthType))
	b.WriteString(strconv.Itoa(f.NetProtocol))
	b.WriteString(f.NetSource)
	b.WriteString(f.NetDestination)
	b.WriteString(strconv.Itoa(f.TransportSource))
	b.WriteString(strconv.Itoa(f.TransportDestination))

	h := digest.New()
	h.Write([]byte(b.String()))
	return fmt.Sprintf("%064x", h.Sum(nil)), nil
}

func (f *Flow) Fingerprint() (string, error) {
	return Fingerprint(f)
}

// IsFingerprint reports whether s has the canonical fingerprint form.
func IsFingerprint(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}
