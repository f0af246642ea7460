package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainRequest prefixes request fingerprints. The version suffix allows
// the algorithm to change without colliding with stored hashes.
const DomainRequest = "sebo/request/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte keeps domain and data from running into each other.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RequestHash fingerprints what a step sent: its target ("GET /produtos",
// "CatalogoService.listar") and its payload. A nil payload hashes like
// Null. Per-run data such as the rpc request id is not part of the input,
// so the same scripted request hashes identically across runs.
func RequestHash(target string, payload Value) (string, error) {
	if payload == nil {
		payload = Null{}
	}
	canonical, err := MarshalCanonical(NewObject(
		O("target", String(target)),
		O("payload", payload),
	))
	if err != nil {
		return "", fmt.Errorf("RequestHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRequest, canonical), nil
}

// MustRequestHash is like RequestHash but panics on error.
// Use only in tests or when the payload is known to be valid.
func MustRequestHash(target string, payload Value) string {
	h, err := RequestHash(target, payload)
	if err != nil {
		panic(err)
	}
	return h
}
