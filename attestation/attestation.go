// Package attestation provides an optional, local, COSE-based integrity
// signature over a completed tournament result. It is strictly additive:
// core produces a TournamentResult with no knowledge that signing exists,
// and nothing in core imports this package.
package attestation

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/go-cose"

	"github.com/cloudx-io/tokentourney/core"
)

// GenerateKeyPair creates a fresh ECDSA P-256 signing key. Callers own the
// key's lifetime; this package never persists it.
func GenerateKeyPair() (*ecdsa.PrivateKey, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	return key, nil
}

// Sign encodes result as canonical CBOR and wraps it in a COSE_Sign1
// structure signed with key, mirroring how the teacher signs a single
// auction outcome — applied here to a whole tournament result instead.
func Sign(result *core.TournamentResult, key *ecdsa.PrivateKey) ([]byte, error) {
	encMode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("create canonical encoder: %w", err)
	}
	payload, err := encMode.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}

	signer, err := cose.NewSigner(cose.AlgorithmES256, key)
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}

	msg := cose.NewSign1Message()
	msg.Payload = payload
	msg.Headers.Protected.SetAlgorithm(cose.AlgorithmES256)

	if err := msg.Sign(rand.Reader, nil, signer); err != nil {
		return nil, fmt.Errorf("sign result: %w", err)
	}

	encoded, err := msg.MarshalCBOR()
	if err != nil {
		return nil, fmt.Errorf("encode cose message: %w", err)
	}
	return encoded, nil
}

// Verify checks a COSE_Sign1-signed tournament result against pub and, if
// the signature is valid, decodes and returns the result it covers.
func Verify(signed []byte, pub *ecdsa.PublicKey) (*core.TournamentResult, error) {
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(signed); err != nil {
		return nil, fmt.Errorf("decode cose message: %w", err)
	}

	verifier, err := cose.NewVerifier(cose.AlgorithmES256, pub)
	if err != nil {
		return nil, fmt.Errorf("create verifier: %w", err)
	}

	if err := msg.Verify(nil, verifier); err != nil {
		return nil, fmt.Errorf("verify signature: %w", err)
	}

	var result core.TournamentResult
	if err := cbor.Unmarshal(msg.Payload, &result); err != nil {
		return nil, fmt.Errorf("decode result payload: %w", err)
	}
	return &result, nil
}
