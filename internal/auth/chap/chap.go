// Package chap implements RFC 1994 CHAP as negotiated through the iSCSI
// login Security stage's CHAP_A/CHAP_I/CHAP_C/CHAP_N/CHAP_R text keys
// (RFC 3720 §11.1). Only target-authenticates-initiator is implemented;
// mutual (bidirectional) CHAP is a documented gap — see the Authenticator
// doc comment.
package chap

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/marmos91/iscsitgt/internal/auth"
	"github.com/marmos91/iscsitgt/internal/paramlist"
)

// Algorithm identifiers for CHAP_A (RFC 1994 §4). Only MD5 (5) is in
// practice implemented by initiators; this package rejects any other
// value.
const AlgorithmMD5 = 5

// ErrAuthenticationFailed is returned when CHAP_R does not match the
// expected response digest.
var ErrAuthenticationFailed = errors.New("chap: response digest mismatch")

// ErrUnsupportedAlgorithm is returned when the initiator proposes a
// CHAP_A value other than MD5.
var ErrUnsupportedAlgorithm = errors.New("chap: unsupported algorithm")

// Credential is one (username, secret) pair the Authenticator checks
// CHAP_N/CHAP_R against.
type Credential struct {
	Name   string
	Secret []byte
}

// CredentialStore resolves a CHAP_N username to its configured secret.
type CredentialStore interface {
	Lookup(name string) (Credential, bool)
}

// StaticStore is an in-memory CredentialStore, the common case for a
// handful of configured node ACL entries.
type StaticStore map[string]Credential

func (s StaticStore) Lookup(name string) (Credential, bool) {
	c, ok := s[name]
	return c, ok
}

// Authenticator runs the target-authenticates-initiator half of CHAP. A
// caller must first populate pl's CHAP_I (identifier) and CHAP_C
// (challenge) keys via NewChallenge before the initiator's response is
// negotiated, then call Authenticate once CHAP_N/CHAP_R have been proposed.
type Authenticator struct {
	store     CredentialStore
	challenge []byte
	id        byte
}

// NewAuthenticator creates a CHAP authenticator resolving credentials from
// store.
func NewAuthenticator(store CredentialStore) *Authenticator {
	return &Authenticator{store: store}
}

func (Authenticator) Name() string { return "CHAP" }

// NewChallenge generates a fresh CHAP_I/CHAP_C pair and records it on pl
// for the target to send. Must be called once per login attempt before
// the initiator's CHAP_N/CHAP_R proposal is parsed.
func (a *Authenticator) NewChallenge(pl *paramlist.ParamList) error {
	var idByte [1]byte
	if _, err := rand.Read(idByte[:]); err != nil {
		return fmt.Errorf("chap: generate identifier: %w", err)
	}
	challenge := make([]byte, 16)
	if _, err := rand.Read(challenge); err != nil {
		return fmt.Errorf("chap: generate challenge: %w", err)
	}

	a.id = idByte[0]
	a.challenge = challenge

	if err := pl.Offer("CHAP_A", fmt.Sprintf("%d", AlgorithmMD5)); err != nil {
		return err
	}
	if err := pl.Offer("CHAP_I", fmt.Sprintf("%d", a.id)); err != nil {
		return err
	}
	return pl.Offer("CHAP_C", "0x"+hex.EncodeToString(challenge))
}

// Authenticate validates the initiator's CHAP_N/CHAP_R proposal against
// the challenge issued by NewChallenge, per RFC 1994 §4's response
// digest: MD5(identifier || secret || challenge).
func (a *Authenticator) Authenticate(pl *paramlist.ParamList) error {
	algo := pl.Value("CHAP_A")
	if algo != fmt.Sprintf("%d", AlgorithmMD5) {
		return ErrUnsupportedAlgorithm
	}

	name := pl.Value("CHAP_N")
	cred, ok := a.store.Lookup(name)
	if !ok {
		return ErrAuthenticationFailed
	}

	response := pl.Value("CHAP_R")
	respBytes, err := decodeHexValue(response)
	if err != nil {
		return fmt.Errorf("chap: malformed CHAP_R: %w", err)
	}

	expected := ResponseDigest(a.id, cred.Secret, a.challenge)
	if !constantTimeEqual(expected, respBytes) {
		return ErrAuthenticationFailed
	}
	return nil
}

// ResponseDigest computes the RFC 1994 CHAP response: MD5(id || secret ||
// challenge), as a raw 16-byte digest.
func ResponseDigest(id byte, secret, challenge []byte) []byte {
	h := md5.New()
	h.Write([]byte{id})
	h.Write(secret)
	h.Write(challenge)
	return h.Sum(nil)
}

func decodeHexValue(v string) ([]byte, error) {
	v = stripHexPrefix(v)
	return hex.DecodeString(v)
}

func stripHexPrefix(v string) string {
	if len(v) >= 2 && (v[0:2] == "0x" || v[0:2] == "0X") {
		return v[2:]
	}
	return v
}

var _ auth.Mechanism = (*Authenticator)(nil)

func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := range a {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}
