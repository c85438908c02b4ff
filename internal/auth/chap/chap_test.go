package chap

import (
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/iscsitgt/internal/paramlist"
)

func testTemplate() *paramlist.Template {
	defs := []paramlist.KeyDef{
		{Name: "CHAP_A", Type: paramlist.TypeNumeric, Rule: RuleAuth()},
		{Name: "CHAP_I", Type: paramlist.TypeNumeric, Rule: RuleAuth()},
		{Name: "CHAP_C", Type: paramlist.TypeDeclarative, Rule: paramlist.RuleDeclared},
		{Name: "CHAP_N", Type: paramlist.TypeDeclarative, Rule: paramlist.RuleDeclared},
		{Name: "CHAP_R", Type: paramlist.TypeDeclarative, Rule: paramlist.RuleDeclared},
	}
	return paramlist.NewTemplate(defs, map[string]string{}, nil)
}

// RuleAuth is a small indirection so the test template can be tuned
// without touching every KeyDef literal.
func RuleAuth() paramlist.Rule { return paramlist.RuleDeclared }

func TestCHAPHappyPath(t *testing.T) {
	store := StaticStore{"alice": {Name: "alice", Secret: []byte("s3cret")}}
	a := NewAuthenticator(store)

	pl := testTemplate().New()
	require.NoError(t, a.NewChallenge(pl))

	resp := ResponseDigest(a.id, []byte("s3cret"), a.challenge)
	require.NoError(t, pl.Propose("CHAP_A", fmt.Sprintf("%d", AlgorithmMD5)))
	require.NoError(t, pl.Propose("CHAP_N", "alice"))
	require.NoError(t, pl.Propose("CHAP_R", "0x"+hex.EncodeToString(resp)))

	assert.NoError(t, a.Authenticate(pl))
}

func TestCHAPWrongSecretFails(t *testing.T) {
	store := StaticStore{"alice": {Name: "alice", Secret: []byte("s3cret")}}
	a := NewAuthenticator(store)

	pl := testTemplate().New()
	require.NoError(t, a.NewChallenge(pl))

	wrong := ResponseDigest(a.id, []byte("wrong"), a.challenge)
	require.NoError(t, pl.Propose("CHAP_A", fmt.Sprintf("%d", AlgorithmMD5)))
	require.NoError(t, pl.Propose("CHAP_N", "alice"))
	require.NoError(t, pl.Propose("CHAP_R", "0x"+hex.EncodeToString(wrong)))

	assert.ErrorIs(t, a.Authenticate(pl), ErrAuthenticationFailed)
}

func TestCHAPUnknownUserFails(t *testing.T) {
	a := NewAuthenticator(StaticStore{})
	pl := testTemplate().New()
	require.NoError(t, a.NewChallenge(pl))
	require.NoError(t, pl.Propose("CHAP_A", fmt.Sprintf("%d", AlgorithmMD5)))
	require.NoError(t, pl.Propose("CHAP_N", "ghost"))
	require.NoError(t, pl.Propose("CHAP_R", "0x00"))

	assert.ErrorIs(t, a.Authenticate(pl), ErrAuthenticationFailed)
}

func TestCHAPUnsupportedAlgorithmRejected(t *testing.T) {
	a := NewAuthenticator(StaticStore{"alice": {Name: "alice"}})
	pl := testTemplate().New()
	require.NoError(t, a.NewChallenge(pl))

	require.NoError(t, pl.Propose("CHAP_A", fmt.Sprintf("%d", 99)))
	require.NoError(t, pl.Propose("CHAP_N", "alice"))
	require.NoError(t, pl.Propose("CHAP_R", "0x00"))

	assert.ErrorIs(t, a.Authenticate(pl), ErrUnsupportedAlgorithm)
}

func TestResponseDigestDeterministic(t *testing.T) {
	d1 := ResponseDigest(7, []byte("secret"), []byte("chal"))
	d2 := ResponseDigest(7, []byte("secret"), []byte("chal"))
	assert.Equal(t, d1, d2)
}
