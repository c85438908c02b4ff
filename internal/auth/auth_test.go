package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/iscsitgt/internal/paramlist"
)

func testTemplate() *paramlist.Template {
	defs := []paramlist.KeyDef{
		{Name: "AuthMethod", Type: paramlist.TypeDeclarative, Rule: paramlist.RuleDeclared},
	}
	return paramlist.NewTemplate(defs, map[string]string{"AuthMethod": "None"}, nil)
}

func TestRegistryDispatchesToNone(t *testing.T) {
	r := NewRegistry()
	r.Register(None{})

	pl := testTemplate().New()
	assert.NoError(t, r.ByMethod("None", pl))
}

func TestRegistryUnknownMethodErrors(t *testing.T) {
	r := NewRegistry()
	err := r.ByMethod("CHAP", testTemplate().New())
	assert.ErrorIs(t, err, ErrUnsupportedMechanism)
}

func TestProviderAdapterReadsAuthMethodFromParamList(t *testing.T) {
	r := NewRegistry()
	r.Register(None{})
	p := Provider{Registry: r}

	pl := testTemplate().New()
	_, err := pl.Respond("AuthMethod")
	require.NoError(t, err)

	assert.NoError(t, p.Authenticate(pl))
}
