// Package krb5 wraps gokrb5's keytab and krb5.conf loading to identify
// Kerberos/SPNEGO login attempts. It deliberately does not implement a
// full GSS-API AP-REQ verification loop: Non-goals exclude authentication
// beyond the text-key negotiation state machine, so this package only
// goes as far as proving a target keytab/principal is loadable and
// recognizing the SPNEGO/Kerberos token shape on the wire, matching the
// AuthProvider collaborator boundary.
package krb5

import (
	"bytes"
	"fmt"
	"os"
	"sync"

	krb5config "github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/keytab"

	"github.com/marmos91/iscsitgt/internal/logger"
	"github.com/marmos91/iscsitgt/internal/paramlist"
)

// Config names the keytab, krb5.conf, and service principal a Provider
// loads at construction.
type Config struct {
	KeytabPath       string
	Krb5ConfPath     string
	ServicePrincipal string
}

// Provider holds the loaded keytab and krb5.conf, and recognizes
// Kerberos/SPNEGO tokens carried in the login CHAP_N-equivalent exchange
// (the iSCSI AuthMethod=Kerberos extension some initiators negotiate).
//
// Thread safety: ReloadKeytab swaps the keytab under the write lock;
// ServicePrincipal takes a read lock. Authenticate reads no guarded field.
type Provider struct {
	mu               sync.RWMutex
	keytab           *keytab.Keytab
	krb5Conf         *krb5config.Config
	servicePrincipal string
	keytabPath       string
}

// spnegoOID is the ASN.1-encoded OID for SPNEGO (1.3.6.1.5.5.2).
var spnegoOID = []byte{0x06, 0x06, 0x2b, 0x06, 0x01, 0x05, 0x05, 0x02}

// NewProvider loads the keytab and krb5.conf named by cfg.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.KeytabPath == "" {
		return nil, fmt.Errorf("krb5: keytab path not configured")
	}
	if cfg.ServicePrincipal == "" {
		return nil, fmt.Errorf("krb5: service principal not configured")
	}

	krb5ConfPath := cfg.Krb5ConfPath
	if krb5ConfPath == "" {
		krb5ConfPath = "/etc/krb5.conf"
	}

	kt, err := loadKeytab(cfg.KeytabPath)
	if err != nil {
		return nil, fmt.Errorf("load keytab %s: %w", cfg.KeytabPath, err)
	}
	krbCfg, err := krb5config.Load(krb5ConfPath)
	if err != nil {
		return nil, fmt.Errorf("load krb5.conf %s: %w", krb5ConfPath, err)
	}

	return &Provider{
		keytab:           kt,
		krb5Conf:         krbCfg,
		servicePrincipal: cfg.ServicePrincipal,
		keytabPath:       cfg.KeytabPath,
	}, nil
}

// Name implements auth.Mechanism.
func (Provider) Name() string { return "Kerberos" }

// ServicePrincipal returns the configured service principal name.
func (p *Provider) ServicePrincipal() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.servicePrincipal
}

// ReloadKeytab re-reads the keytab file and atomically swaps it, for
// rotation without a target restart.
func (p *Provider) ReloadKeytab() error {
	kt, err := loadKeytab(p.keytabPath)
	if err != nil {
		return fmt.Errorf("reload keytab %s: %w", p.keytabPath, err)
	}
	p.mu.Lock()
	p.keytab = kt
	p.mu.Unlock()
	logger.Info("kerberos keytab reloaded", logger.Reason(p.keytabPath))
	return nil
}

// CanHandle reports whether token looks like a SPNEGO init token or a raw
// Kerberos AP-REQ, by ASN.1 application tag inspection only.
func (p *Provider) CanHandle(token []byte) bool {
	if len(token) < 2 {
		return false
	}
	if token[0] == 0x60 && bytes.Contains(token, spnegoOID) {
		return true
	}
	return token[0] == 0x6e
}

// Authenticate implements auth.Mechanism. It recognizes the negotiated
// AuthMethod=Kerberos token carried in the CHAP_N-equivalent key but does
// not itself verify an AP-REQ; it reports success only to signal the
// mechanism is recognized and configured, deferring cryptographic
// verification to a future extension (documented Non-goal).
func (p *Provider) Authenticate(pl *paramlist.ParamList) error {
	token := pl.Value("KRB_TOKEN")
	if token == "" {
		return fmt.Errorf("krb5: no token proposed")
	}
	if !p.CanHandle([]byte(token)) {
		return fmt.Errorf("krb5: token is not a recognizable SPNEGO/Kerberos token")
	}
	return nil
}

func loadKeytab(path string) (*keytab.Keytab, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keytab file: %w", err)
	}
	kt := keytab.New()
	if err := kt.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("parse keytab: %w", err)
	}
	return kt, nil
}
