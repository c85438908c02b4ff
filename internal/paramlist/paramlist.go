// Package paramlist implements the iSCSI login/text negotiation parameter
// store: keyed text values with per-key type rules, negotiation semantics
// (minimum, maximum, OR, AND, first-value-in-list, declarative), and the
// key=value\0 text encoding used on the wire.
package paramlist

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Type classifies how a key's value is parsed and negotiated.
type Type int

const (
	TypeBoolean Type = iota
	TypeNumeric
	TypeNumericRange
	TypeTextList  // first-value-in-list the responder supports wins
	TypeDeclarative
	TypeStringList // OR semantics for boolean-like multi value lists
)

// Rule describes how a responder resolves an offer against its own policy
// value for a key.
type Rule int

const (
	RuleMinimum Rule = iota
	RuleMaximum
	RuleOr
	RuleAnd
	RuleFirstInList
	RuleDeclared // declarative: target states its value, not negotiated
)

// StateFlag marks per-key negotiation progress.
type StateFlag int

const (
	StateNone StateFlag = iota
	StateMandatory
	StateNegotiateNow
	StateResponded
	StateDeclarative
	StateReject
)

// KeyDef is the immutable definition of a negotiable key.
type KeyDef struct {
	Name    string
	Type    Type
	Rule    Rule
	Min     int64
	Max     int64
	Choices []string // valid values for TypeTextList / TypeStringList
}

// Entry is the live negotiation state for one key within a ParamList.
type Entry struct {
	Def           KeyDef
	Default       string
	CurrentOffer  string // what the target proposed, if it proposed
	PeerProposal  string
	Response      string
	State         StateFlag
}

// ParamList is a keyed text-parameter negotiation table. A fresh list is
// created from a Template at login start and discarded on entry to
// FullFeaturePhase.
type ParamList struct {
	entries map[string]*Entry
}

// Template is an immutable, reusable set of key definitions and defaults a
// new ParamList copies at login start.
type Template struct {
	defs     []KeyDef
	defaults map[string]string
	mandatory map[string]bool
}

// NewTemplate builds a Template from key definitions. defaults provides the
// target's configured value for each key; mandatory lists keys that must be
// resolved (via propose+respond) before the Operational phase can conclude.
func NewTemplate(defs []KeyDef, defaults map[string]string, mandatory []string) *Template {
	t := &Template{
		defs:      defs,
		defaults:  defaults,
		mandatory: make(map[string]bool, len(mandatory)),
	}
	for _, k := range mandatory {
		t.mandatory[k] = true
	}
	return t
}

// New copies the Template into a fresh ParamList for one login/text
// negotiation sequence.
func (t *Template) New() *ParamList {
	pl := &ParamList{entries: make(map[string]*Entry, len(t.defs))}
	for _, def := range t.defs {
		e := &Entry{Def: def, Default: t.defaults[def.Name]}
		if t.mandatory[def.Name] {
			e.State = StateMandatory
		}
		if def.Rule == RuleDeclared {
			e.State = StateDeclarative
		}
		pl.entries[def.Name] = e
	}
	return pl
}

// ErrUnknownKey is returned for operations on a key absent from the
// template.
type ErrUnknownKey struct{ Key string }

func (e *ErrUnknownKey) Error() string { return fmt.Sprintf("paramlist: unknown key %q", e.Key) }

// ErrInvalidField is returned when a proposed value violates the key's
// type or range.
type ErrInvalidField struct {
	Key   string
	Value string
	Cause string
}

func (e *ErrInvalidField) Error() string {
	return fmt.Sprintf("paramlist: invalid value %q for key %q: %s", e.Value, e.Key, e.Cause)
}

// ErrUnreachable is returned from Respond when a mandatory key has not
// been proposed and a phase transition requires it resolved.
type ErrUnreachable struct{ Key string }

func (e *ErrUnreachable) Error() string {
	return fmt.Sprintf("paramlist: mandatory key %q not reachable", e.Key)
}

// Propose records the initiator's proposed value for key, rejecting values
// that violate the key's type/range.
func (pl *ParamList) Propose(key, value string) error {
	e, ok := pl.entries[key]
	if !ok {
		return &ErrUnknownKey{Key: key}
	}
	if err := validate(e.Def, value); err != nil {
		return &ErrInvalidField{Key: key, Value: value, Cause: err.Error()}
	}
	e.PeerProposal = value
	e.State = StateNegotiateNow
	return nil
}

// Offer records a value the target proposes to the initiator (used for
// target-initiated renegotiation, e.g. MaxRecvDataSegmentLength).
func (pl *ParamList) Offer(key, value string) error {
	e, ok := pl.entries[key]
	if !ok {
		return &ErrUnknownKey{Key: key}
	}
	if err := validate(e.Def, value); err != nil {
		return &ErrInvalidField{Key: key, Value: value, Cause: err.Error()}
	}
	e.CurrentOffer = value
	return nil
}

// Respond computes and records the target's response for key per its
// negotiation Rule, returning the resolved value. It fails with
// ErrUnreachable if a mandatory key has no peer proposal yet.
func (pl *ParamList) Respond(key string) (string, error) {
	e, ok := pl.entries[key]
	if !ok {
		return "", &ErrUnknownKey{Key: key}
	}
	if e.State == StateMandatory && e.PeerProposal == "" {
		return "", &ErrUnreachable{Key: key}
	}

	var resolved string
	switch e.Def.Rule {
	case RuleDeclared:
		resolved = e.Default
	case RuleMinimum:
		resolved = minMaxResolve(e, true)
	case RuleMaximum:
		resolved = minMaxResolve(e, false)
	case RuleOr:
		resolved = boolResolve(e, true)
	case RuleAnd:
		resolved = boolResolve(e, false)
	case RuleFirstInList:
		resolved = firstInListResolve(e)
	default:
		resolved = e.Default
	}

	e.Response = resolved
	e.State = StateResponded
	return resolved, nil
}

// Reject marks a key's negotiation as rejected (e.g. an unsupported text
// key other than SendTargets=All).
func (pl *ParamList) Reject(key string) {
	if e, ok := pl.entries[key]; ok {
		e.Response = "Reject"
		e.State = StateReject
	}
}

// Value returns the currently resolved (or default, if unresolved) value
// for a key.
func (pl *ParamList) Value(key string) string {
	e, ok := pl.entries[key]
	if !ok {
		return ""
	}
	if e.Response != "" {
		return e.Response
	}
	if e.PeerProposal != "" {
		return e.PeerProposal
	}
	return e.Default
}

// AllMandatoryResolved reports whether every mandatory key has left
// StateMandatory, i.e. has been proposed by the peer or rejected. It does
// not check that Respond has been called for those keys.
func (pl *ParamList) AllMandatoryResolved() bool {
	for _, e := range pl.entries {
		if e.Def.Rule != RuleDeclared && e.State == StateMandatory {
			return false
		}
	}
	return true
}

func minMaxResolve(e *Entry, useMin bool) string {
	a, errA := strconv.ParseInt(e.Default, 10, 64)
	b, errB := strconv.ParseInt(e.PeerProposal, 10, 64)
	if errA != nil {
		return e.PeerProposal
	}
	if errB != nil {
		return e.Default
	}
	if useMin {
		if a < b {
			return e.Default
		}
		return e.PeerProposal
	}
	if a > b {
		return e.Default
	}
	return e.PeerProposal
}

func boolResolve(e *Entry, or bool) string {
	a := e.Default == "Yes"
	b := e.PeerProposal == "Yes"
	var result bool
	if or {
		result = a || b
	} else {
		result = a && b
	}
	if result {
		return "Yes"
	}
	return "No"
}

func firstInListResolve(e *Entry) string {
	peerList := strings.Split(e.PeerProposal, ",")
	allowed := make(map[string]bool, len(e.Def.Choices))
	for _, c := range e.Def.Choices {
		allowed[c] = true
	}
	for _, v := range peerList {
		if allowed[v] {
			return v
		}
	}
	return "None"
}

func validate(def KeyDef, value string) error {
	switch def.Type {
	case TypeBoolean:
		if value != "Yes" && value != "No" {
			return fmt.Errorf("expected Yes/No, got %q", value)
		}
	case TypeNumeric, TypeNumericRange:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("not numeric: %w", err)
		}
		if def.Max > 0 && (n < def.Min || n > def.Max) {
			return fmt.Errorf("%d out of range [%d, %d]", n, def.Min, def.Max)
		}
	case TypeTextList, TypeStringList:
		// Accept any non-empty comma-separated list; per-choice validation
		// happens at resolution time so unsupported values can be rejected
		// individually rather than failing the whole proposal.
		if value == "" {
			return fmt.Errorf("empty list")
		}
	}
	return nil
}

// Encode renders the resolved response values as the iSCSI text payload:
// key=value pairs, NUL-terminated, in deterministic key order.
func (pl *ParamList) Encode(keys []string) []byte {
	sorted := make([]string, len(keys))
	copy(sorted, keys)
	sort.Strings(sorted)

	var buf []byte
	for _, k := range sorted {
		e, ok := pl.entries[k]
		if !ok || e.Response == "" {
			continue
		}
		buf = append(buf, k...)
		buf = append(buf, '=')
		buf = append(buf, e.Response...)
		buf = append(buf, 0)
	}
	return buf
}

// Decode parses a key=value\0-terminated text payload into proposals,
// calling Propose for each pair it recognizes. Keys absent from the
// template are reported as unrecognized rather than failing the whole
// decode, matching the Unsupported-text-key policy in the login/text
// handlers.
func (pl *ParamList) Decode(payload []byte) (unrecognized []string, err error) {
	pairs := strings.Split(strings.TrimRight(string(payload), "\x00"), "\x00")
	for _, pair := range pairs {
		if pair == "" {
			continue
		}
		idx := strings.IndexByte(pair, '=')
		if idx < 0 {
			return unrecognized, fmt.Errorf("paramlist: malformed pair %q", pair)
		}
		key, value := pair[:idx], pair[idx+1:]
		if _, ok := pl.entries[key]; !ok {
			unrecognized = append(unrecognized, key)
			continue
		}
		if perr := pl.Propose(key, value); perr != nil {
			return unrecognized, perr
		}
	}
	return unrecognized, nil
}
