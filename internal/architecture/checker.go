// Package architecture implements the minimal in-core layer-violation
// checker carved out as a supplemented feature in SPEC_FULL.md §4: it
// tags CALLS edges that cross a declared architectural layer boundary
// in the disallowed direction. Layers are an ordered list (innermost
// first, e.g. "domain", "service", "handlers") and a call violates
// architecture when its source layer sits earlier in that order than
// its target layer — an inner layer reaching out to depend on an
// outer one — mirroring original_source's Config::is_layer_violation
// index comparison rather than an arbitrary allow-list.
package architecture

import (
	"crateindex/internal/discover"
	"crateindex/internal/model"
)

// Severity classifies how serious a violation is.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Kind classifies the shape of a violation.
type Kind string

const (
	KindReverseDependency Kind = "reverse-dependency" // adjacent inner layer calling out one layer
	KindLayerSkip         Kind = "layer-skip"          // calling out across more than one layer boundary
)

// Policy is an ordered list of layers, innermost first. A crate's
// layer index is its position in this list. Layers reuses
// discover.Layer (the same definitions discover.ApplyLayers consumes
// to stamp model.Crate.Layer) so the two stay in lockstep.
type Policy struct {
	Layers []discover.Layer
}

func (p Policy) indexOf(name string) (int, bool) {
	for i, l := range p.Layers {
		if l.Name == name {
			return i, true
		}
	}
	return 0, false
}

// Violation records one disallowed cross-layer call.
type Violation struct {
	CallerID  string
	File      string
	Line      int
	FromCrate string
	ToCrate   string
	FromLayer string
	ToLayer   string
	Kind      Kind
	Severity  Severity
}

// Check walks every resolved, cross-crate call in ps and reports the
// ones that violate the policy, given each crate's layer tag (as set
// by internal/discover.ApplyLayers on model.Crate.Layer).
func Check(ps *model.ParsedSymbols, crateLayer map[string]string, policy Policy) []Violation {
	var violations []Violation
	for _, c := range ps.Calls {
		if c.ToCrate == nil || !c.CrossCrate() {
			continue
		}
		fromLayer := crateLayer[c.FromCrate]
		toLayer := crateLayer[*c.ToCrate]
		if fromLayer == "" || toLayer == "" {
			continue
		}
		fromIdx, ok := policy.indexOf(fromLayer)
		if !ok {
			continue
		}
		toIdx, ok := policy.indexOf(toLayer)
		if !ok {
			continue
		}
		if fromIdx >= toIdx {
			continue
		}
		kind := KindLayerSkip
		if toIdx-fromIdx == 1 {
			kind = KindReverseDependency
		}
		violations = append(violations, Violation{
			CallerID:  c.CallerID,
			File:      c.File,
			Line:      c.Line,
			FromCrate: c.FromCrate,
			ToCrate:   *c.ToCrate,
			FromLayer: fromLayer,
			ToLayer:   toLayer,
			Kind:      kind,
			Severity:  SeverityError,
		})
	}
	return violations
}
