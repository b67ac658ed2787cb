// Package resolve implements the reference resolver of SPEC_FULL.md
// §4.3: it fills in Call.QualifiedCallee (and, when the callee lives in
// a different crate, Call.ToCrate) for the call shapes that can be
// resolved by literal name matching alone. Everything else — a
// Type::method associated call, a method call on an arbitrary receiver
// expression — is left unresolved here by design; those are either
// picked up by the cross-crate global index (internal/index) or never
// resolved at all, matching the original analyzer's documented
// precision/recall trade-off.
package resolve

import "crateindex/internal/model"

const traitDispatchConfidence = 0.90

// syntheticFile marks a Function record that exists in no parsed
// source file: the trait-dispatch vertex standing in for dynamic
// dispatch through a trait with more than one implementation.
const syntheticFile = "<synthetic>"

// candidateTier ranks how specific a matching function is to the call
// site, most specific first. A tie within a tier makes the call
// unresolved rather than guessing.
type candidateTier int

const (
	tierSameFile candidateTier = iota
	tierSameModule
	tierSameCrate
	tierPublicAnyCrate
	tierNotVisible // private to another crate; never a candidate
)

// Resolve mutates ps.Calls in place, filling in QualifiedCallee and
// ToCrate for bare function calls, and synthesizing trait-dispatch
// vertices and edges for method calls that resolve to more than one
// candidate implementation.
func Resolve(ps *model.ParsedSymbols) {
	byName := map[string][]*model.Function{}
	for i := range ps.Functions {
		f := &ps.Functions[i]
		byName[f.Name] = append(byName[f.Name], f)
	}

	synthesizeTraitDispatch(ps)

	for i := range ps.Calls {
		c := &ps.Calls[i]
		switch c.Kind {
		case model.CallKindFunction:
			resolveFunctionCall(c, byName[c.CalleeName])
		case model.CallKindMethod:
			resolveMethodCall(ps, c, byName[c.CalleeName])
		case model.CallKindAssociated, model.CallKindMacro:
			// left unresolved: §4.3.2 (scoped calls) and macro-synthesized
			// calls already carry their own synthetic attribution.
		}
	}
}

func resolveFunctionCall(c *model.Call, candidates []*model.Function) {
	if len(candidates) == 0 {
		return
	}
	tiers := map[candidateTier][]*model.Function{}
	for _, f := range candidates {
		t := tierOf(c, f)
		tiers[t] = append(tiers[t], f)
	}
	for tier := tierSameFile; tier <= tierPublicAnyCrate; tier++ {
		matches := tiers[tier]
		if len(matches) == 0 {
			continue
		}
		if len(matches) > 1 {
			return // ambiguous within the most specific tier: unresolved
		}
		winner := matches[0]
		name := winner.QualifiedName
		crate := winner.Crate
		c.QualifiedCallee = &name
		if crate != c.FromCrate {
			c.ToCrate = &crate
		}
		return
	}
}

func tierOf(c *model.Call, f *model.Function) candidateTier {
	switch {
	case f.File == c.File:
		return tierSameFile
	case f.Crate == c.FromCrate && f.ModulePath == moduleOf(c):
		return tierSameModule
	case f.Crate == c.FromCrate:
		return tierSameCrate
	case f.Visibility == model.VisibilityPublic:
		return tierPublicAnyCrate
	default:
		return tierNotVisible
	}
}

// moduleOf is a placeholder hook: calls don't carry their enclosing
// module path, so the same-module tier holds the same-crate functions
// declared outside any inline module (empty ModulePath).
func moduleOf(c *model.Call) string { return "" }

// resolveMethodCall implements the trait-method synthesis signal: when
// more than one trait-impl method shares the called name, the concrete
// target is statically ambiguous (dynamic dispatch), so every such call
// is routed to the shared "trait dispatcher" function at reduced
// confidence (§4.3.3). A single matching implementation resolves
// directly. synthesizeTraitDispatch already builds the dispatcher and
// its edges from every impl block it can see; this only has to cover
// the case where the dispatcher wasn't structurally derivable (no
// model.ImplBlock recorded for these candidates) by building it here.
func resolveMethodCall(ps *model.ParsedSymbols, c *model.Call, candidates []*model.Function) {
	var implCandidates []*model.Function
	for _, f := range candidates {
		if f.IsTraitImpl {
			implCandidates = append(implCandidates, f)
		}
	}
	if len(implCandidates) == 0 {
		return
	}
	if len(implCandidates) == 1 {
		name := implCandidates[0].QualifiedName
		c.QualifiedCallee = &name
		return
	}

	dispatchName := "<trait-dispatch>::" + c.CalleeName
	dispatchID := ensureDispatcher(ps, c.FromCrate, c.CalleeName, dispatchName)
	ensureDispatchEdges(ps, dispatchID, c.FromCrate, implCandidates)

	c.QualifiedCallee = &dispatchName
	c.IsSynthetic = true
	c.SyntheticConfidence = traitDispatchConfidence
}

// synthesizeTraitDispatch implements §4.3.4 directly from the impl
// table rather than waiting for an ambiguous call site: every trait
// implemented by more than one type gets a dispatcher function per
// method name, with a synthetic edge to each concrete implementation,
// whether or not any parsed call actually invokes that method.
func synthesizeTraitDispatch(ps *model.ParsedSymbols) {
	implsByTrait := map[string][]*model.ImplBlock{}
	for i := range ps.Impls {
		impl := &ps.Impls[i]
		if impl.TraitName == "" {
			continue
		}
		implsByTrait[impl.TraitName] = append(implsByTrait[impl.TraitName], impl)
	}

	for _, impls := range implsByTrait {
		if len(impls) < 2 {
			continue
		}
		methodsByName := map[string][]*model.Function{}
		for _, impl := range impls {
			for _, methodID := range impl.Methods {
				fn, ok := ps.FunctionByID(methodID)
				if !ok {
					continue
				}
				methodsByName[fn.Name] = append(methodsByName[fn.Name], fn)
			}
		}
		for methodName, fns := range methodsByName {
			dispatchName := "<trait-dispatch>::" + methodName
			crates := map[string]bool{}
			for _, fn := range fns {
				crates[fn.Crate] = true
			}
			for crate := range crates {
				dispatchID := ensureDispatcher(ps, crate, methodName, dispatchName)
				ensureDispatchEdges(ps, dispatchID, crate, fns)
			}
		}
	}
}

// ensureDispatcher returns the stable function ID of the synthetic
// dispatcher for methodName attributed to crate, creating the
// synthetic model.Function the first time it's needed.
func ensureDispatcher(ps *model.ParsedSymbols, crate, methodName, dispatchName string) string {
	dispatchID := crate + ":" + dispatchName + ":0"
	if _, ok := ps.FunctionByID(dispatchID); !ok {
		ps.Functions = append(ps.Functions, model.Function{
			ID:            dispatchID,
			Name:          methodName,
			QualifiedName: dispatchName,
			Crate:         crate,
			File:          syntheticFile,
			Visibility:    model.VisibilityPublic,
		})
	}
	return dispatchID
}

// ensureDispatchEdges appends a synthetic Call from dispatchID to every
// implementation in fns that doesn't already have one, preserving the
// cross-crate invariant (ToCrate set only when it differs from crate).
func ensureDispatchEdges(ps *model.ParsedSymbols, dispatchID, crate string, fns []*model.Function) {
	for _, fn := range fns {
		if dispatchEdgeExists(ps, dispatchID, fn.QualifiedName) {
			continue
		}
		var toCrate *string
		if fn.Crate != crate {
			c := fn.Crate
			toCrate = &c
		}
		qualified := fn.QualifiedName
		ps.Calls = append(ps.Calls, model.Call{
			CallerID:            dispatchID,
			File:                fn.File,
			Line:                fn.LineStart,
			CalleeName:          fn.Name,
			QualifiedCallee:     &qualified,
			Kind:                model.CallKindMethod,
			FromCrate:           crate,
			ToCrate:             toCrate,
			IsSynthetic:         true,
			SyntheticConfidence: traitDispatchConfidence,
		})
	}
}

func dispatchEdgeExists(ps *model.ParsedSymbols, dispatchID, qualifiedCallee string) bool {
	for i := range ps.Calls {
		c := &ps.Calls[i]
		if c.CallerID == dispatchID && c.QualifiedCallee != nil && *c.QualifiedCallee == qualifiedCallee {
			return true
		}
	}
	return false
}
