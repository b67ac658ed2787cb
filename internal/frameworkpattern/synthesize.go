package frameworkpattern

import "crateindex/internal/model"

// Confidence bands for the four dispatcher categories Synthesize can
// emit (§4.6). Trait dispatch reuses internal/resolve's band since it's
// the same dynamic-dispatch signal, just detected from raw text instead
// of an enumerated impl block.
const (
	entryPointConfidence    = 0.90
	runtimeCallConfidence   = 0.90
	traitDispatchConfidence = 0.90
	actorPatternConfidence  = 0.95
)

// syntheticFile marks a Function record that exists in no parsed source
// file: a dispatcher vertex standing in for a framework or runtime
// dispatch point recognized by pattern matching rather than the
// grammar.
const syntheticFile = "<synthetic>"

// Synthesize implements §4.6: for every file in sources it matches p
// against that file's raw text and, for every entry point,
// runtime-scheduled call, trait dispatch, and actor idiom it
// recognizes, appends a synthetic dispatcher Function (File:
// syntheticFile, Line: 0) plus a synthetic Call from the enclosing
// parsed function — or the file's module-level caller, absent one — to
// that dispatcher. It mutates ps in place. Running it twice over the
// same ParsedSymbols is a no-op the second time: edges are deduplicated
// by (caller_id, callee_name, file, line), matching the framework
// engine's idempotence requirement.
func Synthesize(ps *model.ParsedSymbols, sources map[string]string, p Patterns) {
	for file, src := range sources {
		crate := crateForFile(ps, file)
		if crate == "" {
			continue
		}

		for epType, matches := range FindEntryPoints(p, src) {
			for _, m := range matches {
				emit(ps, crate, file, m.Line, "<entry-point>", string(epType), model.CallKindFunction, entryPointConfidence)
			}
		}
		for rcType, matches := range FindRuntimeCalls(p, src) {
			for _, m := range matches {
				emit(ps, crate, file, m.Line, "<runtime-call>", string(rcType), model.CallKindFunction, runtimeCallConfidence)
			}
		}
		for traitName, matches := range FindTraitDispatches(p, src) {
			for _, m := range matches {
				emit(ps, crate, file, m.Line, "<trait-dispatch>", traitName, model.CallKindMethod, traitDispatchConfidence)
			}
		}
		for _, m := range FindActorPatterns(p, src) {
			emit(ps, crate, file, m.Line, "<actor-pattern>", m.PatternName, model.CallKindFunction, actorPatternConfidence)
		}
	}
}

// crateForFile finds the crate owning file by looking up any already
// parsed symbol declared there; sources with no matching symbol (an
// empty or comment-only file) are skipped since there's no crate to
// attribute a dispatcher to.
func crateForFile(ps *model.ParsedSymbols, file string) string {
	for i := range ps.Functions {
		if ps.Functions[i].File == file {
			return ps.Functions[i].Crate
		}
	}
	for i := range ps.Types {
		if ps.Types[i].File == file {
			return ps.Types[i].Crate
		}
	}
	return ""
}

// enclosingFunction returns the ID of the parsed function containing
// line in file, falling back to the file's module-level caller when no
// function's line range covers it.
func enclosingFunction(ps *model.ParsedSymbols, crate, file string, line int) string {
	var best *model.Function
	for i := range ps.Functions {
		f := &ps.Functions[i]
		if f.File != file || f.LineStart > line {
			continue
		}
		if f.LineEnd != 0 && line > f.LineEnd {
			continue
		}
		if best == nil || f.LineStart > best.LineStart {
			best = f
		}
	}
	if best != nil {
		return best.ID
	}
	return ensureModuleLevel(ps, crate, file)
}

// ensureModuleLevel registers the per-file synthetic module_level
// Function internal/parse's walker creates lazily, the same way, so the
// containment invariant holds even for files where no module-level call
// was ever parsed (e.g. an attribute line above the only function in
// the file).
func ensureModuleLevel(ps *model.ParsedSymbols, crate, file string) string {
	id := model.ModuleLevelFunctionID(crate, file)
	if _, ok := ps.FunctionByID(id); ok {
		return id
	}
	ps.Functions = append(ps.Functions, model.Function{
		ID:            id,
		Name:          "module_level",
		QualifiedName: "module_level",
		Crate:         crate,
		File:          file,
		Visibility:    model.VisibilityPrivate,
	})
	return id
}

func emit(ps *model.ParsedSymbols, crate, file string, line int, category, name string, kind model.CallKind, confidence float64) {
	qualified := category + "::" + name
	dispatchID := crate + ":" + qualified + ":0"
	if _, ok := ps.FunctionByID(dispatchID); !ok {
		ps.Functions = append(ps.Functions, model.Function{
			ID:            dispatchID,
			Name:          name,
			QualifiedName: qualified,
			Crate:         crate,
			File:          syntheticFile,
			Visibility:    model.VisibilityPublic,
		})
	}

	caller := enclosingFunction(ps, crate, file, line)
	if dispatchEdgeExists(ps, caller, name, file, line) {
		return
	}
	ps.Calls = append(ps.Calls, model.Call{
		CallerID:            caller,
		File:                file,
		Line:                line,
		CalleeName:          name,
		QualifiedCallee:     &qualified,
		Kind:                kind,
		FromCrate:           crate,
		IsSynthetic:         true,
		SyntheticConfidence: confidence,
	})
}

func dispatchEdgeExists(ps *model.ParsedSymbols, callerID, calleeName, file string, line int) bool {
	for i := range ps.Calls {
		c := &ps.Calls[i]
		if c.CallerID == callerID && c.CalleeName == calleeName && c.File == file && c.Line == line {
			return true
		}
	}
	return false
}
