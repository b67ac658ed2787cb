// Package macroexpand performs the pattern-directed synthesis of
// SPEC_FULL.md §4.4: it never expands a macro's Rust syntax, but it
// recognizes a handful of macro shapes well enough to synthesize the
// call edges their expansion would produce, each carrying an explicit
// confidence rather than being asserted as fact.
package macroexpand

import (
	"regexp"
	"strings"

	"crateindex/internal/model"
)

// Confidence for calls synthesized from a recognized token-paste
// binding (§4.4.1, scenario S3).
const pasteSynthesisConfidence = 0.95

var (
	// define_whatever_enums!(Name1: "...", Name2: "...") — captures the
	// binding identifiers, i.e. the enum variant names the macro will
	// paste into generated type names.
	defineEnumsMacroNameRe = regexp.MustCompile(`(?i)^define_\w*enums?$`)
	bindingNameRe          = regexp.MustCompile(`(\w+)\s*:`)

	// [<$var Suffix>]::method(  — a paste! token-paste expression:
	// binds $var against each enum-macro binding, appends Suffix, then
	// calls ::method on the resulting type name.
	pasteExprRe = regexp.MustCompile(`\[<\$(\w+)([^>]*)>\]\s*::\s*(\w+)\s*\(`)
)

// Expand scans a file's (or a merged set's) recorded macro invocations
// and appends synthetic Call records for the shapes it recognizes. It
// is not idempotent: calling it twice on the same ParsedSymbols appends
// the same synthetic calls twice, so callers run it exactly once per
// set. internal/pipeline runs it once over the merged set, so enum
// bindings recorded in any file apply to paste payloads in every file.
func Expand(ps *model.ParsedSymbols) {
	bindings := collectEnumBindings(ps.MacroExpansions)
	if len(bindings) == 0 {
		return
	}
	for _, exp := range ps.MacroExpansions {
		if exp.Kind != model.MacroKindPaste {
			continue
		}
		ps.Calls = append(ps.Calls, synthesizeFromPaste(exp, bindings)...)
	}
}

// collectEnumBindings finds every define_*_enums!-shaped invocation and
// returns the flat set of binding identifiers it declares.
func collectEnumBindings(expansions []model.MacroExpansion) []string {
	var bindings []string
	for _, exp := range expansions {
		if !defineEnumsMacroNameRe.MatchString(exp.Name) {
			continue
		}
		for _, m := range bindingNameRe.FindAllStringSubmatch(string(exp.Payload), -1) {
			bindings = append(bindings, m[1])
		}
	}
	return bindings
}

// synthesizeFromPaste emits one synthetic call per enum binding for
// each `[<$var Suffix>]::method(...)` token-paste expression found in
// the paste! macro's payload.
func synthesizeFromPaste(exp model.MacroExpansion, bindings []string) []model.Call {
	var calls []model.Call
	for _, m := range pasteExprRe.FindAllStringSubmatch(string(exp.Payload), -1) {
		suffix := strings.TrimSpace(m[2])
		method := m[3]
		for _, binding := range bindings {
			qualified := binding + suffix + "::" + method
			calls = append(calls, model.Call{
				CallerID:            model.ModuleLevelFunctionID(exp.Crate, exp.File),
				File:                exp.File,
				Line:                exp.SpanStart,
				CalleeName:          method,
				QualifiedCallee:     &qualified,
				Kind:                model.CallKindAssociated,
				FromCrate:           exp.Crate,
				IsSynthetic:         true,
				SyntheticConfidence: pasteSynthesisConfidence,
				MacroContext:        "paste",
			})
		}
	}
	return calls
}
