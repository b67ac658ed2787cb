package index

import (
	"strings"

	"crateindex/internal/model"
)

// ResolveCrossCrate implements the second resolution pass of §4.5:
// internal/resolve leaves every CallKindAssociated call unresolved by
// design, so this re-scans them against the global export index once
// it's built. The scoped prefix ("a" in a::helper(), "T" in T::m()) is
// tried three ways, in order: a literal crate name exporting the bare
// function directly (scenario S6), a type exporting it as an
// associated function, and a trait exporting it as a trait method.
// Multiple crates agreeing on one destination still count as resolved;
// genuinely ambiguous or unmatched prefixes are left unresolved.
func ResolveCrossCrate(ps *model.ParsedSymbols, idx *GlobalSymbolIndex) {
	for i := range ps.Calls {
		c := &ps.Calls[i]
		if c.Kind != model.CallKindAssociated || c.QualifiedCallee != nil {
			continue
		}
		prefix := lastSegment(c.ScopePrefix)
		if prefix == "" {
			continue
		}

		if loc, ok := idx.FindFunctionInCrate(prefix, c.CalleeName); ok {
			applyCrossCrateResolution(c, loc)
			continue
		}
		if loc, ok := idx.ResolveAssociatedFunction(prefix, c.CalleeName); ok {
			applyCrossCrateResolution(c, loc)
			continue
		}
		if loc, ok := idx.ResolveTraitMethod(prefix, c.CalleeName); ok {
			applyCrossCrateResolution(c, loc)
		}
	}
}

func lastSegment(scopePrefix string) string {
	if scopePrefix == "" {
		return ""
	}
	parts := strings.Split(scopePrefix, "::")
	return parts[len(parts)-1]
}

func applyCrossCrateResolution(c *model.Call, loc Location) {
	qualified := loc.QualifiedName
	c.QualifiedCallee = &qualified
	if loc.Crate != c.FromCrate {
		crate := loc.Crate
		c.ToCrate = &crate
	}
}
