// Package index implements the cross-crate global symbol index of
// SPEC_FULL.md §4.5: a name -> location map built once per workspace
// analysis, used to resolve the Type::method associated calls that
// internal/resolve deliberately leaves unresolved within a single
// crate's parse.
package index

import "crateindex/internal/model"

// Location names where a symbol is declared.
type Location struct {
	Crate         string
	QualifiedName string
	File          string
	Line          int
}

// CrateExports is the public surface of one crate, keyed by bare name
// (not qualified name) since callers look up `Type::method` or
// `function_name` without the crate prefix.
type CrateExports struct {
	Functions map[string]Location
	Types     map[string]Location
	Traits    map[string]Location
}

func newCrateExports() CrateExports {
	return CrateExports{
		Functions: map[string]Location{},
		Types:     map[string]Location{},
		Traits:    map[string]Location{},
	}
}

// GlobalSymbolIndex is the cross-crate export map for an entire
// workspace.
type GlobalSymbolIndex struct {
	Exports map[string]CrateExports // crate name -> exports
}

// New returns an empty index.
func New() *GlobalSymbolIndex {
	return &GlobalSymbolIndex{Exports: map[string]CrateExports{}}
}

// Build populates a fresh index from a fully merged symbol set. Only
// public items are indexed — the index exists to resolve cross-crate
// references, and a private item can never legally be one (§4.5).
func Build(ps *model.ParsedSymbols) *GlobalSymbolIndex {
	idx := New()
	exportsFor := func(crate string) CrateExports {
		ce, ok := idx.Exports[crate]
		if !ok {
			ce = newCrateExports()
			idx.Exports[crate] = ce
		}
		return ce
	}

	for _, f := range ps.Functions {
		if f.Visibility != model.VisibilityPublic {
			continue
		}
		ce := exportsFor(f.Crate)
		ce.Functions[f.Name] = Location{Crate: f.Crate, QualifiedName: f.QualifiedName, File: f.File, Line: f.LineStart}
	}
	for _, t := range ps.Types {
		if t.Visibility != model.VisibilityPublic {
			continue
		}
		ce := exportsFor(t.Crate)
		loc := Location{Crate: t.Crate, QualifiedName: t.QualifiedName, File: t.File, Line: t.LineStart}
		if t.Kind == model.KindTrait {
			ce.Traits[t.Name] = loc
		} else {
			ce.Types[t.Name] = loc
		}
	}
	return idx
}

// FindFunction returns every crate's export of a bare function name.
func (idx *GlobalSymbolIndex) FindFunction(name string) []Location {
	return idx.find(name, func(ce CrateExports) (Location, bool) { l, ok := ce.Functions[name]; return l, ok })
}

// FindType returns every crate's export of a bare type name.
func (idx *GlobalSymbolIndex) FindType(name string) []Location {
	return idx.find(name, func(ce CrateExports) (Location, bool) { l, ok := ce.Types[name]; return l, ok })
}

// FindTrait returns every crate's export of a bare trait name.
func (idx *GlobalSymbolIndex) FindTrait(name string) []Location {
	return idx.find(name, func(ce CrateExports) (Location, bool) { l, ok := ce.Traits[name]; return l, ok })
}

func (idx *GlobalSymbolIndex) find(name string, lookup func(CrateExports) (Location, bool)) []Location {
	var out []Location
	for _, ce := range idx.Exports {
		if l, ok := lookup(ce); ok {
			_ = name
			out = append(out, l)
		}
	}
	return out
}

// FindFunctionInCrate looks up a bare function name scoped to one crate.
func (idx *GlobalSymbolIndex) FindFunctionInCrate(crate, name string) (Location, bool) {
	l, ok := idx.Exports[crate].Functions[name]
	return l, ok
}

// FindTypeInCrate looks up a bare type name scoped to one crate.
func (idx *GlobalSymbolIndex) FindTypeInCrate(crate, name string) (Location, bool) {
	l, ok := idx.Exports[crate].Types[name]
	return l, ok
}

// ResolveAssociatedFunction resolves a `Type::method` call left
// unresolved by internal/resolve. Per the single/agreeing-crate-exporter
// rule: if exactly one crate exports a type with this name (or every
// crate that does agrees it's the same crate - a no-op check today
// since a type can't be re-exported under the same name from two
// crates in this model - kept for symmetry with the original design),
// the method is resolved there; otherwise the reference stays
// ambiguous and unresolved.
func (idx *GlobalSymbolIndex) ResolveAssociatedFunction(typeName, method string) (Location, bool) {
	var matches []Location
	for crate, ce := range idx.Exports {
		if _, ok := ce.Types[typeName]; !ok {
			continue
		}
		if loc, ok := ce.Functions[method]; ok {
			loc.Crate = crate
			matches = append(matches, loc)
			continue
		}
	}
	if len(matches) != 1 {
		return Location{}, false
	}
	return matches[0], true
}

// ResolveTraitMethod resolves a trait method the same way, scoped to
// crates that export the named trait.
func (idx *GlobalSymbolIndex) ResolveTraitMethod(traitName, method string) (Location, bool) {
	var matches []Location
	for crate, ce := range idx.Exports {
		if _, ok := ce.Traits[traitName]; !ok {
			continue
		}
		if loc, ok := ce.Functions[method]; ok {
			loc.Crate = crate
			matches = append(matches, loc)
		}
	}
	if len(matches) != 1 {
		return Location{}, false
	}
	return matches[0], true
}

// GetCrateExports returns one crate's export table.
func (idx *GlobalSymbolIndex) GetCrateExports(crate string) (CrateExports, bool) {
	ce, ok := idx.Exports[crate]
	return ce, ok
}

// AddCrateExports merges (or replaces) one crate's export table, used
// by incremental re-indexing of a single changed crate.
func (idx *GlobalSymbolIndex) AddCrateExports(crate string, ce CrateExports) {
	idx.Exports[crate] = ce
}

// Clear empties the index in place.
func (idx *GlobalSymbolIndex) Clear() {
	idx.Exports = map[string]CrateExports{}
}

// Stats summarizes index population for reporting.
type Stats struct {
	Crates    int
	Functions int
	Types     int
	Traits    int
}

// ComputeStats tallies the index's contents.
func (idx *GlobalSymbolIndex) ComputeStats() Stats {
	var s Stats
	s.Crates = len(idx.Exports)
	for _, ce := range idx.Exports {
		s.Functions += len(ce.Functions)
		s.Types += len(ce.Types)
		s.Traits += len(ce.Traits)
	}
	return s
}
