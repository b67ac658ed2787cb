package model

import "fmt"

// ParsedSymbols is the typed record set produced by parsing one or more
// files and merging their contributions. It exclusively owns its
// collections; the graph projector only ever borrows them read-only
// (SPEC_FULL.md §3.3).
type ParsedSymbols struct {
	Crates             []Crate
	Modules            []Module
	Functions          []Function
	Types              []Type
	Impls              []ImplBlock
	Actors             []Actor
	MessageTypes       []MessageType
	MessageHandlers    []MessageHandler
	Spawns             []ActorSpawn
	Sends              []MessageSend
	DistributedActors  []DistributedActor
	DistributedFlows   []DistributedMessageFlow
	Calls              []Call
	MacroExpansions    []MacroExpansion

	funcByID map[string]int
	typeByID map[string]int
}

// NewParsedSymbols returns an empty, ready-to-merge symbol set.
func NewParsedSymbols() *ParsedSymbols {
	return &ParsedSymbols{
		funcByID: map[string]int{},
		typeByID: map[string]int{},
	}
}

// FunctionByID looks up a function record by its stable id.
func (p *ParsedSymbols) FunctionByID(id string) (*Function, bool) {
	p.ensureIndex()
	idx, ok := p.funcByID[id]
	if !ok {
		return nil, false
	}
	return &p.Functions[idx], true
}

// TypeByID looks up a type record by its stable id.
func (p *ParsedSymbols) TypeByID(id string) (*Type, bool) {
	p.ensureIndex()
	idx, ok := p.typeByID[id]
	if !ok {
		return nil, false
	}
	return &p.Types[idx], true
}

func (p *ParsedSymbols) ensureIndex() {
	if p.funcByID != nil && len(p.funcByID) == len(p.Functions) &&
		p.typeByID != nil && len(p.typeByID) == len(p.Types) {
		return
	}
	p.funcByID = make(map[string]int, len(p.Functions))
	for i, f := range p.Functions {
		p.funcByID[f.ID] = i
	}
	p.typeByID = make(map[string]int, len(p.Types))
	for i, t := range p.Types {
		p.typeByID[t.ID] = i
	}
}

// Merge concatenates compatible ParsedSymbols collections. Merge is
// associative: Merge(a, Merge(b, c)) == Merge(Merge(a, b), c), since it
// only ever appends and never depends on visitation order across
// inputs (SPEC_FULL.md §8 property 2).
func Merge(sets ...*ParsedSymbols) *ParsedSymbols {
	out := NewParsedSymbols()
	for _, s := range sets {
		if s == nil {
			continue
		}
		out.Crates = append(out.Crates, s.Crates...)
		out.Modules = append(out.Modules, s.Modules...)
		out.Functions = append(out.Functions, s.Functions...)
		out.Types = append(out.Types, s.Types...)
		out.Impls = append(out.Impls, s.Impls...)
		out.Actors = append(out.Actors, s.Actors...)
		out.MessageTypes = append(out.MessageTypes, s.MessageTypes...)
		out.MessageHandlers = append(out.MessageHandlers, s.MessageHandlers...)
		out.Spawns = append(out.Spawns, s.Spawns...)
		out.Sends = append(out.Sends, s.Sends...)
		out.DistributedActors = append(out.DistributedActors, s.DistributedActors...)
		out.DistributedFlows = append(out.DistributedFlows, s.DistributedFlows...)
		out.Calls = append(out.Calls, s.Calls...)
		out.MacroExpansions = append(out.MacroExpansions, s.MacroExpansions...)
	}
	out.applyTraitImplShadowing()
	out.ensureIndex()
	return out
}

// applyTraitImplShadowing implements invariant §3.2.6: when the same
// qualified function name appears both as a standalone function and as
// a method inside an impl block within 5 lines of each other, the
// impl-block attribution wins.
func (p *ParsedSymbols) applyTraitImplShadowing() {
	type key struct {
		qualifiedName string
		crate         string
	}
	byImpl := map[key][]int{}
	for i, f := range p.Functions {
		if f.IsTraitImpl {
			k := key{f.QualifiedName, f.Crate}
			byImpl[k] = append(byImpl[k], i)
		}
	}
	for i := range p.Functions {
		f := &p.Functions[i]
		if f.IsTraitImpl {
			continue
		}
		k := key{f.QualifiedName, f.Crate}
		for _, implIdx := range byImpl[k] {
			impl := &p.Functions[implIdx]
			if implIdx == i {
				continue
			}
			if abs(impl.LineStart-f.LineStart) <= 5 {
				f.IsTraitImpl = true
				break
			}
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Validate checks the containment and confidence invariants of
// SPEC_FULL.md §3.2 against the fully merged set. It is intended for
// tests and debugging, not the hot path.
func (p *ParsedSymbols) Validate() error {
	p.ensureIndex()
	for _, c := range p.Calls {
		if _, ok := p.funcByID[c.CallerID]; !ok {
			return fmt.Errorf("call from unknown caller id %q", c.CallerID)
		}
		if c.IsSynthetic {
			if c.SyntheticConfidence < 0 || c.SyntheticConfidence > 1 {
				return fmt.Errorf("synthetic call from %q has out-of-range confidence %v", c.CallerID, c.SyntheticConfidence)
			}
		}
		if c.CrossCrate() != (c.ToCrate != nil && *c.ToCrate != c.FromCrate) {
			return fmt.Errorf("cross-crate flag law violated for call from %q", c.CallerID)
		}
	}
	for _, impl := range p.Impls {
		for _, methodID := range impl.Methods {
			fn, ok := p.funcByID[methodID]
			if !ok {
				return fmt.Errorf("impl block %s references unknown method id %q", impl.TypeName, methodID)
			}
			wantTraitImpl := impl.TraitName != ""
			if p.Functions[fn].IsTraitImpl != wantTraitImpl {
				return fmt.Errorf("impl block %s method %q has inconsistent is_trait_impl flag", impl.TypeName, methodID)
			}
		}
	}
	seen := map[string]bool{}
	for _, f := range p.Functions {
		if seen[f.ID] {
			return fmt.Errorf("duplicate function id %q after merge", f.ID)
		}
		seen[f.ID] = true
	}
	return nil
}

// FunctionID builds the stable id for a function record
// (crate:qualified_name:line_start, SPEC_FULL.md §3.1).
func FunctionID(crate, qualifiedName string, lineStart int) string {
	return fmt.Sprintf("%s:%s:%d", crate, qualifiedName, lineStart)
}

// ModuleLevelFunctionID names the synthetic function record a file's
// top-level (non-function-body) calls and macro invocations are
// attributed to, so the containment invariant (every Call.CallerID
// names a real function) holds even for calls made outside any
// function body.
func ModuleLevelFunctionID(crate, file string) string {
	return fmt.Sprintf("%s:%s::module_level", crate, file)
}
