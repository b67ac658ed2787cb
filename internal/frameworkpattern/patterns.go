// Package frameworkpattern implements the framework-aware pattern
// engine of SPEC_FULL.md §4.6: a small set of compiled regex rules that
// scan a file's raw text for runtime entry points, runtime-scheduled
// calls, trait-dispatch idioms, and actor-framework idioms the tree
// walker's grammar-level view can't see on its own (an attribute macro
// like `#[tokio::main]`, or a call buried in a string the grammar
// still sees as an ordinary call_expression). Matches become synthetic
// dispatcher vertices in internal/graph, never direct call edges.
package frameworkpattern

import (
	"fmt"
	"regexp"
	"strings"
)

// EntryPointType classifies why a location is treated as a program
// entry point.
type EntryPointType string

const (
	EntryPointMain         EntryPointType = "main"
	EntryPointAsyncRuntime EntryPointType = "async-runtime"
	EntryPointTest         EntryPointType = "test"
	EntryPointHandler      EntryPointType = "handler"
)

// RuntimeCallType classifies a call the async/actor runtime schedules
// rather than the caller invoking directly.
type RuntimeCallType string

const (
	RuntimeCallSpawn   RuntimeCallType = "spawn"
	RuntimeCallBlockOn RuntimeCallType = "block-on"
	RuntimeCallChannel RuntimeCallType = "channel"
)

// EntryPointPattern recognizes one entry-point idiom.
type EntryPointPattern struct {
	Name  string
	Type  EntryPointType
	regex *regexp.Regexp
}

// RuntimeCallPattern recognizes one runtime-scheduled call idiom.
type RuntimeCallPattern struct {
	Name  string
	Type  RuntimeCallType
	regex *regexp.Regexp
}

// TraitDispatchPattern recognizes a call shape that dispatches through
// a named trait rather than a concrete type.
type TraitDispatchPattern struct {
	Name      string
	TraitName string
	regex     *regexp.Regexp
}

// ActorPattern recognizes an actor-framework idiom beyond what the
// grammar-level actor signals (§4.2.5) already catch.
type ActorPattern struct {
	Name  string
	regex *regexp.Regexp
}

// Patterns is a validated, compiled rule set.
type Patterns struct {
	EntryPoints     []EntryPointPattern
	RuntimeCalls    []RuntimeCallPattern
	TraitDispatches []TraitDispatchPattern
	Actors          []ActorPattern
}

// maxPatternLength bounds a single rule's source text; matches the
// limit enforced by the original analyzer's pattern validator.
const maxPatternLength = 1000

// dangerousSubstrings are regex shapes prone to catastrophic
// backtracking; rejecting them outright is cheaper and more
// predictable than bounding match time at scan time.
var dangerousSubstrings = []string{
	".*.*",
	"(.*)+",
	"(.+)+",
	"[.*]",
	"[.+]",
}

// validatePatternComplexity rejects a raw pattern before it is ever
// compiled, mirroring the original analyzer's validate_pattern_complexity.
func validatePatternComplexity(pattern string) error {
	if len(pattern) > maxPatternLength {
		return fmt.Errorf("pattern exceeds %d characters", maxPatternLength)
	}
	for _, bad := range dangerousSubstrings {
		if strings.Contains(pattern, bad) {
			return fmt.Errorf("pattern contains catastrophic-backtracking shape %q", bad)
		}
	}
	return nil
}

func compile(pattern string) (*regexp.Regexp, error) {
	if err := validatePatternComplexity(pattern); err != nil {
		return nil, err
	}
	return regexp.Compile(pattern)
}

// RawRule is the on-disk configuration shape for one pattern, shared
// across the four rule kinds; Extra carries the kind-specific field
// (EntryPointType / RuntimeCallType / TraitName), left blank for actor
// rules.
type RawRule struct {
	Name  string
	Regex string
	Extra string
}

// Compile validates and compiles one rule set per kind. An invalid
// pattern anywhere aborts the whole set: a bad rule silently matching
// nothing would be worse than refusing to start.
func Compile(entryPoints, runtimeCalls, traitDispatches, actors []RawRule) (Patterns, error) {
	var p Patterns
	for _, r := range entryPoints {
		re, err := compile(r.Regex)
		if err != nil {
			return Patterns{}, fmt.Errorf("entry point pattern %q: %w", r.Name, err)
		}
		p.EntryPoints = append(p.EntryPoints, EntryPointPattern{Name: r.Name, Type: EntryPointType(r.Extra), regex: re})
	}
	for _, r := range runtimeCalls {
		re, err := compile(r.Regex)
		if err != nil {
			return Patterns{}, fmt.Errorf("runtime call pattern %q: %w", r.Name, err)
		}
		p.RuntimeCalls = append(p.RuntimeCalls, RuntimeCallPattern{Name: r.Name, Type: RuntimeCallType(r.Extra), regex: re})
	}
	for _, r := range traitDispatches {
		re, err := compile(r.Regex)
		if err != nil {
			return Patterns{}, fmt.Errorf("trait dispatch pattern %q: %w", r.Name, err)
		}
		p.TraitDispatches = append(p.TraitDispatches, TraitDispatchPattern{Name: r.Name, TraitName: r.Extra, regex: re})
	}
	for _, r := range actors {
		re, err := compile(r.Regex)
		if err != nil {
			return Patterns{}, fmt.Errorf("actor pattern %q: %w", r.Name, err)
		}
		p.Actors = append(p.Actors, ActorPattern{Name: r.Name, regex: re})
	}
	return p, nil
}

// Default returns the built-in rule set grounded in the kameo/tokio
// idioms seen in the analyzed fixtures: #[tokio::main], #[test],
// tokio::spawn / kameo::spawn, ActorRef<T> trait dispatch, and the
// distributed_actor! macro surface.
func Default() Patterns {
	p, err := Compile(
		[]RawRule{
			{Name: "fn-main", Regex: `\bfn\s+main\s*\(`, Extra: string(EntryPointMain)},
			{Name: "tokio-main", Regex: `#\[tokio::main\]`, Extra: string(EntryPointAsyncRuntime)},
			{Name: "test-attr", Regex: `#\[test\]`, Extra: string(EntryPointTest)},
			{Name: "async-trait-handler", Regex: `#\[async_trait\]`, Extra: string(EntryPointHandler)},
		},
		[]RawRule{
			{Name: "tokio-spawn", Regex: `\btokio::spawn\s*\(`, Extra: string(RuntimeCallSpawn)},
			{Name: "kameo-spawn", Regex: `\bkameo::spawn\s*\(`, Extra: string(RuntimeCallSpawn)},
			{Name: "block-on", Regex: `\bblock_on\s*\(`, Extra: string(RuntimeCallBlockOn)},
			{Name: "mpsc-channel", Regex: `\bmpsc::channel\s*\(`, Extra: string(RuntimeCallChannel)},
		},
		[]RawRule{
			{Name: "actor-ref-dispatch", Regex: `ActorRef\s*<\s*\w+\s*>`, Extra: "Actor"},
			{Name: "message-handler-dispatch", Regex: `MessageHandler\s*<\s*\w+\s*>`, Extra: "MessageHandler"},
		},
		[]RawRule{
			{Name: "distributed-actor-macro", Regex: `distributed_actor!\s*\{`},
			{Name: "kameo-remote-attr", Regex: `#\[kameo\(remote\)\]`},
		},
	)
	if err != nil {
		// the built-in set is a compile-time constant; a failure here is
		// a programming error, not a runtime condition callers can act on.
		panic(err)
	}
	return p
}

// Match records one location where a pattern fired.
type Match struct {
	PatternName string
	Line        int
	Text        string
}

func findAll(re *regexp.Regexp, name, src string) []Match {
	var out []Match
	for _, loc := range re.FindAllStringIndex(src, -1) {
		line := strings.Count(src[:loc[0]], "\n") + 1
		out = append(out, Match{PatternName: name, Line: line, Text: src[loc[0]:loc[1]]})
	}
	return out
}

// FindEntryPoints scans src for every EntryPointPattern.
func FindEntryPoints(p Patterns, src string) map[EntryPointType][]Match {
	out := map[EntryPointType][]Match{}
	for _, ep := range p.EntryPoints {
		if m := findAll(ep.regex, ep.Name, src); len(m) > 0 {
			out[ep.Type] = append(out[ep.Type], m...)
		}
	}
	return out
}

// FindRuntimeCalls scans src for every RuntimeCallPattern.
func FindRuntimeCalls(p Patterns, src string) map[RuntimeCallType][]Match {
	out := map[RuntimeCallType][]Match{}
	for _, rc := range p.RuntimeCalls {
		if m := findAll(rc.regex, rc.Name, src); len(m) > 0 {
			out[rc.Type] = append(out[rc.Type], m...)
		}
	}
	return out
}

// FindTraitDispatches scans src for every TraitDispatchPattern.
func FindTraitDispatches(p Patterns, src string) map[string][]Match {
	out := map[string][]Match{}
	for _, td := range p.TraitDispatches {
		if m := findAll(td.regex, td.Name, src); len(m) > 0 {
			out[td.TraitName] = append(out[td.TraitName], m...)
		}
	}
	return out
}

// FindActorPatterns scans src for every ActorPattern.
func FindActorPatterns(p Patterns, src string) []Match {
	var out []Match
	for _, ap := range p.Actors {
		out = append(out, findAll(ap.regex, ap.Name, src)...)
	}
	return out
}

// Stats summarizes how many times each pattern category fired, for
// reporting (§6.4 get_layer_health / debug_graph surfaces).
type Stats struct {
	EntryPoints     int
	RuntimeCalls    int
	TraitDispatches int
	Actors          int
}

// Summarize computes Stats for one file's text against p.
func Summarize(p Patterns, src string) Stats {
	var s Stats
	for _, m := range FindEntryPoints(p, src) {
		s.EntryPoints += len(m)
	}
	for _, m := range FindRuntimeCalls(p, src) {
		s.RuntimeCalls += len(m)
	}
	for _, m := range FindTraitDispatches(p, src) {
		s.TraitDispatches += len(m)
	}
	s.Actors += len(FindActorPatterns(p, src))
	return s
}
