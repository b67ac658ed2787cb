// Package discover implements the workspace discoverer of
// SPEC_FULL.md §4.1: it reads each configured root's manifest, walks
// the declared dependency closure to a bounded depth, and classifies
// every visited crate as workspace-member, path-dependency, or
// external.
package discover

import (
	"fmt"
	"path/filepath"
	"strings"

	"crateindex/internal/errs"
	"crateindex/internal/model"
)

// DefaultMaxDepth is the default bound on the dependency BFS (§4.1).
const DefaultMaxDepth = 3

// Options configures a Discoverer.
type Options struct {
	MaxDepth          int
	ExcludePatterns   []string // glob with trailing "*"
}

// Discoverer walks one or more workspace roots and produces one
// model.Crate per visited crate.
type Discoverer struct {
	opts Options
}

// New returns a Discoverer with the given options, filling in
// defaults (MaxDepth) when unset.
func New(opts Options) *Discoverer {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	return &Discoverer{opts: opts}
}

// Discover resolves every root into its crate set. A root whose
// manifest is missing or unreadable yields a DiscoveryError for that
// root only; the remaining roots still run (§4.1).
func (d *Discoverer) Discover(roots []string) ([]model.Crate, []error) {
	seen := map[string]bool{}
	var crates []model.Crate
	var warnings []error

	for _, root := range roots {
		manifest, err := loadManifest(root)
		if err != nil {
			warnings = append(warnings, fmt.Errorf("%w: root %s: %v", errs.DiscoveryError, root, err))
			continue
		}
		name := manifest.Package.Name
		if name == "" {
			name = filepath.Base(root)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		crates = append(crates, model.Crate{
			Name:              name,
			Root:              root,
			Version:           manifest.Package.Version,
			IsWorkspaceMember: true,
			IsExternal:        false,
			Depth:             0,
			DeclaredDeps:      dependencyNames(manifest),
		})

		// Workspace member sub-crates declared via [workspace.members].
		for _, member := range manifest.Workspace.Members {
			d.walkPath(filepath.Join(root, member), 0, true, seen, &crates, &warnings)
		}

		d.walkDeps(root, manifest, 1, seen, &crates, &warnings)
	}

	crates = d.applyExclusions(crates)
	return crates, warnings
}

func dependencyNames(m *manifestFile) []string {
	var names []string
	for name := range m.Dependencies {
		names = append(names, name)
	}
	for name := range m.DevDependencies {
		names = append(names, name)
	}
	for name := range m.BuildDependencies {
		names = append(names, name)
	}
	return names
}

func (d *Discoverer) walkPath(root string, depth int, isMember bool, seen map[string]bool, crates *[]model.Crate, warnings *[]error) {
	if depth > d.opts.MaxDepth {
		return
	}
	manifest, err := loadManifest(root)
	if err != nil {
		// A per-crate failure degrades gracefully: the crate is
		// omitted and a warning is recorded, but discovery continues.
		*warnings = append(*warnings, fmt.Errorf("%w: %s: %v", errs.DiscoveryError, root, err))
		return
	}
	name := manifest.Package.Name
	if name == "" {
		name = filepath.Base(root)
	}
	if seen[name] {
		return
	}
	seen[name] = true
	*crates = append(*crates, model.Crate{
		Name:              name,
		Root:              root,
		Version:           manifest.Package.Version,
		IsWorkspaceMember: isMember,
		IsExternal:        false,
		Depth:             depth,
		DeclaredDeps:      dependencyNames(manifest),
	})
	d.walkDeps(root, manifest, depth+1, seen, crates, warnings)
}

// walkDeps performs the bounded BFS over path dependencies. Registry
// (non-path) dependencies are recorded as external crates by name
// only, without recursing into them (their source is not on disk).
func (d *Discoverer) walkDeps(root string, manifest *manifestFile, depth int, seen map[string]bool, crates *[]model.Crate, warnings *[]error) {
	if depth > d.opts.MaxDepth {
		return
	}
	all := map[string]dependencySpec{}
	for k, v := range manifest.Dependencies {
		all[k] = v
	}
	for k, v := range manifest.DevDependencies {
		all[k] = v
	}
	for k, v := range manifest.BuildDependencies {
		all[k] = v
	}
	for name, dep := range all {
		if dep.Path != "" {
			depRoot := filepath.Join(root, dep.Path)
			d.walkPath(depRoot, depth, false, seen, crates, warnings)
			continue
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		*crates = append(*crates, model.Crate{
			Name:         name,
			Version:      dep.Version,
			IsExternal:   true,
			Depth:        depth,
		})
	}
}

// applyExclusions drops crates whose name matches a configured
// exclusion pattern (glob with trailing "*" only, per §4.1).
func (d *Discoverer) applyExclusions(crates []model.Crate) []model.Crate {
	if len(d.opts.ExcludePatterns) == 0 {
		return crates
	}
	out := crates[:0]
	for _, c := range crates {
		if matchesAny(c.Name, d.opts.ExcludePatterns) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func matchesAny(name string, patterns []string) bool {
	for _, p := range patterns {
		if matchesGlob(name, p) {
			return true
		}
	}
	return false
}

// matchesGlob supports only the "prefix*" trailing-wildcard shape
// named in SPEC_FULL.md §4.1; an exact pattern (no "*") must match the
// full name.
func matchesGlob(name, pattern string) bool {
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(name, strings.TrimSuffix(pattern, "*"))
	}
	return name == pattern
}
