// Package errs names the error taxonomy of SPEC_FULL.md §7. Each kind
// is a sentinel wrapped with fmt.Errorf("...: %w", Kind) so callers can
// errors.Is/errors.As their way to the right handling policy without a
// parallel type hierarchy.
package errs

import "errors"

// Kind classifies an error by how the pipeline must react to it.
type Kind error

var (
	// ConfigError: malformed configuration; fatal at startup.
	ConfigError Kind = errors.New("config error")
	// DiscoveryError: workspace root missing or unreadable; fatal for
	// that root, other roots continue.
	DiscoveryError Kind = errors.New("discovery error")
	// ParseError: per-file; logged with path, file's contribution
	// discarded, pipeline continues.
	ParseError Kind = errors.New("parse error")
	// IndexCacheError: cache corrupt or unreadable; silently rebuild.
	IndexCacheError Kind = errors.New("index cache error")
	// GraphTransient: connection or query failure; returned to the
	// caller without a retry.
	GraphTransient Kind = errors.New("graph transient error")
	// GraphFatal: schema or query-construction error; surfaces to caller.
	GraphFatal Kind = errors.New("graph fatal error")
	// WatcherError: file-watcher backend failure; logged, incremental
	// mode degrades to on-demand.
	WatcherError Kind = errors.New("watcher error")
)

// Is reports whether err ultimately wraps kind.
func Is(err error, kind Kind) bool {
	return errors.Is(err, kind)
}
