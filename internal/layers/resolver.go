// SPDX-License-Identifier: MPL-2.0

package layers

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// Resolution states. Resolved and Failed are terminal.
const (
	Resolving State = iota
	Resolved
	Failed
)

type (
	// State is the state of a single resolution.
	State int

	// StatFunc reports file information for a path. It matches os.Stat.
	StatFunc func(name string) (fs.FileInfo, error)

	// Option configures a Resolver.
	Option func(*Resolver)

	// Resolver decomposes key sequences into layer chains.
	//
	// Matching is greedy: the longest composite key available in any search
	// directory wins, and among equal lengths the first directory wins. A
	// committed match is never revisited.
	Resolver struct {
		dirs     []string
		minKeys  int
		parallel int
		stat     StatFunc
		logger   *log.Logger
	}

	// resolution is the state machine of one Resolve call.
	resolution struct {
		state     State
		remaining Sequence
		matched   []*Definition
	}
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Resolving:
		return "resolving"
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// WithLogger sets the logger used for probe tracing at debug level.
func WithLogger(l *log.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMinLayerKeys sets the smallest composite length a definition may cover.
// The default of 1 allows single-key layers; 2 requires composite layers only.
func WithMinLayerKeys(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.minKeys = n
		}
	}
}

// WithParallelProbe stats all search directories for a candidate concurrently,
// using at most n goroutines. The winning match is chosen exactly as in the
// sequential probe.
func WithParallelProbe(n int) Option {
	return func(r *Resolver) {
		r.parallel = n
	}
}

// WithStat replaces os.Stat for file probes.
func WithStat(fn StatFunc) Option {
	return func(r *Resolver) {
		if fn != nil {
			r.stat = fn
		}
	}
}

// NewResolver creates a resolver over searchDirs, highest priority first.
func NewResolver(searchDirs []string, opts ...Option) *Resolver {
	r := &Resolver{
		dirs:    slices.Clone(searchDirs),
		minKeys: 1,
		stat:    os.Stat,
		logger:  log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SearchDirs returns the directories probed, in priority order.
func (r *Resolver) SearchDirs() []string { return slices.Clone(r.dirs) }

// Resolve decomposes seq into a complete chain. It returns a
// *ResolutionError when some remainder of seq matches no definition.
func (r *Resolver) Resolve(seq Sequence) (*Chain, error) {
	if len(seq) == 0 {
		return nil, ErrNoKeys
	}
	if len(r.dirs) == 0 {
		return nil, ErrNoSearchDirs
	}

	res := &resolution{state: Resolving, remaining: slices.Clone(seq)}
	for res.state == Resolving {
		r.step(res)
	}

	if res.state == Failed {
		r.logger.Debug("resolution failed", "unresolved", res.remaining.String(), "matched", len(res.matched))
		return nil, &ResolutionError{
			Unresolved: res.remaining,
			SearchDirs: r.SearchDirs(),
			Resolved:   res.matched,
		}
	}
	return NewChain(seq, res.matched)
}

// step consumes one definition from the front of the remaining keys.
func (r *Resolver) step(res *resolution) {
	for n := len(res.remaining); n >= r.minKeys; n-- {
		candidate := res.remaining[:n]
		r.logger.Debug("searching", "composite", candidate.String())

		dir, ok := r.probe(candidate)
		if !ok {
			continue
		}

		def := NewDefinition(dir, candidate)
		res.matched = append(res.matched, def)
		res.remaining = slices.Clone(res.remaining[n:])
		r.logger.Debug("matched", "definition", def.Path(), "remaining", res.remaining.String())

		if len(res.remaining) == 0 {
			res.state = Resolved
		}
		return
	}
	res.state = Failed
}

// probe returns the first search directory holding a definition for candidate.
func (r *Resolver) probe(candidate Sequence) (string, bool) {
	name := FileName(candidate)

	if r.parallel <= 1 || len(r.dirs) == 1 {
		for _, dir := range r.dirs {
			if r.isDefinition(filepath.Join(dir, name)) {
				return dir, true
			}
		}
		return "", false
	}

	found := make([]bool, len(r.dirs))
	var g errgroup.Group
	g.SetLimit(r.parallel)
	for i, dir := range r.dirs {
		g.Go(func() error {
			found[i] = r.isDefinition(filepath.Join(dir, name))
			return nil
		})
	}
	_ = g.Wait() // probe goroutines always return nil

	if i := slices.Index(found, true); i >= 0 {
		return r.dirs[i], true
	}
	return "", false
}

func (r *Resolver) isDefinition(path string) bool {
	r.logger.Debug("checking", "path", path)
	info, err := r.stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
