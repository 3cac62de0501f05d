// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/remote/transport"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds parallel checks in ExistingTags.
const DefaultConcurrency = 8

type (
	// Checker reports which image references exist remotely.
	Checker interface {
		Exists(ctx context.Context, ref string) (bool, error)
		ExistingTags(ctx context.Context, refs []string) (map[string]bool, error)
	}

	// Option configures a Remote.
	Option func(*Remote)

	// Remote checks references against their registries over HTTP.
	Remote struct {
		keychain    authn.Keychain
		transport   http.RoundTripper
		nameOpts    []name.Option
		concurrency int
		logger      *log.Logger
	}
)

// WithKeychain replaces authn.DefaultKeychain.
func WithKeychain(kc authn.Keychain) Option {
	return func(r *Remote) {
		r.keychain = kc
	}
}

// WithTransport sets the HTTP transport used for registry requests.
func WithTransport(t http.RoundTripper) Option {
	return func(r *Remote) {
		r.transport = t
	}
}

// WithInsecure allows plain HTTP registries.
func WithInsecure() Option {
	return func(r *Remote) {
		r.nameOpts = append(r.nameOpts, name.Insecure)
	}
}

// WithConcurrency bounds parallel checks in ExistingTags.
func WithConcurrency(n int) Option {
	return func(r *Remote) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithLogger sets the logger used for per-tag results at debug level.
func WithLogger(l *log.Logger) Option {
	return func(r *Remote) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRemote creates a Remote using the docker credential store.
func NewRemote(opts ...Option) *Remote {
	r := &Remote{
		keychain:    authn.DefaultKeychain,
		nameOpts:    []name.Option{name.WeakValidation},
		concurrency: DefaultConcurrency,
		logger:      log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Exists sends a manifest HEAD request for ref. A registry answering not
// found, unauthorized or forbidden means the tag is absent; other failures
// are returned.
func (r *Remote) Exists(ctx context.Context, ref string) (bool, error) {
	parsed, err := name.ParseReference(ref, r.nameOpts...)
	if err != nil {
		return false, fmt.Errorf("parse image reference %q: %w", ref, err)
	}

	opts := []remote.Option{
		remote.WithContext(ctx),
		remote.WithAuthFromKeychain(r.keychain),
	}
	if r.transport != nil {
		opts = append(opts, remote.WithTransport(r.transport))
	}

	_, err = remote.Head(parsed, opts...)
	if err == nil {
		return true, nil
	}
	if isAbsent(err) {
		return false, nil
	}
	return false, fmt.Errorf("check %s: %w", ref, err)
}

func isAbsent(err error) bool {
	var terr *transport.Error
	if !errors.As(err, &terr) {
		return false
	}
	switch terr.StatusCode {
	case http.StatusNotFound, http.StatusUnauthorized, http.StatusForbidden:
		return true
	default:
		return false
	}
}

// ExistingTags checks refs concurrently and returns the set that exists.
// Checks that fail are logged and counted as absent so the caller rebuilds
// rather than trusting an unreachable registry. Only cancellation of ctx is
// returned as an error.
func (r *Remote) ExistingTags(ctx context.Context, refs []string) (map[string]bool, error) {
	found := make([]bool, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, ref := range refs {
		g.Go(func() error {
			ok, err := r.Exists(gctx, ref)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				r.logger.Warn("registry check failed, treating tag as missing", "ref", ref, "err", err)
				return nil
			}
			r.logger.Debug("registry check", "ref", ref, "exists", ok)
			found[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	existing := make(map[string]bool, len(refs))
	for i, ref := range refs {
		if found[i] {
			existing[ref] = true
		}
	}
	return existing, nil
}

var _ Checker = (*Remote)(nil)
