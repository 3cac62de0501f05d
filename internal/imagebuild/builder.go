// SPDX-License-Identifier: MPL-2.0

package imagebuild

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/devlayer/devlayer/internal/bake"
	"github.com/devlayer/devlayer/internal/config"
	"github.com/devlayer/devlayer/internal/container"
	"github.com/devlayer/devlayer/internal/issue"
	"github.com/devlayer/devlayer/internal/layers"
	"github.com/devlayer/devlayer/internal/registry"
)

const (
	// DefaultBuilderPrefix names temporary builders "<prefix>-<platform>".
	DefaultBuilderPrefix = "devlayer"
	// DefaultCountdown is the pause before a local build without a remote builder.
	DefaultCountdown = 5
	// BakeFileName is the name of the generated bake file.
	BakeFileName = "docker-bake.hcl"
	// localBuilder is the builder used when results are loaded, not pushed.
	localBuilder = "default"
)

type (
	// Clock delivers the countdown ticks.
	Clock interface {
		After(d time.Duration) <-chan time.Time
	}

	realClock struct{}

	// Option configures a Builder.
	Option func(*Builder)

	// Builder plans and runs layered image builds.
	Builder struct {
		engine        container.BakeEngine
		checker       registry.Checker
		settings      config.BuildSettings
		logger        *log.Logger
		out           io.Writer
		clock         Clock
		countdown     int
		tempDir       string
		builderPrefix string
		probeWorkers  int
		debug         bool
	}

	// Result reports what a Build did.
	Result struct {
		Plan *Plan
		// Built lists the baked targets in order.
		Built []string
		// Skipped lists stage targets whose tags already existed.
		Skipped []string
		// BakeFile is the rendered bake file content.
		BakeFile string
	}
)

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithRegistryChecker enables skipping stages already present remotely.
func WithRegistryChecker(c registry.Checker) Option {
	return func(b *Builder) {
		b.checker = c
	}
}

// WithOutput sets where bake output and the countdown are written.
func WithOutput(w io.Writer) Option {
	return func(b *Builder) {
		if w != nil {
			b.out = w
		}
	}
}

// WithClock replaces the wall clock used by the countdown.
func WithClock(c Clock) Option {
	return func(b *Builder) {
		if c != nil {
			b.clock = c
		}
	}
}

// WithCountdown sets the local build countdown in seconds; 0 disables it.
func WithCountdown(seconds int) Option {
	return func(b *Builder) {
		b.countdown = max(seconds, 0)
	}
}

// WithTempDir sets the parent directory of the bake file.
func WithTempDir(dir string) Option {
	return func(b *Builder) {
		b.tempDir = dir
	}
}

// WithBuilderPrefix sets the name prefix of temporary builders.
func WithBuilderPrefix(prefix string) Option {
	return func(b *Builder) {
		if prefix != "" {
			b.builderPrefix = prefix
		}
	}
}

// WithParallelProbe probes search directories concurrently during resolution.
func WithParallelProbe(n int) Option {
	return func(b *Builder) {
		b.probeWorkers = n
	}
}

// WithDebug passes --debug to buildx.
func WithDebug(debug bool) Option {
	return func(b *Builder) {
		b.debug = debug
	}
}

// New creates a Builder over the folded build settings.
func New(engine container.BakeEngine, settings config.BuildSettings, opts ...Option) *Builder {
	b := &Builder{
		engine:        engine,
		settings:      settings,
		logger:        log.New(io.Discard),
		out:           io.Discard,
		clock:         realClock{},
		countdown:     DefaultCountdown,
		builderPrefix: DefaultBuilderPrefix,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Plan orders the keys, resolves the layer chain and compiles the bake graph.
// The context dir, when set, is searched before the configured directories.
func (b *Builder) Plan(req Request) (*Plan, error) {
	seq := layers.Order(layers.KeysFromStrings(req.Keys), b.settings.KeyOrder)
	b.logger.Info("image key", "keys", seq.String())

	dirs := b.settings.SearchDirs
	if req.ContextDir != "" {
		dirs = append([]string{req.ContextDir}, slices.DeleteFunc(slices.Clone(dirs), func(d string) bool {
			return d == req.ContextDir
		})...)
	}

	resolver := layers.NewResolver(dirs,
		layers.WithLogger(b.logger),
		layers.WithParallelProbe(b.probeWorkers),
	)
	chain, err := resolver.Resolve(seq)
	if err != nil {
		return nil, resolutionError(seq, err)
	}
	for _, def := range chain.Definitions() {
		b.logger.Debug("layer definition", "path", def.Path())
	}

	platform := req.Platform
	if platform == "" {
		platform = bake.HostPlatform()
	}
	reg := Registry(b.settings, req.Registry)

	graph, err := bake.Compile(chain, bake.Options{
		Platform:   platform,
		Registry:   reg,
		BaseImage:  req.BaseImage,
		ContextDir: req.ContextDir,
		ExtraArgs:  req.BuildArgs,
		FinalImage: req.ImageName,
	})
	if err != nil {
		return nil, err
	}

	return &Plan{Keys: seq, Chain: chain, Graph: graph, Platform: platform, Registry: reg}, nil
}

// Build plans req and bakes every stage that is not already available,
// then the retag target if one was requested. The temporary builder is
// removed on success and on failure.
func (b *Builder) Build(ctx context.Context, req Request) (*Result, error) {
	plan, err := b.Plan(req)
	if err != nil {
		return nil, err
	}
	result := &Result{Plan: plan, BakeFile: bake.FormatHCL(plan.Graph)}

	targets, err := b.pendingStages(ctx, plan, req)
	if err != nil {
		return nil, err
	}
	for _, t := range plan.Graph.Stages() {
		if !slices.Contains(targets, t.Name) {
			result.Skipped = append(result.Skipped, t.Name)
		}
	}
	if final, ok := plan.Graph.Final(); ok {
		targets = append(targets, final.Name)
	}
	if targets, err = plan.Graph.BuildOrder(targets); err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		b.logger.Info("All target images already exist. Nothing to build.")
		return result, nil
	}

	dir, err := os.MkdirTemp(b.tempDir, "devlayer-bake-*")
	if err != nil {
		return nil, fmt.Errorf("create bake dir: %w", err)
	}
	defer os.RemoveAll(dir)

	bakeFile := filepath.Join(dir, BakeFileName)
	if err := os.WriteFile(bakeFile, []byte(result.BakeFile), 0o644); err != nil {
		return nil, fmt.Errorf("write bake file: %w", err)
	}

	builderName := b.builderPrefix + "-" + plan.Platform
	if err := b.createBuilder(ctx, builderName, plan.Platform, req.BuildLocal); err != nil {
		return nil, err
	}

	bakeBuilder := localBuilder
	if req.Push {
		bakeBuilder = builderName
	}
	for _, target := range targets {
		b.logger.Info("building image", "target", target)
		err := b.engine.Bake(ctx, container.BakeOptions{
			File:    bakeFile,
			Target:  target,
			Builder: bakeBuilder,
			NoCache: req.NoCache,
			Push:    req.Push,
			Debug:   b.debug,
			Stdout:  b.out,
			Stderr:  b.out,
		})
		if err != nil {
			b.removeBuilder(builderName)
			return result, err
		}
		result.Built = append(result.Built, target)
	}

	b.removeBuilder(builderName)
	return result, nil
}

// pendingStages returns the stage targets that still need building. Tags of
// the local registry live in no remote registry, so they are never checked.
func (b *Builder) pendingStages(ctx context.Context, plan *Plan, req Request) ([]string, error) {
	stages := plan.Graph.Stages()
	names := make([]string, 0, len(stages))
	for _, t := range stages {
		names = append(names, t.Name)
	}
	if req.SkipRegistryCheck || req.NoCache || b.checker == nil {
		return names, nil
	}
	if plan.Registry == bake.LocalRegistry {
		b.logger.Debug("local registry, skipping tag check")
		return names, nil
	}

	tags := make([]string, 0, len(stages))
	for _, t := range stages {
		tags = append(tags, t.PrimaryTag())
	}
	existing, err := b.checker.ExistingTags(ctx, tags)
	if err != nil {
		return nil, err
	}

	pending := names[:0]
	for _, t := range stages {
		if existing[t.PrimaryTag()] {
			b.logger.Info("tag exists, skipping", "tag", t.PrimaryTag())
			continue
		}
		pending = append(pending, t.Name)
	}
	return pending, nil
}

func (b *Builder) createBuilder(ctx context.Context, name, platform string, local bool) error {
	endpoint := b.settings.RemoteBuilder(platform)
	if local {
		endpoint = ""
	} else if endpoint == "" {
		if err := b.countdownWarning(ctx, "No remote builder is configured for this platform."); err != nil {
			return err
		}
	}
	return b.engine.CreateBuilder(ctx, container.BuilderOptions{Name: name, Endpoint: endpoint})
}

// countdownWarning gives the user b.countdown seconds to cancel a local build.
func (b *Builder) countdownWarning(ctx context.Context, message string) error {
	if b.countdown == 0 {
		return nil
	}
	fmt.Fprintf(b.out, "\n%s\nCtrl+C to cancel. Building locally in ", message)
	for i := b.countdown; i > 0; i-- {
		fmt.Fprintf(b.out, "%d...", i)
		select {
		case <-ctx.Done():
			fmt.Fprintln(b.out, "\nBuild cancelled.")
			return ctx.Err()
		case <-b.clock.After(time.Second):
		}
	}
	fmt.Fprint(b.out, "\n\n")
	return nil
}

// removeBuilder runs detached from the build context so cleanup still
// happens after cancellation.
func (b *Builder) removeBuilder(name string) {
	if err := b.engine.RemoveBuilder(context.Background(), name); err != nil {
		b.logger.Warn("failed to remove builder", "builder", name, "err", err)
	}
}

func resolutionError(seq layers.Sequence, err error) error {
	return issue.NewErrorContext().
		WithOperation("resolve layer definitions").
		WithResource(seq.String()).
		WithSuggestion("Check that a Dockerfile.<keys> file exists for every key").
		WithSuggestion("Check docker_search_dirs in the layers file or 'devlayer config show'").
		WithIssue(issue.LayerResolutionFailedId).
		Wrap(err).
		BuildError()
}
