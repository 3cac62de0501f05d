// SPDX-License-Identifier: MPL-2.0

package devenv

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/devlayer/devlayer/internal/bake"
	"github.com/devlayer/devlayer/internal/config"
	"github.com/devlayer/devlayer/internal/container"
	"github.com/devlayer/devlayer/internal/imagebuild"
	"github.com/devlayer/devlayer/internal/issue"
)

const (
	// CachedImage is the local tag of the last image a container ran from.
	CachedImage = "devlayer_dev_image_cached:latest"
	// ContainerUser is the non-root user inside development images.
	ContainerUser = "admin"
	// ContainerHome is the home directory of ContainerUser.
	ContainerHome = "/home/admin"
	// Entrypoint prepares the workspace before the shell starts.
	Entrypoint = "/usr/local/bin/scripts/workspace-entrypoint.sh"
	// Shell is the interactive command run in the container.
	Shell = "/bin/bash"
	// WorkspaceEnv is set inside the container to the workspace mount.
	WorkspaceEnv = config.EnvWorkspace
)

var (
	colorEnv = []string{"TERM=xterm-256color", "COLORTERM=truecolor", "FORCE_COLOR=true"}

	bashConfigs = []string{".bashrc", ".bash_profile", ".profile", ".dircolors"}
)

type (
	// ImageBuilder plans and builds environment images.
	ImageBuilder interface {
		Plan(req imagebuild.Request) (*imagebuild.Plan, error)
		Build(ctx context.Context, req imagebuild.Request) (*imagebuild.Result, error)
	}

	// Request describes one launch.
	Request struct {
		// Keys is the unordered set of environment keys.
		Keys          []string
		ContainerName string
		// Platform is "x86_64" or "aarch64"; empty or "auto" means the host.
		Platform string
		// Dir is the host workspace mounted at WorkspaceMount.
		Dir            string
		WorkspaceMount string
		// CustomImage replaces the computed image name when set.
		CustomImage string
		// Registry overrides the first configured cache-from registry.
		Registry string

		Build          bool
		BuildLocal     bool
		Push           bool
		NoCache        bool
		UseCachedImage bool
	}

	// Option configures a Launcher.
	Option func(*Launcher)

	// Launcher starts or attaches to the development container.
	Launcher struct {
		engine      container.Engine
		builder     ImageBuilder
		settings    config.BuildSettings
		logger      *log.Logger
		getenv      func(string) string
		home        string
		uid, gid    int
		argsFiles   []string
		realpath    RealpathFunc
		lookupGroup func(name string) (string, error)
		stdin       io.Reader
		stdout      io.Writer
		stderr      io.Writer
	}
)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(lc *Launcher) {
		if l != nil {
			lc.logger = l
		}
	}
}

// WithGetenv replaces os.Getenv.
func WithGetenv(fn func(string) string) Option {
	return func(lc *Launcher) {
		if fn != nil {
			lc.getenv = fn
		}
	}
}

// WithHome sets the host home directory mounted for shell configuration.
func WithHome(dir string) Option {
	return func(lc *Launcher) {
		lc.home = dir
	}
}

// WithIDs sets the host uid and gid forwarded to the container.
func WithIDs(uid, gid int) Option {
	return func(lc *Launcher) {
		lc.uid, lc.gid = uid, gid
	}
}

// WithDockerArgsFiles sets the docker arguments files, in load order.
func WithDockerArgsFiles(paths ...string) Option {
	return func(lc *Launcher) {
		lc.argsFiles = paths
	}
}

// WithRealpath replaces HostRealpath for docker arguments files.
func WithRealpath(fn RealpathFunc) Option {
	return func(lc *Launcher) {
		if fn != nil {
			lc.realpath = fn
		}
	}
}

// WithGroupLookup replaces the host group database lookup; it returns the gid.
func WithGroupLookup(fn func(name string) (string, error)) Option {
	return func(lc *Launcher) {
		if fn != nil {
			lc.lookupGroup = fn
		}
	}
}

// WithIO sets the terminal streams attached to the container.
func WithIO(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(lc *Launcher) {
		lc.stdin, lc.stdout, lc.stderr = stdin, stdout, stderr
	}
}

// New creates a Launcher.
func New(engine container.Engine, builder ImageBuilder, settings config.BuildSettings, opts ...Option) *Launcher {
	home, _ := os.UserHomeDir()
	lc := &Launcher{
		engine:      engine,
		builder:     builder,
		settings:    settings,
		logger:      log.New(io.Discard),
		getenv:      os.Getenv,
		home:        home,
		uid:         os.Getuid(),
		gid:         os.Getgid(),
		lookupGroup: lookupGID,
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
	}
	for _, opt := range opts {
		opt(lc)
	}
	if lc.realpath == nil {
		lc.realpath = HostRealpath(lc.home)
	}
	return lc
}

func lookupGID(name string) (string, error) {
	g, err := user.LookupGroup(name)
	if err != nil {
		return "", err
	}
	return g.Gid, nil
}

// Launch attaches to or starts the development container and returns the
// exit code of its shell.
func (lc *Launcher) Launch(ctx context.Context, req Request) (int, error) {
	req.Platform = platformOf(req.Platform)

	if info, err := os.Stat(req.Dir); err != nil || !info.IsDir() {
		return 1, issue.NewErrorContext().
			WithOperation("launch development container").
			WithResource(req.Dir).
			WithSuggestion("Set " + config.EnvDir + " or " + config.EnvWorkspace + " to an existing directory").
			WithSuggestion("Pass the workspace explicitly with --dir").
			Wrap(fmt.Errorf("workspace directory does not exist: %q", req.Dir)).
			BuildError()
	}

	if err := lc.engine.Ping(ctx); err != nil {
		return 1, err
	}

	if err := lc.removeExited(ctx, req.ContainerName); err != nil {
		return 1, err
	}

	running, err := lc.engine.ContainerIDs(ctx, req.ContainerName, container.StatusRunning)
	if err != nil {
		return 1, err
	}
	if len(running) > 0 {
		return lc.attach(ctx, req.ContainerName)
	}

	image, err := lc.EnsureImage(ctx, req)
	if err != nil {
		return 1, err
	}
	lc.logger.Info("using image", "image", image)

	opts, err := lc.RunOptions(req, image)
	if err != nil {
		return 1, err
	}
	lc.logger.Info("running container", "name", req.ContainerName)
	res, err := lc.engine.Run(ctx, opts)
	if err != nil {
		return 1, err
	}
	return res.ExitCode, nil
}

func (lc *Launcher) removeExited(ctx context.Context, name string) error {
	exited, err := lc.engine.ContainerIDs(ctx, name, container.StatusExited)
	if err != nil {
		return err
	}
	if len(exited) == 0 {
		return nil
	}
	lc.logger.Debug("removing exited container", "name", name)
	if err := lc.engine.Remove(ctx, name, false); err != nil {
		lc.logger.Warn("failed to remove exited container", "name", name, "err", err)
	}
	return nil
}

// attach opens a shell in the running container at its workspace.
func (lc *Launcher) attach(ctx context.Context, name string) (int, error) {
	lc.logger.Info("attaching to running container", "name", name)
	ws, err := lc.engine.ExecOutput(ctx, name, "printenv", WorkspaceEnv)
	if err != nil {
		return 1, fmt.Errorf("read workspace of %s: %w", name, err)
	}
	lc.logger.Debug("docker workspace", "dir", ws)

	res, err := lc.engine.Exec(ctx, name, []string{Shell}, container.RunOptions{
		Interactive: true,
		TTY:         true,
		Env:         colorEnv,
		User:        ContainerUser,
		WorkDir:     ws,
		Stdin:       lc.stdin,
		Stdout:      lc.stdout,
		Stderr:      lc.stderr,
	})
	if err != nil {
		return 1, err
	}
	if res.Error != nil {
		return 1, res.Error
	}
	return res.ExitCode, nil
}

// ImageName computes the environment image name for req without building.
func (lc *Launcher) ImageName(req Request) (string, error) {
	reg := imagebuild.Registry(lc.settings, req.Registry)
	if req.NoCache {
		reg = bake.LocalRegistry
	}
	plan, err := lc.builder.Plan(imagebuild.Request{Keys: req.Keys, Platform: platformOf(req.Platform), Registry: reg})
	if err != nil {
		return "", err
	}
	return imagebuild.ImageName(plan.Chain, reg, lc.getenv(config.EnvContainerNameSuffix), plan.Platform)
}

// EnsureImage returns an image to run, pulling or building it as requested.
func (lc *Launcher) EnsureImage(ctx context.Context, req Request) (string, error) {
	req.Platform = platformOf(req.Platform)

	if req.UseCachedImage {
		ok, err := lc.engine.ImageExists(ctx, CachedImage)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", unavailable(CachedImage,
				"Perhaps the docker cache was cleaned, or no container was launched on this system yet",
				"Run without --use-cached-build-image to pull or build the image")
		}
		return CachedImage, nil
	}

	if req.CustomImage != "" {
		if !lc.makeAvailable(ctx, req.CustomImage) {
			return "", unavailable(req.CustomImage,
				"Check docker.image.custom_image (try: devlayer config show)",
				"Re-create the image with 'devlayer commit'")
		}
		return req.CustomImage, nil
	}

	name, err := lc.ImageName(req)
	if err != nil {
		return "", err
	}
	if lc.makeAvailable(ctx, name) {
		return name, nil
	}
	if !req.Build && !req.BuildLocal {
		return "", unavailable(name,
			"Use --build to build remotely or --build-local to build locally")
	}

	reg := imagebuild.Registry(lc.settings, req.Registry)
	if req.NoCache {
		reg = bake.LocalRegistry
	}
	_, err = lc.builder.Build(ctx, imagebuild.Request{
		Keys:       req.Keys,
		ImageName:  name,
		Platform:   req.Platform,
		Registry:   reg,
		NoCache:    req.NoCache,
		BuildLocal: req.BuildLocal,
		Push:       req.Push,
	})
	if err != nil {
		return "", err
	}
	if !lc.makeAvailable(ctx, name) {
		return "", unavailable(name, "The build finished but the image could not be pulled or found locally")
	}
	return name, nil
}

// makeAvailable pulls image, falling back to a local copy, and tags it as
// CachedImage.
func (lc *Launcher) makeAvailable(ctx context.Context, image string) bool {
	pullErr := lc.engine.Pull(ctx, image)
	if pullErr != nil {
		lc.logger.Debug("pull failed", "image", image, "err", pullErr)
	}
	local, err := lc.engine.ImageExists(ctx, image)
	if err != nil {
		lc.logger.Debug("inspect failed", "image", image, "err", err)
	}
	if pullErr != nil && !local {
		return false
	}

	_ = lc.engine.RemoveImage(ctx, CachedImage, false) // absent on first launch
	if err := lc.engine.Tag(ctx, image, CachedImage); err != nil {
		lc.logger.Warn("failed to tag cached image", "image", image, "err", err)
		return false
	}
	return true
}

func unavailable(image string, suggestions ...string) error {
	return issue.NewErrorContext().
		WithOperation("make image available").
		WithResource(image).
		WithSuggestions(suggestions...).
		WithIssue(issue.ImageUnavailableId).
		Wrap(fmt.Errorf("docker image %s not found", image)).
		BuildError()
}

// RunOptions assembles the docker run options for a new container.
func (lc *Launcher) RunOptions(req Request, image string) (container.RunOptions, error) {
	platform := platformOf(req.Platform)
	mount := req.WorkspaceMount
	if mount == "" {
		mount = config.DefaultConfig().Docker.Run.WorkspaceMount
	}

	opts := container.RunOptions{
		Image:       image,
		Command:     []string{Shell},
		Name:        req.ContainerName,
		WorkDir:     mount,
		Interactive: true,
		TTY:         true,
		Remove:      true,
		Privileged:  true,
		Network:     "host",
		IPC:         "host",
		Runtime:     "nvidia",
		Entrypoint:  Entrypoint,
		Stdin:       lc.stdin,
		Stdout:      lc.stdout,
		Stderr:      lc.stderr,
	}

	opts.Env = append(opts.Env, colorEnv...)
	opts.Env = append(opts.Env,
		"DISPLAY",
		"NVIDIA_VISIBLE_DEVICES=all",
		"NVIDIA_DRIVER_CAPABILITIES=all",
		"ROS_DOMAIN_ID",
		"USER",
		WorkspaceEnv+"="+mount,
		"HOST_USER_UID="+strconv.Itoa(lc.uid),
		"HOST_USER_GID="+strconv.Itoa(lc.gid),
	)

	opts.Volumes = append(opts.Volumes, container.VolumeMount{HostPath: "/tmp/.X11-unix", ContainerPath: "/tmp/.X11-unix"})
	if lc.home != "" {
		opts.Volumes = append(opts.Volumes, container.VolumeMount{
			HostPath:      filepath.Join(lc.home, ".Xauthority"),
			ContainerPath: ContainerHome + "/.Xauthority",
			Mode:          container.MountModeReadWrite,
		})
		for _, name := range lc.existingBashConfigs() {
			opts.Volumes = append(opts.Volumes, container.VolumeMount{
				HostPath:      filepath.Join(lc.home, name),
				ContainerPath: ContainerHome + "/" + name,
				Mode:          container.MountModeReadOnly,
			})
		}
	}

	if platform == bake.PlatformAarch64 {
		lc.addJetsonOptions(&opts)
	}

	opts.Volumes = append(opts.Volumes,
		container.VolumeMount{HostPath: req.Dir, ContainerPath: mount},
		container.VolumeMount{HostPath: "/etc/localtime", ContainerPath: "/etc/localtime", Mode: container.MountModeReadOnly},
	)

	extra, used, err := LoadDockerArgs(lc.argsFiles, lc.getenv, lc.realpath)
	if err != nil {
		return container.RunOptions{}, issue.NewErrorContext().
			WithOperation("read docker arguments").
			WithSuggestion("Check the files listed in " + config.EnvDockerArgsFile + " and ~/" + DockerArgsFileName).
			WithIssue(issue.InvalidConfigId).
			Wrap(err).
			BuildError()
	}
	if len(used) > 0 {
		lc.logger.Info("using additional docker run arguments", "files", used)
	}
	opts.ExtraArgs = extra

	return opts, nil
}

func (lc *Launcher) existingBashConfigs() []string {
	var found []string
	for _, name := range bashConfigs {
		if info, err := os.Stat(filepath.Join(lc.home, name)); err == nil && info.Mode().IsRegular() {
			found = append(found, name)
		}
	}
	return found
}

// addJetsonOptions mounts the tegra tooling and devices of aarch64 hosts.
func (lc *Launcher) addJetsonOptions(opts *container.RunOptions) {
	if sock := lc.getenv("SSH_AUTH_SOCK"); sock != "" {
		opts.Volumes = append(opts.Volumes, container.VolumeMount{HostPath: sock, ContainerPath: "/ssh-agent"})
		opts.Env = append(opts.Env, "SSH_AUTH_SOCK=/ssh-agent")
	}
	for _, m := range []container.VolumeMount{
		{HostPath: "/usr/bin/tegrastats", ContainerPath: "/usr/bin/tegrastats"},
		{HostPath: "/sys/kernel/debug", ContainerPath: "/sys/kernel/debug", Mode: container.MountModeReadOnly},
		{HostPath: "/tmp/", ContainerPath: "/tmp/"},
		{HostPath: "/usr/lib/aarch64-linux-gnu/tegra", ContainerPath: "/usr/lib/aarch64-linux-gnu/tegra"},
		{HostPath: "/usr/src/jetson_multimedia_api", ContainerPath: "/usr/src/jetson_multimedia_api"},
		{HostPath: "/usr/share/vpi3", ContainerPath: "/usr/share/vpi3"},
		{HostPath: "/dev/input", ContainerPath: "/dev/input"},
		{HostPath: "/dev/bus/usb", ContainerPath: "/dev/bus/usb"},
	} {
		opts.Volumes = append(opts.Volumes, m)
	}
	opts.PID = "host"

	if gid, err := lc.lookupGroup("jtop"); err == nil && gid != "" {
		opts.Volumes = append(opts.Volumes, container.VolumeMount{
			HostPath: "/run/jtop.sock", ContainerPath: "/run/jtop.sock", Mode: container.MountModeReadOnly,
		})
		opts.GroupAdd = append(opts.GroupAdd, gid)
	}
}

func platformOf(p string) string {
	if p == "" || p == config.PlatformAuto {
		return bake.HostPlatform()
	}
	return p
}
