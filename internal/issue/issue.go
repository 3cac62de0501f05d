// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"
	"maps"
	"slices"

	"github.com/charmbracelet/glamour"
)

type Id int

const (
	LayerResolutionFailedId Id = iota + 1
	ConfigNotFoundId
	InvalidConfigId
	DockerUnavailableId
	ImageUnavailableId
	EnvironmentNotInitializedId
	PermissionDeniedId
	BuildFailedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // lookup key
	mdMsg    MarkdownMsg // rendered with glamour
	docLinks []HttpLink
	extLinks []HttpLink
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render returns the issue page rendered for a terminal. An empty stylePath
// selects glamour's automatic style.
func (i *Issue) Render(stylePath string) (string, error) {
	if stylePath == "" {
		stylePath = "auto"
	}
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.docLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- <" + string(link) + ">\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	layerResolutionFailedIssue = &Issue{
		id: LayerResolutionFailedId,
		mdMsg: `
# No layer definition matches the requested keys

Every image key must be covered by a file named 'Dockerfile.<keys>' in one of the
search directories. Keys are matched greedily, longest composite first.

## Things you can try
- List what the resolver would build:
~~~
$ devlayer plan -i noble -i ros2_jazzy --format table
~~~
- Add the directory holding your definitions:
~~~
$ devlayer plan --search-dir ./docker -i noble
~~~
- Check 'build.docker_search_dirs' in your configuration:
~~~
$ devlayer config show
~~~`,
	}

	configNotFoundIssue = &Issue{
		id: ConfigNotFoundId,
		mdMsg: `
# Configuration file not found

The configuration file passed on the command line does not exist.

## Things you can try
- Print the file used by each scope:
~~~
$ devlayer config path
~~~
- Drop the flag to fall back to the default candidates.`,
	}

	invalidConfigIssue = &Issue{
		id: InvalidConfigId,
		mdMsg: `
# Invalid configuration

A configuration file failed schema validation. The error names the file and the
offending key, for example 'build.remote_builder.x86_64'.

## Things you can try
- Dump the merged configuration:
~~~
$ devlayer config dump
~~~
- Valid values for 'docker.run.platform' are 'auto', 'x86_64' and 'aarch64'.
- Valid values for 'environment.mode' are 'uninitialized' and 'docker'.`,
	}

	dockerUnavailableIssue = &Issue{
		id: DockerUnavailableId,
		mdMsg: `
# Docker is not running

devlayer drives the 'docker' CLI and needs a reachable daemon.

## Things you can try
- Start the daemon:
~~~
$ sudo systemctl start docker
~~~
- Make sure your user can reach the socket:
~~~
$ docker ps
~~~`,
	}

	imageUnavailableIssue = &Issue{
		id: ImageUnavailableId,
		mdMsg: `
# Development image not available

The image could not be pulled from the cache registry and was not found locally.

## Things you can try
- Build the missing stages and push them:
~~~
$ devlayer activate --build
~~~
- Build everything on this machine:
~~~
$ devlayer activate --build-local
~~~`,
	}

	environmentNotInitializedIssue = &Issue{
		id: EnvironmentNotInitializedId,
		mdMsg: `
# Environment not initialized

No development mode has been selected for this machine.

## Things you can try
~~~
$ sudo devlayer init docker
~~~`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied

The command writes to the system configuration scope and must run as root.

## Things you can try
~~~
$ sudo devlayer init docker
~~~`,
	}

	buildFailedIssue = &Issue{
		id: BuildFailedId,
		mdMsg: `
# Image build failed

A 'docker buildx bake' target exited with an error. The builder has been removed.

## Things you can try
- Rerun with the engine's debug output:
~~~
$ devlayer build -v -i noble
~~~
- Bypass the layer cache:
~~~
$ devlayer build --no-cache -i noble
~~~`,
	}

	issues = map[Id]*Issue{
		layerResolutionFailedIssue.Id():     layerResolutionFailedIssue,
		configNotFoundIssue.Id():            configNotFoundIssue,
		invalidConfigIssue.Id():             invalidConfigIssue,
		dockerUnavailableIssue.Id():         dockerUnavailableIssue,
		imageUnavailableIssue.Id():          imageUnavailableIssue,
		environmentNotInitializedIssue.Id(): environmentNotInitializedIssue,
		permissionDeniedIssue.Id():          permissionDeniedIssue,
		buildFailedIssue.Id():               buildFailedIssue,
	}
)

// Values returns every catalogued issue ordered by id.
func Values() []*Issue {
	return slices.SortedFunc(maps.Values(issues), func(a, b *Issue) int {
		return cmp.Compare(a.id, b.id)
	})
}

func Get(id Id) *Issue {
	return issues[id]
}
