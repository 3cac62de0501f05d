// SPDX-License-Identifier: MPL-2.0

// Package container drives the Docker CLI for the development environment.
//
// DockerEngine embeds BaseCLIEngine, which builds argument lists and runs the
// docker binary through an injectable exec function. Besides the container
// and image operations used to launch a development container, the engine
// manages buildx builders and runs "docker buildx bake" targets.
package container
