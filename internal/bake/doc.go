// SPDX-License-Identifier: MPL-2.0

// Package bake compiles a resolved layer chain into a docker buildx bake
// graph and renders it as HCL.
//
// Every chain prefix becomes one target named after its layers and prefix
// fingerprint, so an unchanged prefix always maps to the same target and tag.
// Target i builds FROM target i-1 through the BASE_IMAGE build argument. An
// optional "final_target" retags the last stage under a caller chosen name.
package bake
