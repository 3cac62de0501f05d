// SPDX-License-Identifier: MPL-2.0

// Package imagebuild turns a set of environment keys into built images.
//
// A Builder orders the keys, resolves them into a layer chain, compiles the
// chain into a bake graph and drives docker buildx: stages whose tags already
// exist in the cache registry are skipped, the rest are baked in dependency
// order on a temporary builder, followed by the optional retag target.
package imagebuild
