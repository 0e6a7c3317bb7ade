// Package shaders provides embedded GLSL sources for the grass pipeline.
package shaders

import _ "embed"

// GenerateComputeShader is the blade generator.
//
//go:embed grass.comp
var GenerateComputeShader string

// GrassVertexShader draws generated triangles from their storage buffer.
//
//go:embed grass.vert
var GrassVertexShader string

// GrassFragmentShader shades blades with a root-to-tip gradient.
//
//go:embed grass.frag
var GrassFragmentShader string
