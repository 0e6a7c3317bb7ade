// Package shaders provides embedded GLSL shader sources for the renderer.
package shaders

import _ "embed"

// GroundVertexShader is the lit ground mesh vertex shader.
//
//go:embed ground.vert
var GroundVertexShader string

// GroundFragmentShader is the lit ground mesh fragment shader.
//
//go:embed ground.frag
var GroundFragmentShader string

// LineVertexShader is the debug line vertex shader.
//
//go:embed line.vert
var LineVertexShader string

// LineFragmentShader is the debug line fragment shader.
//
//go:embed line.frag
var LineFragmentShader string
