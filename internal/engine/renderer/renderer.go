// Package renderer draws the ground mesh and debug lines around the GPU
// grass draws.
package renderer

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.3-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-grass/internal/engine/renderer/shaders"
	"github.com/Faultbox/midgard-grass/internal/engine/shader"
	"github.com/Faultbox/midgard-grass/internal/engine/terrain"
	"github.com/Faultbox/midgard-grass/internal/logger"
	"github.com/Faultbox/midgard-grass/pkg/math"
)

// Config holds renderer configuration.
type Config struct {
	Width  int
	Height int
	// LightDir is the direction light travels, normalized on use.
	LightDir math.Vec3
}

// Renderer handles all non-grass OpenGL rendering.
type Renderer struct {
	config Config

	groundProgram uint32
	groundVAO     uint32
	groundVBO     uint32
	groundEBO     uint32
	groundCount   int32

	lineProgram uint32
	lineVAO     uint32
	lineVBO     uint32
	lineCap     int

	// Per-frame lit triangles, drawn with the ground program.
	streamVAO uint32
	streamVBO uint32
	streamCap int
}

// New creates a new renderer.
// IMPORTANT: Must be called AFTER OpenGL context is created!
func New(cfg Config) (*Renderer, error) {
	if cfg.LightDir == (math.Vec3{}) {
		cfg.LightDir = math.Vec3{X: -0.4, Y: -1, Z: -0.3}
	}
	r := &Renderer{config: cfg}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	logger.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.ClearColor(0.55, 0.7, 0.85, 1.0) // Sky

	var err error
	r.groundProgram, err = shader.CompileProgram(shaders.GroundVertexShader, shaders.GroundFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("ground program: %w", err)
	}
	r.lineProgram, err = shader.CompileProgram(shaders.LineVertexShader, shaders.LineFragmentShader)
	if err != nil {
		gl.DeleteProgram(r.groundProgram)
		return nil, fmt.Errorf("line program: %w", err)
	}

	gl.GenVertexArrays(1, &r.lineVAO)
	gl.GenBuffers(1, &r.lineVBO)
	gl.BindVertexArray(r.lineVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.lineVBO)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 3*4, nil)
	gl.EnableVertexAttribArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)

	gl.GenVertexArrays(1, &r.streamVAO)
	gl.GenBuffers(1, &r.streamVBO)
	gl.BindVertexArray(r.streamVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.streamVBO)
	vertexLayout()
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)

	gl.Viewport(0, 0, int32(cfg.Width), int32(cfg.Height))
	return r, nil
}

// Close cleans up renderer resources.
func (r *Renderer) Close() {
	logger.Info("closing renderer")
	r.releaseGround()
	if r.lineVAO != 0 {
		gl.DeleteVertexArrays(1, &r.lineVAO)
	}
	if r.lineVBO != 0 {
		gl.DeleteBuffers(1, &r.lineVBO)
	}
	if r.streamVAO != 0 {
		gl.DeleteVertexArrays(1, &r.streamVAO)
	}
	if r.streamVBO != 0 {
		gl.DeleteBuffers(1, &r.streamVBO)
	}
	gl.DeleteProgram(r.groundProgram)
	gl.DeleteProgram(r.lineProgram)
}

// Resize handles window resize.
func (r *Renderer) Resize(width, height int) {
	r.config.Width = width
	r.config.Height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	logger.Debug("renderer resized",
		zap.Int("width", width),
		zap.Int("height", height),
	)
}

// Size returns the viewport size in pixels.
func (r *Renderer) Size() (width, height int) {
	return r.config.Width, r.config.Height
}

// Aspect returns the viewport aspect ratio.
func (r *Renderer) Aspect() float32 {
	if r.config.Height == 0 {
		return 1
	}
	return float32(r.config.Width) / float32(r.config.Height)
}

// LightDir returns the normalized light direction.
func (r *Renderer) LightDir() math.Vec3 {
	return r.config.LightDir.Normalize()
}

// Begin starts a new frame.
func (r *Renderer) Begin() {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// End finishes the current frame.
func (r *Renderer) End() {
	gl.UseProgram(0)
	gl.BindVertexArray(0)
}

// SetGround uploads the ground mesh, replacing any previous one.
func (r *Renderer) SetGround(mesh *terrain.Mesh) {
	r.releaseGround()
	if len(mesh.Vertices) == 0 || len(mesh.Indices) == 0 {
		return
	}

	gl.GenVertexArrays(1, &r.groundVAO)
	gl.BindVertexArray(r.groundVAO)

	gl.GenBuffers(1, &r.groundVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.groundVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(mesh.Vertices)*vertexSize, gl.Ptr(mesh.Vertices), gl.STATIC_DRAW)

	gl.GenBuffers(1, &r.groundEBO)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, r.groundEBO)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(mesh.Indices)*4, gl.Ptr(mesh.Indices), gl.STATIC_DRAW)

	vertexLayout()

	gl.BindVertexArray(0)
	r.groundCount = int32(len(mesh.Indices))

	logger.Debug("ground uploaded",
		zap.Int("vertices", len(mesh.Vertices)),
		zap.Int("triangles", len(mesh.Indices)/3),
	)
}

// DrawGround draws the ground mesh, if one is set.
func (r *Renderer) DrawGround(viewProj math.Mat4) {
	if r.groundCount == 0 {
		return
	}
	r.useLit(viewProj)
	gl.BindVertexArray(r.groundVAO)
	gl.DrawElementsWithOffset(gl.TRIANGLES, r.groundCount, gl.UNSIGNED_INT, 0)
	gl.BindVertexArray(0)
}

// DrawVertices draws a non-indexed triangle list uploaded this frame.
func (r *Renderer) DrawVertices(viewProj math.Mat4, vertices []terrain.Vertex) {
	if len(vertices) < 3 {
		return
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, r.streamVBO)
	if len(vertices) > r.streamCap {
		gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*vertexSize, gl.Ptr(vertices), gl.STREAM_DRAW)
		r.streamCap = len(vertices)
	} else {
		gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(vertices)*vertexSize, gl.Ptr(vertices))
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	r.useLit(viewProj)
	gl.Disable(gl.CULL_FACE)
	gl.BindVertexArray(r.streamVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, int32(len(vertices)))
	gl.BindVertexArray(0)
}

// DrawLines draws a line list, [x, y, z] per vertex.
func (r *Renderer) DrawLines(viewProj math.Mat4, vertices []float32, color math.Vec3) {
	if len(vertices) < 6 {
		return
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, r.lineVBO)
	if len(vertices) > r.lineCap {
		gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), gl.STREAM_DRAW)
		r.lineCap = len(vertices)
	} else {
		gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(vertices)*4, gl.Ptr(vertices))
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	gl.UseProgram(r.lineProgram)
	gl.UniformMatrix4fv(shader.GetUniform(r.lineProgram, "uViewProj"), 1, false, &viewProj[0])
	gl.Uniform3f(shader.GetUniform(r.lineProgram, "uColor"), color.X, color.Y, color.Z)
	gl.BindVertexArray(r.lineVAO)
	gl.DrawArrays(gl.LINES, 0, int32(len(vertices)/3))
	gl.BindVertexArray(0)
}

// ReadPixels returns the back buffer as bottom-up RGBA rows.
func (r *Renderer) ReadPixels() ([]byte, int, int) {
	w, h := r.Size()
	pixels := make([]byte, w*h*4)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	return pixels, w, h
}

func (r *Renderer) useLit(viewProj math.Mat4) {
	light := r.LightDir()
	gl.UseProgram(r.groundProgram)
	gl.UniformMatrix4fv(shader.GetUniform(r.groundProgram, "uViewProj"), 1, false, &viewProj[0])
	gl.Uniform3f(shader.GetUniform(r.groundProgram, "uLightDir"), light.X, light.Y, light.Z)
}

var vertexSize = int(unsafe.Sizeof(terrain.Vertex{}))

// vertexLayout describes terrain.Vertex to the bound vertex array:
// position, normal, color.
func vertexLayout() {
	stride := int32(vertexSize)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, stride, 12)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(2, 4, gl.FLOAT, false, stride, 24)
	gl.EnableVertexAttribArray(2)
}

func (r *Renderer) releaseGround() {
	if r.groundVAO != 0 {
		gl.DeleteVertexArrays(1, &r.groundVAO)
		r.groundVAO = 0
	}
	if r.groundVBO != 0 {
		gl.DeleteBuffers(1, &r.groundVBO)
		r.groundVBO = 0
	}
	if r.groundEBO != 0 {
		gl.DeleteBuffers(1, &r.groundEBO)
		r.groundEBO = 0
	}
	r.groundCount = 0
}
