// Package viewer implements the interactive grass viewer loop.
package viewer

import (
	"fmt"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-grass/internal/config"
	"github.com/Faultbox/midgard-grass/internal/engine/camera"
	"github.com/Faultbox/midgard-grass/internal/engine/debug"
	"github.com/Faultbox/midgard-grass/internal/engine/input"
	"github.com/Faultbox/midgard-grass/internal/engine/picking"
	"github.com/Faultbox/midgard-grass/internal/engine/renderer"
	"github.com/Faultbox/midgard-grass/internal/engine/terrain"
	"github.com/Faultbox/midgard-grass/internal/engine/window"
	"github.com/Faultbox/midgard-grass/internal/grass"
	"github.com/Faultbox/midgard-grass/internal/logger"
	"github.com/Faultbox/midgard-grass/internal/scene"
	"github.com/Faultbox/midgard-grass/pkg/math"
)

const title = "grassview"

var boundsColor = math.Vec3{X: 1, Y: 0.85, Z: 0.2}

// Brush used by right-click painting.
const (
	brushRadius = 1.5
	brushCount  = 40
	pickStep    = 0.25
)

// Viewer is the main viewer instance.
type Viewer struct {
	cfg      *config.Config
	running  bool
	window   *window.Window
	renderer *renderer.Renderer
	input    *input.Input
	camera   *camera.OrbitCamera
	backend  backend
	scene    *scene.Scene
	pipeline *grass.Pipeline
	watcher  *scene.PatchWatcher
	shots    *debug.ScreenshotCapture

	time       float32
	paused     bool
	showBounds bool
	seed       uint32
	brushSeed  uint32
}

// New opens the window and builds the scene.
func New(cfg *config.Config) (*Viewer, error) {
	logger.Info("initializing viewer",
		zap.Int("width", cfg.Graphics.Width),
		zap.Int("height", cfg.Graphics.Height),
		zap.String("backend", cfg.Graphics.Backend),
	)

	v := &Viewer{
		cfg:        cfg,
		camera:     camera.NewOrbitCamera(),
		input:      input.New(),
		shots:      debug.NewScreenshotCapture("screenshots", title),
		showBounds: cfg.Graphics.ShowBounds,
		seed:       cfg.Data.Scatter.Seed,
	}

	// Create window (this also creates OpenGL context)
	var err error
	v.window, err = window.New(window.Config{
		Title:      title,
		Width:      cfg.Graphics.Width,
		Height:     cfg.Graphics.Height,
		Fullscreen: cfg.Graphics.Fullscreen,
		VSync:      cfg.Graphics.VSync,
		Debug:      cfg.Logging.Level == "debug",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// Create renderer (AFTER window, since OpenGL context must exist)
	width, height := v.window.DrawableSize()
	v.renderer, err = renderer.New(renderer.Config{
		Width:    width,
		Height:   height,
		LightDir: cfg.Graphics.Sun.LightDir(),
	})
	if err != nil {
		v.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	v.backend, err = newBackend(cfg.Graphics.Backend, v.renderer.LightDir())
	if err != nil {
		v.Close()
		return nil, fmt.Errorf("failed to create device: %w", err)
	}

	v.scene, err = scene.Build(cfg)
	if err != nil {
		v.Close()
		return nil, fmt.Errorf("failed to build scene: %w", err)
	}
	v.renderer.SetGround(terrain.BuildMesh(v.scene.Ground))

	v.pipeline = v.scene.Patch.Pipeline(v.backend.Device(), v.backend.Program(), v.backend.Material())
	v.pipeline.Activate()
	if v.pipeline.State() != grass.Active {
		// The viewer still runs; fixing the inputs re-activates.
		logger.Warn("grass inactive", zap.Error(v.pipeline.Err()))
	}

	if b, ok := v.pipeline.LocalBounds(); ok {
		v.camera.FitToBounds(grass.ToWorld(b, v.scene.Patch.Transform))
	}

	if cfg.Data.Patch != "" {
		if v.watcher, err = scene.WatchPatch(cfg.Data.Patch); err != nil {
			logger.Warn("patch hot reload disabled", zap.Error(err))
		}
	}

	logger.Info("viewer initialized successfully")
	return v, nil
}

// Run starts the main loop.
func (v *Viewer) Run() error {
	v.running = true

	lastTime := time.Now()
	frameCount := 0
	fpsTimer := time.Now()

	logger.Info("starting viewer loop")

	for v.running {
		now := time.Now()
		dt := now.Sub(lastTime).Seconds()
		lastTime = now

		// 1. Process input
		if v.input.Update() {
			v.running = false
			break
		}
		v.handleEvents()

		// 2. Update
		v.update(float32(dt))

		// 3. Render
		v.render()

		// 4. Present (swap buffers)
		v.window.SwapBuffers()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			v.window.SetTitle(fmt.Sprintf("%s | %d fps | %s | %s",
				title, frameCount, v.pipeline.State(), v.backend.Status()))
			logger.Debug("fps", zap.Int("count", frameCount), zap.Float64("dt_ms", dt*1000))
			frameCount = 0
			fpsTimer = time.Now()
		}

		if limit := v.cfg.Graphics.FPSLimit; limit > 0 {
			if rest := time.Second/time.Duration(limit) - time.Since(now); rest > 0 {
				time.Sleep(rest)
			}
		}
	}

	return nil
}

// Close cleans up viewer resources.
func (v *Viewer) Close() {
	logger.Info("closing viewer")

	if v.watcher != nil {
		v.watcher.Close()
	}
	if v.pipeline != nil {
		v.pipeline.Deactivate()
	}
	if v.scene != nil {
		v.scene.Close()
	}
	if v.backend != nil {
		v.backend.Close()
	}
	if v.renderer != nil {
		v.renderer.Close()
	}
	if v.window != nil {
		v.window.Close()
	}
}

func (v *Viewer) handleEvents() {
	for _, event := range v.input.Events() {
		switch event.Type {
		case input.EventWindowResize:
			v.renderer.Resize(v.window.DrawableSize())
		case input.EventKeyDown:
			v.handleKey(event.Key)
		case input.EventMouseDown:
			if event.Button == input.ButtonRight {
				erase := v.input.IsKeyDown(sdl.SCANCODE_LSHIFT) || v.input.IsKeyDown(sdl.SCANCODE_RSHIFT)
				v.paint(event.MouseX, event.MouseY, erase)
			}
		}
	}
}

func (v *Viewer) handleKey(key sdl.Scancode) {
	switch key {
	case sdl.SCANCODE_ESCAPE:
		v.running = false
	case sdl.SCANCODE_B:
		v.showBounds = !v.showBounds
	case sdl.SCANCODE_SPACE:
		v.paused = !v.paused
	case sdl.SCANCODE_P:
		v.screenshot()
	case sdl.SCANCODE_L:
		v.toggleLODFreeze()
	case sdl.SCANCODE_LEFTBRACKET:
		v.changeSegments(-1)
	case sdl.SCANCODE_RIGHTBRACKET:
		v.changeSegments(1)
	case sdl.SCANCODE_R:
		v.rescatter()
	}
}

// toggleLODFreeze pins distance clipping to the current camera position so
// the clipped edge can be inspected from elsewhere.
func (v *Viewer) toggleLODFreeze() {
	s := v.pipeline.Settings()
	if s.LOD.OverrideCamera != nil {
		s.LOD.OverrideCamera = nil
	} else {
		pos := v.camera.Position()
		s.LOD.OverrideCamera = &pos
	}
	v.pipeline.SetSettings(s)
	logger.Info("lod camera", zap.Bool("frozen", s.LOD.OverrideCamera != nil))
}

func (v *Viewer) changeSegments(delta int) {
	s := v.pipeline.Settings()
	s.Form.MaxSegments += delta
	if s.Form.MaxSegments < 1 {
		return
	}
	v.pipeline.SetSettings(s)
	logger.Info("blade segments", zap.Int("segments", s.Form.MaxSegments))
}

func (v *Viewer) rescatter() {
	if v.cfg.Data.Patch != "" {
		return
	}
	v.seed++
	sc := v.cfg.Data.Scatter
	v.pipeline.ResetVertices()
	v.pipeline.AddVertices(grass.Scatter(v.scene.Ground, sc.Count, sc.Extent, v.seed))
	logger.Info("rescattered", zap.Uint32("seed", v.seed))
}

// paint adds a tuft of blades where the cursor meets the ground, or with
// erase removes the blades rooted under the brush.
func (v *Viewer) paint(x, y int, erase bool) {
	w, h := v.window.Size()
	inv := v.camera.ViewProjection(v.renderer.Aspect()).Inverse()
	ray := picking.ScreenToRay(float32(x), float32(y), float32(w), float32(h), inv)
	hit, ok := ray.IntersectHeightField(v.scene.Ground, v.camera.Far, pickStep)
	if !ok {
		return
	}

	// Source vertices live in the patch's local space; the brush is
	// measured in world units for both painting and erasing.
	toWorld := v.scene.Patch.Transform.Matrix()
	toLocal := toWorld.Inverse()

	if erase {
		under := verticesInBrush(v.pipeline.Vertices(), toWorld, hit, brushRadius)
		v.pipeline.RemoveVertices(under)
		logger.Info("erased blades", zap.Int("count", len(under)))
		return
	}

	v.brushSeed++
	tuft := grass.ScatterDisc(v.scene.Ground, hit.X, hit.Z, brushRadius, brushCount, v.brushSeed)
	for i := range tuft {
		tuft[i].Position = toLocal.TransformVec3(tuft[i].Position)
		tuft[i].Normal = toLocal.TransformDirection(tuft[i].Normal).Normalize()
	}
	v.pipeline.AddVertices(tuft)
	logger.Info("painted blades", zap.Int("count", len(tuft)), zap.Float32("x", hit.X), zap.Float32("z", hit.Z))
}

// verticesInBrush returns the local-space vertices whose world position lies
// within radius of center on the ground plane.
func verticesInBrush(vs []grass.SourceVertex, toWorld math.Mat4, center math.Vec3, radius float32) []grass.SourceVertex {
	var out []grass.SourceVertex
	for _, sv := range vs {
		p := toWorld.TransformVec3(sv.Position)
		dx, dz := p.X-center.X, p.Z-center.Z
		if dx*dx+dz*dz <= radius*radius {
			out = append(out, sv)
		}
	}
	return out
}

// pollPatch applies a patch file saved since the last frame. The pipeline
// re-activates on its next frame step.
func (v *Viewer) pollPatch() {
	if v.watcher == nil {
		return
	}
	select {
	case p, ok := <-v.watcher.Patches():
		if !ok {
			v.watcher = nil
			return
		}
		v.scene.Patch = p
		v.pipeline.SetSettings(p.Settings)
		v.pipeline.ResetVertices()
		v.pipeline.AddVertices(p.Vertices)
	default:
	}
}

func (v *Viewer) screenshot() {
	pixels, w, h := v.renderer.ReadPixels()
	path, err := v.shots.CaptureFromPixels(pixels, w, h)
	if err != nil {
		logger.Warn("screenshot failed", zap.Error(err))
		return
	}
	logger.Info("screenshot saved", zap.String("path", path))
}

func (v *Viewer) update(dt float32) {
	if !v.paused {
		v.time += dt
	}
	v.pollPatch()

	dx, dy := v.input.Drag(input.ButtonLeft)
	if dx != 0 || dy != 0 {
		v.camera.HandleDrag(float32(dx), float32(dy))
	}
	if wheel := v.input.Scroll(); wheel != 0 {
		v.camera.HandleZoom(wheel)
	}

	var forward, right, up float32
	if v.input.IsKeyDown(sdl.SCANCODE_W) {
		forward++
	}
	if v.input.IsKeyDown(sdl.SCANCODE_S) {
		forward--
	}
	if v.input.IsKeyDown(sdl.SCANCODE_D) {
		right++
	}
	if v.input.IsKeyDown(sdl.SCANCODE_A) {
		right--
	}
	if v.input.IsKeyDown(sdl.SCANCODE_E) {
		up++
	}
	if v.input.IsKeyDown(sdl.SCANCODE_Q) {
		up--
	}
	if forward != 0 || right != 0 || up != 0 {
		v.camera.HandleMovement(forward, right, up)
	}
}

func (v *Viewer) render() {
	viewProj := v.camera.ViewProjection(v.renderer.Aspect())

	v.renderer.Begin()
	v.renderer.DrawGround(viewProj)

	v.backend.BeginFrame(viewProj)
	v.pipeline.FrameStep(v.camera.Position(), v.time, v.scene.Patch.Transform)
	v.backend.EndFrame(v.renderer, viewProj, v.pipeline)

	if v.showBounds && v.pipeline.State() == grass.Active {
		v.renderer.DrawLines(viewProj, debug.BBoxWireframe(v.pipeline.WorldBounds()), boundsColor)
	}

	v.renderer.End()
}
