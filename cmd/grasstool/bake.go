package main

import (
	"fmt"

	"github.com/Faultbox/midgard-grass/internal/engine/gpu/soft"
	"github.com/Faultbox/midgard-grass/internal/grass"
	"github.com/Faultbox/midgard-grass/pkg/math"
)

// baker runs a patch on the software device.
type baker struct {
	patch    *grass.Patch
	dev      *soft.Device
	pipeline *grass.Pipeline
}

type frameResult struct {
	Triangles []grass.DrawTriangle
	Args      grass.IndirectArgs
}

func newBaker(p *grass.Patch) *baker {
	dev := soft.New(soft.Options{})
	pl := p.Pipeline(dev, grass.NewSoftProgram(), grass.NewSoftMaterial())
	pl.Activate()
	return &baker{patch: p, dev: dev, pipeline: pl}
}

// Frame submits one frame and reads back what it generated.
func (b *baker) Frame(camera math.Vec3, t float32) (frameResult, error) {
	b.pipeline.FrameStep(camera, t, b.patch.Transform)
	if b.pipeline.State() != grass.Active {
		return frameResult{}, b.pipeline.Err()
	}

	tris, args := b.pipeline.Buffers()
	n, err := b.dev.ReadCounter(tris)
	if err != nil {
		return frameResult{}, err
	}
	raw, err := b.dev.ReadBuffer(tris)
	if err != nil {
		return frameResult{}, err
	}
	decoded, err := grass.DecodeDrawTriangles(raw, int(n))
	if err != nil {
		return frameResult{}, err
	}
	rawArgs, err := b.dev.ReadBuffer(args)
	if err != nil {
		return frameResult{}, err
	}
	res := frameResult{Triangles: decoded, Args: grass.DecodeIndirectArgs(rawArgs)}
	if res.Args.VertexCountPerInstance != 3*uint32(len(decoded)) {
		return res, fmt.Errorf("args report %d vertices for %d triangles", res.Args.VertexCountPerInstance, len(decoded))
	}
	return res, nil
}

func (b *baker) Close() {
	b.pipeline.Deactivate()
	b.dev.Close()
}
