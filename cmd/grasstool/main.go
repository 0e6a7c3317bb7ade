// grasstool is a CLI utility for building and inspecting grass patches.
package main

import (
	"flag"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Faultbox/midgard-grass/internal/config"
	"github.com/Faultbox/midgard-grass/internal/engine/terrain"
	"github.com/Faultbox/midgard-grass/internal/grass"
	"github.com/Faultbox/midgard-grass/internal/logger"
	"github.com/Faultbox/midgard-grass/pkg/math"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "scatter":
		err = cmdScatter(args)
	case "info":
		err = cmdInfo(args, os.Stdout)
	case "bake":
		err = cmdBake(args, os.Stdout)
	case "noise":
		err = cmdNoise(args)
	case "config":
		err = cmdConfig(args, os.Stdout)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`grasstool - grass patch utility

Usage:
  grasstool <command> [options]

Commands:
  scatter [options] <out.yaml>       Scatter blades over procedural ground
  info <patch.yaml>                  Show capacity, dispatch size and bounds
  bake [options] <patch.yaml>        Run frames on the software device
  noise [options] <out.png>          Write a tileable wind noise image
  config [options] [out.yaml]        Print or write the resolved config

Examples:
  grasstool scatter -count 5000 -extent 40 meadow.yaml
  grasstool info meadow.yaml
  grasstool bake -frames 10 -camera 0,2,30 -obj meadow.obj meadow.yaml
  grasstool noise -size 512 -seed 7 wind.png
  grasstool config -user`)
}

func cmdScatter(args []string) error {
	fs := flag.NewFlagSet("scatter", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file for grass and terrain settings")
	count := fs.Int("count", 0, "Number of blades (0 = config value)")
	extent := fs.Float64("extent", 0, "Side of the scattered square (0 = config value)")
	seed := fs.Uint("seed", 0, "Scatter seed (0 = config value)")
	noise := fs.String("noise", "", "Wind noise path stored in the patch")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: grasstool scatter [options] <out.yaml>")
	}

	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		return err
	}
	sc := cfg.Data.Scatter
	if *count > 0 {
		sc.Count = *count
	}
	if *extent > 0 {
		sc.Extent = float32(*extent)
	}
	if *seed > 0 {
		sc.Seed = uint32(*seed)
	}

	out := fs.Arg(0)
	ground := terrain.Generate(cfg.Data.Terrain.Params())
	p := grass.NewPatch(strings.TrimSuffix(filepath.Base(out), filepath.Ext(out)))
	p.Settings = cfg.Grass
	if *noise != "" {
		p.Settings.Wind.NoisePath = *noise
	}
	p.Vertices = grass.Scatter(ground, sc.Count, sc.Extent, sc.Seed)

	if err := p.Save(out); err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%d blades)\n", out, len(p.Vertices))
	return nil
}

func cmdInfo(args []string, w io.Writer) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: grasstool info <patch.yaml>")
	}

	p, err := grass.LoadPatch(args[0])
	if err != nil {
		return err
	}

	b := newBaker(p)
	defer b.Close()

	s := p.Settings
	fmt.Fprintf(w, "Patch:     %s\n", p.Name)
	fmt.Fprintf(w, "Blades:    %d\n", len(p.Vertices))
	fmt.Fprintf(w, "Segments:  %d (%d triangles per blade)\n", s.Form.MaxSegments, grass.MaxTrianglesPerBlade(s.Form.MaxSegments))
	fmt.Fprintf(w, "Margin:    %.3f\n", s.Margin())
	fmt.Fprintf(w, "Noise:     %s\n", noiseName(s.Wind))
	fmt.Fprintf(w, "State:     %s\n", b.pipeline.State())
	if err := b.pipeline.Err(); err != nil {
		fmt.Fprintf(w, "Issue:     %v\n", err)
		return nil
	}

	capacity := b.pipeline.Capacity()
	fmt.Fprintf(w, "Capacity:  %d triangles (%.2f MB)\n", capacity, float64(capacity*grass.DrawTriangleStride)/(1024*1024))
	fmt.Fprintf(w, "Dispatch:  %d groups of %d\n", b.pipeline.DispatchGroups(), grass.SoftGroupWidth)
	if local, ok := b.pipeline.LocalBounds(); ok {
		fmt.Fprintf(w, "Local:     %s\n", formatBounds(local))
		fmt.Fprintf(w, "World:     %s\n", formatBounds(grass.ToWorld(local, p.Transform)))
	}
	return nil
}

func cmdBake(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("bake", flag.ExitOnError)
	frames := fs.Int("frames", 1, "Frames to run")
	dt := fs.Float64("dt", 1.0/30, "Seconds between frames")
	cam := fs.String("camera", "0,0,0", "Camera position x,y,z")
	objPath := fs.String("obj", "", "Write the last frame's triangles as Wavefront OBJ")
	verbose := fs.Bool("v", false, "Log device activity")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: grasstool bake [options] <patch.yaml>")
	}
	if *verbose {
		// Keep stdout for results.
		if err := logger.InitWithOptions(logger.Options{Level: "debug", Console: os.Stderr}); err != nil {
			return err
		}
		defer logger.Sync()
	}

	camera, err := parseVec3(*cam)
	if err != nil {
		return fmt.Errorf("camera: %w", err)
	}

	p, err := grass.LoadPatch(fs.Arg(0))
	if err != nil {
		return err
	}

	b := newBaker(p)
	defer b.Close()
	if err := b.pipeline.Err(); err != nil {
		return err
	}

	var last frameResult
	for i := 0; i < *frames; i++ {
		t := float32(float64(i) * *dt)
		last, err = b.Frame(camera, t)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		fmt.Fprintf(w, "frame %d: t=%.3f triangles=%d vertices=%d\n", i, t, len(last.Triangles), last.Args.VertexCountPerInstance)
	}

	if *objPath != "" {
		f, err := os.Create(*objPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := writeOBJ(f, p.Name, last.Triangles); err != nil {
			return err
		}
		fmt.Fprintf(w, "Wrote %s\n", *objPath)
	}
	return nil
}

func cmdNoise(args []string) error {
	fs := flag.NewFlagSet("noise", flag.ExitOnError)
	size := fs.Int("size", grass.DefaultNoiseSize, "Image side in pixels")
	seed := fs.Uint("seed", 0, "Noise seed")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: grasstool noise [options] <out.png>")
	}

	n := grass.DefaultNoiseField(*size, uint32(*seed))
	f, err := os.Create(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()
	if err := png.Encode(f, n.Image); err != nil {
		return fmt.Errorf("encoding PNG: %w", err)
	}
	fmt.Printf("Wrote %s (%dx%d)\n", fs.Arg(0), *size, *size)
	return nil
}

func noiseName(s grass.WindSettings) string {
	switch {
	case s.NoisePath != "":
		return s.NoisePath
	case s.Noise != nil:
		return s.Noise.Name
	default:
		return "(none)"
	}
}

func formatBounds(b math.AABB) string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f) - (%.2f, %.2f, %.2f)",
		b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
}

func parseVec3(s string) (math.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return math.Vec3{}, fmt.Errorf("want x,y,z, got %q", s)
	}
	var v [3]float32
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return math.Vec3{}, err
		}
		v[i] = float32(f)
	}
	return math.Vec3FromArray(v), nil
}

func cmdConfig(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file to start from (default: built-in defaults)")
	user := fs.Bool("user", false, "Write to the user config directory")
	fs.Parse(args)

	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		return err
	}

	switch {
	case *user:
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintf(w, "Wrote %s\n", filepath.Join(config.ConfigDir(), config.FileName))
	case fs.NArg() > 0:
		if err := cfg.SaveTo(fs.Arg(0)); err != nil {
			return err
		}
		fmt.Fprintf(w, "Wrote %s\n", fs.Arg(0))
	default:
		return cfg.Encode(w)
	}
	return nil
}
