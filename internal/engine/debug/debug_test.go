package debug

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Faultbox/midgard-grass/pkg/math"
)

func TestBBoxWireframe(t *testing.T) {
	b := math.AABB{Min: math.Vec3{X: -1, Y: 0, Z: -2}, Max: math.Vec3{X: 1, Y: 3, Z: 2}}
	lines := BBoxWireframe(b)
	if len(lines) != BBoxWireframeVertexCount*3 {
		t.Fatalf("got %d floats, want %d", len(lines), BBoxWireframeVertexCount*3)
	}

	// Every edge is axis aligned and runs between two corners.
	for i := 0; i < len(lines); i += 6 {
		p := math.Vec3{X: lines[i], Y: lines[i+1], Z: lines[i+2]}
		q := math.Vec3{X: lines[i+3], Y: lines[i+4], Z: lines[i+5]}
		diff := 0
		if p.X != q.X {
			diff++
		}
		if p.Y != q.Y {
			diff++
		}
		if p.Z != q.Z {
			diff++
		}
		if diff != 1 {
			t.Errorf("edge %d: %v -> %v is not axis aligned", i/6, p, q)
		}
		if !b.Contains(p, 0) || !b.Contains(q, 0) {
			t.Errorf("edge %d leaves the box", i/6)
		}
	}

	if got := BBoxWireframe(math.EmptyAABB()); len(got) != 0 {
		t.Errorf("empty box produced %d floats", len(got))
	}
}

func TestFlipRows(t *testing.T) {
	// Two rows, bottom row red, top row green.
	pixels := []byte{
		255, 0, 0, 255,
		0, 255, 0, 255,
	}
	img, err := FlipRows(pixels, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if img.RGBAAt(0, 0).G != 255 || img.RGBAAt(0, 1).R != 255 {
		t.Errorf("rows not flipped: %v", img.Pix)
	}

	if _, err := FlipRows(pixels, 2, 2); err == nil {
		t.Error("expected size mismatch error")
	}
}

func TestCaptureFromPixels(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shots")
	sc := NewScreenshotCapture(dir, "grass")
	sc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC) }

	path, err := sc.CaptureFromPixels(make([]byte, 4*3*2), 3, 2)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "grass_2024-05-01_12-30-00.png"); path != want {
		t.Errorf("path = %s, want %s", path, want)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 3 || img.Bounds().Dy() != 2 {
		t.Errorf("bounds = %v", img.Bounds())
	}
}
