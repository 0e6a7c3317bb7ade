package main

import (
	"bufio"
	"fmt"
	"io"

	"github.com/Faultbox/midgard-grass/internal/grass"
)

// writeOBJ writes triangles as a Wavefront OBJ mesh with one normal per
// face. Vertices are not shared between faces.
func writeOBJ(w io.Writer, name string, tris []grass.DrawTriangle) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# %d triangles\n", len(tris))
	fmt.Fprintf(bw, "o %s\n", name)
	for _, t := range tris {
		for _, v := range t.Vertices {
			fmt.Fprintf(bw, "v %g %g %g\n", v.Position.X, v.Position.Y, v.Position.Z)
		}
	}
	for _, t := range tris {
		fmt.Fprintf(bw, "vn %g %g %g\n", t.Normal.X, t.Normal.Y, t.Normal.Z)
	}
	for i := range tris {
		a := 3*i + 1
		n := i + 1
		fmt.Fprintf(bw, "f %d//%d %d//%d %d//%d\n", a, n, a+1, n, a+2, n)
	}
	return bw.Flush()
}
