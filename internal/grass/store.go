package grass

import (
	"fmt"

	"github.com/Faultbox/midgard-grass/internal/engine/gpu"
)

// SourceVertexStore is the host-side list of blade anchors. The device copy
// is write-once: any change means uploading a new buffer.
type SourceVertexStore struct {
	vertices []SourceVertex
}

// NewSourceVertexStore creates a store holding a copy of vs.
func NewSourceVertexStore(vs []SourceVertex) *SourceVertexStore {
	s := &SourceVertexStore{}
	s.Add(vs)
	return s
}

// Len returns the number of source vertices.
func (s *SourceVertexStore) Len() int {
	return len(s.vertices)
}

// Vertices returns a copy of the source vertices in index order.
func (s *SourceVertexStore) Vertices() []SourceVertex {
	out := make([]SourceVertex, len(s.vertices))
	copy(out, s.vertices)
	return out
}

// Add appends vertices.
func (s *SourceVertexStore) Add(vs []SourceVertex) {
	s.vertices = append(s.vertices, vs...)
}

// Remove drops every vertex equal to one in vs. The remaining vertices are
// deduplicated as a side effect: removal is a set difference.
func (s *SourceVertexStore) Remove(vs []SourceVertex) {
	drop := make(map[SourceVertex]struct{}, len(vs))
	for _, v := range vs {
		drop[v] = struct{}{}
	}

	kept := s.vertices[:0]
	for _, v := range s.vertices {
		if _, ok := drop[v]; ok {
			continue
		}
		drop[v] = struct{}{}
		kept = append(kept, v)
	}
	clear(s.vertices[len(kept):])
	s.vertices = kept
}

// Reset removes every vertex.
func (s *SourceVertexStore) Reset() {
	s.vertices = nil
}

// Upload creates a structured device buffer of exactly Len records and
// queues the vertex data into it.
func (s *SourceVertexStore) Upload(dev gpu.Device) (gpu.Buffer, error) {
	if len(s.vertices) == 0 {
		return nil, ErrNoVertices
	}
	buf, err := dev.NewBuffer(gpu.BufferStructured, len(s.vertices), SourceVertexStride)
	if err != nil {
		return nil, fmt.Errorf("allocate source vertices: %w", err)
	}
	dev.WriteBuffer(buf, MarshalSourceVertices(s.vertices))
	return buf, nil
}
