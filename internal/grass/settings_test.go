package grass

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, 8, s.Form.MaxSegments)
	assert.Equal(t, 15, s.MaxTrianglesPerBlade())
	assert.Nil(t, s.Wind.Noise)
	assert.ErrorIs(t, s.Validate(), ErrMissingNoise)

	s.Wind.Noise = testNoise
	assert.NoError(t, s.Validate())
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(s *Settings)
		want   error
	}{
		{"zero segments", func(s *Settings) { s.Form.MaxSegments = 0 }, ErrInvalidSegments},
		{"segments beat noise", func(s *Settings) { s.Form.MaxSegments = 0; s.Wind.Noise = nil }, ErrInvalidSegments},
		{"no noise", func(s *Settings) { s.Wind.Noise = nil }, ErrMissingNoise},
		{"negative width", func(s *Settings) { s.Form.Width = -0.1 }, ErrInvalidSettings},
		{"negative clip", func(s *Settings) { s.LOD.ClipDistance = -1 }, ErrInvalidSettings},
		{"negative blend", func(s *Settings) { s.LOD.ClipBlend = -1 }, ErrInvalidSettings},
		{"one segment", func(s *Settings) { s.Form.MaxSegments = 1 }, nil},
		{"zero blend", func(s *Settings) { s.LOD.ClipBlend = 0 }, nil},
		{"zero curvature", func(s *Settings) { s.Form.Curvature = 0 }, nil},
		{"negative curvature", func(s *Settings) { s.Form.Curvature = -1 }, ErrInvalidSettings},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSettings()
			tt.modify(&s)
			err := s.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, IsConfigurationError(err))
		})
	}
}

func TestSettingsMargin(t *testing.T) {
	s := DefaultSettings()
	assert.InDelta(t, 2.3, s.Margin(), 1e-6)

	s.Form.Height = 0.1
	s.Form.HeightVariance = 0
	s.Form.Width = 1
	s.Form.WidthVariance = 0.5
	assert.InDelta(t, 1.5, s.Margin(), 1e-6)
}

func TestConfigurationErrorMatching(t *testing.T) {
	err := configError(ErrInvalidSettings, assert.AnError)
	assert.ErrorIs(t, err, ErrInvalidSettings)
	assert.ErrorIs(t, err, assert.AnError)
	assert.NotErrorIs(t, err, ErrNoVertices)
	assert.Contains(t, err.Error(), "invalid settings")
}
