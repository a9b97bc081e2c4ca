package imageprocessor

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFit_DownscalesKeepingAspect(t *testing.T) {
	p := NewProcessor(0)
	out, contentType, err := p.Fit(encodePNG(t, 800, 400), 200)
	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Width)
	assert.Equal(t, 100, cfg.Height)
}

func TestFit_SmallImageUntouched(t *testing.T) {
	p := NewProcessor(90)
	out, _, err := p.Fit(encodePNG(t, 50, 60), 200)
	require.NoError(t, err)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Width)
	assert.Equal(t, 60, cfg.Height)
}

func TestFit_RejectsGarbage(t *testing.T) {
	_, _, err := NewProcessor(85).Fit([]byte("not an image"), 100)
	assert.Error(t, err)
}
