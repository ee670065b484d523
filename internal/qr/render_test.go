package qr

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderProducesDecodablePNG(t *testing.T) {
	r := &PNGRenderer{}

	data, err := r.Render("https://qr.example.com/qr/test-slug", "")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 150, img.Bounds().Dx())
	assert.Equal(t, 150, img.Bounds().Dy())
}

func TestRenderCustomSize(t *testing.T) {
	r := &PNGRenderer{Size: 300}

	data, err := r.Render("https://qr.example.com/qr/test-slug", "#336699")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx())
}

func TestRenderRejectsEmptyContent(t *testing.T) {
	r := &PNGRenderer{}
	_, err := r.Render("", "")
	assert.Error(t, err)
}

func TestParseHexColor(t *testing.T) {
	c, err := parseHexColor("")
	require.NoError(t, err)
	assert.Equal(t, color.Black, c)

	c, err = parseHexColor("#1a2B3c")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0x1a, G: 0x2b, B: 0x3c, A: 0xff}, c)

	c, err = parseHexColor("#f0a")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0xff, G: 0x00, B: 0xaa, A: 0xff}, c)

	for _, bad := range []string{"red", "123456", "#12345", "#gggggg", "#"} {
		_, err := parseHexColor(bad)
		assert.ErrorIs(t, err, ErrColorInvalid, "color %q", bad)
	}
}
