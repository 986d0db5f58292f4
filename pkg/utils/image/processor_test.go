package image

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReencodePNGToWebP(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 32, 16))
	for x := 0; x < 32; x++ {
		src.Set(x, 8, color.RGBA{R: 59, G: 130, B: 246, A: 255})
	}
	var in bytes.Buffer
	require.NoError(t, png.Encode(&in, src))

	out, err := Reencode(&in)
	require.NoError(t, err)

	decoded, err := webp.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, 32, decoded.Bounds().Dx())
	assert.Equal(t, 16, decoded.Bounds().Dy())
}

func TestReencodeRejectsGarbage(t *testing.T) {
	_, err := Reencode(strings.NewReader("not an image"))
	assert.Error(t, err)
}
