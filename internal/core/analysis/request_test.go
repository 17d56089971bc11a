package analysis

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	imagesvc "ingredient-analyzer/internal/core/image"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngPayload(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestNewTextRequest(t *testing.T) {
	req, err := NewTextRequest("  water, salt,\nRed 40 ")
	require.NoError(t, err)
	assert.Equal(t, ModeTextList, req.Mode())
	assert.Equal(t, "  water, salt,\nRed 40 ", req.Text(), "text is kept verbatim")
	assert.Empty(t, req.ImageDataURI())

	for _, input := range []string{"", "   ", "\n\t"} {
		_, err := NewTextRequest(input)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidInput))
		assert.Equal(t, "No ingredients provided", err.Error())
	}
}

func TestNewIngredientRequest(t *testing.T) {
	req, err := NewIngredientRequest("  Titanium Dioxide ")
	require.NoError(t, err)
	assert.Equal(t, ModeSingleIngredient, req.Mode())
	assert.Equal(t, "Titanium Dioxide", req.Text())

	_, err = NewIngredientRequest(" ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Equal(t, "No ingredient name provided", err.Error())
}

func TestNewImageRequest(t *testing.T) {
	decoder := imagesvc.NewService(1<<20, 0)

	req, err := NewImageRequest(pngPayload(t, 4, 3), decoder)
	require.NoError(t, err)
	assert.Equal(t, ModeLabelImage, req.Mode())
	assert.Contains(t, req.ImageDataURI(), "data:image/png;base64,")
	assert.Empty(t, req.Text())

	_, err = NewImageRequest("", decoder)
	require.Error(t, err)
	assert.Equal(t, "No image provided", err.Error())

	_, err = NewImageRequest(base64.StdEncoding.EncodeToString([]byte("not an image")), decoder)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.True(t, errors.Is(err, imagesvc.ErrUndecodableImage))
}
