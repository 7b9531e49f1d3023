package assets

import (
	"bytes"
	"context"
	"image/color"
	"image/png"
	"testing"

	"github.com/northwalk/floormap/internal/storage/memory"
	"github.com/northwalk/floormap/pkg/floorplan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogoKey(t *testing.T) {
	assert.Equal(t, "logos/bata.png", LogoKey("bata"))
	assert.Equal(t, "logos/bata.png", LogoKey("bata-2"))
	assert.Equal(t, "logos/walk_eaze.png", LogoKey("walk_eaze"))
	// Only a single trailing digit after a dash is a unit number.
	assert.Equal(t, "logos/stairs3.png", LogoKey("stairs3"))
	assert.Equal(t, "logos/shop-12.png", LogoKey("shop-12"))
}

func TestIconKey(t *testing.T) {
	assert.Equal(t, "icons/elevator.svg", IconKey("lift"))
	assert.Equal(t, "icons/stairs.svg", IconKey("stair"))
	assert.Equal(t, "icons/atm.svg", IconKey(floorplan.Icon("atm")))
}

func TestResolver_FallbackChain(t *testing.T) {
	src := memory.New()
	src.Set("logos/bata.png", []byte("bata"))
	src.Set(DefaultLogoKey, []byte("default"))
	r := NewResolver(src, nil)
	ctx := context.Background()

	a, err := r.Logo(ctx, "bata-1")
	require.NoError(t, err)
	assert.Equal(t, "logos/bata.png", a.Key)
	assert.False(t, a.Fallback("logos/bata.png"))

	a, err = r.Logo(ctx, "levis")
	require.NoError(t, err)
	assert.Equal(t, DefaultLogoKey, a.Key)
	assert.Equal(t, []byte("default"), a.Data)
	assert.True(t, a.Fallback(LogoKey("levis")))

	a, err = r.Icon(ctx, "lift")
	require.NoError(t, err)
	assert.Equal(t, PlaceholderKey, a.Key)
	assert.Equal(t, Placeholder(), a.Data)
}

func TestResolver_CancelledContext(t *testing.T) {
	src := memory.New()
	r := NewResolver(src, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Logo(ctx, "bata")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPlaceholder_IsPNGDisc(t *testing.T) {
	img, err := png.Decode(bytes.NewReader(Placeholder()))
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())

	_, _, _, centre := img.At(32, 32).RGBA()
	_, _, _, corner := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), centre)
	assert.Equal(t, uint32(0), corner)
}

func TestDisc(t *testing.T) {
	d := Disc(16, color.White)
	assert.Equal(t, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, d.RGBAAt(8, 8))
}

func TestIsSVG(t *testing.T) {
	assert.True(t, IsSVG([]byte(`<?xml version="1.0"?><svg xmlns="http://www.w3.org/2000/svg"/>`)))
	assert.False(t, IsSVG(Placeholder()))
}

func TestCircle_IsWhite(t *testing.T) {
	img, err := png.Decode(bytes.NewReader(Circle()))
	require.NoError(t, err)
	r, g, b, a := img.At(32, 32).RGBA()
	assert.Equal(t, []uint32{0xffff, 0xffff, 0xffff, 0xffff}, []uint32{r, g, b, a})
	assert.NotEqual(t, Placeholder(), Circle())
}
