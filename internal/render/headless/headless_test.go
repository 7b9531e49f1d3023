package headless

import (
	"errors"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/northwalk/floormap/internal/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevice_UploadRelease(t *testing.T) {
	d := New()

	mesh, err := d.UploadMesh(render.Mesh{Vertices: make([]r3.Vector, 3), Indices: []uint32{0, 1, 2}})
	require.NoError(t, err)
	pts, err := d.UploadPoints(render.Points{Points: make([]r3.Vector, 4)})
	require.NoError(t, err)
	tex, err := d.UploadTexture("icons/elevator.svg", []byte("<svg/>"))
	require.NoError(t, err)

	assert.NotEqual(t, mesh, pts)
	assert.Equal(t, 3, d.Live())
	assert.Equal(t, 1, d.Live(render.KindPoints))
	assert.Equal(t, 2, d.Live(render.KindMesh, render.KindTexture))

	require.NoError(t, d.Release(pts))
	err = d.Release(pts)
	assert.True(t, errors.Is(err, render.ErrUnknownHandle))
	assert.Equal(t, 1, d.Releases(render.KindPoints))
	assert.Equal(t, 1, d.Uploads(render.KindPoints))

	o, ok := d.Object(tex)
	require.True(t, ok)
	assert.Equal(t, "icons/elevator.svg", o.Key)
	assert.Equal(t, 6, o.Size)
}

func TestDevice_BadMesh(t *testing.T) {
	d := New()
	_, err := d.UploadMesh(render.Mesh{Indices: []uint32{0, 1}})
	assert.Error(t, err)
}

func TestDevice_LabelLogo(t *testing.T) {
	d := New()
	lbl, err := d.CreateLabel(render.Label{ID: "bata", Text: "Bata"})
	require.NoError(t, err)
	logo, err := d.UploadTexture("logos/bata.png", []byte{1})
	require.NoError(t, err)

	require.NoError(t, d.SetLabelLogo(lbl, logo))
	o, _ := d.Object(lbl)
	assert.Equal(t, logo, o.Label.Logo)

	assert.ErrorIs(t, d.SetLabelLogo(logo, lbl), render.ErrUnknownHandle)
}

func TestDevice_DrawChecksHandles(t *testing.T) {
	d := New()
	h, err := d.UploadLines(render.Lines{Points: make([]r3.Vector, 2), Closed: true})
	require.NoError(t, err)

	require.NoError(t, d.Draw(&render.Frame{Width: 10, Height: 10, Items: []render.Item{{Handle: h, DrawCount: -1}}}))
	assert.Equal(t, 1, d.Frames())
	assert.Len(t, d.LastFrame().Items, 1)

	require.NoError(t, d.Release(h))
	err = d.Draw(&render.Frame{Items: []render.Item{{Handle: h}}})
	assert.ErrorIs(t, err, render.ErrUnknownHandle)
	assert.Equal(t, 1, d.Frames())
}

func TestDevice_FailTexturesAndClose(t *testing.T) {
	d := New()
	d.FailTextures = true
	_, err := d.UploadTexture("logos/x.png", nil)
	assert.Error(t, err)

	require.NoError(t, d.Close())
	_, err = d.UploadPoints(render.Points{})
	assert.Error(t, err)
}
