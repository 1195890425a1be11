package soft

import (
	"encoding/binary"
	"image"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/junsooki/airview/internal/gles"
)

func (c *context) Clear(mask gles.Enum) {
	if !c.current() {
		return
	}
	if mask&^gles.COLOR_BUFFER_BIT != 0 {
		c.setError(gles.INVALID_VALUE)
		return
	}
	if mask&gles.COLOR_BUFFER_BIT == 0 || c.surface == nil {
		return
	}
	xdraw.Draw(c.surface.fb, c.surface.fb.Bounds(), image.NewUniform(c.clearColor), image.Point{}, xdraw.Src)
}

type vertex struct {
	pos [2]float64 // normalized device coordinates
	tex [2]float64
}

// fetch reads component values of attribute a for vertex i. Missing
// components read as zero; a read past the end of the buffer fails.
func (c *context) fetch(a gles.Attrib, i int) ([2]float64, bool) {
	var out [2]float64
	ap := c.attribs[a]
	if !ap.enabled {
		return out, true
	}
	data, ok := c.buffers[ap.buffer]
	if !ok {
		return out, false
	}
	base := ap.offset + i*ap.stride
	for j := 0; j < min(ap.size, 2); j++ {
		at := base + 4*j
		if at+4 > len(data) {
			return out, false
		}
		out[j] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[at:])))
	}
	return out, true
}

// DrawArrays rasterizes an axis-aligned textured quad given as a four
// vertex triangle strip. Other primitives record INVALID_ENUM; strips that
// are not axis-aligned are skipped.
func (c *context) DrawArrays(mode gles.Enum, first, count int) {
	if !c.current() {
		return
	}
	if mode != gles.TRIANGLE_STRIP {
		c.setError(gles.INVALID_ENUM)
		return
	}
	if first < 0 || count < 0 {
		c.setError(gles.INVALID_VALUE)
		return
	}
	pr := c.programs[c.program]
	if pr == nil {
		c.setError(gles.INVALID_OPERATION)
		return
	}
	if count != 4 || c.surface == nil {
		return
	}

	var quad [4]vertex
	for i := range quad {
		pos, ok1 := c.fetch(pr.position, first+i)
		tex, ok2 := c.fetch(pr.texCoord, first+i)
		if !ok1 || !ok2 {
			c.setError(gles.INVALID_OPERATION)
			return
		}
		quad[i] = vertex{pos: pos, tex: tex}
	}

	unit := pr.values[pr.sampler]
	if unit < 0 || unit >= maxTextureUnits {
		return
	}
	b := c.units[unit]
	if b.target != pr.target {
		return
	}
	src := c.dev.d.textureImage(b.tex)
	if src == nil {
		return
	}

	fb := c.surface.fb
	m, ok := quadTransform(quad, c.viewport, fb.Rect.Dy(), src.Rect.Size())
	if !ok {
		return
	}
	clip := image.Rect(
		c.viewport.Min.X, fb.Rect.Dy()-c.viewport.Max.Y,
		c.viewport.Max.X, fb.Rect.Dy()-c.viewport.Min.Y,
	).Intersect(fb.Rect)
	if clip.Empty() {
		return
	}
	dst := fb.SubImage(clip).(*image.RGBA)
	xdraw.ApproxBiLinear.Transform(dst, m, src, src.Rect, xdraw.Src, nil)
}

// quadTransform returns the affine map from texel space of a size-sized
// texture to framebuffer pixels, derived from the quad's corners.
func quadTransform(q [4]vertex, vp image.Rectangle, fbHeight int, size image.Point) (f64.Aff3, bool) {
	toPixel := func(p [2]float64) (float64, float64) {
		x := float64(vp.Min.X) + (p[0]+1)/2*float64(vp.Dx())
		y := float64(vp.Min.Y) + (p[1]+1)/2*float64(vp.Dy())
		return x, float64(fbHeight) - y
	}
	toTexel := func(t [2]float64) (float64, float64) {
		return t[0] * float64(size.X), t[1] * float64(size.Y)
	}

	// Find one corner sharing v0's row and one sharing its column.
	h, v := -1, -1
	for i := 1; i < 4; i++ {
		if q[i].pos[1] == q[0].pos[1] && q[i].pos[0] != q[0].pos[0] {
			h = i
		}
		if q[i].pos[0] == q[0].pos[0] && q[i].pos[1] != q[0].pos[1] {
			v = i
		}
	}
	if h < 0 || v < 0 {
		return f64.Aff3{}, false
	}

	px0, py0 := toPixel(q[0].pos)
	sx0, sy0 := toTexel(q[0].tex)
	pxh, _ := toPixel(q[h].pos)
	sxh, syh := toTexel(q[h].tex)
	_, pyv := toPixel(q[v].pos)
	sxv, syv := toTexel(q[v].tex)
	// Texture axes must follow the quad edges.
	if sxh == sx0 || syh != sy0 || syv == sy0 || sxv != sx0 {
		return f64.Aff3{}, false
	}

	ax := (pxh - px0) / (sxh - sx0)
	ay := (pyv - py0) / (syv - sy0)
	return f64.Aff3{
		ax, 0, px0 - ax*sx0,
		0, ay, py0 - ay*sy0,
	}, true
}
