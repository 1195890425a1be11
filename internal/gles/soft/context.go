package soft

import (
	"image"
	"image/color"

	"github.com/junsooki/airview/internal/gles"
)

const (
	maxAttribs      = 8
	maxTextureUnits = 8
)

type attribPointer struct {
	enabled bool
	buffer  gles.Buffer
	size    int
	stride  int
	offset  int
}

type unitBinding struct {
	target gles.Enum
	tex    gles.Texture
}

// context holds the GL state of one rendering context. GL objects are not
// shared between contexts; textures live in the driver's share group.
type context struct {
	dev     *device
	surface *surface
	err     gles.Enum
	next    uint32

	shaders  map[gles.Shader]*shader
	programs map[gles.Program]*program
	buffers  map[gles.Buffer][]byte

	program     gles.Program
	arrayBuffer gles.Buffer
	activeUnit  int
	units       [maxTextureUnits]unitBinding
	attribs     [maxAttribs]attribPointer

	viewport   image.Rectangle
	clearColor color.RGBA
}

func newContext(dv *device) *context {
	return &context{
		dev:      dv,
		shaders:  make(map[gles.Shader]*shader),
		programs: make(map[gles.Program]*program),
		buffers:  make(map[gles.Buffer][]byte),
	}
}

func (c *context) Functions() gles.Functions { return c }

func (c *context) setError(e gles.Enum) {
	if c.err == gles.NO_ERROR {
		c.err = e
	}
}

// current reports whether c is bound on its device, recording
// INVALID_OPERATION when it is not.
func (c *context) current() bool {
	if c.dev.current != c || c.dev.terminated {
		c.setError(gles.INVALID_OPERATION)
		return false
	}
	return true
}

func (c *context) name() uint32 {
	c.next++
	return c.next
}

func (c *context) track(f func(l *Live)) { c.dev.d.track(f) }

func (c *context) CreateShader(ty gles.Enum) gles.Shader {
	if !c.current() {
		return 0
	}
	if ty != gles.VERTEX_SHADER && ty != gles.FRAGMENT_SHADER {
		c.setError(gles.INVALID_ENUM)
		return 0
	}
	s := gles.Shader(c.name())
	c.shaders[s] = &shader{ty: ty}
	c.track(func(l *Live) { l.Shaders++ })
	return s
}

func (c *context) shader(s gles.Shader) *shader {
	sh, ok := c.shaders[s]
	if !ok {
		c.setError(gles.INVALID_VALUE)
	}
	return sh
}

func (c *context) ShaderSource(s gles.Shader, src string) {
	if !c.current() {
		return
	}
	if sh := c.shader(s); sh != nil {
		sh.src = src
	}
}

func (c *context) CompileShader(s gles.Shader) {
	if !c.current() {
		return
	}
	if sh := c.shader(s); sh != nil {
		sh.compile(c.dev.d.currentFaults().CompileStage == sh.ty)
	}
}

func (c *context) GetShaderi(s gles.Shader, pname gles.Enum) int {
	if !c.current() {
		return 0
	}
	sh := c.shader(s)
	if sh == nil {
		return 0
	}
	switch pname {
	case gles.COMPILE_STATUS:
		if sh.compiled {
			return 1
		}
		return 0
	}
	c.setError(gles.INVALID_ENUM)
	return 0
}

func (c *context) GetShaderInfoLog(s gles.Shader) string {
	if !c.current() {
		return ""
	}
	if sh := c.shader(s); sh != nil {
		return sh.log
	}
	return ""
}

func (c *context) DeleteShader(s gles.Shader) {
	if !c.current() || s == 0 {
		return
	}
	if _, ok := c.shaders[s]; !ok {
		c.setError(gles.INVALID_VALUE)
		return
	}
	delete(c.shaders, s)
	c.track(func(l *Live) { l.Shaders-- })
}

func (c *context) CreateProgram() gles.Program {
	if !c.current() {
		return 0
	}
	p := gles.Program(c.name())
	c.programs[p] = &program{}
	c.track(func(l *Live) { l.Programs++ })
	return p
}

func (c *context) prog(p gles.Program) *program {
	pr, ok := c.programs[p]
	if !ok {
		c.setError(gles.INVALID_VALUE)
	}
	return pr
}

func (c *context) AttachShader(p gles.Program, s gles.Shader) {
	if !c.current() {
		return
	}
	pr, sh := c.prog(p), c.shader(s)
	if pr == nil || sh == nil {
		return
	}
	pr.shaders = append(pr.shaders, s)
}

func (c *context) LinkProgram(p gles.Program) {
	if !c.current() {
		return
	}
	pr := c.prog(p)
	if pr == nil {
		return
	}
	// Attached shaders that were deleted since stay usable for linking in
	// real drivers; here they are simply gone and count as missing.
	var vs, fs *shader
	for _, s := range pr.shaders {
		sh := c.shaders[s]
		if sh == nil {
			continue
		}
		switch sh.ty {
		case gles.VERTEX_SHADER:
			vs = sh
		case gles.FRAGMENT_SHADER:
			fs = sh
		}
	}
	pr.link(vs, fs, c.dev.d.currentFaults().Link)
}

func (c *context) GetProgrami(p gles.Program, pname gles.Enum) int {
	if !c.current() {
		return 0
	}
	pr := c.prog(p)
	if pr == nil {
		return 0
	}
	switch pname {
	case gles.LINK_STATUS:
		if pr.linked {
			return 1
		}
		return 0
	}
	c.setError(gles.INVALID_ENUM)
	return 0
}

func (c *context) GetProgramInfoLog(p gles.Program) string {
	if !c.current() {
		return ""
	}
	if pr := c.prog(p); pr != nil {
		return pr.log
	}
	return ""
}

func (c *context) UseProgram(p gles.Program) {
	if !c.current() {
		return
	}
	if p != 0 {
		pr := c.prog(p)
		if pr == nil {
			return
		}
		if !pr.linked {
			c.setError(gles.INVALID_OPERATION)
			return
		}
	}
	c.program = p
}

func (c *context) DeleteProgram(p gles.Program) {
	if !c.current() || p == 0 {
		return
	}
	if _, ok := c.programs[p]; !ok {
		c.setError(gles.INVALID_VALUE)
		return
	}
	delete(c.programs, p)
	if c.program == p {
		c.program = 0
	}
	c.track(func(l *Live) { l.Programs-- })
}

func (c *context) GetAttribLocation(p gles.Program, name string) gles.Attrib {
	if !c.current() {
		return -1
	}
	pr := c.prog(p)
	if pr == nil {
		return -1
	}
	if !pr.linked {
		c.setError(gles.INVALID_OPERATION)
		return -1
	}
	if a, ok := pr.attribs[name]; ok {
		return a
	}
	return -1
}

func (c *context) GetUniformLocation(p gles.Program, name string) gles.Uniform {
	if !c.current() {
		return -1
	}
	pr := c.prog(p)
	if pr == nil {
		return -1
	}
	if !pr.linked {
		c.setError(gles.INVALID_OPERATION)
		return -1
	}
	if u, ok := pr.uniforms[name]; ok {
		return u
	}
	return -1
}

func (c *context) CreateBuffer() gles.Buffer {
	if !c.current() {
		return 0
	}
	b := gles.Buffer(c.name())
	c.buffers[b] = nil
	c.track(func(l *Live) { l.Buffers++ })
	return b
}

func (c *context) BindBuffer(target gles.Enum, b gles.Buffer) {
	if !c.current() {
		return
	}
	if target != gles.ARRAY_BUFFER {
		c.setError(gles.INVALID_ENUM)
		return
	}
	if _, ok := c.buffers[b]; !ok && b != 0 {
		c.setError(gles.INVALID_VALUE)
		return
	}
	c.arrayBuffer = b
}

func (c *context) BufferData(target gles.Enum, data []byte, usage gles.Enum) {
	if !c.current() {
		return
	}
	if target != gles.ARRAY_BUFFER {
		c.setError(gles.INVALID_ENUM)
		return
	}
	if c.arrayBuffer == 0 {
		c.setError(gles.INVALID_OPERATION)
		return
	}
	c.buffers[c.arrayBuffer] = append([]byte(nil), data...)
}

func (c *context) DeleteBuffer(b gles.Buffer) {
	if !c.current() || b == 0 {
		return
	}
	if _, ok := c.buffers[b]; !ok {
		c.setError(gles.INVALID_VALUE)
		return
	}
	delete(c.buffers, b)
	if c.arrayBuffer == b {
		c.arrayBuffer = 0
	}
	c.track(func(l *Live) { l.Buffers-- })
}

func (c *context) ActiveTexture(unit gles.Enum) {
	if !c.current() {
		return
	}
	i := int(unit) - int(gles.TEXTURE0)
	if i < 0 || i >= maxTextureUnits {
		c.setError(gles.INVALID_ENUM)
		return
	}
	c.activeUnit = i
}

func (c *context) BindTexture(target gles.Enum, t gles.Texture) {
	if !c.current() {
		return
	}
	if target != gles.TEXTURE_2D && target != gles.TEXTURE_EXTERNAL_OES {
		c.setError(gles.INVALID_ENUM)
		return
	}
	c.units[c.activeUnit] = unitBinding{target: target, tex: t}
}

func (c *context) Uniform1i(u gles.Uniform, v int) {
	if !c.current() || u == -1 {
		return
	}
	pr := c.programs[c.program]
	if pr == nil {
		c.setError(gles.INVALID_OPERATION)
		return
	}
	pr.values[u] = v
}

func (c *context) attrib(a gles.Attrib) *attribPointer {
	if a < 0 || int(a) >= maxAttribs {
		c.setError(gles.INVALID_VALUE)
		return nil
	}
	return &c.attribs[a]
}

func (c *context) EnableVertexAttribArray(a gles.Attrib) {
	if !c.current() {
		return
	}
	if ap := c.attrib(a); ap != nil {
		ap.enabled = true
	}
}

func (c *context) DisableVertexAttribArray(a gles.Attrib) {
	if !c.current() {
		return
	}
	if ap := c.attrib(a); ap != nil {
		ap.enabled = false
	}
}

func (c *context) VertexAttribPointer(a gles.Attrib, size int, ty gles.Enum, normalized bool, stride, offset int) {
	if !c.current() {
		return
	}
	if ty != gles.FLOAT {
		c.setError(gles.INVALID_ENUM)
		return
	}
	if size < 1 || size > 4 || stride < 0 || offset < 0 {
		c.setError(gles.INVALID_VALUE)
		return
	}
	ap := c.attrib(a)
	if ap == nil {
		return
	}
	if stride == 0 {
		stride = 4 * size
	}
	ap.buffer, ap.size, ap.stride, ap.offset = c.arrayBuffer, size, stride, offset
}

func (c *context) Viewport(x, y, width, height int) {
	if !c.current() {
		return
	}
	if width < 0 || height < 0 {
		c.setError(gles.INVALID_VALUE)
		return
	}
	c.viewport = image.Rect(x, y, x+width, y+height)
}

func (c *context) ClearColor(r, g, b, a float32) {
	if !c.current() {
		return
	}
	c.clearColor = color.RGBA{R: unorm8(r), G: unorm8(g), B: unorm8(b), A: unorm8(a)}
}

func (c *context) GetError() gles.Enum {
	e := c.err
	c.err = gles.NO_ERROR
	return e
}

func unorm8(f float32) uint8 {
	switch {
	case f <= 0:
		return 0
	case f >= 1:
		return 255
	}
	return uint8(f*255 + 0.5)
}
