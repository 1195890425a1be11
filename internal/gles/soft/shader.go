package soft

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/junsooki/airview/internal/gles"
)

const extExternalImage = "GL_OES_EGL_image_external"

var (
	reExtension = regexp.MustCompile(`^\s*#extension\s+(\w+)\s*:\s*(require|enable)\s*$`)
	rePrecision = regexp.MustCompile(`^\s*precision\s+(lowp|mediump|highp)\s+float\s*;`)
	reDecl      = regexp.MustCompile(`^\s*(attribute|uniform|varying)\s+(?:(?:lowp|mediump|highp)\s+)?(\w+)\s+(\w+)\s*;`)
	reMain      = regexp.MustCompile(`\bvoid\s+main\s*\(\s*(?:void)?\s*\)`)
	reAssign    = regexp.MustCompile(`\b(\w+)\s*=\s*(\w+)\s*;`)
	reFragColor = regexp.MustCompile(`\bgl_FragColor\s*=\s*texture2D\s*\(\s*(\w+)\s*,\s*(\w+)\s*\)\s*;`)
)

type variable struct {
	name string
	typ  string
}

type shader struct {
	ty       gles.Enum
	src      string
	compiled bool
	log      string

	attributes []variable
	uniforms   []variable
	varyings   []variable
	// assigns maps an assigned name (varying or gl_Position) to its source.
	assigns map[string]string
	// sampler and coord are the operands of texture2D written to gl_FragColor.
	sampler, coord string
}

func (s *shader) stageName() string {
	if s.ty == gles.VERTEX_SHADER {
		return "vertex"
	}
	return "fragment"
}

// compile checks src against the GLSL ES 1.00 rules the renderer's shaders
// depend on and records declarations for linking.
func (s *shader) compile(fail bool) {
	s.compiled = false
	s.attributes, s.uniforms, s.varyings = nil, nil, nil
	s.assigns = make(map[string]string)
	s.sampler, s.coord = "", ""

	var errs []string
	report := func(line int, token, msg string) {
		errs = append(errs, fmt.Sprintf("ERROR: 0:%d: '%s' : %s", line, token, msg))
	}
	defer func() {
		s.log = strings.Join(errs, "\n")
		if len(errs) > 0 {
			s.log += "\n"
		}
		s.compiled = len(errs) == 0
	}()

	if fail {
		report(0, "", s.stageName()+" compilation rejected by driver")
		return
	}
	if strings.TrimSpace(s.src) == "" {
		report(1, "", "syntax error: empty source")
		return
	}

	extensions := make(map[string]bool)
	precision := false
	depth := 0
	for i, line := range strings.Split(s.src, "\n") {
		n := i + 1
		if m := reExtension.FindStringSubmatch(line); m != nil {
			extensions[m[1]] = true
			continue
		}
		if rePrecision.MatchString(line) {
			precision = true
			continue
		}
		if m := reDecl.FindStringSubmatch(line); m != nil {
			qual, typ, name := m[1], m[2], m[3]
			switch {
			case qual == "attribute" && s.ty == gles.FRAGMENT_SHADER:
				report(n, "attribute", "supported in vertex shaders only")
			case typ == "samplerExternalOES" && !extensions[extExternalImage]:
				report(n, typ, "requires extension "+extExternalImage)
			case typ == "float" || strings.HasPrefix(typ, "vec") || strings.HasPrefix(typ, "mat"):
				if s.ty == gles.FRAGMENT_SHADER && !precision && qual != "uniform" {
					report(n, "", "No precision specified for (float)")
				}
			}
			v := variable{name: name, typ: typ}
			switch qual {
			case "attribute":
				s.attributes = append(s.attributes, v)
			case "uniform":
				s.uniforms = append(s.uniforms, v)
			case "varying":
				s.varyings = append(s.varyings, v)
			}
		}
		for _, r := range line {
			switch r {
			case '{':
				depth++
			case '}':
				depth--
				if depth < 0 {
					report(n, "}", "syntax error")
					depth = 0
				}
			}
		}
	}
	if depth != 0 {
		report(0, "", "syntax error: unexpected end of file")
	}
	if !reMain.MatchString(s.src) {
		report(0, "main", "function not defined")
	}

	for _, m := range reAssign.FindAllStringSubmatch(s.src, -1) {
		s.assigns[m[1]] = m[2]
	}
	if m := reFragColor.FindStringSubmatch(s.src); m != nil {
		s.sampler, s.coord = m[1], m[2]
	}
}

func lookup(vars []variable, name string) (variable, bool) {
	i := slices.IndexFunc(vars, func(v variable) bool { return v.name == name })
	if i < 0 {
		return variable{}, false
	}
	return vars[i], true
}

type program struct {
	shaders []gles.Shader
	linked  bool
	log     string

	attribs  map[string]gles.Attrib
	uniforms map[string]gles.Uniform
	values   map[gles.Uniform]int

	position gles.Attrib
	texCoord gles.Attrib
	sampler  gles.Uniform
	target   gles.Enum
}

// link resolves the attached stages into a passthrough textured-quad program.
func (p *program) link(vs, fs *shader, fail bool) {
	p.linked = false
	p.attribs = make(map[string]gles.Attrib)
	p.uniforms = make(map[string]gles.Uniform)
	p.values = make(map[gles.Uniform]int)

	var errs []string
	defer func() {
		p.log = strings.Join(errs, "\n")
		p.linked = len(errs) == 0
	}()

	switch {
	case vs == nil:
		errs = append(errs, "No vertex shader attached.")
		return
	case fs == nil:
		errs = append(errs, "No fragment shader attached.")
		return
	case !vs.compiled:
		errs = append(errs, "Attached vertex shader is not compiled.")
		return
	case !fs.compiled:
		errs = append(errs, "Attached fragment shader is not compiled.")
		return
	case fail:
		errs = append(errs, "Link rejected by driver.")
		return
	}

	for _, v := range fs.varyings {
		if _, ok := lookup(vs.varyings, v.name); !ok {
			errs = append(errs, fmt.Sprintf("Varying %s has not been declared in the vertex shader.", v.name))
		}
	}
	if len(errs) > 0 {
		return
	}

	for i, a := range vs.attributes {
		p.attribs[a.name] = gles.Attrib(i)
	}
	n := 0
	for _, u := range append(slices.Clone(vs.uniforms), fs.uniforms...) {
		if _, ok := p.uniforms[u.name]; !ok {
			p.uniforms[u.name] = gles.Uniform(n)
			n++
		}
	}

	pos, ok := p.attribs[vs.assigns["gl_Position"]]
	if !ok {
		errs = append(errs, "gl_Position must be written from a vertex attribute.")
		return
	}
	sampler, ok := lookup(fs.uniforms, fs.sampler)
	if !ok {
		errs = append(errs, "gl_FragColor must be a texture2D sample of a sampler uniform.")
		return
	}
	tc, ok := p.attribs[vs.assigns[fs.coord]]
	if !ok {
		errs = append(errs, fmt.Sprintf("Varying %s must be written from a vertex attribute.", fs.coord))
		return
	}
	switch sampler.typ {
	case "samplerExternalOES":
		p.target = gles.TEXTURE_EXTERNAL_OES
	case "sampler2D":
		p.target = gles.TEXTURE_2D
	default:
		errs = append(errs, fmt.Sprintf("Unsupported sampler type %s.", sampler.typ))
		return
	}
	p.position, p.texCoord, p.sampler = pos, tc, p.uniforms[sampler.name]
}
