package shader

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// wgslTypeLayout holds the byte size and alignment for a WGSL type.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

// parsedField represents a single field extracted from a WGSL struct during parsing
type parsedField struct {
	name      string
	typeName  string
	location  int
	isBuiltin bool
}

// parsedStruct represents a WGSL struct block extracted during parsing
type parsedStruct struct {
	name   string
	fields []parsedField
}

// vertexFormatScalars maps a vertex buffer format to the scalar kind a shader sees when reading it: 'f' for
// float, normalized and half formats, 'u' for unsigned and 'i' for signed integers.
var vertexFormatScalars = map[wgpu.VertexFormat]byte{
	wgpu.VertexFormatUint8x2:   'u',
	wgpu.VertexFormatUint8x4:   'u',
	wgpu.VertexFormatSint8x2:   'i',
	wgpu.VertexFormatSint8x4:   'i',
	wgpu.VertexFormatUnorm8x2:  'f',
	wgpu.VertexFormatUnorm8x4:  'f',
	wgpu.VertexFormatSnorm8x2:  'f',
	wgpu.VertexFormatSnorm8x4:  'f',
	wgpu.VertexFormatUint16x2:  'u',
	wgpu.VertexFormatUint16x4:  'u',
	wgpu.VertexFormatSint16x2:  'i',
	wgpu.VertexFormatSint16x4:  'i',
	wgpu.VertexFormatUnorm16x2: 'f',
	wgpu.VertexFormatUnorm16x4: 'f',
	wgpu.VertexFormatSnorm16x2: 'f',
	wgpu.VertexFormatSnorm16x4: 'f',
	wgpu.VertexFormatFloat16x2: 'f',
	wgpu.VertexFormatFloat16x4: 'f',
	wgpu.VertexFormatFloat32:   'f',
	wgpu.VertexFormatFloat32x2: 'f',
	wgpu.VertexFormatFloat32x3: 'f',
	wgpu.VertexFormatFloat32x4: 'f',
	wgpu.VertexFormatUint32:    'u',
	wgpu.VertexFormatUint32x2:  'u',
	wgpu.VertexFormatUint32x3:  'u',
	wgpu.VertexFormatUint32x4:  'u',
	wgpu.VertexFormatSint32:    'i',
	wgpu.VertexFormatSint32x2:  'i',
	wgpu.VertexFormatSint32x3:  'i',
	wgpu.VertexFormatSint32x4:  'i',
}

// wgslPrimitiveLayoutMap maps the WGSL types a uniform block may hold to their byte size and alignment.
var wgslPrimitiveLayoutMap = map[string]wgslTypeLayout{
	"f32":         {4, 4},
	"i32":         {4, 4},
	"u32":         {4, 4},
	"vec2<f32>":   {8, 8},
	"vec2f":       {8, 8},
	"vec3<f32>":   {12, 16},
	"vec3f":       {12, 16},
	"vec4<f32>":   {16, 16},
	"vec4f":       {16, 16},
	"mat3x3<f32>": {48, 16},
	"mat4x4<f32>": {64, 16},
	"mat4x4f":     {64, 16},
}

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// locationRegex matches @location(N) attributes
	locationRegex = regexp.MustCompile(`@location\((\d+)\)`)

	// builtinRegex matches @builtin(...) attributes
	builtinRegex = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex matches a struct field line: optional attributes, name, colon, type.
	fieldRegex = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)

	// entryRegex matches a stage attribute followed by its function and captures both
	entryRegex = regexp.MustCompile(`(?s)@(vertex|fragment)\b.*?\bfn\s+(\w+)`)

	// vertexFnRegex matches a vertex entry point up to the opening paren of its parameter list
	vertexFnRegex = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+\w+\s*\(`)

	// bindGroupDeclRegex captures group, binding, optional address space, variable name, and type
	// from declarations like: @group(0) @binding(0) var<uniform> transform: Transform;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// Binding is one resource declaration found in WGSL text.
type Binding struct {
	Group   uint32
	Binding uint32
	Name    string
	Type    wgpu.BufferBindingType
	// MinSize is the byte size of the bound struct, 0 when it could not be resolved.
	MinSize uint64
}

// VertexInput is one @location value read by the vertex entry point, either a parameter or a field of a
// parameter struct.
type VertexInput struct {
	Name     string
	Location uint32
	Type     string
}

// Reflection is the interface metadata recovered from a WGSL artifact. SPIR-V artifacts carry no reflection.
type Reflection struct {
	// EntryPoints maps a stage to the name of its first entry point.
	EntryPoints map[ShaderType]string
	// VertexInputs lists what the first vertex entry point reads, sorted by location.
	VertexInputs []VertexInput
	Bindings     []Binding
}

// Reflect extracts entry points, vertex inputs and buffer bindings from WGSL source.
//
// Parameters:
//   - source: the WGSL source text
//
// Returns:
//   - *Reflection: the recovered metadata
func Reflect(source string) *Reflection {
	cleaned := stripComments(source)
	structs := parseStructBlocks(cleaned)
	r := &Reflection{EntryPoints: make(map[ShaderType]string)}

	for _, m := range entryRegex.FindAllStringSubmatch(cleaned, -1) {
		stage := ShaderTypeVertex
		if m[1] == "fragment" {
			stage = ShaderTypeFragment
		}
		if _, ok := r.EntryPoints[stage]; !ok {
			r.EntryPoints[stage] = m[2]
		}
	}

	r.VertexInputs = parseVertexInputs(cleaned, structs)

	sizes := computeStructSizes(structs)
	for _, m := range bindGroupDeclRegex.FindAllStringSubmatch(cleaned, -1) {
		group, _ := strconv.ParseUint(m[1], 10, 32)
		binding, _ := strconv.ParseUint(m[2], 10, 32)
		b := Binding{
			Group:   uint32(group),
			Binding: uint32(binding),
			Name:    strings.TrimSpace(m[4]),
		}
		switch space := strings.TrimSpace(m[3]); {
		case space == "uniform":
			b.Type = wgpu.BufferBindingTypeUniform
		case strings.HasPrefix(space, "storage") && strings.Contains(space, "read_write"):
			b.Type = wgpu.BufferBindingTypeStorage
		case strings.HasPrefix(space, "storage"):
			b.Type = wgpu.BufferBindingTypeReadOnlyStorage
		}
		if layout, ok := resolveTypeLayout(strings.TrimSpace(m[5]), sizes); ok {
			b.MinSize = layout.size
		}
		r.Bindings = append(r.Bindings, b)
	}
	sort.Slice(r.Bindings, func(i, j int) bool {
		if r.Bindings[i].Group != r.Bindings[j].Group {
			return r.Bindings[i].Group < r.Bindings[j].Group
		}
		return r.Bindings[i].Binding < r.Bindings[j].Binding
	})
	return r
}

// CheckVertexLayout reports an error when the vertex entry point reads a location the buffer layout does not
// provide, or reads it as a different scalar kind. Attribute order, offsets and extra buffer attributes are not
// checked. A shader whose inputs could not be recovered passes.
func (r *Reflection) CheckVertexLayout(want wgpu.VertexBufferLayout) error {
	for _, in := range r.VertexInputs {
		attr, ok := findAttribute(want.Attributes, in.Location)
		if !ok {
			return fmt.Errorf("vertex input %s reads @location(%d), which the buffer layout does not provide", in.Name, in.Location)
		}
		shaderKind := wgslScalarKind(in.Type)
		bufferKind := vertexFormatScalars[attr.Format]
		if shaderKind != 0 && bufferKind != 0 && shaderKind != bufferKind {
			return fmt.Errorf("vertex input %s at @location(%d) is %s, buffer format %v does not convert to it", in.Name, in.Location, in.Type, attr.Format)
		}
	}
	return nil
}

func findAttribute(attrs []wgpu.VertexAttribute, location uint32) (wgpu.VertexAttribute, bool) {
	for _, a := range attrs {
		if a.ShaderLocation == location {
			return a, true
		}
	}
	return wgpu.VertexAttribute{}, false
}

// CheckUniform reports an error when group/binding is not a uniform buffer that fits in size bytes.
func (r *Reflection) CheckUniform(group, binding uint32, size uint64) error {
	for _, b := range r.Bindings {
		if b.Group != group || b.Binding != binding {
			continue
		}
		if b.Type != wgpu.BufferBindingTypeUniform {
			return fmt.Errorf("@group(%d) @binding(%d) %s is not a uniform buffer", group, binding, b.Name)
		}
		if b.MinSize > size {
			return fmt.Errorf("@group(%d) @binding(%d) %s needs %d bytes, buffer holds %d", group, binding, b.Name, b.MinSize, size)
		}
		return nil
	}
	return fmt.Errorf("shader declares no resource at @group(%d) @binding(%d)", group, binding)
}

func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))
	for _, match := range matches {
		structs = append(structs, parsedStruct{
			name:   match[1],
			fields: parseStructFields(match[2]),
		})
	}
	return structs
}

func parseStructFields(body string) []parsedField {
	lines := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		field := parsedField{
			isBuiltin: builtinRegex.MatchString(line),
			location:  -1,
		}
		if locMatch := locationRegex.FindStringSubmatch(line); locMatch != nil {
			if loc, err := strconv.Atoi(locMatch[1]); err == nil {
				field.location = loc
			}
		}

		fm := fieldRegex.FindStringSubmatch(line)
		if fm == nil {
			continue
		}
		field.name = fm[1]
		field.typeName = strings.TrimSpace(fm[2])
		fields = append(fields, field)
	}
	return fields
}

// parseVertexInputs recovers the @location inputs of the first vertex entry point from its parameter list.
// A parameter either carries @location itself or is typed as a struct whose @location fields are the inputs.
func parseVertexInputs(source string, structs []parsedStruct) []VertexInput {
	loc := vertexFnRegex.FindStringIndex(source)
	if loc == nil {
		return nil
	}
	params, ok := balancedParens(source[loc[1]:])
	if !ok {
		return nil
	}

	byName := make(map[string]parsedStruct, len(structs))
	for _, ps := range structs {
		byName[ps.name] = ps
	}

	var inputs []VertexInput
	for _, f := range parseStructFields(params) {
		switch {
		case f.isBuiltin:
		case f.location >= 0:
			inputs = append(inputs, VertexInput{Name: f.name, Location: uint32(f.location), Type: f.typeName})
		default:
			ps, ok := byName[f.typeName]
			if !ok {
				continue
			}
			for _, sf := range ps.fields {
				if sf.isBuiltin || sf.location < 0 {
					continue
				}
				inputs = append(inputs, VertexInput{
					Name:     f.name + "." + sf.name,
					Location: uint32(sf.location),
					Type:     sf.typeName,
				})
			}
		}
	}
	sort.SliceStable(inputs, func(i, j int) bool { return inputs[i].Location < inputs[j].Location })
	return inputs
}

// balancedParens returns the text up to the paren that closes an already opened one.
func balancedParens(s string) (string, bool) {
	depth := 1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s[:i], true
			}
		}
	}
	return "", false
}

// wgslScalarKind returns 'f', 'u' or 'i' for scalar and vector types of f32, f16, u32 and i32, and 0 otherwise.
func wgslScalarKind(typeName string) byte {
	t := strings.ReplaceAll(typeName, " ", "")
	if strings.HasPrefix(t, "vec") && len(t) > 4 {
		if open := strings.IndexByte(t, '<'); open >= 0 {
			t = strings.TrimSuffix(t[open+1:], ">")
		} else {
			t = t[4:]
		}
	}
	switch t {
	case "f32", "f16", "f", "h":
		return 'f'
	case "u32", "u":
		return 'u'
	case "i32", "i":
		return 'i'
	}
	return 0
}

func roundUpAlign(alignment, value uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

func resolveTypeLayout(typeName string, knownTypes map[string]wgslTypeLayout) (wgslTypeLayout, bool) {
	if layout, ok := wgslPrimitiveLayoutMap[typeName]; ok {
		return layout, true
	}
	layout, ok := knownTypes[typeName]
	return layout, ok
}

// computeStructSizes resolves struct sizes with WGSL layout rules, iterating until structs that nest other structs
// are resolved too.
func computeStructSizes(structs []parsedStruct) map[string]wgslTypeLayout {
	resolved := make(map[string]wgslTypeLayout, len(structs))
	remaining := append([]parsedStruct(nil), structs...)

	for len(remaining) > 0 {
		next := remaining[:0]
		for _, ps := range remaining {
			if layout, ok := computeStructLayout(ps, resolved); ok {
				resolved[ps.name] = layout
			} else {
				next = append(next, ps)
			}
		}
		if len(next) == len(remaining) {
			break
		}
		remaining = next
	}
	return resolved
}

func computeStructLayout(ps parsedStruct, knownTypes map[string]wgslTypeLayout) (wgslTypeLayout, bool) {
	offset := uint64(0)
	maxAlign := uint64(1)
	for _, field := range ps.fields {
		if field.isBuiltin {
			continue
		}
		fl, ok := resolveTypeLayout(field.typeName, knownTypes)
		if !ok {
			return wgslTypeLayout{}, false
		}
		offset = roundUpAlign(fl.align, offset) + fl.size
		maxAlign = max(maxAlign, fl.align)
	}
	return wgslTypeLayout{roundUpAlign(maxAlign, offset), maxAlign}, true
}

func stripComments(source string) string {
	return stripLineComments(stripBlockComments(source))
}

func stripLineComments(source string) string {
	var sb strings.Builder
	for line := range strings.SplitSeq(source, "\n") {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// stripBlockComments removes /* */ comments, which nest in WGSL.
func stripBlockComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		if i+1 < len(source) {
			if source[i] == '/' && source[i+1] == '*' {
				depth++
				i++
				continue
			}
			if source[i] == '*' && source[i+1] == '/' && depth > 0 {
				depth--
				i++
				continue
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}

// splitAtTopLevelCommas splits at commas that are not nested inside angle brackets or parens, so array<T, N> and
// @interpolate(flat, either) stay whole.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<', '(':
			depth++
		case '>', ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
