package shader

import (
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/Carmen-Shannon/oxy-icosphere/engine/gpu"
)

// ShaderType identifies the pipeline stage a shader program runs in.
type ShaderType int

const (
	// ShaderTypeVertex is the vertex shader type, used for vertex processing in render pipelines.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment is the fragment shader type, used for fragment processing in pair with a vertex shader.
	ShaderTypeFragment
)

// String returns the lowercase stage name.
func (t ShaderType) String() string {
	switch t {
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return "unknown"
	}
}

// Default artifact names inside the embedded asset table.
const (
	DefaultVertex     = "icosphere.vert.wgsl"
	DefaultFragment   = "icosphere.frag.wgsl"
	DefaultEntryPoint = "main"
)

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

// ErrBadArtifact is returned when a shader artifact cannot be used as-is.
var ErrBadArtifact = errors.New("shader: malformed artifact")

//go:embed assets/*.wgsl
var embedded embed.FS

// Assets returns the embedded default shader artifacts.
func Assets() fs.FS {
	sub, err := fs.Sub(embedded, "assets")
	if err != nil {
		panic(fmt.Sprintf("shader: embedded assets missing: %v", err))
	}
	return sub
}

// Source returns the artifact table to load from: dir when it is set, the embedded assets otherwise.
func Source(dir string) fs.FS {
	if dir == "" {
		return Assets()
	}
	return os.DirFS(dir)
}

// shader is the implementation of the Shader interface.
type shader struct {
	key        string
	shaderType ShaderType
	format     gpu.ShaderFormat
	code       []byte
	entryPoint string
	reflection *Reflection
}

// Shader is a precompiled shader artifact ready to hand to the device. The core never compiles shader source; WGSL
// artifacts are passed through verbatim.
type Shader interface {
	// Key retrieves the artifact name the shader was loaded from.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// ShaderType returns the stage the shader runs in.
	//
	// Returns:
	//   - ShaderType: ShaderTypeVertex or ShaderTypeFragment
	ShaderType() ShaderType

	// Format returns the artifact encoding.
	//
	// Returns:
	//   - gpu.ShaderFormat: SPIR-V or WGSL
	Format() gpu.ShaderFormat

	// EntryPoint returns the entry point name for this shader.
	//
	// Returns:
	//   - string: the entry point name (e.g. "main")
	EntryPoint() string

	// Module returns the descriptor used to create the device shader module.
	//
	// Returns:
	//   - *gpu.ShaderModuleDescriptor: the module descriptor carrying the artifact bytes
	Module() *gpu.ShaderModuleDescriptor

	// Reflection returns the interface metadata of a WGSL artifact, or nil for SPIR-V.
	//
	// Returns:
	//   - *Reflection: the reflection data or nil
	Reflection() *Reflection
}

var _ Shader = &shader{}

// Load reads a precompiled shader artifact from fsys. The format follows the file extension: .spv is SPIR-V and
// .wgsl is WGSL.
//
// Parameters:
//   - fsys: the artifact table
//   - name: the artifact path inside fsys
//   - shaderType: the stage the artifact is used for
//   - entryPoint: the entry point name; empty selects the stage's entry point from WGSL reflection, or "main"
//
// Returns:
//   - Shader: the loaded shader
//   - error: the read error, or ErrBadArtifact when the artifact is malformed
func Load(fsys fs.FS, name string, shaderType ShaderType, entryPoint string) (Shader, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read %s shader %q: %w", shaderType, name, err)
	}

	s := &shader{
		key:        name,
		shaderType: shaderType,
		code:       data,
		entryPoint: entryPoint,
	}

	switch ext := strings.ToLower(path.Ext(name)); ext {
	case ".spv":
		s.format = gpu.ShaderFormatSPIRV
		if len(data) < 4 || len(data)%4 != 0 {
			return nil, fmt.Errorf("%w: %q is %d bytes, not a whole number of SPIR-V words", ErrBadArtifact, name, len(data))
		}
		if binary.LittleEndian.Uint32(data) != spirvMagic {
			return nil, fmt.Errorf("%w: %q has no SPIR-V magic number", ErrBadArtifact, name)
		}
		if s.entryPoint == "" {
			s.entryPoint = DefaultEntryPoint
		}
	case ".wgsl":
		s.format = gpu.ShaderFormatWGSL
		s.reflection = Reflect(string(data))
		declared, ok := s.reflection.EntryPoints[shaderType]
		if !ok {
			return nil, fmt.Errorf("%w: %q declares no @%s entry point", ErrBadArtifact, name, shaderType)
		}
		if s.entryPoint == "" {
			s.entryPoint = declared
		} else if s.entryPoint != declared {
			return nil, fmt.Errorf("%w: %q entry point is %q, configured %q", ErrBadArtifact, name, declared, s.entryPoint)
		}
	default:
		return nil, fmt.Errorf("%w: %q has unknown extension %q", ErrBadArtifact, name, ext)
	}

	return s, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) Format() gpu.ShaderFormat {
	return s.format
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) Module() *gpu.ShaderModuleDescriptor {
	return &gpu.ShaderModuleDescriptor{
		Label:  s.key,
		Format: s.format,
		Code:   s.code,
	}
}

func (s *shader) Reflection() *Reflection {
	return s.reflection
}
