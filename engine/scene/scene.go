package scene

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-icosphere/engine/camera"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/gpu"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/mesh"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-icosphere/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrResourceAllocation wraps every device allocation failure during Build, Resize and AddEntity.
var ErrResourceAllocation = errors.New("scene: resource allocation failed")

const (
	// DepthFormat is the format of the depth attachment.
	DepthFormat = wgpu.TextureFormatDepth32Float
	// AuxFormat is the format of the auxiliary normals target.
	AuxFormat = wgpu.TextureFormatRGBA32Float

	// GlobalGroup is the bind group index of the scene-wide uniforms.
	GlobalGroup = 0
	// EntityGroup is the bind group index of per-entity bindings, when an entity has any.
	EntityGroup = 1
	// TransformBinding is the binding of the transform uniform inside GlobalGroup.
	TransformBinding = 0
)

// Scene owns every device resource needed to draw: the transform uniform and its bind group, the depth and
// auxiliary targets sized to the surface, and the render entities. The device and queue are borrowed.
type Scene interface {
	// Label returns the label prefix of the scene's device objects.
	Label() string

	// Camera returns the camera that feeds the transform uniform.
	Camera() camera.Camera

	// Size returns the current width and height of the size-dependent targets.
	//
	// Returns:
	//   - uint32: the width in pixels
	//   - uint32: the height in pixels
	Size() (uint32, uint32)

	// Globals returns the provider holding the transform uniform and the global bind group.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the global resources
	Globals() bind_group_provider.BindGroupProvider

	// UniformBuffer returns the transform uniform buffer.
	UniformBuffer() gpu.Buffer

	// DepthTexture returns the depth attachment texture.
	DepthTexture() gpu.Texture

	// DepthView returns the view used as the depth/stencil attachment.
	DepthView() gpu.TextureView

	// AuxTexture returns the auxiliary normals target.
	AuxTexture() gpu.Texture

	// AuxView returns the view onto the auxiliary normals target.
	AuxView() gpu.TextureView

	// Entities returns the render entities in draw order.
	//
	// Returns:
	//   - []*RenderEntity: a copy of the entity list
	Entities() []*RenderEntity

	// AddEntity uploads a mesh and creates its pipeline using the scene's shaders. The upload copies are recorded
	// into the returned command buffer, which must be submitted before the entity is drawn.
	//
	// Parameters:
	//   - name: the entity name
	//   - m: the mesh to upload
	//   - topology: strip or indexed list
	//
	// Returns:
	//   - *RenderEntity: the new entity
	//   - gpu.CommandBuffer: the upload commands
	//   - error: a wrapped ErrResourceAllocation on device failure
	AddEntity(name string, m *mesh.Mesh, topology mesh.Topology) (*RenderEntity, gpu.CommandBuffer, error)

	// Resize recreates the depth and auxiliary targets at the new size. Calling it with the current size is a
	// no-op. Vertex buffers, the uniform buffer and pipelines are untouched.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - error: gpu.ErrZeroSize for an empty size, or a wrapped ErrResourceAllocation
	Resize(width, height uint32) error

	// UpdateTransform recomputes the camera transform for aspect and writes it to the uniform buffer.
	//
	// Parameters:
	//   - aspect: the viewport width divided by its height
	//
	// Returns:
	//   - error: camera.ErrInvalidAspect for a degenerate aspect, or the queue error
	UpdateTransform(aspect float32) error

	// ReleaseStaging frees the staging buffers of completed uploads. Call after the upload commands were submitted.
	ReleaseStaging()

	// Release frees every resource the scene owns.
	Release()
}

type scene struct {
	mu sync.RWMutex

	device gpu.Device
	logger *slog.Logger
	label  string

	level        int
	indexed      bool
	instances    uint32
	shaderFS     fs.FS
	vertexName   string
	fragmentName string
	entryPoint   string
	colorFormat  wgpu.TextureFormat
	pipelineOpts []pipeline.PipelineBuilderOption

	camera     camera.Camera
	packer     mesh.Packer
	ownsPacker bool

	vertexShader   shader.Shader
	fragmentShader shader.Shader

	width, height uint32
	globals       bind_group_provider.BindGroupProvider
	depthTexture  gpu.Texture
	depthView     gpu.TextureView
	auxTexture    gpu.Texture
	auxView       gpu.TextureView
	entities      []*RenderEntity
	staging       []gpu.Buffer
}

var _ Scene = &scene{}

// Build allocates the scene for a surface configuration: the transform uniform, the global bind group, the sphere
// vertex buffer uploaded through a staging buffer, the depth and auxiliary targets and the render pipeline.
// The staging copies are recorded into the returned command buffer, which the caller submits once.
//
// Parameters:
//   - device: the device to allocate on
//   - cfg: the surface configuration the targets and pipeline must match
//   - options: the scene options
//
// Returns:
//   - Scene: the built scene
//   - gpu.CommandBuffer: the initial upload commands
//   - error: a degenerate-input error, a shader error, or a wrapped ErrResourceAllocation
func Build(device gpu.Device, cfg gpu.SurfaceConfiguration, options ...SceneBuilderOption) (Scene, gpu.CommandBuffer, error) {
	s := &scene{
		device:       device,
		logger:       slog.Default(),
		label:        "icosphere",
		vertexName:   shader.DefaultVertex,
		fragmentName: shader.DefaultFragment,
		colorFormat:  cfg.Format,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.shaderFS == nil {
		s.shaderFS = shader.Assets()
	}
	if s.camera == nil {
		s.camera = camera.NewCamera()
	}
	if s.colorFormat == wgpu.TextureFormatUndefined {
		s.colorFormat = wgpu.TextureFormatBGRA8UnormSrgb
	}

	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, nil, fmt.Errorf("build scene %dx%d: %w", cfg.Width, cfg.Height, gpu.ErrZeroSize)
	}
	sphere, err := mesh.Generate(s.level)
	if err != nil {
		return nil, nil, fmt.Errorf("build scene: %w", err)
	}
	if err := s.loadShaders(); err != nil {
		return nil, nil, err
	}
	if s.packer == nil {
		s.packer = mesh.NewPacker()
		s.ownsPacker = true
	}

	cmd, err := s.build(sphere, cfg.Width, cfg.Height)
	if err != nil {
		s.Release()
		return nil, nil, err
	}
	return s, cmd, nil
}

func (s *scene) build(sphere *mesh.Mesh, width, height uint32) (gpu.CommandBuffer, error) {
	aspect, err := camera.AspectRatio(width, height)
	if err != nil {
		return nil, err
	}
	if err := s.createGlobals(); err != nil {
		return nil, err
	}
	if err := s.UpdateTransform(aspect); err != nil {
		return nil, err
	}
	if err := s.createTargets(width, height); err != nil {
		return nil, err
	}

	enc, err := s.device.CreateCommandEncoder(s.label + " init")
	if err != nil {
		return nil, allocErr("command encoder", err)
	}
	defer enc.Release()

	topology := mesh.TopologyStrip
	if s.indexed {
		topology = mesh.TopologyIndexedList
	}
	entity, err := s.createEntity(enc, s.label, sphere, topology)
	if err != nil {
		return nil, err
	}
	entity.Instances = s.instances
	s.entities = append(s.entities, entity)

	cmd, err := enc.Finish()
	if err != nil {
		return nil, allocErr("initial command buffer", err)
	}
	s.logger.Info("scene built",
		"label", s.label,
		"level", s.level,
		"topology", topology.String(),
		"triangles", sphere.TriangleCount(),
		"vertices", entity.Resources.VertexCount(),
		"bytes", entity.Resources.VertexBuffer().Size(),
		"width", width,
		"height", height,
	)
	return cmd, nil
}

func (s *scene) loadShaders() error {
	vs, err := shader.Load(s.shaderFS, s.vertexName, shader.ShaderTypeVertex, s.entryPoint)
	if err != nil {
		return fmt.Errorf("load vertex shader: %w", err)
	}
	frag, err := shader.Load(s.shaderFS, s.fragmentName, shader.ShaderTypeFragment, s.entryPoint)
	if err != nil {
		return fmt.Errorf("load fragment shader: %w", err)
	}
	if r := vs.Reflection(); r != nil {
		if err := r.CheckVertexLayout(mesh.VertexLayout()); err != nil {
			return fmt.Errorf("vertex shader %s: %w", vs.Key(), err)
		}
		var u camera.GPUTransformUniform
		if err := r.CheckUniform(GlobalGroup, TransformBinding, uint64(u.Size())); err != nil {
			return fmt.Errorf("vertex shader %s: %w", vs.Key(), err)
		}
	}
	s.vertexShader = vs
	s.fragmentShader = frag
	return nil
}

func (s *scene) createGlobals() error {
	var u camera.GPUTransformUniform
	buf, err := s.device.CreateBuffer(&gpu.BufferDescriptor{
		Label: s.label + " uniform",
		Size:  uint64(u.Size()),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return allocErr("uniform buffer", err)
	}
	s.globals = bind_group_provider.NewBindGroupProvider(s.label+" globals",
		bind_group_provider.WithBuffer(TransformBinding, buf),
	)
	if err := s.globals.Init(s.device, globalLayout()); err != nil {
		return allocErr("global bind group", err)
	}
	return nil
}

// globalLayout declares the transform uniform, visible to the vertex stage.
func globalLayout() *wgpu.BindGroupLayoutDescriptor {
	var u camera.GPUTransformUniform
	return &wgpu.BindGroupLayoutDescriptor{
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    TransformBinding,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:             wgpu.BufferBindingTypeUniform,
					HasDynamicOffset: false,
					MinBindingSize:   uint64(u.Size()),
				},
			},
		},
	}
}

// createTargets allocates a depth and an auxiliary target pair. The previous pair is released only after both
// new textures exist.
func (s *scene) createTargets(width, height uint32) (err error) {
	var created []interface{ Release() }
	defer func() {
		if err != nil {
			for _, r := range created {
				r.Release()
			}
		}
	}()

	depth, err := s.device.CreateTexture(&gpu.TextureDescriptor{
		Label:  s.label + " depth",
		Width:  width,
		Height: height,
		Format: DepthFormat,
		Usage:  wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return allocErr("depth texture", err)
	}
	created = append(created, depth)
	depthView, err := depth.CreateView()
	if err != nil {
		return allocErr("depth texture view", err)
	}
	created = append(created, depthView)

	aux, err := s.device.CreateTexture(&gpu.TextureDescriptor{
		Label:  s.label + " normals",
		Width:  width,
		Height: height,
		Format: AuxFormat,
		Usage:  wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return allocErr("auxiliary texture", err)
	}
	created = append(created, aux)
	auxView, err := aux.CreateView()
	if err != nil {
		return allocErr("auxiliary texture view", err)
	}

	s.releaseTargets()
	s.depthTexture, s.depthView = depth, depthView
	s.auxTexture, s.auxView = aux, auxView
	s.width, s.height = width, height
	return nil
}

func (s *scene) releaseTargets() {
	for _, r := range []interface{ Release() }{s.depthView, s.depthTexture, s.auxView, s.auxTexture} {
		if r != nil {
			r.Release()
		}
	}
	s.depthView, s.depthTexture, s.auxView, s.auxTexture = nil, nil, nil, nil
}

// createEntity uploads m through staging buffers and creates the entity's pipeline. Copies are recorded into enc.
func (s *scene) createEntity(enc gpu.CommandEncoder, name string, m *mesh.Mesh, topology mesh.Topology) (entity *RenderEntity, err error) {
	resources := bind_group_provider.NewBindGroupProvider(name)
	defer func() {
		if err != nil {
			resources.Release()
		}
	}()

	var vertices []mesh.Vertex
	switch topology {
	case mesh.TopologyIndexedList:
		vertices = m.Vertices
	default:
		vertices = m.Strip()
	}
	if len(vertices) == 0 {
		return nil, fmt.Errorf("entity %q: mesh has no vertices", name)
	}

	vbuf, err := s.upload(enc, name+" vertices", s.packer.Encode(vertices), wgpu.BufferUsageVertex)
	if err != nil {
		return nil, allocErr("vertex buffer", err)
	}
	resources.SetVertexBuffer(vbuf, len(vertices))

	if topology == mesh.TopologyIndexedList {
		ibuf, err := s.upload(enc, name+" indices", mesh.EncodeIndices(m.Indices), wgpu.BufferUsageIndex)
		if err != nil {
			return nil, allocErr("index buffer", err)
		}
		resources.SetIndexBuffer(ibuf, len(m.Indices), wgpu.IndexFormatUint32)
	}

	wgpuTopology := wgpu.PrimitiveTopologyTriangleStrip
	if topology == mesh.TopologyIndexedList {
		wgpuTopology = wgpu.PrimitiveTopologyTriangleList
	}
	opts := []pipeline.PipelineBuilderOption{
		pipeline.WithVertexShader(s.vertexShader),
		pipeline.WithFragmentShader(s.fragmentShader),
		pipeline.WithVertexLayouts(mesh.VertexLayout()),
		pipeline.WithColorFormat(s.colorFormat),
		pipeline.WithDepthFormat(DepthFormat),
		pipeline.WithTopology(wgpuTopology),
	}
	p := pipeline.NewPipeline(name+" pipeline", append(opts, s.pipelineOpts...)...)
	if err := p.Create(s.device, []gpu.BindGroupLayout{s.globals.BindGroupLayout()}); err != nil {
		return nil, allocErr("render pipeline", err)
	}

	return &RenderEntity{
		Name:      name,
		Topology:  topology,
		Resources: resources,
		Pipeline:  p,
	}, nil
}

// upload creates a host-written staging buffer holding data and a device-local buffer with the given usage, and
// records the copy between them.
func (s *scene) upload(enc gpu.CommandEncoder, label string, data []byte, usage wgpu.BufferUsage) (gpu.Buffer, error) {
	staging, err := s.device.CreateBufferInit(&gpu.BufferInitDescriptor{
		Label:    label + " staging",
		Contents: data,
		Usage:    wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		return nil, err
	}
	s.staging = append(s.staging, staging)

	dst, err := s.device.CreateBuffer(&gpu.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	if err := enc.CopyBufferToBuffer(staging, 0, dst, 0, uint64(len(data))); err != nil {
		dst.Release()
		return nil, err
	}
	return dst, nil
}

func allocErr(resource string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrResourceAllocation, resource, err)
}

func (s *scene) Label() string {
	return s.label
}

func (s *scene) Camera() camera.Camera {
	return s.camera
}

func (s *scene) Size() (uint32, uint32) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.width, s.height
}

func (s *scene) Globals() bind_group_provider.BindGroupProvider {
	return s.globals
}

func (s *scene) UniformBuffer() gpu.Buffer {
	if s.globals == nil {
		return nil
	}
	return s.globals.Buffer(TransformBinding)
}

func (s *scene) DepthTexture() gpu.Texture {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.depthTexture
}

func (s *scene) DepthView() gpu.TextureView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.depthView
}

func (s *scene) AuxTexture() gpu.Texture {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.auxTexture
}

func (s *scene) AuxView() gpu.TextureView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.auxView
}

func (s *scene) Entities() []*RenderEntity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*RenderEntity, len(s.entities))
	copy(out, s.entities)
	return out
}

func (s *scene) AddEntity(name string, m *mesh.Mesh, topology mesh.Topology) (*RenderEntity, gpu.CommandBuffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	enc, err := s.device.CreateCommandEncoder(name + " upload")
	if err != nil {
		return nil, nil, allocErr("command encoder", err)
	}
	defer enc.Release()

	entity, err := s.createEntity(enc, name, m, topology)
	if err != nil {
		return nil, nil, err
	}
	cmd, err := enc.Finish()
	if err != nil {
		entity.Release()
		return nil, nil, allocErr("upload command buffer", err)
	}
	s.entities = append(s.entities, entity)
	s.logger.Debug("entity added", "name", name, "topology", topology.String(), "draw_count", entity.DrawCount())
	return entity, cmd, nil
}

func (s *scene) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("resize scene to %dx%d: %w", width, height, gpu.ErrZeroSize)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if width == s.width && height == s.height && s.depthTexture != nil && s.auxTexture != nil {
		return nil
	}
	if err := s.createTargets(width, height); err != nil {
		return err
	}
	s.logger.Debug("scene targets recreated", "label", s.label, "width", width, "height", height)
	return nil
}

func (s *scene) UpdateTransform(aspect float32) error {
	u, err := s.camera.Uniform(aspect)
	if err != nil {
		return err
	}
	write := bind_group_provider.BufferWrite{
		Provider: s.globals,
		Binding:  TransformBinding,
		Data:     u.Marshal(),
	}
	if err := write.Apply(s.device.Queue()); err != nil {
		return fmt.Errorf("update transform: %w", err)
	}
	return nil
}

func (s *scene) ReleaseStaging() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.staging {
		b.Release()
	}
	s.staging = nil
}

func (s *scene) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entities {
		e.Release()
	}
	s.entities = nil
	for _, b := range s.staging {
		b.Release()
	}
	s.staging = nil
	s.releaseTargets()
	if s.globals != nil {
		s.globals.Release()
		s.globals = nil
	}
	if s.ownsPacker && s.packer != nil {
		s.packer.Close()
		s.packer = nil
	}
}
