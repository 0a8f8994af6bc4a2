// Package gputest provides an in-memory implementation of the gpu device capability interface. It performs no
// rendering; it records every allocation, write, encoded command and submission so tests can assert on them, and it
// can inject failures into any creation call.
package gputest

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-icosphere/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// Op names a Device call that can be made to fail with Device.FailOn.
type Op string

const (
	OpCreateBuffer          Op = "CreateBuffer"
	OpCreateBufferInit      Op = "CreateBufferInit"
	OpCreateTexture         Op = "CreateTexture"
	OpCreateBindGroupLayout Op = "CreateBindGroupLayout"
	OpCreateBindGroup       Op = "CreateBindGroup"
	OpCreatePipelineLayout  Op = "CreatePipelineLayout"
	OpCreateShaderModule    Op = "CreateShaderModule"
	OpCreateRenderPipeline  Op = "CreateRenderPipeline"
	OpCreateCommandEncoder  Op = "CreateCommandEncoder"
)

// ErrInjected is the default error returned by injected failures.
var ErrInjected = errors.New("gputest: injected failure")

type failure struct {
	op    Op
	label string
	err   error
}

// Device is a recording gpu.Device.
type Device struct {
	mu *sync.Mutex

	Buffers          []*Buffer
	Textures         []*Texture
	BindGroupLayouts []*BindGroupLayout
	BindGroups       []*BindGroup
	PipelineLayouts  []*PipelineLayout
	ShaderModules    []*ShaderModule
	Pipelines        []*RenderPipeline
	Encoders         []*CommandEncoder

	queue    *Queue
	failures []failure

	// Released is set by Release.
	Released bool
}

var _ gpu.Device = &Device{}

// NewDevice creates an empty recording device.
func NewDevice() *Device {
	return &Device{
		mu:    &sync.Mutex{},
		queue: &Queue{mu: &sync.Mutex{}},
	}
}

// FailOn makes every call of op whose label contains labelSubstr return err. An empty labelSubstr matches all
// labels and a nil err means ErrInjected.
func (d *Device) FailOn(op Op, labelSubstr string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		err = ErrInjected
	}
	d.failures = append(d.failures, failure{op: op, label: labelSubstr, err: err})
}

func (d *Device) check(op Op, label string) error {
	for _, f := range d.failures {
		if f.op == op && strings.Contains(label, f.label) {
			return fmt.Errorf("%s %q: %w", op, label, f.err)
		}
	}
	return nil
}

// TexturesLabeled returns every texture created with the given label, oldest first.
func (d *Device) TexturesLabeled(label string) []*Texture {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*Texture
	for _, t := range d.Textures {
		if t.Desc.Label == label {
			out = append(out, t)
		}
	}
	return out
}

// BuffersLabeled returns every buffer created with the given label, oldest first.
func (d *Device) BuffersLabeled(label string) []*Buffer {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*Buffer
	for _, b := range d.Buffers {
		if b.label == label {
			out = append(out, b)
		}
	}
	return out
}

// LiveTextures returns the textures that have not been released.
func (d *Device) LiveTextures() []*Texture {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*Texture
	for _, t := range d.Textures {
		if !t.Released {
			out = append(out, t)
		}
	}
	return out
}

func (d *Device) CreateBuffer(desc *gpu.BufferDescriptor) (gpu.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(OpCreateBuffer, desc.Label); err != nil {
		return nil, err
	}
	b := &Buffer{label: desc.Label, size: desc.Size, usage: desc.Usage, Data: make([]byte, desc.Size)}
	d.Buffers = append(d.Buffers, b)
	return b, nil
}

func (d *Device) CreateBufferInit(desc *gpu.BufferInitDescriptor) (gpu.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(OpCreateBufferInit, desc.Label); err != nil {
		return nil, err
	}
	data := make([]byte, len(desc.Contents))
	copy(data, desc.Contents)
	b := &Buffer{label: desc.Label, size: uint64(len(data)), usage: desc.Usage, Data: data, Initialized: true}
	d.Buffers = append(d.Buffers, b)
	return b, nil
}

func (d *Device) CreateTexture(desc *gpu.TextureDescriptor) (gpu.Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(OpCreateTexture, desc.Label); err != nil {
		return nil, err
	}
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("gputest: texture %q has zero extent %dx%d", desc.Label, desc.Width, desc.Height)
	}
	t := &Texture{Desc: *desc}
	d.Textures = append(d.Textures, t)
	return t, nil
}

func (d *Device) CreateBindGroupLayout(desc *wgpu.BindGroupLayoutDescriptor) (gpu.BindGroupLayout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(OpCreateBindGroupLayout, desc.Label); err != nil {
		return nil, err
	}
	l := &BindGroupLayout{Desc: *desc}
	d.BindGroupLayouts = append(d.BindGroupLayouts, l)
	return l, nil
}

func (d *Device) CreateBindGroup(desc *gpu.BindGroupDescriptor) (gpu.BindGroup, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(OpCreateBindGroup, desc.Label); err != nil {
		return nil, err
	}
	if desc.Layout == nil {
		return nil, fmt.Errorf("gputest: bind group %q has no layout", desc.Label)
	}
	g := &BindGroup{Desc: *desc}
	d.BindGroups = append(d.BindGroups, g)
	return g, nil
}

func (d *Device) CreatePipelineLayout(desc *gpu.PipelineLayoutDescriptor) (gpu.PipelineLayout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(OpCreatePipelineLayout, desc.Label); err != nil {
		return nil, err
	}
	l := &PipelineLayout{Desc: *desc}
	d.PipelineLayouts = append(d.PipelineLayouts, l)
	return l, nil
}

func (d *Device) CreateShaderModule(desc *gpu.ShaderModuleDescriptor) (gpu.ShaderModule, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(OpCreateShaderModule, desc.Label); err != nil {
		return nil, err
	}
	m := &ShaderModule{Desc: *desc}
	d.ShaderModules = append(d.ShaderModules, m)
	return m, nil
}

func (d *Device) CreateRenderPipeline(desc *gpu.RenderPipelineDescriptor) (gpu.RenderPipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(OpCreateRenderPipeline, desc.Label); err != nil {
		return nil, err
	}
	p := &RenderPipeline{Desc: *desc}
	d.Pipelines = append(d.Pipelines, p)
	return p, nil
}

func (d *Device) CreateCommandEncoder(label string) (gpu.CommandEncoder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check(OpCreateCommandEncoder, label); err != nil {
		return nil, err
	}
	e := &CommandEncoder{Label: label}
	d.Encoders = append(d.Encoders, e)
	return e, nil
}

func (d *Device) Queue() gpu.Queue {
	return d.queue
}

func (d *Device) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Released = true
}

// RecordingQueue returns the concrete recording queue for assertions.
func (d *Device) RecordingQueue() *Queue {
	return d.queue
}
