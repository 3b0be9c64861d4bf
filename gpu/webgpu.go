package gpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/pointstate/gpu/shaders"
	"github.com/gekko3d/pointstate/logging"
	"github.com/google/uuid"
)

const (
	texelBytes   = 16 // RGBA32Float
	rowAlignment = 256
	targetFormat = wgpu.TextureFormatRGBA32Float
	drawVertices = 6
	viewBinding  = 0
	firstTexture = 1
)

// WebGPUDevice runs the WGSL programs on a wgpu device.
type WebGPUDevice struct {
	Device *wgpu.Device
	Queue  *wgpu.Queue
	Format wgpu.TextureFormat

	mu        sync.Mutex
	targets   map[uuid.UUID]*webgpuTarget
	frameView *wgpu.TextureView
	log       logging.Logger
}

type webgpuTarget struct {
	id      uuid.UUID
	label   string
	size    int
	texture *wgpu.Texture
	view    *wgpu.TextureView
	device  *WebGPUDevice
}

func (t *webgpuTarget) ID() uuid.UUID { return t.id }
func (t *webgpuTarget) Label() string { return t.label }
func (t *webgpuTarget) Size() int     { return t.size }

func (t *webgpuTarget) Release() {
	t.device.mu.Lock()
	_, live := t.device.targets[t.id]
	delete(t.device.targets, t.id)
	t.device.mu.Unlock()
	if !live {
		return
	}
	t.view.Release()
	t.texture.Release()
}

// NewWebGPUDevice wraps device. format is the format of the surface the
// draw program renders into.
func NewWebGPUDevice(device *wgpu.Device, format wgpu.TextureFormat, log logging.Logger) *WebGPUDevice {
	return &WebGPUDevice{
		Device:  device,
		Queue:   device.GetQueue(),
		Format:  format,
		targets: make(map[uuid.UUID]*webgpuTarget),
		log:     logging.Scoped(log, "webgpu"),
	}
}

// SetFrameView sets the surface view the next draws render into. Draws
// without a frame view are skipped.
func (d *WebGPUDevice) SetFrameView(view *wgpu.TextureView) {
	d.frameView = view
}

func (d *WebGPUDevice) CreateTarget(label string, size int, data []float32) (Target, error) {
	if size <= 0 {
		return nil, fmt.Errorf("create target %q: invalid size %d", label, size)
	}
	if err := checkData(size, data); err != nil {
		return nil, fmt.Errorf("create target %q: %w", label, err)
	}

	id := uuid.New()
	texture, err := d.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         fmt.Sprintf("%s %s", label, id),
		Size:          wgpu.Extent3D{Width: uint32(size), Height: uint32(size), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        targetFormat,
		Usage: wgpu.TextureUsageTextureBinding | wgpu.TextureUsageStorageBinding |
			wgpu.TextureUsageCopySrc | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create target %q: %w", label, err)
	}
	view, err := texture.CreateView(&wgpu.TextureViewDescriptor{
		Format:          targetFormat,
		Dimension:       wgpu.TextureViewDimension2D,
		BaseMipLevel:    0,
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: 1,
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		texture.Release()
		return nil, fmt.Errorf("create target %q: %w", label, err)
	}

	t := &webgpuTarget{id: id, label: label, size: size, texture: texture, view: view, device: d}
	d.mu.Lock()
	d.targets[id] = t
	d.mu.Unlock()

	if data == nil {
		data = make([]float32, texelCount(size))
	}
	if err := d.upload(t, data); err != nil {
		t.Release()
		return nil, err
	}
	d.log.Debugf("created target %s (%dx%d)", label, size, size)
	return t, nil
}

func (d *WebGPUDevice) lookup(t Target) (*webgpuTarget, error) {
	wt, ok := t.(*webgpuTarget)
	if !ok || wt.device != d {
		return nil, ErrForeignTarget
	}
	d.mu.Lock()
	_, live := d.targets[wt.id]
	d.mu.Unlock()
	if !live {
		return nil, fmt.Errorf("target %q: %w", wt.label, ErrReleased)
	}
	return wt, nil
}

func (d *WebGPUDevice) upload(t *webgpuTarget, data []float32) error {
	size := uint32(t.size)
	extent := wgpu.Extent3D{Width: size, Height: size, DepthOrArrayLayers: 1}
	err := d.Queue.WriteTexture(t.texture.AsImageCopy(), wgpu.ToBytes(data), &wgpu.TextureDataLayout{
		Offset:       0,
		BytesPerRow:  size * texelBytes,
		RowsPerImage: size,
	}, &extent)
	if err != nil {
		return fmt.Errorf("write target %q: %w", t.label, err)
	}
	return nil
}

func (d *WebGPUDevice) WriteTarget(t Target, data []float32) error {
	wt, err := d.lookup(t)
	if err != nil {
		return err
	}
	if len(data) != texelCount(wt.size) {
		return fmt.Errorf("write target %q: %w", wt.label, ErrSizeMismatch)
	}
	return d.upload(wt, data)
}

// ReadTarget copies t into a mappable buffer and blocks until the copy is
// mapped. Rows are padded to 256 bytes on the GPU side and unpacked here.
func (d *WebGPUDevice) ReadTarget(t Target) ([]float32, error) {
	wt, err := d.lookup(t)
	if err != nil {
		return nil, err
	}

	size := uint32(wt.size)
	bytesPerRow := (size*texelBytes + rowAlignment - 1) & ^uint32(rowAlignment-1)
	readback, err := d.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: wt.label + " readback",
		Size:  uint64(bytesPerRow * size),
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	})
	if err != nil {
		return nil, fmt.Errorf("read target %q: %w", wt.label, err)
	}
	defer readback.Release()

	encoder, err := d.Device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("read target %q: %w", wt.label, err)
	}
	encoder.CopyTextureToBuffer(
		wt.texture.AsImageCopy(),
		&wgpu.ImageCopyBuffer{
			Buffer: readback,
			Layout: wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  bytesPerRow,
				RowsPerImage: size,
			},
		},
		&wgpu.Extent3D{Width: size, Height: size, DepthOrArrayLayers: 1},
	)
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("read target %q: %w", wt.label, err)
	}
	d.Queue.Submit(cmd)

	var status wgpu.BufferMapAsyncStatus
	done := false
	readback.MapAsync(wgpu.MapModeRead, 0, readback.GetSize(), func(s wgpu.BufferMapAsyncStatus) {
		status = s
		done = true
	})
	for !done {
		d.Device.Poll(true, nil)
	}
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("read target %q: map failed with status %v", wt.label, status)
	}

	mapped := readback.GetMappedRange(0, uint(readback.GetSize()))
	out := make([]float32, texelCount(wt.size))
	for row := uint32(0); row < size; row++ {
		rowOffset := row * bytesPerRow
		for i := uint32(0); i < size*4; i++ {
			bits := binary.LittleEndian.Uint32(mapped[rowOffset+i*4:])
			out[row*size*4+i] = math.Float32frombits(bits)
		}
	}
	readback.Unmap()
	return out, nil
}

func (d *WebGPUDevice) shaderModule(name, code string) (*wgpu.ShaderModule, error) {
	module, err := d.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: code},
	})
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", name, err)
	}
	return module, nil
}

// bindGroupLayout builds the layout shared by every program: a uniform
// buffer at binding 0, then sampled textures, then an optional storage
// texture the pass writes into.
func (d *WebGPUDevice) bindGroupLayout(name string, stage wgpu.ShaderStage, sampled int, storage bool) (*wgpu.BindGroupLayout, error) {
	entries := []wgpu.BindGroupLayoutEntry{{
		Binding:    viewBinding,
		Visibility: stage,
		Buffer: wgpu.BufferBindingLayout{
			Type: wgpu.BufferBindingTypeUniform,
		},
	}}
	for i := 0; i < sampled; i++ {
		entries = append(entries, wgpu.BindGroupLayoutEntry{
			Binding:    uint32(firstTexture + i),
			Visibility: stage,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeUnfilterableFloat,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		})
	}
	if storage {
		entries = append(entries, wgpu.BindGroupLayoutEntry{
			Binding:    uint32(firstTexture + sampled),
			Visibility: stage,
			StorageTexture: wgpu.StorageTextureBindingLayout{
				Access:        wgpu.StorageTextureAccessWriteOnly,
				Format:        targetFormat,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		})
	}
	return d.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   name + " BGL",
		Entries: entries,
	})
}

// pass is the GPU state shared by compute and render commands.
type pass struct {
	device   *WebGPUDevice
	name     string
	layout   *wgpu.BindGroupLayout
	uniform  *wgpu.Buffer
	released bool
}

func (p *pass) bind(uniform []byte, targets []Target) (*wgpu.BindGroup, error) {
	entries := []wgpu.BindGroupEntry{{Binding: viewBinding, Buffer: p.uniform, Size: wgpu.WholeSize}}
	for i, t := range targets {
		wt, err := p.device.lookup(t)
		if err != nil {
			return nil, err
		}
		entries = append(entries, wgpu.BindGroupEntry{Binding: uint32(firstTexture + i), TextureView: wt.view})
	}
	if err := p.device.Queue.WriteBuffer(p.uniform, 0, uniform); err != nil {
		return nil, err
	}
	return p.device.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   p.name + " BG",
		Layout:  p.layout,
		Entries: entries,
	})
}

func (p *pass) release() {
	p.released = true
	p.uniform.Release()
	p.layout.Release()
}

func (d *WebGPUDevice) newPass(name string, layout *wgpu.BindGroupLayout, uniformSize uint64) (*pass, error) {
	uniform, err := d.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: name + " uniforms",
		Size:  uniformSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		layout.Release()
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &pass{device: d, name: name, layout: layout, uniform: uniform}, nil
}

type computeCommand[In any] struct {
	*pass
	pipeline *wgpu.ComputePipeline
	// inputs returns uniform bytes, bound targets in binding order with the
	// written target last, and the texture side to dispatch over.
	inputs func(In) ([]byte, []Target, uint32, error)
}

func (c *computeCommand[In]) Run(in In) error {
	if c.released {
		return fmt.Errorf("command %s: %w", c.name, ErrReleased)
	}
	uniform, targets, size, err := c.inputs(in)
	if err != nil {
		return fmt.Errorf("command %s: %w", c.name, err)
	}
	bg, err := c.bind(uniform, targets)
	if err != nil {
		return fmt.Errorf("command %s: %w", c.name, err)
	}
	defer bg.Release()

	encoder, err := c.device.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("command %s: %w", c.name, err)
	}
	cp := encoder.BeginComputePass(nil)
	cp.SetPipeline(c.pipeline)
	cp.SetBindGroup(0, bg, nil)
	groups := (size + shaders.WorkgroupSize - 1) / shaders.WorkgroupSize
	cp.DispatchWorkgroups(groups, groups, 1)
	if err := cp.End(); err != nil {
		return fmt.Errorf("command %s: %w", c.name, err)
	}
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("command %s: %w", c.name, err)
	}
	c.device.Queue.Submit(cmd)
	return nil
}

func (c *computeCommand[In]) Release() {
	if c.released {
		return
	}
	c.pipeline.Release()
	c.release()
}

func newComputeCommand[In any](d *WebGPUDevice, name, code string, sampled int, uniformSize uint64, inputs func(In) ([]byte, []Target, uint32, error)) (*computeCommand[In], error) {
	module, err := d.shaderModule(name, code)
	if err != nil {
		return nil, err
	}
	defer module.Release()

	bgl, err := d.bindGroupLayout(name, wgpu.ShaderStageCompute, sampled, true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	layout, err := d.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		bgl.Release()
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	defer layout.Release()

	pipeline, err := d.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  name + " pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: "main",
		},
	})
	if err != nil {
		bgl.Release()
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	p, err := d.newPass(name, bgl, uniformSize)
	if err != nil {
		pipeline.Release()
		return nil, err
	}
	return &computeCommand[In]{pass: p, pipeline: pipeline, inputs: inputs}, nil
}

func (d *WebGPUDevice) NewIntegrateCommand() (Command[IntegrateInputs], error) {
	return newComputeCommand(d, "integrate", shaders.IntegrateSource(), 2, simulationUniformSize,
		func(in IntegrateInputs) ([]byte, []Target, uint32, error) {
			if sameTarget(in.Target, in.Position) {
				return nil, nil, 0, ErrAliased
			}
			if err := matchSize(int(in.Simulation.TextureSize), in.Target, in.Position, in.Velocity); err != nil {
				return nil, nil, 0, err
			}
			return in.Simulation.uniformBytes(), []Target{in.Position, in.Velocity, in.Target}, in.Simulation.TextureSize, nil
		})
}

func pickInputs(in PickInputs) ([]byte, []Target, uint32, error) {
	if sameTarget(in.Target, in.Positions) || sameTarget(in.Target, in.Sizes) {
		return nil, nil, 0, ErrAliased
	}
	if err := matchSize(int(in.View.TextureSize), in.Target, in.Positions, in.Sizes); err != nil {
		return nil, nil, 0, err
	}
	return in.View.uniformBytes(), []Target{in.Positions, in.Sizes, in.Target}, in.View.TextureSize, nil
}

func (d *WebGPUDevice) NewPointPickCommand() (Command[PickInputs], error) {
	return newComputeCommand(d, "pick_point", shaders.PickPointSource(), 2, viewUniformSize, pickInputs)
}

func (d *WebGPUDevice) NewAreaPickCommand() (Command[PickInputs], error) {
	return newComputeCommand(d, "pick_area", shaders.PickAreaSource(), 2, viewUniformSize, pickInputs)
}

type drawCommand struct {
	*pass
	pipeline *wgpu.RenderPipeline
}

func (d *WebGPUDevice) NewDrawCommand() (Command[DrawInputs], error) {
	const name = "draw_points"
	module, err := d.shaderModule(name, shaders.DrawPointsSource())
	if err != nil {
		return nil, err
	}
	defer module.Release()

	bgl, err := d.bindGroupLayout(name, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, 4, false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	layout, err := d.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		bgl.Release()
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	defer layout.Release()

	pipeline, err := d.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  name + " pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    d.Format,
					WriteMask: wgpu.ColorWriteMaskAll,
					Blend: &wgpu.BlendState{
						Color: wgpu.BlendComponent{
							Operation: wgpu.BlendOperationAdd,
							SrcFactor: wgpu.BlendFactorSrcAlpha,
							DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						},
						Alpha: wgpu.BlendComponent{
							Operation: wgpu.BlendOperationAdd,
							SrcFactor: wgpu.BlendFactorOne,
							DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						},
					},
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count:                  1,
			Mask:                   0xFFFFFFFF,
			AlphaToCoverageEnabled: false,
		},
	})
	if err != nil {
		bgl.Release()
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	p, err := d.newPass(name, bgl, viewUniformSize)
	if err != nil {
		pipeline.Release()
		return nil, err
	}
	return &drawCommand{pass: p, pipeline: pipeline}, nil
}

func (c *drawCommand) Run(in DrawInputs) error {
	if c.released {
		return fmt.Errorf("command %s: %w", c.name, ErrReleased)
	}
	if c.device.frameView == nil {
		c.device.log.Warnf("%s skipped, no frame view", c.name)
		return nil
	}
	if in.View.Count == 0 {
		return nil
	}
	if err := matchSize(int(in.View.TextureSize), in.Positions, in.Colors, in.Sizes, in.Greyout); err != nil {
		return fmt.Errorf("command %s: %w", c.name, err)
	}
	bg, err := c.bind(in.View.uniformBytes(), []Target{in.Positions, in.Colors, in.Sizes, in.Greyout})
	if err != nil {
		return fmt.Errorf("command %s: %w", c.name, err)
	}
	defer bg.Release()

	encoder, err := c.device.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("command %s: %w", c.name, err)
	}
	rPass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    c.device.frameView,
			LoadOp:  wgpu.LoadOpLoad,
			StoreOp: wgpu.StoreOpStore,
		}},
	})
	rPass.SetPipeline(c.pipeline)
	rPass.SetBindGroup(0, bg, nil)
	rPass.Draw(drawVertices, in.View.Count, 0, 0)
	if err := rPass.End(); err != nil {
		return fmt.Errorf("command %s: %w", c.name, err)
	}
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("command %s: %w", c.name, err)
	}
	c.device.Queue.Submit(cmd)
	return nil
}

func (c *drawCommand) Release() {
	if c.released {
		return
	}
	c.pipeline.Release()
	c.release()
}
