package batch

import (
	_ "embed"
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// Embedded glyph shader source.
//
//go:embed shaders/glyph.wgsl
var glyphShaderSource string

var (
	// ErrShaderCompile reports a glyph shader that failed to compile.
	// Fatal: the engine cannot draw text without its one pipeline.
	ErrShaderCompile = errors.New("batch: glyph shader compilation failed")

	// ErrNoActiveFrame is returned when Submit is called outside a
	// BeginFrame/EndFrame pair.
	ErrNoActiveFrame = errors.New("batch: no active frame, call BeginFrame first")
)

// Pipeline owns the GPU resources behind glyph batch submission: the
// compiled shader, render pipeline, sampler, atlas texture, and the
// shared index buffer. It implements Submitter by recording one indexed
// draw per batch into the frame's render pass.
//
// Per-batch vertex and uniform buffers live for one frame and are
// released in EndFrame after the queue submission that consumes them.
type Pipeline struct {
	device hal.Device
	queue  hal.Queue

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.RenderPipeline
	sampler    hal.Sampler

	atlasTex  hal.Texture
	atlasView hal.TextureView
	atlasSize int

	// idxBuf holds the shared index table for maxQuads quads, uploaded
	// once at init. Every batch draws a prefix of it.
	idxBuf   hal.Buffer
	maxQuads int

	// Active frame state.
	rp           hal.RenderPassEncoder
	viewW, viewH float32

	// Resources created during the active frame, released in EndFrame.
	frameBuffers []hal.Buffer
	frameBinds   []hal.BindGroup
}

// NewPipeline compiles the glyph shader and creates every long-lived GPU
// resource. indexData must cover maxQuads quads (see BuildIndexData);
// atlasSize is the edge length of the atlas page in pixels.
func NewPipeline(device hal.Device, queue hal.Queue, atlasSize, maxQuads int, indexData []byte) (*Pipeline, error) {
	p := &Pipeline{
		device:    device,
		queue:     queue,
		atlasSize: atlasSize,
		maxQuads:  maxQuads,
	}
	if err := p.init(indexData); err != nil {
		p.Destroy()
		return nil, err
	}
	return p, nil
}

func (p *Pipeline) init(indexData []byte) error {
	// Compile WGSL to SPIR-V words up front so a broken shader fails
	// engine construction instead of the first frame.
	spirv, err := compileShader(glyphShaderSource)
	if err != nil {
		return err
	}
	shader, err := p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "glyph_shader",
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return fmt.Errorf("%w: create module: %v", ErrShaderCompile, err)
	}
	p.shader = shader

	// Bind group layout:
	//   Binding 0: GlyphUniforms (uniform buffer, vertex+fragment)
	//   Binding 1: glyph atlas texture (texture_2d, fragment)
	//   Binding 2: sampler (fragment)
	bindLayout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "glyph_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create glyph bind layout: %w", err)
	}
	p.bindLayout = bindLayout

	pipeLayout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "glyph_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create glyph pipeline layout: %w", err)
	}
	p.pipeLayout = pipeLayout

	// Glyph cells land on pixel boundaries, so nearest filtering keeps
	// edges crisp and never bleeds neighboring atlas rows in.
	sampler, err := p.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "glyph_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeNearest,
		MinFilter:    gputypes.FilterModeNearest,
		MipmapFilter: gputypes.FilterModeNearest,
	})
	if err != nil {
		return fmt.Errorf("create glyph sampler: %w", err)
	}
	p.sampler = sampler

	premulBlend := gputypes.BlendStatePremultiplied()
	pipeline, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "glyph_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: "vs_main",
			Buffers:    glyphVertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    gputypes.TextureFormatBGRA8Unorm,
					Blend:     &premulBlend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("create glyph pipeline: %w", err)
	}
	p.pipeline = pipeline

	// Single-channel atlas page: the shader reads coverage from .r.
	size := uint32(p.atlasSize) //nolint:gosec // page size always fits uint32
	atlasTex, err := p.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "glyph_atlas",
		Size:          hal.Extent3D{Width: size, Height: size, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatR8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create glyph atlas texture: %w", err)
	}
	p.atlasTex = atlasTex

	atlasView, err := p.device.CreateTextureView(atlasTex, &hal.TextureViewDescriptor{
		Label:         "glyph_atlas_view",
		Format:        gputypes.TextureFormatR8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		return fmt.Errorf("create glyph atlas view: %w", err)
	}
	p.atlasView = atlasView

	idxBuf, err := p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "glyph_indices",
		Size:  uint64(len(indexData)),
		Usage: gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create glyph index buffer: %w", err)
	}
	p.idxBuf = idxBuf
	p.queue.WriteBuffer(idxBuf, 0, indexData)

	slogger().Debug("glyph pipeline ready",
		"atlasSize", p.atlasSize,
		"maxQuads", p.maxQuads,
		"indexBytes", len(indexData))
	return nil
}

// UploadAtlas copies the atlas alpha page to the GPU texture. Called
// when the atlas reports itself dirty, before the frame's render pass.
func (p *Pipeline) UploadAtlas(img *image.Alpha) {
	size := uint32(p.atlasSize) //nolint:gosec // page size always fits uint32
	p.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: p.atlasTex, MipLevel: 0},
		img.Pix,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: size, RowsPerImage: size},
		&hal.Extent3D{Width: size, Height: size, DepthOrArrayLayers: 1},
	)
}

// BeginFrame binds the render pass that this frame's batches record
// into. The viewport size feeds the pixel-to-clip transform.
func (p *Pipeline) BeginFrame(rp hal.RenderPassEncoder, viewW, viewH float32) {
	p.rp = rp
	p.viewW = viewW
	p.viewH = viewH
}

// Submit records one indexed draw for the batch: upload vertices and
// uniforms, bind, draw 6 indices per quad from the shared table.
func (p *Pipeline) Submit(b *Batch) error {
	if p.rp == nil {
		return ErrNoActiveFrame
	}
	n := len(b.Quads)
	if n == 0 {
		return nil
	}
	if n > p.maxQuads {
		return fmt.Errorf("batch: %d quads exceeds pipeline capacity %d", n, p.maxQuads)
	}

	vertexData := BuildVertexData(b.Quads)
	vertBuf, err := p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "glyph_vertices",
		Size:  uint64(len(vertexData)),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create vertex buffer: %w", err)
	}
	p.frameBuffers = append(p.frameBuffers, vertBuf)
	p.queue.WriteBuffer(vertBuf, 0, vertexData)

	uniformData := BuildUniform(p.viewW, p.viewH, b.Color, b.Opacity, float32(p.atlasSize))
	uniformBuf, err := p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "glyph_uniforms",
		Size:  uniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create uniform buffer: %w", err)
	}
	p.frameBuffers = append(p.frameBuffers, uniformBuf)
	p.queue.WriteBuffer(uniformBuf, 0, uniformData)

	bind, err := p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "glyph_bind",
		Layout: p.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: uniformBuf.NativeHandle(), Offset: 0, Size: uniformSize,
			}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{
				TextureView: p.atlasView.NativeHandle(),
			}},
			{Binding: 2, Resource: gputypes.SamplerBinding{
				Sampler: p.sampler.NativeHandle(),
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("create glyph bind group: %w", err)
	}
	p.frameBinds = append(p.frameBinds, bind)

	p.rp.SetPipeline(p.pipeline)
	p.rp.SetBindGroup(0, bind, nil)
	p.rp.SetVertexBuffer(0, vertBuf, 0)
	p.rp.SetIndexBuffer(p.idxBuf, gputypes.IndexFormatUint16, 0)
	p.rp.DrawIndexed(uint32(n*indicesPerQuad), 1, 0, 0, 0) //nolint:gosec // n bounded by maxQuads
	return nil
}

// EndFrame releases the per-batch resources created since BeginFrame.
// Call it after the queue submission that consumes them completes.
func (p *Pipeline) EndFrame() {
	p.rp = nil
	for _, bg := range p.frameBinds {
		p.device.DestroyBindGroup(bg)
	}
	p.frameBinds = p.frameBinds[:0]
	for _, buf := range p.frameBuffers {
		p.device.DestroyBuffer(buf)
	}
	p.frameBuffers = p.frameBuffers[:0]
}

// Destroy releases every GPU resource in reverse creation order. Safe on
// a partially constructed pipeline.
func (p *Pipeline) Destroy() {
	if p.device == nil {
		return
	}
	p.EndFrame()
	if p.idxBuf != nil {
		p.device.DestroyBuffer(p.idxBuf)
		p.idxBuf = nil
	}
	if p.atlasView != nil {
		p.device.DestroyTextureView(p.atlasView)
		p.atlasView = nil
	}
	if p.atlasTex != nil {
		p.device.DestroyTexture(p.atlasTex)
		p.atlasTex = nil
	}
	if p.pipeline != nil {
		p.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.sampler != nil {
		p.device.DestroySampler(p.sampler)
		p.sampler = nil
	}
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.bindLayout != nil {
		p.device.DestroyBindGroupLayout(p.bindLayout)
		p.bindLayout = nil
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}

// compileShader compiles WGSL source to SPIR-V words.
func compileShader(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShaderCompile, err)
	}
	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

// glyphVertexLayout returns the vertex buffer layout for the glyph
// pipeline. Matches VertexInput in glyph.wgsl:
//
//	location 0: position (vec2<f32>)
//	location 1: tex_coord (vec2<f32>)
func glyphVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: vertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
				{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
			},
		},
	}
}
