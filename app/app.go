// Package app runs Points in a GLFW window on WebGPU: a ring force moves
// the particles, left click picks one, right drag picks an area, the
// wheel zooms and middle drag pans.
package app

import (
	"fmt"

	points "github.com/gekko3d/pointstate"
	"github.com/gekko3d/pointstate/gpu"
	"github.com/gekko3d/pointstate/logging"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

type App struct {
	Window   *glfw.Window
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Surface  *wgpu.Surface
	Config   *wgpu.SurfaceConfiguration

	GPU      *gpu.WebGPUDevice
	Points   *points.Points
	Settings *points.Config
	Store    *points.Store
	Data     *points.GraphData
	Camera   *Camera2D
	Force    RingForce
	Profiler *Profiler
	Log      logging.Logger

	Background wgpu.Color
	Paused     bool
	DebugMode  bool

	MouseX, MouseY float64
	dragStart      mgl32.Vec2
	areaDragging   bool
	panDragging    bool

	LastRenderTime float64
	FrameCount     int
	FPS            float64
	FPSTime        float64
}

func NewApp(window *glfw.Window, settings *points.Config, data *points.GraphData, log logging.Logger) *App {
	return &App{
		Window:     window,
		Settings:   settings,
		Data:       data,
		Store:      points.NewStore(settings.RandomSeed),
		Camera:     NewCamera2D(),
		Force:      DefaultRingForce(),
		Profiler:   NewProfiler(),
		Log:        logging.Scoped(log, "app"),
		Background: wgpu.Color{R: 0.07, G: 0.07, B: 0.09, A: 1},
	}
}

func (a *App) Init() error {
	a.Instance = wgpu.CreateInstance(nil)
	a.Surface = a.Instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(a.Window))

	adapter, err := a.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: a.Surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return err
	}
	a.Adapter = adapter

	a.Device, err = adapter.RequestDevice(nil)
	if err != nil {
		return err
	}

	width, height := a.Window.GetFramebufferSize()
	caps := a.Surface.GetCapabilities(adapter)
	a.Config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	a.Surface.Configure(adapter, a.Device, a.Config)

	a.GPU = gpu.NewWebGPUDevice(a.Device, a.Config.Format, a.Log)
	a.syncScreen()
	a.Store.SetTextureSizeFor(a.Data.Count())
	a.Camera.Apply(a.Store)

	a.Points = points.New(a.GPU, a.Settings, a.Store, a.Data, a.Log)
	if err := a.Points.Create(); err != nil {
		return fmt.Errorf("create points: %w", err)
	}
	a.Profiler.SetCount("particles", a.Data.Count())
	a.Profiler.SetCount("texture size", a.Store.TextureSize)
	return nil
}

// syncScreen derives the logical screen size and pixel ratio from the
// window and framebuffer sizes.
func (a *App) syncScreen() {
	w, h := a.Window.GetSize()
	fw, _ := a.Window.GetFramebufferSize()
	if w <= 0 || h <= 0 {
		return
	}
	a.Store.ScreenSize = mgl32.Vec2{float32(w), float32(h)}
	a.Settings.PixelRatio = float32(fw) / float32(w)
}

func (a *App) Resize(w, h int) {
	if w > 0 && h > 0 {
		a.Config.Width = uint32(w)
		a.Config.Height = uint32(h)
		a.Surface.Configure(a.Adapter, a.Device, a.Config)
		a.syncScreen()
	}
}

func (a *App) Update() {
	if a.Paused {
		return
	}
	err := a.Profiler.Measure("forces", func() error {
		return a.Force.Apply(a.GPU, a.Points, a.Data.Count(), a.Settings.SpaceSize)
	})
	if err != nil {
		a.Log.Errorf("%v", err)
		return
	}
	if err := a.Profiler.Measure("advance", a.Points.Advance); err != nil {
		a.Log.Errorf("%v", err)
	}
}

func (a *App) Render() {
	nextTexture, err := a.Surface.GetCurrentTexture()
	if err != nil {
		a.Log.Errorf("GetCurrentTexture failed: %v", err)
		return
	}
	defer nextTexture.Release()

	view, err := nextTexture.CreateView(nil)
	if err != nil {
		a.Log.Errorf("CreateView failed: %v", err)
		return
	}
	defer view.Release()

	if err := a.clear(view); err != nil {
		a.Log.Errorf("clear failed: %v", err)
		return
	}

	a.GPU.SetFrameView(view)
	if err := a.Profiler.Measure("draw", a.Points.Draw); err != nil {
		a.Log.Errorf("%v", err)
	}
	a.GPU.SetFrameView(nil)
	a.Surface.Present()

	now := glfw.GetTime()
	if a.LastRenderTime > 0 {
		a.FrameCount++
		a.FPSTime += now - a.LastRenderTime
		if a.FPSTime >= 1.0 {
			a.FPS = float64(a.FrameCount) / a.FPSTime
			a.FrameCount = 0
			a.FPSTime = 0
			if a.DebugMode {
				a.Log.Debugf("FPS %.1f\n%s", a.FPS, a.Profiler.GetStatsString())
			}
			a.Profiler.Reset()
		}
	}
	a.LastRenderTime = now
}

func (a *App) clear(view *wgpu.TextureView) error {
	encoder, err := a.Device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	rPass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: a.Background,
		}},
	})
	if err := rPass.End(); err != nil {
		return err
	}
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	a.GPU.Queue.Submit(cmd)
	return nil
}

func (a *App) cursor() mgl32.Vec2 {
	return mgl32.Vec2{float32(a.MouseX), float32(a.MouseY)}
}

// HandleCursor tracks the pointer and pans while the middle button is held.
func (a *App) HandleCursor(x, y float64) {
	prev := a.cursor()
	a.MouseX, a.MouseY = x, y
	a.Store.PointerPosition = a.cursor()
	if a.panDragging {
		a.Camera.PanBy(a.cursor().Sub(prev), a.Store.ScreenSize)
		a.Camera.Apply(a.Store)
	}
}

func (a *App) HandleScroll(yoff float64) {
	factor := float32(1.1)
	if yoff < 0 {
		factor = 1 / factor
	}
	a.Camera.ZoomAt(a.cursor(), a.Store.ScreenSize, factor)
	a.Camera.Apply(a.Store)
}

func (a *App) HandleClick(button glfw.MouseButton, action glfw.Action) {
	switch {
	case button == glfw.MouseButtonLeft && action == glfw.Press:
		a.pick("point pick", a.Points.PickAtPoint)
	case button == glfw.MouseButtonRight && action == glfw.Press:
		a.dragStart = a.cursor()
		a.areaDragging = true
	case button == glfw.MouseButtonRight && action == glfw.Release && a.areaDragging:
		a.areaDragging = false
		a.Store.SelectedArea = [2]mgl32.Vec2{a.dragStart, a.cursor()}
		a.pick("area pick", a.Points.PickInArea)
	case button == glfw.MouseButtonMiddle:
		a.panDragging = action == glfw.Press
	}
}

// pick runs a picking pass, reads the hits back and greys out everything
// else. A miss greys out every particle; KeyC clears the highlight.
func (a *App) pick(name string, run func() error) {
	err := a.Profiler.Measure(name, func() error {
		if err := run(); err != nil {
			return err
		}
		hits, err := a.Points.ReadSelection()
		if err != nil {
			return err
		}
		a.Store.SetSelectedIndices(a.Data.SortedIndices(hits))
		a.Profiler.SetCount("selected", len(hits))
		a.Log.Infof("%s selected %d particles", name, len(hits))
		return a.Points.RebuildGreyout()
	})
	if err != nil {
		a.Log.Errorf("%v", err)
	}
}

func (a *App) HandleKey(key glfw.Key, action glfw.Action) {
	if action != glfw.Press {
		return
	}
	switch key {
	case glfw.KeyEscape:
		a.Window.SetShouldClose(true)
	case glfw.KeySpace:
		a.Paused = !a.Paused
	case glfw.KeyR:
		a.Camera = NewCamera2D()
		a.Camera.Apply(a.Store)
	case glfw.KeyC:
		a.Store.SetSelectedIndices(nil)
		if err := a.Points.RebuildGreyout(); err != nil {
			a.Log.Errorf("%v", err)
		}
	}
}

// Release destroys the point state and the WebGPU objects.
func (a *App) Release() {
	if a.Points != nil {
		a.Points.Destroy()
	}
	if a.Device != nil {
		a.Device.Release()
	}
	if a.Adapter != nil {
		a.Adapter.Release()
	}
	if a.Surface != nil {
		a.Surface.Release()
	}
	if a.Instance != nil {
		a.Instance.Release()
	}
}
