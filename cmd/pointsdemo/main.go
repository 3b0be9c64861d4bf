package main

import (
	"flag"
	"fmt"
	"image/png"
	"os"
	"runtime"

	points "github.com/gekko3d/pointstate"
	"github.com/gekko3d/pointstate/app"
	"github.com/gekko3d/pointstate/logging"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	var (
		headless   = flag.Bool("headless", false, "Run on the software device and write a PNG instead of opening a window")
		configPath = flag.String("config", "points.yaml", "YAML config file (defaults when missing)")
		count      = flag.Int("n", 2000, "Number of particles")
		seed       = flag.Uint64("seed", 0, "Random seed (overrides randomSeed from the config when non-zero)")
		steps      = flag.Int("steps", 300, "Simulation steps in headless mode")
		output     = flag.String("output", "points.png", "Output file in headless mode")
		width      = flag.Int("width", 1280, "Window or image width in logical pixels")
		height     = flag.Int("height", 720, "Window or image height in logical pixels")
		debug      = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	log := logging.NewDefaultLogger("pointsdemo", *debug)

	settings, err := points.LoadConfig(*configPath)
	if err != nil {
		log.Errorf("config: %v", err)
		os.Exit(1)
	}
	if *seed != 0 {
		settings.RandomSeed = *seed
	}
	if settings.NodeSize == nil || settings.NodeSize == (points.NodeSizeField{}) {
		settings.NodeSize = points.ValueField("degree")
	}
	data := app.RandomGraph(*count, settings.RandomSeed)

	if *headless {
		if err := runHeadless(settings, data, *width, *height, *steps, *output, log); err != nil {
			log.Errorf("%v", err)
			os.Exit(1)
		}
		return
	}
	if err := runWindow(settings, data, *width, *height, *debug, log); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}

func runHeadless(settings *points.Config, data *points.GraphData, width, height, steps int, output string, log logging.Logger) error {
	w, h := float32(width), float32(height)
	area := [2]mgl32.Vec2{{w * 0.5, h * 0.25}, {w, h * 0.75}}
	res, err := app.RunHeadless(settings, data, app.HeadlessOptions{
		Width:      width,
		Height:     height,
		Steps:      steps,
		Pick:       &area,
		Background: [4]float32{0.07, 0.07, 0.09, 1},
	}, log)
	if err != nil {
		return err
	}

	f, err := os.Create(output)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := png.Encode(f, res.Frame); err != nil {
		return fmt.Errorf("encode %s: %w", output, err)
	}
	log.Infof("wrote %s, %d particles selected\n%s", output, len(res.Selected), res.Profiler.GetStatsString())
	return nil
}

func runWindow(settings *points.Config, data *points.GraphData, width, height int, debug bool, log logging.Logger) error {
	if err := glfw.Init(); err != nil {
		return err
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(width, height, "Points", nil, nil)
	if err != nil {
		return err
	}
	defer window.Destroy()

	application := app.NewApp(window, settings, data, log)
	application.DebugMode = debug
	if err := application.Init(); err != nil {
		return err
	}
	defer application.Release()

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		application.Resize(width, height)
	})
	window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		application.HandleCursor(xpos, ypos)
	})
	window.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		application.HandleScroll(yoff)
	})
	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		application.HandleClick(button, action)
	})
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		application.HandleKey(key, action)
	})

	for !window.ShouldClose() {
		glfw.PollEvents()
		application.Update()
		application.Render()
	}
	return nil
}
