// Package platform wraps the SDL2 window that the harness presents into.
package platform

import (
	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_surface"
	vkng_sdl2 "github.com/vkngwrapper/integrations/sdl2"
)

type Window struct {
	window *sdl.Window
}

// Open initializes SDL video and creates a centered Vulkan-capable window of
// the given pixel size.
func Open(title string, width, height int) (*Window, error) {
	sdl.SetHint(sdl.HINT_FRAMEBUFFER_ACCELERATION, "1")

	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, errors.Wrap(err, "sdl init")
	}

	window, err := sdl.CreateWindow(title, sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED, int32(width), int32(height), sdl.WINDOW_SHOWN|sdl.WINDOW_VULKAN)
	if err != nil {
		sdl.Quit()
		return nil, errors.Wrap(err, "sdl create window")
	}

	return &Window{window: window}, nil
}

func (w *Window) Close() {
	if w.window != nil {
		w.window.Destroy()
		w.window = nil
	}
	sdl.Quit()
}

func (w *Window) Loader() (core.Loader, error) {
	loader, err := core.CreateLoaderFromProcAddr(sdl.VulkanGetVkGetInstanceProcAddr())
	if err != nil {
		return nil, errors.Wrap(err, "create vulkan loader")
	}
	return loader, nil
}

func (w *Window) InstanceExtensions() []string {
	return w.window.VulkanGetInstanceExtensions()
}

// DrawableSize reports the window's current size in pixels, which can differ
// from its size in screen coordinates on high-DPI displays.
func (w *Window) DrawableSize() (int, int) {
	width, height := w.window.VulkanGetDrawableSize()
	return int(width), int(height)
}

func (w *Window) CreateSurface(instance core1_0.Instance) (khr_surface.Surface, error) {
	surfaceLoader := khr_surface.CreateExtensionFromInstance(instance)

	surface, err := vkng_sdl2.CreateSurface(instance, surfaceLoader, w.window)
	if err != nil {
		return nil, errors.Wrap(err, "sdl create surface")
	}
	return surface, nil
}

// PollQuit drains the event queue and reports whether a quit was requested.
func (w *Window) PollQuit() bool {
	quit := false
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch event.(type) {
		case *sdl.QuitEvent:
			quit = true
		}
	}
	return quit
}
