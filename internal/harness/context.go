package harness

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/ext_debug_utils"
	"github.com/vkngwrapper/extensions/khr_surface"
	"github.com/vkngwrapper/extensions/khr_swapchain"

	"github.com/vkngwrapper/swapchain-harness/internal/config"
)

// Window is the windowing collaborator: it names the instance extensions it
// needs, creates the surface and reports its pixel size on demand.
type Window interface {
	InstanceExtensions() []string
	DrawableSize() (int, int)
	CreateSurface(instance core1_0.Instance) (khr_surface.Surface, error)
}

// ImageResource is everything the frame loop needs to render into one
// swapchain image. Image belongs to the swapchain; the view and framebuffer
// are released before it.
type ImageResource struct {
	Image core1_0.Image
	// CommandBuffer is owned per image but unused by the single-blocking
	// loop, which records the shared draw buffer.
	CommandBuffer core1_0.CommandBuffer
	View          core1_0.ImageView
	Framebuffer   core1_0.Framebuffer
}

// Context owns every Vulkan object the harness creates. It is built once by
// Setup and released by Destroy.
type Context struct {
	loader     core.Loader
	window     Window
	appName    string
	validation bool

	instance       core1_0.Instance
	debugMessenger ext_debug_utils.DebugUtilsMessenger
	surface        khr_surface.Surface

	physicalDevice core1_0.PhysicalDevice
	queueFamily    int
	device         core1_0.Device
	queue          core1_0.Queue

	commandPool  core1_0.CommandPool
	drawCommands core1_0.CommandBuffer

	swapchainExtension khr_swapchain.Extension
	swapchain          khr_swapchain.Swapchain
	format             core1_0.Format
	extent             core1_0.Extent2D
	renderPass         core1_0.RenderPass

	images []ImageResource

	release releaseStack
}

// Setup negotiates the device, builds the swapchain and populates the
// per-image resource table. On failure everything created so far is
// released before the error is returned.
func Setup(loader core.Loader, window Window, cfg config.Config) (*Context, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	c := &Context{
		loader:     loader,
		window:     window,
		appName:    cfg.Title,
		validation: cfg.Validation,
	}

	err = c.init()
	if err != nil {
		c.release.releaseAll()
		return nil, err
	}

	return c, nil
}

func (c *Context) init() error {
	err := c.createInstance()
	if err != nil {
		return err
	}

	err = c.setupDebugMessenger()
	if err != nil {
		return err
	}

	err = c.createSurface()
	if err != nil {
		return err
	}

	err = c.pickPhysicalDevice()
	if err != nil {
		return err
	}

	err = c.createLogicalDevice()
	if err != nil {
		return err
	}

	err = c.createCommandPool()
	if err != nil {
		return err
	}

	err = c.createDrawCommandBuffer()
	if err != nil {
		return err
	}

	err = c.createSwapchain()
	if err != nil {
		return err
	}

	err = c.createRenderPass()
	if err != nil {
		return err
	}

	return c.createImageResources()
}

// Destroy waits for the device to go idle and releases every object in
// reverse creation order.
func (c *Context) Destroy() error {
	var err error
	if c.device != nil {
		_, err = c.device.WaitIdle()
		if err != nil {
			err = errors.Wrap(err, "wait for device idle before teardown")
		}
	}

	c.release.releaseAll()
	c.images = nil
	return err
}

func (c *Context) Extent() core1_0.Extent2D {
	return c.extent
}

func (c *Context) Format() core1_0.Format {
	return c.format
}

// Images returns the per-image resource table, indexed by the image index
// returned from acquisition.
func (c *Context) Images() []ImageResource {
	return c.images
}
