package harness

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_surface"
	"github.com/vkngwrapper/extensions/khr_swapchain"
)

var ErrNoSurfaceFormats = errors.New("surface reports no formats")

// inheritExtent is the currentExtent width a surface reports when the
// swapchain decides the extent. The binding widens the uint32 to int, so
// it arrives as 4294967295 rather than -1.
const inheritExtent = math.MaxUint32

func inheritsExtent(extent core1_0.Extent2D) bool {
	return uint32(extent.Width) == inheritExtent
}

// fallbackFormat is used when the surface accepts any format.
const fallbackFormat = core1_0.FormatB8G8R8A8SRGB

// chooseSurfaceFormat takes the first reported format. A single undefined
// entry means the surface has no preference.
func chooseSurfaceFormat(formats []khr_surface.SurfaceFormat) (khr_surface.SurfaceFormat, error) {
	if len(formats) == 0 {
		return khr_surface.SurfaceFormat{}, ErrNoSurfaceFormats
	}

	chosen := formats[0]
	if len(formats) == 1 && chosen.Format == core1_0.FormatUndefined {
		chosen.Format = fallbackFormat
	}
	return chosen, nil
}

func chooseExtent(capabilities *khr_surface.SurfaceCapabilities, drawableSize func() (int, int)) core1_0.Extent2D {
	if !inheritsExtent(capabilities.CurrentExtent) {
		return capabilities.CurrentExtent
	}

	width, height := drawableSize()
	return core1_0.Extent2D{Width: width, Height: height}
}

// chooseImageCount asks for one image more than the minimum, capped by
// maxImageCount when the surface sets one.
func chooseImageCount(capabilities *khr_surface.SurfaceCapabilities) int {
	imageCount := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && capabilities.MaxImageCount < imageCount {
		imageCount = capabilities.MaxImageCount
	}
	return imageCount
}

func swapchainCreateInfo(surface khr_surface.Surface, format khr_surface.SurfaceFormat, extent core1_0.Extent2D, imageCount int, capabilities *khr_surface.SurfaceCapabilities) khr_swapchain.SwapchainCreateInfo {
	return khr_swapchain.SwapchainCreateInfo{
		Surface: surface,

		MinImageCount:    imageCount,
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment,

		ImageSharingMode: core1_0.SharingModeExclusive,

		PreTransform:   capabilities.CurrentTransform,
		CompositeAlpha: khr_surface.CompositeAlphaOpaque,
		PresentMode:    khr_surface.PresentModeFIFO,
		Clipped:        true,
	}
}

// renderPassCreateInfo describes the single clear-and-store color attachment.
// The attachment stays in COLOR_ATTACHMENT_OPTIMAL; the frame recorder moves
// the image in and out of that layout with explicit barriers.
func renderPassCreateInfo(format core1_0.Format) core1_0.RenderPassCreateInfo {
	return core1_0.RenderPassCreateInfo{
		Attachments: []core1_0.AttachmentDescription{
			{
				Format:         format,
				Samples:        core1_0.Samples1,
				LoadOp:         core1_0.AttachmentLoadOpClear,
				StoreOp:        core1_0.AttachmentStoreOpStore,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutColorAttachmentOptimal,
				FinalLayout:    core1_0.ImageLayoutColorAttachmentOptimal,
			},
		},
		Subpasses: []core1_0.SubpassDescription{
			{
				PipelineBindPoint: core1_0.PipelineBindPointGraphics,
				ColorAttachments: []core1_0.AttachmentReference{
					{
						Attachment: 0,
						Layout:     core1_0.ImageLayoutColorAttachmentOptimal,
					},
				},
			},
		},
	}
}

func (c *Context) createSwapchain() error {
	c.swapchainExtension = khr_swapchain.CreateExtensionFromDevice(c.device)

	formats, _, err := c.surface.PhysicalDeviceSurfaceFormats(c.physicalDevice)
	if err != nil {
		return errors.Wrap(err, "query surface formats")
	}

	surfaceFormat, err := chooseSurfaceFormat(formats)
	if err != nil {
		return err
	}

	capabilities, _, err := c.surface.PhysicalDeviceSurfaceCapabilities(c.physicalDevice)
	if err != nil {
		return errors.Wrap(err, "query surface capabilities")
	}

	extent := chooseExtent(capabilities, c.window.DrawableSize)
	imageCount := chooseImageCount(capabilities)

	swapchain, _, err := c.swapchainExtension.CreateSwapchain(c.device, nil,
		swapchainCreateInfo(c.surface, surfaceFormat, extent, imageCount, capabilities))
	if err != nil {
		return errors.Wrap(err, "create swapchain")
	}
	c.swapchain = swapchain
	c.format = surfaceFormat.Format
	c.extent = extent
	c.release.push("swapchain", func() { c.swapchain.Destroy(nil) })

	Logger().Info("created swapchain",
		"format", surfaceFormat.Format,
		"color_space", surfaceFormat.ColorSpace,
		"width", extent.Width,
		"height", extent.Height,
		"requested_images", imageCount)

	return nil
}

func (c *Context) createRenderPass() error {
	renderPass, _, err := c.device.CreateRenderPass(nil, renderPassCreateInfo(c.format))
	if err != nil {
		return errors.Wrap(err, "create render pass")
	}
	c.renderPass = renderPass
	c.release.push("render pass", func() { c.renderPass.Destroy(nil) })

	return nil
}
