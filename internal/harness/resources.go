package harness

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"
)

type imageResourceFactory interface {
	createView(image core1_0.Image) (core1_0.ImageView, error)
	createFramebuffer(view core1_0.ImageView) (core1_0.Framebuffer, error)
}

// buildImageResources creates one table entry per image the swapchain
// actually allocated. The table index is the acquisition index.
func buildImageResources(images []core1_0.Image, commandBuffers []core1_0.CommandBuffer, factory imageResourceFactory) ([]ImageResource, error) {
	if len(commandBuffers) != len(images) {
		return nil, errors.Newf("have %d command buffers for %d swapchain images", len(commandBuffers), len(images))
	}

	resources := make([]ImageResource, 0, len(images))
	for i, image := range images {
		view, err := factory.createView(image)
		if err != nil {
			return nil, errors.Wrapf(err, "create view for swapchain image %d", i)
		}

		framebuffer, err := factory.createFramebuffer(view)
		if err != nil {
			return nil, errors.Wrapf(err, "create framebuffer for swapchain image %d", i)
		}

		resources = append(resources, ImageResource{
			Image:         image,
			CommandBuffer: commandBuffers[i],
			View:          view,
			Framebuffer:   framebuffer,
		})
	}

	return resources, nil
}

// colorSubresourceRange covers the single mip level and layer of a
// swapchain image.
func colorSubresourceRange() core1_0.ImageSubresourceRange {
	return core1_0.ImageSubresourceRange{
		AspectMask:     core1_0.ImageAspectColor,
		BaseMipLevel:   0,
		LevelCount:     1,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
}

// imageViewCreateInfo leaves Components zeroed, which is the identity
// swizzle on every channel.
func imageViewCreateInfo(image core1_0.Image, format core1_0.Format) core1_0.ImageViewCreateInfo {
	return core1_0.ImageViewCreateInfo{
		Image:            image,
		ViewType:         core1_0.ImageViewType2D,
		Format:           format,
		SubresourceRange: colorSubresourceRange(),
	}
}

func framebufferCreateInfo(renderPass core1_0.RenderPass, view core1_0.ImageView, extent core1_0.Extent2D) core1_0.FramebufferCreateInfo {
	return core1_0.FramebufferCreateInfo{
		RenderPass:  renderPass,
		Layers:      1,
		Attachments: []core1_0.ImageView{view},
		Width:       extent.Width,
		Height:      extent.Height,
	}
}

func (c *Context) createView(image core1_0.Image) (core1_0.ImageView, error) {
	view, _, err := c.device.CreateImageView(nil, imageViewCreateInfo(image, c.format))
	if err != nil {
		return nil, err
	}
	c.release.push("image view", func() { view.Destroy(nil) })
	return view, nil
}

func (c *Context) createFramebuffer(view core1_0.ImageView) (core1_0.Framebuffer, error) {
	framebuffer, _, err := c.device.CreateFramebuffer(nil, framebufferCreateInfo(c.renderPass, view, c.extent))
	if err != nil {
		return nil, err
	}
	c.release.push("framebuffer", func() { framebuffer.Destroy(nil) })
	return framebuffer, nil
}

func (c *Context) createImageResources() error {
	images, _, err := c.swapchain.SwapchainImages()
	if err != nil {
		return errors.Wrap(err, "get swapchain images")
	}

	commandBuffers, err := c.allocateCommandBuffers(len(images))
	if err != nil {
		return err
	}
	c.release.push("image command buffers", func() { c.device.FreeCommandBuffers(commandBuffers) })

	c.images, err = buildImageResources(images, commandBuffers, c)
	if err != nil {
		return err
	}

	Logger().Info("built per-image resources", "images", len(c.images))
	return nil
}
