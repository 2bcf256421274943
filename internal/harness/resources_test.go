package harness

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/core1_0"
)

type fakeResourceFactory struct {
	views        int
	framebuffers int
	failView     int
}

func (f *fakeResourceFactory) createView(image core1_0.Image) (core1_0.ImageView, error) {
	if f.failView > 0 && f.views+1 == f.failView {
		return nil, errors.New("out of device memory")
	}
	f.views++
	return nil, nil
}

func (f *fakeResourceFactory) createFramebuffer(view core1_0.ImageView) (core1_0.Framebuffer, error) {
	f.framebuffers++
	return nil, nil
}

func TestBuildImageResourcesUsesActualImageCount(t *testing.T) {
	// Three were requested but the platform handed back four.
	images := make([]core1_0.Image, 4)
	commandBuffers := make([]core1_0.CommandBuffer, 4)
	factory := &fakeResourceFactory{}

	resources, err := buildImageResources(images, commandBuffers, factory)
	require.NoError(t, err)
	require.Len(t, resources, 4)
	require.Equal(t, 4, factory.views)
	require.Equal(t, 4, factory.framebuffers)
}

func TestBuildImageResourcesCommandBufferMismatch(t *testing.T) {
	_, err := buildImageResources(make([]core1_0.Image, 3), make([]core1_0.CommandBuffer, 2), &fakeResourceFactory{})
	require.Error(t, err)
}

func TestBuildImageResourcesViewFailure(t *testing.T) {
	factory := &fakeResourceFactory{failView: 2}

	_, err := buildImageResources(make([]core1_0.Image, 3), make([]core1_0.CommandBuffer, 3), factory)
	require.Error(t, err)
	require.Contains(t, err.Error(), "swapchain image 1")
	require.Equal(t, 1, factory.views)
	require.Equal(t, 1, factory.framebuffers)
}

func TestImageViewCreateInfo(t *testing.T) {
	info := imageViewCreateInfo(nil, core1_0.FormatB8G8R8A8SRGB)
	require.Equal(t, core1_0.ImageViewType2D, info.ViewType)
	require.Equal(t, core1_0.FormatB8G8R8A8SRGB, info.Format)
	require.Equal(t, core1_0.ComponentMapping{}, info.Components)
	require.Equal(t, core1_0.ImageSubresourceRange{
		AspectMask:     core1_0.ImageAspectColor,
		BaseMipLevel:   0,
		LevelCount:     1,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}, info.SubresourceRange)
}

func TestFramebufferCreateInfo(t *testing.T) {
	info := framebufferCreateInfo(nil, nil, core1_0.Extent2D{Width: 1280, Height: 720})
	require.Equal(t, 1280, info.Width)
	require.Equal(t, 720, info.Height)
	require.Equal(t, 1, info.Layers)
	require.Len(t, info.Attachments, 1)
}
