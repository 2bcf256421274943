package harness

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_swapchain"
)

// Both layout transitions use the same coarse scope: everything before,
// bottom of pipe after.
var (
	barrierSrcStage = core1_0.PipelineStageAllCommands
	barrierDstStage = core1_0.PipelineStageBottomOfPipe
)

// submitWaitStage is where the submission waits on the image-ready semaphore.
var submitWaitStage = core1_0.PipelineStageBottomOfPipe

// queueFamilyIgnored leaves queue family ownership untouched.
const queueFamilyIgnored = -1

// toAttachmentBarrier moves a freshly acquired image into
// COLOR_ATTACHMENT_OPTIMAL. Its previous contents are discarded.
func toAttachmentBarrier(image core1_0.Image) core1_0.ImageMemoryBarrier {
	return core1_0.ImageMemoryBarrier{
		SrcAccessMask:       0,
		DstAccessMask:       core1_0.AccessColorAttachmentWrite,
		OldLayout:           core1_0.ImageLayoutUndefined,
		NewLayout:           core1_0.ImageLayoutColorAttachmentOptimal,
		SrcQueueFamilyIndex: queueFamilyIgnored,
		DstQueueFamilyIndex: queueFamilyIgnored,
		Image:               image,
		SubresourceRange:    colorSubresourceRange(),
	}
}

func toPresentBarrier(image core1_0.Image) core1_0.ImageMemoryBarrier {
	return core1_0.ImageMemoryBarrier{
		SrcAccessMask:       core1_0.AccessColorAttachmentWrite,
		DstAccessMask:       core1_0.AccessMemoryRead,
		OldLayout:           core1_0.ImageLayoutColorAttachmentOptimal,
		NewLayout:           khr_swapchain.ImageLayoutPresentSrc,
		SrcQueueFamilyIndex: queueFamilyIgnored,
		DstQueueFamilyIndex: queueFamilyIgnored,
		Image:               image,
		SubresourceRange:    colorSubresourceRange(),
	}
}

func clearPassBeginInfo(renderPass core1_0.RenderPass, framebuffer core1_0.Framebuffer, extent core1_0.Extent2D, color mgl32.Vec4) core1_0.RenderPassBeginInfo {
	return core1_0.RenderPassBeginInfo{
		RenderPass:  renderPass,
		Framebuffer: framebuffer,
		RenderArea: core1_0.Rect2D{
			Offset: core1_0.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
		ClearValues: []core1_0.ClearValue{
			core1_0.ClearValueFloat{color[0], color[1], color[2], color[3]},
		},
	}
}

// acquireStatus accepts only VK_SUCCESS. A suboptimal acquire is fatal;
// only presentation tolerates it.
func acquireStatus(res common.VkResult, err error) error {
	if err != nil {
		return err
	}
	if res != core1_0.VKSuccess {
		return errors.Newf("acquire returned %v", res)
	}
	return nil
}

// drawSubmitInfo submits the shared draw buffer once the acquired image is
// ready. The submission carries no fence; the frame drains the queue instead.
func drawSubmitInfo(imageReady core1_0.Semaphore, drawCommands core1_0.CommandBuffer) core1_0.SubmitInfo {
	return core1_0.SubmitInfo{
		WaitSemaphores:   []core1_0.Semaphore{imageReady},
		WaitDstStageMask: []core1_0.PipelineStageFlags{submitWaitStage},
		CommandBuffers:   []core1_0.CommandBuffer{drawCommands},
	}
}

// drainSubmitInfo waits on a semaphore whose acquire signal was never
// consumed by a draw submission, so it can be destroyed safely.
func drainSubmitInfo(imageReady core1_0.Semaphore) core1_0.SubmitInfo {
	return core1_0.SubmitInfo{
		WaitSemaphores:   []core1_0.Semaphore{imageReady},
		WaitDstStageMask: []core1_0.PipelineStageFlags{submitWaitStage},
	}
}

// presentStatus separates the tolerated SUBOPTIMAL result from real
// failures.
func presentStatus(res common.VkResult, err error) (PresentStatus, error) {
	if res == khr_swapchain.VKSuboptimal {
		return PresentSuboptimal, nil
	}
	if err != nil {
		return PresentOptimal, err
	}
	if res != core1_0.VKSuccess {
		return PresentOptimal, errors.Newf("present returned %v", res)
	}
	return PresentOptimal, nil
}

// vulkanFrames runs each frame stage against the Context's device. The
// shared draw command buffer is re-recorded every frame.
type vulkanFrames struct {
	ctx        *Context
	imageReady core1_0.Semaphore
}

// NewFrameStages returns the Vulkan implementation of the frame stages for
// a fully set up Context.
func NewFrameStages(c *Context) FrameStages {
	return &vulkanFrames{ctx: c}
}

func (f *vulkanFrames) BeginFrame() error {
	semaphore, _, err := f.ctx.device.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	if err != nil {
		return errors.Wrap(err, "create image-ready semaphore")
	}
	f.imageReady = semaphore
	return nil
}

func (f *vulkanFrames) AcquireImage() (int, error) {
	imageIndex, res, err := f.ctx.swapchain.AcquireNextImage(common.NoTimeout, f.imageReady, nil)
	err = acquireStatus(res, err)
	if err != nil {
		return -1, errors.Wrap(err, "acquire next image")
	}
	if imageIndex < 0 || imageIndex >= len(f.ctx.images) {
		return -1, errors.Newf("acquired image index %d outside table of %d", imageIndex, len(f.ctx.images))
	}
	return imageIndex, nil
}

func (f *vulkanFrames) Record(imageIndex int, clear mgl32.Vec4) error {
	cmd := f.ctx.drawCommands
	target := f.ctx.images[imageIndex]

	_, err := cmd.Begin(core1_0.CommandBufferBeginInfo{})
	if err != nil {
		return errors.Wrap(err, "begin draw command buffer")
	}

	err = cmd.CmdPipelineBarrier(barrierSrcStage, barrierDstStage, 0, nil, nil, []core1_0.ImageMemoryBarrier{
		toAttachmentBarrier(target.Image),
	})
	if err != nil {
		return errors.Wrap(err, "record attachment barrier")
	}

	err = cmd.CmdBeginRenderPass(core1_0.SubpassContentsInline,
		clearPassBeginInfo(f.ctx.renderPass, target.Framebuffer, f.ctx.extent, clear))
	if err != nil {
		return errors.Wrap(err, "begin render pass")
	}
	cmd.CmdEndRenderPass()

	err = cmd.CmdPipelineBarrier(barrierSrcStage, barrierDstStage, 0, nil, nil, []core1_0.ImageMemoryBarrier{
		toPresentBarrier(target.Image),
	})
	if err != nil {
		return errors.Wrap(err, "record present barrier")
	}

	_, err = cmd.End()
	if err != nil {
		return errors.Wrap(err, "end draw command buffer")
	}
	return nil
}

func (f *vulkanFrames) Submit() error {
	_, err := f.ctx.queue.Submit(nil, []core1_0.SubmitInfo{drawSubmitInfo(f.imageReady, f.ctx.drawCommands)})
	if err != nil {
		return errors.Wrap(err, "submit draw command buffer")
	}
	return nil
}

func (f *vulkanFrames) Present(imageIndex int) (PresentStatus, error) {
	res, err := f.ctx.swapchainExtension.QueuePresent(f.ctx.queue, khr_swapchain.PresentInfo{
		Swapchains:   []khr_swapchain.Swapchain{f.ctx.swapchain},
		ImageIndices: []int{imageIndex},
	})

	status, err := presentStatus(res, err)
	if err != nil {
		return status, errors.Wrapf(err, "present image %d", imageIndex)
	}
	return status, nil
}

func (f *vulkanFrames) WaitIdle() error {
	_, err := f.ctx.queue.WaitIdle()
	if err != nil {
		return errors.Wrap(err, "wait for queue idle")
	}
	return nil
}

func (f *vulkanFrames) EndFrame(signalPending bool) error {
	semaphore := f.imageReady
	f.imageReady = nil
	if semaphore == nil {
		return nil
	}

	if signalPending {
		_, err := f.ctx.queue.Submit(nil, []core1_0.SubmitInfo{drainSubmitInfo(semaphore)})
		if err == nil {
			_, err = f.ctx.queue.WaitIdle()
		}
		if err != nil {
			// Destroy runs after a device wait-idle.
			f.ctx.release.push("image-ready semaphore", func() { semaphore.Destroy(nil) })
			return errors.Wrap(err, "drain image-ready semaphore")
		}
	}

	semaphore.Destroy(nil)
	return nil
}
