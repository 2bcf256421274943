package harness

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_swapchain"
)

func TestToAttachmentBarrier(t *testing.T) {
	barrier := toAttachmentBarrier(nil)
	require.Equal(t, core1_0.ImageLayoutUndefined, barrier.OldLayout)
	require.Equal(t, core1_0.ImageLayoutColorAttachmentOptimal, barrier.NewLayout)
	require.Zero(t, barrier.SrcAccessMask)
	require.Equal(t, core1_0.AccessColorAttachmentWrite, barrier.DstAccessMask)
	require.Equal(t, queueFamilyIgnored, barrier.SrcQueueFamilyIndex)
	require.Equal(t, queueFamilyIgnored, barrier.DstQueueFamilyIndex)
	require.Equal(t, colorSubresourceRange(), barrier.SubresourceRange)
}

func TestBarrierStages(t *testing.T) {
	require.Equal(t, core1_0.PipelineStageAllCommands, barrierSrcStage)
	require.Equal(t, core1_0.PipelineStageBottomOfPipe, barrierDstStage)
	require.Equal(t, core1_0.PipelineStageBottomOfPipe, submitWaitStage)
}

func TestDrawSubmitInfo(t *testing.T) {
	info := drawSubmitInfo(nil, nil)
	require.Len(t, info.WaitSemaphores, 1)
	require.Equal(t, []core1_0.PipelineStageFlags{core1_0.PipelineStageBottomOfPipe}, info.WaitDstStageMask)
	require.Len(t, info.CommandBuffers, 1)
	require.Empty(t, info.SignalSemaphores)
}

func TestDrainSubmitInfo(t *testing.T) {
	info := drainSubmitInfo(nil)
	require.Len(t, info.WaitSemaphores, 1)
	require.Equal(t, []core1_0.PipelineStageFlags{core1_0.PipelineStageBottomOfPipe}, info.WaitDstStageMask)
	require.Empty(t, info.CommandBuffers)
	require.Empty(t, info.SignalSemaphores)
}

func TestToPresentBarrier(t *testing.T) {
	barrier := toPresentBarrier(nil)
	require.Equal(t, core1_0.ImageLayoutColorAttachmentOptimal, barrier.OldLayout)
	require.Equal(t, khr_swapchain.ImageLayoutPresentSrc, barrier.NewLayout)
	require.Equal(t, core1_0.AccessColorAttachmentWrite, barrier.SrcAccessMask)
	require.Equal(t, core1_0.AccessMemoryRead, barrier.DstAccessMask)
	require.Equal(t, queueFamilyIgnored, barrier.SrcQueueFamilyIndex)
	require.Equal(t, queueFamilyIgnored, barrier.DstQueueFamilyIndex)
}

func TestBarriersChain(t *testing.T) {
	// The render pass keeps the attachment layout, so the second barrier
	// must start where the first one ends.
	require.Equal(t, toAttachmentBarrier(nil).NewLayout, toPresentBarrier(nil).OldLayout)
	require.Equal(t, toAttachmentBarrier(nil).NewLayout, renderPassCreateInfo(core1_0.FormatB8G8R8A8SRGB).Attachments[0].FinalLayout)
}

func TestClearPassBeginInfo(t *testing.T) {
	extent := core1_0.Extent2D{Width: 800, Height: 600}
	info := clearPassBeginInfo(nil, nil, extent, mgl32.Vec4{0.25, 0.2, 0.2, 0.2})

	require.Equal(t, core1_0.Offset2D{X: 0, Y: 0}, info.RenderArea.Offset)
	require.Equal(t, extent, info.RenderArea.Extent)
	require.Equal(t, []core1_0.ClearValue{
		core1_0.ClearValueFloat{0.25, 0.2, 0.2, 0.2},
	}, info.ClearValues)
}

func TestPresentStatus(t *testing.T) {
	status, err := presentStatus(core1_0.VKSuccess, nil)
	require.NoError(t, err)
	require.Equal(t, PresentOptimal, status)

	status, err = presentStatus(khr_swapchain.VKSuboptimal, nil)
	require.NoError(t, err)
	require.Equal(t, PresentSuboptimal, status)

	outOfDate := errors.New("out of date")
	_, err = presentStatus(khr_swapchain.VKErrorOutOfDate, outOfDate)
	require.True(t, errors.Is(err, outOfDate))

	_, err = presentStatus(khr_swapchain.VKErrorOutOfDate, nil)
	require.Error(t, err)
}

func TestAcquireStatus(t *testing.T) {
	outOfDate := errors.New("out of date")

	for _, tc := range []struct {
		name    string
		res     common.VkResult
		err     error
		wantErr bool
	}{
		{name: "success", res: core1_0.VKSuccess},
		{name: "suboptimal is fatal", res: khr_swapchain.VKSuboptimal, wantErr: true},
		{name: "out of date", res: khr_swapchain.VKErrorOutOfDate, err: outOfDate, wantErr: true},
		{name: "bare failure result", res: khr_swapchain.VKErrorOutOfDate, wantErr: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := acquireStatus(tc.res, tc.err)
			if !tc.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tc.err != nil {
				require.True(t, errors.Is(err, tc.err))
			}
		})
	}
}
