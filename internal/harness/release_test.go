package harness

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReleaseStackReverseOrder(t *testing.T) {
	var released []string
	var stack releaseStack

	for _, name := range []string{"instance", "surface", "device", "swapchain", "view[0]", "framebuffer[0]"} {
		name := name
		stack.push(name, func() { released = append(released, name) })
	}
	require.Equal(t, 6, stack.len())

	stack.releaseAll()
	require.Equal(t, []string{"framebuffer[0]", "view[0]", "swapchain", "device", "surface", "instance"}, released)
	require.Zero(t, stack.len())

	stack.releaseAll()
	require.Len(t, released, 6)
}
