package harness

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/ext_debug_utils"
	"github.com/vkngwrapper/extensions/khr_portability_enumeration"
	"github.com/vkngwrapper/extensions/khr_portability_subset"
	"github.com/vkngwrapper/extensions/khr_surface"
	"github.com/vkngwrapper/extensions/khr_swapchain"
)

var (
	ErrNoPhysicalDevice = errors.New("no vulkan physical device")
	ErrNoQueueFamily    = errors.New("no queue family supports both graphics and present")
)

var validationLayers = []string{"VK_LAYER_KHRONOS_validation"}
var deviceExtensions = []string{khr_swapchain.ExtensionName}

// instanceExtensionNames puts the surface extension first and appends the
// window's required extensions without duplicates.
func instanceExtensionNames(windowExtensions []string) []string {
	names := []string{khr_surface.ExtensionName}
	seen := map[string]bool{khr_surface.ExtensionName: true}

	for _, ext := range windowExtensions {
		if seen[ext] {
			continue
		}
		seen[ext] = true
		names = append(names, ext)
	}

	return names
}

func (c *Context) createInstance() error {
	instanceOptions := core1_0.InstanceCreateInfo{
		ApplicationName:    c.appName,
		ApplicationVersion: common.CreateVersion(1, 0, 0),
		EngineName:         "No Engine",
		EngineVersion:      common.CreateVersion(1, 0, 0),
		APIVersion:         common.Vulkan1_0,
	}

	extensions, _, err := c.loader.AvailableExtensions()
	if err != nil {
		return errors.Wrap(err, "enumerate instance extensions")
	}

	for _, ext := range instanceExtensionNames(c.window.InstanceExtensions()) {
		_, hasExt := extensions[ext]
		if !hasExt {
			return errors.Newf("createInstance: missing instance extension %s", ext)
		}
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext)
	}

	_, enumerationSupported := extensions[khr_portability_enumeration.ExtensionName]
	if enumerationSupported {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, khr_portability_enumeration.ExtensionName)
		instanceOptions.Flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	if c.validation {
		layers, _, err := c.loader.AvailableLayers()
		if err != nil {
			return errors.Wrap(err, "enumerate instance layers")
		}

		for _, layer := range validationLayers {
			_, hasValidation := layers[layer]
			if !hasValidation {
				return errors.Newf("createInstance: validation layer %s not available- install LunarG Vulkan SDK", layer)
			}
			instanceOptions.EnabledLayerNames = append(instanceOptions.EnabledLayerNames, layer)
		}

		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext_debug_utils.ExtensionName)
		instanceOptions.Next = c.debugMessengerOptions()
	}

	c.instance, _, err = c.loader.CreateInstance(nil, instanceOptions)
	if err != nil {
		return errors.Wrap(err, "create instance")
	}
	c.release.push("instance", func() { c.instance.Destroy(nil) })

	return nil
}

func (c *Context) debugMessengerOptions() ext_debug_utils.DebugUtilsMessengerCreateInfo {
	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    logValidation,
	}
}

func (c *Context) setupDebugMessenger() error {
	if !c.validation {
		return nil
	}

	var err error
	debugLoader := ext_debug_utils.CreateExtensionFromInstance(c.instance)
	c.debugMessenger, _, err = debugLoader.CreateDebugUtilsMessenger(c.instance, nil, c.debugMessengerOptions())
	if err != nil {
		return errors.Wrap(err, "create debug messenger")
	}
	c.release.push("debug messenger", func() { c.debugMessenger.Destroy(nil) })

	return nil
}

func logValidation(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
	level := slog.LevelDebug
	switch {
	case severity&ext_debug_utils.SeverityError != 0:
		level = slog.LevelError
	case severity&ext_debug_utils.SeverityWarning != 0:
		level = slog.LevelWarn
	}

	Logger().Log(context.Background(), level, data.Message, "type", msgType)
	return false
}

func (c *Context) createSurface() error {
	surface, err := c.window.CreateSurface(c.instance)
	if err != nil {
		return err
	}

	c.surface = surface
	c.release.push("surface", func() { c.surface.Destroy(nil) })
	return nil
}

// firstPhysicalDevice takes the first enumerated device. Devices are not
// scored.
func firstPhysicalDevice(devices []core1_0.PhysicalDevice) (core1_0.PhysicalDevice, error) {
	if len(devices) == 0 {
		return nil, ErrNoPhysicalDevice
	}
	return devices[0], nil
}

// findQueueFamily returns the first family that has the graphics bit and can
// present to the surface.
func findQueueFamily(families []core1_0.QueueFlags, supportsPresent func(familyIndex int) (bool, error)) (int, error) {
	for familyIdx, flags := range families {
		if flags&core1_0.QueueGraphics == 0 {
			continue
		}

		supported, err := supportsPresent(familyIdx)
		if err != nil {
			return -1, errors.Wrapf(err, "query present support for queue family %d", familyIdx)
		}

		if supported {
			return familyIdx, nil
		}
	}

	return -1, ErrNoQueueFamily
}

func (c *Context) pickPhysicalDevice() error {
	physicalDevices, _, err := c.instance.EnumeratePhysicalDevices()
	if err != nil {
		return errors.Wrap(err, "enumerate physical devices")
	}

	c.physicalDevice, err = firstPhysicalDevice(physicalDevices)
	if err != nil {
		return err
	}

	var families []core1_0.QueueFlags
	for _, queueFamily := range c.physicalDevice.QueueFamilyProperties() {
		families = append(families, queueFamily.QueueFlags)
	}

	c.queueFamily, err = findQueueFamily(families, func(familyIndex int) (bool, error) {
		supported, _, err := c.surface.PhysicalDeviceSurfaceSupport(c.physicalDevice, familyIndex)
		return supported, err
	})
	if err != nil {
		return err
	}

	properties, err := c.physicalDevice.Properties()
	if err != nil {
		return errors.Wrap(err, "physical device properties")
	}
	Logger().Info("selected physical device",
		"name", properties.DeviceName,
		"devices", len(physicalDevices),
		"queue_family", c.queueFamily)

	return nil
}

func (c *Context) createLogicalDevice() error {
	extensionNames := append([]string(nil), deviceExtensions...)

	extensions, _, err := c.physicalDevice.EnumerateDeviceExtensionProperties()
	if err != nil {
		return errors.Wrap(err, "enumerate device extensions")
	}

	for _, extension := range deviceExtensions {
		_, hasExtension := extensions[extension]
		if !hasExtension {
			return errors.Newf("createLogicalDevice: missing device extension %s", extension)
		}
	}

	// Required on portability implementations such as MoltenVK.
	_, supported := extensions[khr_portability_subset.ExtensionName]
	if supported {
		extensionNames = append(extensionNames, khr_portability_subset.ExtensionName)
	}

	c.device, _, err = c.physicalDevice.CreateDevice(nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos: []core1_0.DeviceQueueCreateInfo{
			{
				QueueFamilyIndex: c.queueFamily,
				QueuePriorities:  []float32{1.0},
			},
		},
		EnabledFeatures:       &core1_0.PhysicalDeviceFeatures{},
		EnabledExtensionNames: extensionNames,
	})
	if err != nil {
		return errors.Wrap(err, "create logical device")
	}
	c.release.push("device", func() { c.device.Destroy(nil) })

	c.queue = c.device.GetQueue(c.queueFamily, 0)
	return nil
}

func (c *Context) createCommandPool() error {
	pool, _, err := c.device.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		QueueFamilyIndex: c.queueFamily,
		Flags:            core1_0.CommandPoolCreateResetBuffer,
	})
	if err != nil {
		return errors.Wrap(err, "create command pool")
	}
	c.commandPool = pool
	c.release.push("command pool", func() { c.commandPool.Destroy(nil) })

	return nil
}

func (c *Context) allocateCommandBuffers(count int) ([]core1_0.CommandBuffer, error) {
	buffers, _, err := c.device.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        c.commandPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: count,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "allocate %d command buffers", count)
	}
	return buffers, nil
}

func (c *Context) createDrawCommandBuffer() error {
	buffers, err := c.allocateCommandBuffers(1)
	if err != nil {
		return err
	}
	c.drawCommands = buffers[0]
	c.release.push("draw command buffer", func() { c.device.FreeCommandBuffers(buffers) })

	return nil
}
