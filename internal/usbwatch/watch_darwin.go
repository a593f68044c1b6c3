package usbwatch

import (
	"context"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

// CoreFoundation and IOKit types, as the frameworks declare them.
type (
	cfAllocatorRef   uintptr
	cfIndex          int64
	cfNumberRef      uintptr
	cfRunLoopRef     uintptr
	cfStringRef      uintptr
	cfTypeRef        uintptr
	cfStringEncoding uint32

	ioHIDDeviceRef  uintptr
	ioHIDManagerRef uintptr
	ioOptionBits    uint32
	ioReturn        int32
)

const (
	cfAllocatorDefault   cfAllocatorRef   = 0
	cfNumberSInt16Type   cfIndex          = 2
	cfStringEncodingUTF8 cfStringEncoding = 0x08000100

	ioHIDOptionsNone ioOptionBits = 0
	ioReturnSuccess  ioReturn     = 0
)

var (
	cfNumberGetValue        func(number cfNumberRef, theType cfIndex, valuePtr unsafe.Pointer) bool
	cfRelease               func(cf cfTypeRef)
	cfRunLoopGetCurrent     func() cfRunLoopRef
	cfRunLoopRun            func()
	cfRunLoopStop           func(runLoop cfRunLoopRef)
	cfStringCreateWithBytes func(alloc cfAllocatorRef, bytes []byte, numBytes cfIndex, encoding cfStringEncoding, isExternal bool) cfStringRef

	ioHIDDeviceGetProperty                     func(device ioHIDDeviceRef, key cfStringRef) cfTypeRef
	ioHIDManagerClose                          func(manager ioHIDManagerRef, options ioOptionBits) ioReturn
	ioHIDManagerCreate                         func(allocator cfAllocatorRef, options ioOptionBits) ioHIDManagerRef
	ioHIDManagerOpen                           func(manager ioHIDManagerRef, options ioOptionBits) ioReturn
	ioHIDManagerSetDeviceMatching              func(manager ioHIDManagerRef, matching uintptr)
	ioHIDManagerRegisterDeviceMatchingCallback func(manager ioHIDManagerRef, callback uintptr, context unsafe.Pointer)
	ioHIDManagerScheduleWithRunLoop            func(manager ioHIDManagerRef, runLoop cfRunLoopRef, mode cfStringRef)

	cfRunLoopDefaultMode uintptr
)

var (
	loadOnce sync.Once
	loadErr  error
)

// load binds the frameworks on first use.
func load() error {
	loadOnce.Do(func() {
		cf, err := purego.Dlopen("/System/Library/Frameworks/CoreFoundation.framework/CoreFoundation", purego.RTLD_LAZY|purego.RTLD_GLOBAL)
		if err != nil {
			loadErr = err
			return
		}
		purego.RegisterLibFunc(&cfNumberGetValue, cf, "CFNumberGetValue")
		purego.RegisterLibFunc(&cfRelease, cf, "CFRelease")
		purego.RegisterLibFunc(&cfRunLoopGetCurrent, cf, "CFRunLoopGetCurrent")
		purego.RegisterLibFunc(&cfRunLoopRun, cf, "CFRunLoopRun")
		purego.RegisterLibFunc(&cfRunLoopStop, cf, "CFRunLoopStop")
		purego.RegisterLibFunc(&cfStringCreateWithBytes, cf, "CFStringCreateWithBytes")
		if cfRunLoopDefaultMode, err = purego.Dlsym(cf, "kCFRunLoopDefaultMode"); err != nil {
			loadErr = err
			return
		}

		iokit, err := purego.Dlopen("/System/Library/Frameworks/IOKit.framework/IOKit", purego.RTLD_LAZY|purego.RTLD_GLOBAL)
		if err != nil {
			loadErr = err
			return
		}
		purego.RegisterLibFunc(&ioHIDDeviceGetProperty, iokit, "IOHIDDeviceGetProperty")
		purego.RegisterLibFunc(&ioHIDManagerClose, iokit, "IOHIDManagerClose")
		purego.RegisterLibFunc(&ioHIDManagerCreate, iokit, "IOHIDManagerCreate")
		purego.RegisterLibFunc(&ioHIDManagerOpen, iokit, "IOHIDManagerOpen")
		purego.RegisterLibFunc(&ioHIDManagerSetDeviceMatching, iokit, "IOHIDManagerSetDeviceMatching")
		purego.RegisterLibFunc(&ioHIDManagerRegisterDeviceMatchingCallback, iokit, "IOHIDManagerRegisterDeviceMatchingCallback")
		purego.RegisterLibFunc(&ioHIDManagerScheduleWithRunLoop, iokit, "IOHIDManagerScheduleWithRunLoop")

		matchCallback = purego.NewCallback(onDeviceMatched)
	})
	return loadErr
}

// IOKit calls back with a C context pointer; Go pointers can't be handed
// over, so the active watcher lives here. One watcher at a time.
var (
	activeMu      sync.Mutex
	active        *arrivals
	matchCallback uintptr
)

func onDeviceMatched(_ unsafe.Pointer, _ ioReturn, _ uintptr, dev ioHIDDeviceRef) {
	activeMu.Lock()
	a := active
	activeMu.Unlock()
	if a == nil {
		return
	}
	if vid, ok := vendorID(dev); ok {
		a.notify(vid)
	}
}

func vendorID(dev ioHIDDeviceRef) (uint16, bool) {
	name := []byte("VendorID")
	key := cfStringCreateWithBytes(cfAllocatorDefault, name, cfIndex(len(name)), cfStringEncodingUTF8, false)
	if key == 0 {
		return 0, false
	}
	defer cfRelease(cfTypeRef(key))

	prop := ioHIDDeviceGetProperty(dev, key)
	if prop == 0 {
		return 0, false
	}
	var vid uint16
	if !cfNumberGetValue(cfNumberRef(prop), cfNumberSInt16Type, unsafe.Pointer(&vid)) {
		return 0, false
	}
	return vid, true
}

// start runs an IOHIDManager on a locked OS thread with its own run loop.
// The manager matches every HID device; arrivals filters by vendor.
func start(ctx context.Context, a *arrivals) {
	if err := load(); err != nil {
		a.logger.Warn("Unable to load IOKit, USB arrivals will not be seen", "err", err)
		return
	}

	activeMu.Lock()
	active = a
	activeMu.Unlock()

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		mgr := ioHIDManagerCreate(cfAllocatorDefault, ioHIDOptionsNone)
		if rv := ioHIDManagerOpen(mgr, ioHIDOptionsNone); rv != ioReturnSuccess {
			a.logger.Warn("Unable to open IOHIDManager", "return", rv)
			return
		}
		ioHIDManagerSetDeviceMatching(mgr, 0)

		rl := cfRunLoopGetCurrent()
		ioHIDManagerScheduleWithRunLoop(mgr, rl, **(**cfStringRef)(unsafe.Pointer(&cfRunLoopDefaultMode)))
		ioHIDManagerRegisterDeviceMatchingCallback(mgr, matchCallback, nil)

		go func() {
			<-ctx.Done()
			cfRunLoopStop(rl)
		}()

		a.logger.Debug("Watching for USB arrivals", "vendor", a.vendorID)
		cfRunLoopRun()

		ioHIDManagerClose(mgr, ioHIDOptionsNone)
		cfRelease(cfTypeRef(mgr))

		activeMu.Lock()
		if active == a {
			active = nil
		}
		activeMu.Unlock()
		a.logger.Debug("Stopped watching for USB arrivals")
	}()
}
