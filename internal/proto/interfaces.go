package proto

import "github.com/rillwm/rill/internal/wire"

// Opcode constants are declared next to each interface, requests first,
// then events. Signatures list arguments in wire order; fd arguments
// occupy no message bytes but consume one ancillary descriptor each.

// wl_display requests and events.
const (
	DisplaySync        uint16 = 0
	DisplayGetRegistry uint16 = 1

	DisplayEvtError    uint16 = 0
	DisplayEvtDeleteID uint16 = 1
)

var WlDisplay = register(&Interface{
	Name:    "wl_display",
	Version: 1,
	Requests: []MessageDesc{
		{Name: "sync", Since: 1, Args: []wire.ArgKind{wire.NewID}},
		{Name: "get_registry", Since: 1, Args: []wire.ArgKind{wire.NewID}},
	},
	Events: []MessageDesc{
		{Name: "error", Since: 1, Args: []wire.ArgKind{wire.ObjectID, wire.Uint, wire.String}},
		{Name: "delete_id", Since: 1, Args: []wire.ArgKind{wire.Uint}},
	},
})

// wl_registry requests and events.
const (
	RegistryBind uint16 = 0

	RegistryEvtGlobal       uint16 = 0
	RegistryEvtGlobalRemove uint16 = 1
)

var WlRegistry = register(&Interface{
	Name:    "wl_registry",
	Version: 1,
	Requests: []MessageDesc{
		{Name: "bind", Since: 1, Args: []wire.ArgKind{wire.Uint, wire.String, wire.Uint, wire.NewID}},
	},
	Events: []MessageDesc{
		{Name: "global", Since: 1, Args: []wire.ArgKind{wire.Uint, wire.String, wire.Uint}},
		{Name: "global_remove", Since: 1, Args: []wire.ArgKind{wire.Uint}},
	},
})

// wl_callback events.
const (
	CallbackEvtDone uint16 = 0
)

var WlCallback = register(&Interface{
	Name:    "wl_callback",
	Version: 1,
	Events: []MessageDesc{
		{Name: "done", Since: 1, Args: []wire.ArgKind{wire.Uint}},
	},
})

// wl_compositor requests.
const (
	CompositorCreateSurface uint16 = 0
)

var WlCompositor = register(&Interface{
	Name:    "wl_compositor",
	Version: 4,
	Requests: []MessageDesc{
		{Name: "create_surface", Since: 1, Args: []wire.ArgKind{wire.NewID}},
	},
})

// wl_subcompositor requests.
const (
	SubcompositorDestroy       uint16 = 0
	SubcompositorGetSubsurface uint16 = 1
)

var WlSubcompositor = register(&Interface{
	Name:    "wl_subcompositor",
	Version: 1,
	Requests: []MessageDesc{
		{Name: "destroy", Since: 1},
		{Name: "get_subsurface", Since: 1, Args: []wire.ArgKind{wire.NewID, wire.ObjectID, wire.ObjectID}},
	},
})

// wl_surface requests.
const (
	SurfaceDestroy uint16 = 0
	SurfaceAttach  uint16 = 1
	SurfaceCommit  uint16 = 2
)

var WlSurface = register(&Interface{
	Name:    "wl_surface",
	Version: 4,
	Requests: []MessageDesc{
		{Name: "destroy", Since: 1},
		{Name: "attach", Since: 1, Args: []wire.ArgKind{wire.ObjectID, wire.Int, wire.Int}},
		{Name: "commit", Since: 1},
	},
})

// wl_shm requests and events.
const (
	ShmCreatePool uint16 = 0

	ShmEvtFormat uint16 = 0
)

var WlShm = register(&Interface{
	Name:    "wl_shm",
	Version: 1,
	Requests: []MessageDesc{
		{Name: "create_pool", Since: 1, Args: []wire.ArgKind{wire.NewID, wire.Fd, wire.Int}},
	},
	Events: []MessageDesc{
		{Name: "format", Since: 1, Args: []wire.ArgKind{wire.Uint}},
	},
})

// wl_shm_pool requests.
const (
	ShmPoolCreateBuffer uint16 = 0
	ShmPoolDestroy      uint16 = 1
	ShmPoolResize       uint16 = 2
)

var WlShmPool = register(&Interface{
	Name:    "wl_shm_pool",
	Version: 1,
	Requests: []MessageDesc{
		{Name: "create_buffer", Since: 1, Args: []wire.ArgKind{wire.NewID, wire.Int, wire.Int, wire.Int, wire.Int, wire.Uint}},
		{Name: "destroy", Since: 1},
		{Name: "resize", Since: 1, Args: []wire.ArgKind{wire.Int}},
	},
})

// wl_buffer requests and events.
const (
	BufferDestroy uint16 = 0

	BufferEvtRelease uint16 = 0
)

var WlBuffer = register(&Interface{
	Name:    "wl_buffer",
	Version: 1,
	Requests: []MessageDesc{
		{Name: "destroy", Since: 1},
	},
	Events: []MessageDesc{
		{Name: "release", Since: 1},
	},
})

// wl_output requests and events.
const (
	OutputRelease uint16 = 0

	OutputEvtGeometry uint16 = 0
	OutputEvtMode     uint16 = 1
	OutputEvtDone     uint16 = 2
	OutputEvtScale    uint16 = 3
)

var WlOutput = register(&Interface{
	Name:    "wl_output",
	Version: 3,
	Requests: []MessageDesc{
		{Name: "release", Since: 3},
	},
	Events: []MessageDesc{
		{Name: "geometry", Since: 1, Args: []wire.ArgKind{wire.Int, wire.Int, wire.Int, wire.Int, wire.Int, wire.String, wire.String, wire.Int}},
		{Name: "mode", Since: 1, Args: []wire.ArgKind{wire.Uint, wire.Int, wire.Int, wire.Int}},
		{Name: "done", Since: 2},
		{Name: "scale", Since: 2, Args: []wire.ArgKind{wire.Int}},
	},
})

// wl_seat requests and events.
const (
	SeatGetPointer  uint16 = 0
	SeatGetKeyboard uint16 = 1
	SeatGetTouch    uint16 = 2
	SeatRelease     uint16 = 3

	SeatEvtCapabilities uint16 = 0
	SeatEvtName         uint16 = 1
)

// Seat capability bits.
const (
	SeatCapPointer  uint32 = 1
	SeatCapKeyboard uint32 = 2
	SeatCapTouch    uint32 = 4
)

var WlSeat = register(&Interface{
	Name:    "wl_seat",
	Version: 5,
	Requests: []MessageDesc{
		{Name: "get_pointer", Since: 1, Args: []wire.ArgKind{wire.NewID}},
		{Name: "get_keyboard", Since: 1, Args: []wire.ArgKind{wire.NewID}},
		{Name: "get_touch", Since: 1, Args: []wire.ArgKind{wire.NewID}},
		{Name: "release", Since: 5},
	},
	Events: []MessageDesc{
		{Name: "capabilities", Since: 1, Args: []wire.ArgKind{wire.Uint}},
		{Name: "name", Since: 2, Args: []wire.ArgKind{wire.String}},
	},
})

// wl_pointer requests and events.
const (
	PointerSetCursor uint16 = 0
	PointerRelease   uint16 = 1

	PointerEvtEnter  uint16 = 0
	PointerEvtLeave  uint16 = 1
	PointerEvtMotion uint16 = 2
	PointerEvtButton uint16 = 3
	PointerEvtAxis   uint16 = 4
)

var WlPointer = register(&Interface{
	Name:    "wl_pointer",
	Version: 5,
	Requests: []MessageDesc{
		{Name: "set_cursor", Since: 1, Args: []wire.ArgKind{wire.Uint, wire.ObjectID, wire.Int, wire.Int}},
		{Name: "release", Since: 3},
	},
	Events: []MessageDesc{
		{Name: "enter", Since: 1, Args: []wire.ArgKind{wire.Uint, wire.ObjectID, wire.FixedArg, wire.FixedArg}},
		{Name: "leave", Since: 1, Args: []wire.ArgKind{wire.Uint, wire.ObjectID}},
		{Name: "motion", Since: 1, Args: []wire.ArgKind{wire.Uint, wire.FixedArg, wire.FixedArg}},
		{Name: "button", Since: 1, Args: []wire.ArgKind{wire.Uint, wire.Uint, wire.Uint, wire.Uint}},
		{Name: "axis", Since: 1, Args: []wire.ArgKind{wire.Uint, wire.Uint, wire.FixedArg}},
	},
})

// wl_keyboard requests and events.
const (
	KeyboardRelease uint16 = 0

	KeyboardEvtKeymap     uint16 = 0
	KeyboardEvtEnter      uint16 = 1
	KeyboardEvtLeave      uint16 = 2
	KeyboardEvtKey        uint16 = 3
	KeyboardEvtModifiers  uint16 = 4
	KeyboardEvtRepeatInfo uint16 = 5
)

// Keymap formats delivered with the keymap event.
const (
	KeymapFormatNone    uint32 = 0
	KeymapFormatXkbV1   uint32 = 1
)

var WlKeyboard = register(&Interface{
	Name:    "wl_keyboard",
	Version: 5,
	Requests: []MessageDesc{
		{Name: "release", Since: 3},
	},
	Events: []MessageDesc{
		{Name: "keymap", Since: 1, Args: []wire.ArgKind{wire.Uint, wire.Fd, wire.Uint}},
		{Name: "enter", Since: 1, Args: []wire.ArgKind{wire.Uint, wire.ObjectID, wire.Array}},
		{Name: "leave", Since: 1, Args: []wire.ArgKind{wire.Uint, wire.ObjectID}},
		{Name: "key", Since: 1, Args: []wire.ArgKind{wire.Uint, wire.Uint, wire.Uint, wire.Uint}},
		{Name: "modifiers", Since: 1, Args: []wire.ArgKind{wire.Uint, wire.Uint, wire.Uint, wire.Uint, wire.Uint}},
		{Name: "repeat_info", Since: 4, Args: []wire.ArgKind{wire.Int, wire.Int}},
	},
})

// wl_touch requests.
const (
	TouchRelease uint16 = 0
)

var WlTouch = register(&Interface{
	Name:    "wl_touch",
	Version: 5,
	Requests: []MessageDesc{
		{Name: "release", Since: 3},
	},
})

// wl_data_device_manager requests.
const (
	DataDeviceManagerCreateDataSource uint16 = 0
	DataDeviceManagerGetDataDevice    uint16 = 1
)

var WlDataDeviceManager = register(&Interface{
	Name:    "wl_data_device_manager",
	Version: 3,
	Requests: []MessageDesc{
		{Name: "create_data_source", Since: 1, Args: []wire.ArgKind{wire.NewID}},
		{Name: "get_data_device", Since: 1, Args: []wire.ArgKind{wire.NewID, wire.ObjectID}},
	},
})

// wl_data_source requests and events.
const (
	DataSourceOffer      uint16 = 0
	DataSourceDestroy    uint16 = 1
	DataSourceSetActions uint16 = 2

	DataSourceEvtTarget           uint16 = 0
	DataSourceEvtSend             uint16 = 1
	DataSourceEvtCancelled        uint16 = 2
	DataSourceEvtDndDropPerformed uint16 = 3
	DataSourceEvtDndFinished      uint16 = 4
	DataSourceEvtAction           uint16 = 5
)

var WlDataSource = register(&Interface{
	Name:    "wl_data_source",
	Version: 3,
	Requests: []MessageDesc{
		{Name: "offer", Since: 1, Args: []wire.ArgKind{wire.String}},
		{Name: "destroy", Since: 1},
		{Name: "set_actions", Since: 3, Args: []wire.ArgKind{wire.Uint}},
	},
	Events: []MessageDesc{
		{Name: "target", Since: 1, Args: []wire.ArgKind{wire.OptString}},
		{Name: "send", Since: 1, Args: []wire.ArgKind{wire.String, wire.Fd}},
		{Name: "cancelled", Since: 1},
		{Name: "dnd_drop_performed", Since: 3},
		{Name: "dnd_finished", Since: 3},
		{Name: "action", Since: 3, Args: []wire.ArgKind{wire.Uint}},
	},
})

// wl_data_device requests and events.
const (
	DataDeviceStartDrag    uint16 = 0
	DataDeviceSetSelection uint16 = 1
	DataDeviceRelease      uint16 = 2

	DataDeviceEvtDataOffer uint16 = 0
	DataDeviceEvtEnter     uint16 = 1
	DataDeviceEvtLeave     uint16 = 2
	DataDeviceEvtMotion    uint16 = 3
	DataDeviceEvtDrop      uint16 = 4
	DataDeviceEvtSelection uint16 = 5
)

var WlDataDevice = register(&Interface{
	Name:    "wl_data_device",
	Version: 3,
	Requests: []MessageDesc{
		{Name: "start_drag", Since: 1, Args: []wire.ArgKind{wire.ObjectID, wire.ObjectID, wire.ObjectID, wire.Uint}},
		{Name: "set_selection", Since: 1, Args: []wire.ArgKind{wire.ObjectID, wire.Uint}},
		{Name: "release", Since: 2},
	},
	Events: []MessageDesc{
		{Name: "data_offer", Since: 1, Args: []wire.ArgKind{wire.NewID}},
		{Name: "enter", Since: 1, Args: []wire.ArgKind{wire.Uint, wire.ObjectID, wire.FixedArg, wire.FixedArg, wire.ObjectID}},
		{Name: "leave", Since: 1},
		{Name: "motion", Since: 1, Args: []wire.ArgKind{wire.Uint, wire.FixedArg, wire.FixedArg}},
		{Name: "drop", Since: 1},
		{Name: "selection", Since: 1, Args: []wire.ArgKind{wire.ObjectID}},
	},
})

// wl_data_offer requests and events.
const (
	DataOfferAccept     uint16 = 0
	DataOfferReceive    uint16 = 1
	DataOfferDestroy    uint16 = 2
	DataOfferFinish     uint16 = 3
	DataOfferSetActions uint16 = 4

	DataOfferEvtOffer         uint16 = 0
	DataOfferEvtSourceActions uint16 = 1
	DataOfferEvtAction        uint16 = 2
	DataOfferEvtCancelled     uint16 = 3
)

var WlDataOffer = register(&Interface{
	Name:    "wl_data_offer",
	Version: 3,
	Requests: []MessageDesc{
		{Name: "accept", Since: 1, Args: []wire.ArgKind{wire.Uint, wire.OptString}},
		{Name: "receive", Since: 1, Args: []wire.ArgKind{wire.String, wire.Fd}},
		{Name: "destroy", Since: 1},
		{Name: "finish", Since: 3},
		{Name: "set_actions", Since: 3, Args: []wire.ArgKind{wire.Uint, wire.Uint}},
	},
	Events: []MessageDesc{
		{Name: "offer", Since: 1, Args: []wire.ArgKind{wire.String}},
		{Name: "source_actions", Since: 3, Args: []wire.ArgKind{wire.Uint}},
		{Name: "action", Since: 3, Args: []wire.ArgKind{wire.Uint}},
		{Name: "cancelled", Since: 1},
	},
})
