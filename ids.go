package kernel

// Arena-index identifiers. Entities, processes, channels and timelines
// are allocated once during initialization and live for the whole
// simulation; these small integer ids are what Events reference,
// instead of embedding back-pointers. The structs themselves, and
// OutChannel mapping tables, hold direct pointers for convenience
// inside a single process; the ids are what Events carry across a
// timeline boundary.
type (
	EntityID     int
	ProcessID    int
	InChannelID  int
	OutChannelID int
	TimelineID   int
)

const noInChannel InChannelID = -1
