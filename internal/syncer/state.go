package syncer

// Phase is the engine's activity.
type Phase int

const (
	Idle Phase = iota
	Syncing
	LoadingMore
)

func (p Phase) String() string {
	switch p {
	case Syncing:
		return "syncing"
	case LoadingMore:
		return "loading_more"
	default:
		return "idle"
	}
}

// State is a snapshot of the engine state.
type State struct {
	Phase Phase

	// HasMore is false once a load-more returned nothing older.
	HasMore bool
}

// Direction selects which end of the collection a sync extends.
type Direction int

const (
	// Refresh catches up with items newer than anything stored.
	Refresh Direction = iota
	// LoadMore fetches the page older than anything stored.
	LoadMore
)

func (d Direction) String() string {
	if d == LoadMore {
		return "load_more"
	}
	return "refresh"
}

func (d Direction) phase() Phase {
	if d == LoadMore {
		return LoadingMore
	}
	return Syncing
}
