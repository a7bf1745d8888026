package orchestrator

// State is one node of the session state machine.
type State int

const (
	StateInit State = iota
	StateMenu
	StateSearching
	StateHistory
	StateFeed
	StateSubscribe
	StateSelecting
	StatePlaying
	StateDownloading
	StateExit
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateMenu:
		return "menu"
	case StateSearching:
		return "searching"
	case StateHistory:
		return "history"
	case StateFeed:
		return "feed"
	case StateSubscribe:
		return "subscribe"
	case StateSelecting:
		return "selecting"
	case StatePlaying:
		return "playing"
	case StateDownloading:
		return "downloading"
	case StateExit:
		return "exit"
	default:
		return "unknown"
	}
}
