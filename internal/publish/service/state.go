package service

// publishState is a step of one publish attempt.
//
//	Idle -> Creating|Updating -> Uploading -> Finalizing -> Done
//
// Any failure moves to Failed. The project record is written only on the way
// into Done.
type publishState int

const (
	stateIdle publishState = iota
	stateCreating
	stateUpdating
	stateUploading
	stateFinalizing
	stateDone
	stateFailed
)

func (s publishState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateCreating:
		return "creating"
	case stateUpdating:
		return "updating"
	case stateUploading:
		return "uploading"
	case stateFinalizing:
		return "finalizing"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s publishState) terminal() bool {
	return s == stateDone || s == stateFailed
}
