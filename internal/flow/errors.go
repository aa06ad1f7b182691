package flow

import "errors"

// Transition errors. A rejected transition leaves the state unchanged.
var (
	ErrUnknownTool       = errors.New("unknown tool")
	ErrNoToolSelected    = errors.New("no tool selected")
	ErrNothingToProcess  = errors.New("no files to process")
	ErrAlreadyProcessing = errors.New("already processing")
	ErrNotCompleted      = errors.New("processing not completed")
	ErrClosed            = errors.New("flow closed")
)
