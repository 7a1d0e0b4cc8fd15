package pipeline

import (
	"fmt"

	"github.com/rotisserie/eris"
)

var (
	// ErrArtifactNotFound is returned when a stage's input path does not exist.
	ErrArtifactNotFound = eris.New("pipeline: artifact not found")
	// ErrArtifactMalformed is returned when an input artifact cannot be used.
	ErrArtifactMalformed = eris.New("pipeline: artifact malformed")
	// ErrEmptyInput is returned when a stage receives no records.
	ErrEmptyInput = eris.New("pipeline: empty input")
	// ErrAborted is returned when a stage was stopped or cancelled. No
	// artifact is published for an aborted stage.
	ErrAborted = eris.New("pipeline: aborted")

	errUnsupportedScheme = eris.New("unsupported scheme")
	errInvalidHost       = eris.New("invalid host")
)

// FatalError halts a run. It names the stage and the artifact involved.
type FatalError struct {
	Stage StageName
	Path  string
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("stage %s (%s): %v", e.Stage, e.Path, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }
