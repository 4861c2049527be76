// Package lib holds the state shared between the pieces of the runtime.
package lib

import (
	"io"

	"github.com/sirupsen/logrus"

	"go.jsrt.io/jsrt/lib/fsext"
)

// DefaultCompletionQueueSize is the capacity of the async task completion
// channel when State doesn't specify one.
const DefaultCompletionQueueSize = 100

// State is the bag of process-external dependencies a Runtime needs:
// the filesystem scripts and the fs built-in see, the writer print() goes
// to, the logger for host-side diagnostics. Tests swap these for in-memory
// equivalents.
type State struct {
	FS     fsext.Fs
	Stdout io.Writer
	Stderr io.Writer
	Logger logrus.FieldLogger

	// CompletionQueueSize bounds the number of task completions that can
	// sit between the worker goroutines and the event loop. Zero means
	// DefaultCompletionQueueSize.
	CompletionQueueSize int
}
