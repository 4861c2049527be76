// Package modulestest contains helpers for testing modules against a real
// engine and event loop without bringing up a full runtime driver.
package modulestest

import (
	"io"
	"testing"

	"github.com/grafana/sobek"
	"github.com/sirupsen/logrus"

	"go.jsrt.io/jsrt/js/eventloop"
	"go.jsrt.io/jsrt/lib/fsext"
)

// VU is a test implementation of modules.VU with settable fields.
type VU struct {
	RuntimeField   *sobek.Runtime
	EventLoopField *eventloop.EventLoop
	FSField        fsext.Fs
}

// Runtime returns the sobek runtime.
func (v *VU) Runtime() *sobek.Runtime { return v.RuntimeField }

// EventLoop returns the event loop.
func (v *VU) EventLoop() *eventloop.EventLoop { return v.EventLoopField }

// FS returns the filesystem.
func (v *VU) FS() fsext.Fs { return v.FSField }

// Runtime is a small harness: an engine, an event loop bound to it, an
// in-memory filesystem, and a VU tying them together.
type Runtime struct {
	VU   *VU
	Loop *eventloop.EventLoop
}

// NewRuntime returns a harness ready for module tests.
func NewRuntime(_ testing.TB) *Runtime {
	rt := sobek.New()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	loop := eventloop.New(rt, logger, 0)
	return &Runtime{
		VU: &VU{
			RuntimeField:   rt,
			EventLoopField: loop,
			FSField:        fsext.NewMemMapFs(),
		},
		Loop: loop,
	}
}
