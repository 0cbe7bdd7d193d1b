// Package events defines the status messages the managers push back to
// whatever host is driving them (the TUI panel or a CLI command).
package events

import "enginectl/internal/models"

type Event interface {
	event()
}

// Notifier carries events to the host. A nil Notifier discards them.
type Notifier func(Event)

func (n Notifier) Notify(e Event) {
	if n != nil {
		n(e)
	}
}

type ConfigUpdated struct{}

type BuildStarted struct {
	Operation models.Operation
}

type BuildProgress struct {
	Percent int // 0-100
	Message string
}

type BuildSucceeded struct {
	Operation models.Operation
}

type BuildFailed struct {
	Operation models.Operation
	Err       string
}

type BuildCancelled struct {
	Operation models.Operation
}

type DebugStarted struct {
	Operation models.Operation
}

type DebugSucceeded struct {
	Operation models.Operation
}

type DebugFailed struct {
	Operation models.Operation
	Err       string
}

type DebugCancelled struct {
	Operation models.Operation
}

type ProjectDetected struct {
	Path string
}

func (ConfigUpdated) event()   {}
func (BuildStarted) event()    {}
func (BuildProgress) event()   {}
func (BuildSucceeded) event()  {}
func (BuildFailed) event()     {}
func (BuildCancelled) event()  {}
func (DebugStarted) event()    {}
func (DebugSucceeded) event()  {}
func (DebugFailed) event()     {}
func (DebugCancelled) event()  {}
func (ProjectDetected) event() {}
