package termview

import (
	"github.com/gdamore/tcell/v2"

	"github.com/Repin-Daniil/glonass-visualization/internal/control"
)

// Sink receives mapped input. frame.Scheduler satisfies it.
type Sink interface {
	Submit(ev control.Event) bool
	Stop()
}

// Pump reads screen events, maps them through in and submits the result to
// sink. It stops the sink and returns when the user quits, and returns
// without stopping it once the screen has been finalized.
func Pump(screen tcell.Screen, in *Input, sink Sink) {
	for {
		ev := screen.PollEvent()
		if ev == nil {
			return
		}
		events, quit := in.Map(ev)
		if quit {
			sink.Stop()
			return
		}
		for _, e := range events {
			sink.Submit(e)
		}
	}
}
