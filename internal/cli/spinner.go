package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// spinnerInterval is the frame period; tests shorten it.
var spinnerInterval = 80 * time.Millisecond

// withSpinner runs fn while drawing a spinner with message on w. The line
// is cleared before withSpinner returns. Cancelling ctx stops the animation
// but still waits for fn, which has no way to be interrupted.
func withSpinner[T any](ctx context.Context, w io.Writer, message string, fn func() (T, error)) (T, error) {
	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		ticker := time.NewTicker(spinnerInterval)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				frame := spinnerFrames[i%len(spinnerFrames)]
				fmt.Fprintf(w, "\r%s %s", styleIconSpinner.Render(frame), StyleDim.Render(message))
			}
		}
	}()

	v, err := fn()
	close(done)
	<-stopped
	fmt.Fprintf(w, "\r%s\r", strings.Repeat(" ", len([]rune(message))+2))
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return v, err
}
