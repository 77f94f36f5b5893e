package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	service "github.com/ndh707/sart/internal/app"
	"github.com/ndh707/sart/internal/domain/model"
	"github.com/ndh707/sart/pkg/logger"
)

var errInputClosed = errors.New("input closed")

// display prints the task as it runs. It is an engine observer, so writes
// happen on the engine loop and must stay short.
type display struct {
	mu sync.Mutex
	w  io.Writer
}

func newDisplay(w io.Writer) *display {
	return &display{w: w}
}

func (d *display) PhaseChanged(_ context.Context, c model.PhaseChange) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch c.Phase {
	case model.PhaseStimulus:
		fmt.Fprintf(d.w, "\n[%2d]  %s", c.TrialIndex+1, c.Stimulus)
	case model.PhaseFeedback:
		fmt.Fprint(d.w, "  X")
	case model.PhaseComplete:
		fmt.Fprintf(d.w, "\nRun %d complete.\n", c.RunID)
	case model.PhaseIdle:
		fmt.Fprintln(d.w, "\nRun stopped.")
	}
}

func (d *display) ResponseRecorded(_ context.Context, a model.Attribution) {
	if a.Commission {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprint(d.w, "  +")
}

func (d *display) RunCompleted(context.Context, model.Run) {}

// readLines turns each input line into a press signal. The channel closes at
// end of input.
func readLines(ctx context.Context, r io.Reader) <-chan struct{} {
	out := make(chan struct{})
	go func() {
		defer close(out)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case out <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func waitLine(ctx context.Context, lines <-chan struct{}) error {
	select {
	case _, ok := <-lines:
		if !ok {
			return errInputClosed
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// forwardPresses sends every line to the engine until ctx ends.
func forwardPresses(ctx context.Context, svc *service.Service, lines <-chan struct{}) {
	log := logger.Get().Named("input")
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-lines:
			if !ok {
				return
			}
			a, err := svc.Respond(ctx, model.ResponseEvent{})
			if err != nil {
				log.Debug(ctx, "press refused", logger.Error(err))
				continue
			}
			if !a.Accepted {
				log.Debug(ctx, "press discarded", logger.String("reason", string(a.Reason)))
			}
		}
	}
}
