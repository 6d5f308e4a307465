package dispatch

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/sirupsen/logrus"
)

// State is the process-wide dispatcher lifecycle state (spec.md §4.6,
// §4.7, §5): a single word-sized flag read by every loop and written by
// the signal handler or by a queue-handler that detects the
// archived-files condition.
type State int32

const (
	// Running is the dispatcher's normal operating state.
	Running State = iota
	// Stopped means every loop must exit at its next poll point; no new
	// runs are submitted. In-flight farm-side runs are left running.
	Stopped
)

// Lifecycle owns the atomic state flag and the OS signal wiring.
type Lifecycle struct {
	state atomic.Int32
	log   logrus.FieldLogger
}

// NewLifecycle builds a Lifecycle in the Running state.
func NewLifecycle(log logrus.FieldLogger) *Lifecycle {
	if log == nil {
		log = logrus.StandardLogger()
	}
	l := &Lifecycle{log: log}
	l.state.Store(int32(Running))
	return l
}

// State reads the current lifecycle state.
func (l *Lifecycle) State() State {
	return State(l.state.Load())
}

// Running reports whether the dispatcher should keep submitting runs.
func (l *Lifecycle) Running() bool {
	return l.State() == Running
}

// Stop transitions the dispatcher to Stopped. Idempotent.
func (l *Lifecycle) Stop(reason string) {
	if l.state.Swap(int32(Stopped)) != int32(Stopped) {
		l.log.WithField("reason", reason).Warn("dispatch: lifecycle state -> STOP")
	}
}

// WatchSignals registers SIGINT and SIGUSR2 as graceful-stop triggers,
// and SIGTERM as equivalent to graceful stop (spec.md §4.7: "a distinct
// TERM state ... is not part of the canonical contract"). It returns a
// stop function that undoes the registration; callers should defer it.
func (l *Lifecycle) WatchSignals() (stop func()) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGUSR2, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sigs:
				l.log.WithField("signal", sig.String()).Info("dispatch: received stop signal")
				l.Stop("signal:" + sig.String())
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}
