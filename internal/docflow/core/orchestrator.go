package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"docflow/internal/docflow/domain"
	"docflow/internal/docflow/progress"
	docerrors "docflow/pkg/errors"
	"docflow/pkg/logger"
)

const (
	SuccessMessage = "Document uploaded and processed successfully!"
	SuccessIcon    = "🎉"

	uploadFallback  = "Failed to upload PDF. Please try again."
	processFallback = "Failed to run driver. Please try again."
	abortedMessage  = "Submission aborted"

	subscriberBuffer = 16
	publishTimeout   = 50 * time.Millisecond
)

// errSkip aborts a transition without publishing and without being an error for the caller.
var errSkip = errors.New("skip")

// Validator decides whether a candidate may be selected.
type Validator interface {
	Validate(c *domain.Candidate) (*domain.SelectedFile, error)
}

// Orchestrator owns the submission state machine. It validates selections,
// runs the store and trigger calls strictly in sequence, and drives a progress
// estimator while a submission is in flight.
type Orchestrator struct {
	mu sync.RWMutex
	// emitMu orders state mutations with their publication
	emitMu sync.Mutex

	state       domain.SubmissionState
	resumeState domain.SubmissionState
	file        *domain.SelectedFile
	percent     float64
	timing      domain.PhaseTiming
	lastErr     *domain.SubmissionError
	closed      bool

	generation   uint64
	estimator    *progress.Estimator
	cancelSubmit context.CancelFunc

	subscribers map[chan domain.Event]struct{}
	subMu       sync.RWMutex

	validator      Validator
	transport      domain.Transport
	notifier       domain.Notifier
	progressConfig progress.Config

	logger *logger.Logger
}

// NewOrchestrator creates an orchestrator in the Idle state. A nil notifier
// discards notifications.
func NewOrchestrator(validator Validator, transport domain.Transport, notifier domain.Notifier, progressConfig progress.Config) *Orchestrator {
	if notifier == nil {
		notifier = discardNotifier{}
	}
	return &Orchestrator{
		state:          domain.StateIdle,
		resumeState:    domain.StateIdle,
		subscribers:    make(map[chan domain.Event]struct{}),
		validator:      validator,
		transport:      transport,
		notifier:       notifier,
		progressConfig: progressConfig,
		logger:         logger.WithField("component", "orchestrator"),
	}
}

// State returns the current state.
func (o *Orchestrator) State() domain.SubmissionState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Progress returns the displayed completion percentage.
func (o *Orchestrator) Progress() float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.percent
}

// SelectedFile returns the selected file, or nil.
func (o *Orchestrator) SelectedFile() *domain.SelectedFile {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.file
}

// Timing returns the phase timing of the current or last submission.
func (o *Orchestrator) Timing() domain.PhaseTiming {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.timing
}

// LastError returns the failure of the last submission, or nil.
func (o *Orchestrator) LastError() *domain.SubmissionError {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastErr
}

// DragEnter marks a drag over the drop zone.
func (o *Orchestrator) DragEnter() error {
	return o.transition(func() error {
		if err := o.checkIdleLocked(); err != nil {
			return err
		}
		if o.state == domain.StateDragging {
			return errSkip
		}
		o.resumeState = o.state
		return o.setStateLocked(domain.StateDragging)
	})
}

// DragLeave ends a drag without a drop, returning to the state before it.
func (o *Orchestrator) DragLeave() error {
	return o.transition(func() error {
		if o.state != domain.StateDragging {
			return docerrors.ErrNotDragging
		}
		return o.setStateLocked(o.resumeState)
	})
}

// Drop ends a drag and selects the dropped candidate.
func (o *Orchestrator) Drop(c *domain.Candidate) (*domain.SelectedFile, error) {
	if err := o.DragLeave(); err != nil && !errors.Is(err, docerrors.ErrNotDragging) {
		return nil, err
	}
	return o.SelectFile(c)
}

// SelectFile validates c and, when accepted, makes it the file to submit.
// A rejection is notified and leaves the state unchanged.
func (o *Orchestrator) SelectFile(c *domain.Candidate) (*domain.SelectedFile, error) {
	o.mu.RLock()
	err := o.checkIdleLocked()
	o.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	file, err := o.validator.Validate(c)
	if err != nil {
		o.logger.Info("file rejected", "error", err)
		o.surface(&domain.SubmissionError{Phase: domain.PhaseValidation, Message: err.Error()})
		return nil, err
	}

	err = o.transition(func() error {
		if err := o.checkIdleLocked(); err != nil {
			return err
		}
		o.file = file
		o.lastErr = nil
		return o.setStateLocked(domain.StateReady)
	})
	if err != nil {
		return nil, err
	}

	o.logger.Debug("file selected", "name", file.Name, "sizeBytes", file.SizeBytes)
	return file, nil
}

// RemoveFile drops the selected file and returns to Idle. Refused while busy.
func (o *Orchestrator) RemoveFile() error {
	return o.transition(func() error {
		if err := o.checkIdleLocked(); err != nil {
			return err
		}
		o.file = nil
		o.lastErr = nil
		return o.setStateLocked(domain.StateIdle)
	})
}

// Clear is RemoveFile.
func (o *Orchestrator) Clear() error {
	return o.RemoveFile()
}

// Submit stores the selected file and then triggers processing. It is refused
// with ErrNotReady unless the orchestrator is Ready, and with ErrBusy while
// another submission is in flight. Transport failures are not returned as
// errors; they are notified and reported in the Result.
func (o *Orchestrator) Submit(ctx context.Context) (*domain.Result, error) {
	var (
		file   *domain.SelectedFile
		est    *progress.Estimator
		subCtx context.Context
		cancel context.CancelFunc
		gen    uint64
	)

	err := o.transition(func() error {
		if o.closed {
			return docerrors.ErrClosed
		}
		if o.state.IsBusy() {
			return docerrors.ErrBusy
		}
		if o.state != domain.StateReady || o.file == nil {
			return docerrors.ErrNotReady
		}

		if err := o.setStateLocked(domain.StateUploading); err != nil {
			return err
		}
		o.generation++
		gen = o.generation
		o.timing = domain.PhaseTiming{}
		o.lastErr = nil
		file = o.file

		est = progress.NewEstimator(o.progressConfig, func(v float64) { o.onTick(gen, v) })
		o.estimator = est
		subCtx, cancel = context.WithCancel(ctx)
		o.cancelSubmit = cancel
		return nil
	})
	if err != nil {
		o.logger.Debug("submit refused", "state", string(o.State()), "reason", err)
		return nil, err
	}

	defer o.release(gen, est, cancel)
	est.Start(subCtx)

	log := o.logger.WithFields("file", file.Name, "sizeBytes", file.SizeBytes)
	log.Info("submission started")

	started := time.Now()
	_, err = o.transport.Store(subCtx, file)
	uploadSeconds := time.Since(started).Seconds()
	if err != nil {
		return o.fail(est, domain.PhaseUpload, err, &uploadSeconds, nil), nil
	}

	err = o.transition(func() error {
		o.timing.UploadSeconds = &uploadSeconds
		return o.setStateLocked(domain.StateProcessing)
	})
	if err != nil {
		return o.fail(est, domain.PhaseProcess, err, &uploadSeconds, nil), nil
	}
	log.Debug("upload phase complete", "seconds", uploadSeconds)

	started = time.Now()
	reply, err := o.transport.Trigger(subCtx)
	processSeconds := time.Since(started).Seconds()
	if err != nil {
		return o.fail(est, domain.PhaseProcess, err, &uploadSeconds, &processSeconds), nil
	}

	return o.succeed(est, reply, &uploadSeconds, &processSeconds), nil
}

// Subscribe returns a channel of events and a function to stop receiving them.
// Subscribers that do not keep up are dropped.
func (o *Orchestrator) Subscribe() (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, subscriberBuffer)

	o.subMu.Lock()
	if o.isClosed() {
		o.subMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	o.subscribers[ch] = struct{}{}
	o.subMu.Unlock()

	return ch, func() { o.removeSubscriber(ch) }
}

// Close releases the progress timer, cancels an in-flight submission and
// closes all subscriptions. Further events are refused with ErrClosed.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	est := o.estimator
	cancel := o.cancelSubmit
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if est != nil {
		est.Stop()
	}

	o.subMu.Lock()
	for ch := range o.subscribers {
		delete(o.subscribers, ch)
		close(ch)
	}
	o.subMu.Unlock()

	o.logger.Debug("orchestrator closed")
	return nil
}

func (o *Orchestrator) succeed(est *progress.Estimator, reply *domain.Reply, uploadSeconds, processSeconds *float64) *domain.Result {
	est.Stop()

	var timing domain.PhaseTiming
	_ = o.transition(func() error {
		o.timing = domain.PhaseTiming{UploadSeconds: uploadSeconds, ProcessSeconds: processSeconds}
		timing = o.timing
		if err := o.setStateLocked(domain.StateSucceeded); err != nil {
			return err
		}
		o.percent = 100
		return nil
	})

	fields := []interface{}{"timing", timing.String()}
	if reply != nil && reply.Message != "" {
		fields = append(fields, "serverMessage", reply.Message)
	}
	o.logger.Info("submission succeeded", fields...)
	o.notifier.Notify(domain.NotifySuccess, SuccessMessage, SuccessIcon)

	_ = o.transition(func() error {
		o.file = nil
		return o.setStateLocked(domain.StateIdle)
	})

	return &domain.Result{Succeeded: true, Timing: timing}
}

func (o *Orchestrator) fail(est *progress.Estimator, phase domain.Phase, cause error, uploadSeconds, processSeconds *float64) *domain.Result {
	est.Stop()

	subErr := &domain.SubmissionError{Phase: phase, Message: failureMessage(phase, cause)}

	var timing domain.PhaseTiming
	_ = o.transition(func() error {
		o.timing = domain.PhaseTiming{UploadSeconds: uploadSeconds, ProcessSeconds: processSeconds}
		timing = o.timing
		o.lastErr = subErr
		return o.setStateLocked(domain.StateFailed)
	})

	o.logger.Warn("submission failed", "phase", string(phase), "error", cause, "timing", timing.String())
	o.surface(subErr)

	_ = o.transition(func() error {
		return o.settleLocked()
	})

	return &domain.Result{Succeeded: false, Timing: timing, Err: subErr}
}

// release runs on every exit from Submit. After a normal return the state is
// already settled; after a panic it is still busy and gets settled here.
func (o *Orchestrator) release(gen uint64, est *progress.Estimator, cancel context.CancelFunc) {
	cancel()
	est.Stop()

	_ = o.transition(func() error {
		if o.estimator == est {
			o.estimator = nil
			o.cancelSubmit = nil
		}
		if o.generation != gen || !o.state.IsBusy() {
			return errSkip
		}
		o.lastErr = &domain.SubmissionError{Phase: domain.PhaseUpload, Message: abortedMessage}
		if o.state == domain.StateProcessing {
			o.lastErr.Phase = domain.PhaseProcess
		}
		if err := o.setStateLocked(domain.StateFailed); err != nil {
			return err
		}
		return o.settleLocked()
	})
}

func (o *Orchestrator) onTick(gen uint64, value float64) {
	_ = o.transition(func() error {
		if gen != o.generation || !o.state.IsBusy() || value <= o.percent {
			return errSkip
		}
		o.percent = value
		return nil
	})
}

// settleLocked leaves Failed: the file is kept, so the user can submit again.
func (o *Orchestrator) settleLocked() error {
	if o.file != nil {
		return o.setStateLocked(domain.StateReady)
	}
	return o.setStateLocked(domain.StateIdle)
}

func (o *Orchestrator) checkIdleLocked() error {
	if o.closed {
		return docerrors.ErrClosed
	}
	if o.state.IsBusy() || o.state.IsTerminal() {
		return docerrors.ErrBusy
	}
	return nil
}

func (o *Orchestrator) setStateLocked(to domain.SubmissionState) error {
	from := o.state
	if !isAllowedTransition(from, to) {
		return fmt.Errorf("disallowed transition: %s -> %s", from, to)
	}
	o.state = to
	if to == domain.StateIdle || to == domain.StateReady {
		o.percent = 0
	}
	if from != to {
		o.logger.Debug("state changed", "from", string(from), "to", string(to))
	}
	return nil
}

func isAllowedTransition(from, to domain.SubmissionState) bool {
	switch from {
	case domain.StateIdle:
		return to == domain.StateIdle || to == domain.StateDragging || to == domain.StateReady
	case domain.StateDragging:
		return to == domain.StateIdle || to == domain.StateReady
	case domain.StateReady:
		return to == domain.StateReady || to == domain.StateIdle || to == domain.StateDragging || to == domain.StateUploading
	case domain.StateUploading:
		return to == domain.StateProcessing || to == domain.StateFailed
	case domain.StateProcessing:
		return to == domain.StateSucceeded || to == domain.StateFailed
	case domain.StateSucceeded:
		return to == domain.StateIdle
	case domain.StateFailed:
		return to == domain.StateReady || to == domain.StateIdle
	default:
		return false
	}
}

// transition applies mutate under the state lock and publishes the resulting
// snapshot. errSkip from mutate means nothing changed.
func (o *Orchestrator) transition(mutate func() error) error {
	o.emitMu.Lock()
	defer o.emitMu.Unlock()

	o.mu.Lock()
	if err := mutate(); err != nil {
		o.mu.Unlock()
		if errors.Is(err, errSkip) {
			return nil
		}
		return err
	}
	event := domain.Event{
		State:    o.state,
		Progress: o.percent,
		File:     o.file,
		Timing:   o.timing,
	}
	o.mu.Unlock()

	o.publish(event)
	return nil
}

func (o *Orchestrator) publish(event domain.Event) {
	o.subMu.RLock()
	if len(o.subscribers) == 0 {
		o.subMu.RUnlock()
		return
	}
	channels := make([]chan domain.Event, 0, len(o.subscribers))
	for ch := range o.subscribers {
		channels = append(channels, ch)
	}
	o.subMu.RUnlock()

	for _, ch := range channels {
		if !o.send(ch, event) {
			o.logger.Warn("slow subscriber detected, removing", "timeout", publishTimeout)
			o.removeSubscriber(ch)
		}
	}
}

// send reports false only when the subscriber did not take the event in time.
func (o *Orchestrator) send(ch chan domain.Event, event domain.Event) (ok bool) {
	defer func() {
		// the channel was closed by a concurrent unsubscribe
		if recover() != nil {
			ok = true
		}
	}()

	timer := time.NewTimer(publishTimeout)
	defer timer.Stop()

	select {
	case ch <- event:
		return true
	case <-timer.C:
		return false
	}
}

func (o *Orchestrator) removeSubscriber(ch chan domain.Event) {
	o.subMu.Lock()
	defer o.subMu.Unlock()
	if _, exists := o.subscribers[ch]; exists {
		delete(o.subscribers, ch)
		close(ch)
	}
}

func (o *Orchestrator) isClosed() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.closed
}

// surface reports a failure to the user.
func (o *Orchestrator) surface(err *domain.SubmissionError) {
	if err.Phase == domain.PhaseValidation {
		o.notifier.Notify(domain.NotifyError, err.Message, "")
		return
	}
	o.notifier.Notify(domain.NotifyError, "Upload failed: "+err.Message, "")
}

// failureMessage prefers the server's explanation over a generic fallback.
func failureMessage(phase domain.Phase, err error) string {
	var te *domain.TransportError
	if errors.As(err, &te) && te.Message != "" {
		return te.Message
	}
	if phase == domain.PhaseProcess {
		return processFallback
	}
	return uploadFallback
}

type discardNotifier struct{}

func (discardNotifier) Notify(domain.NotificationKind, string, string) {}
