// Package form coordinates controlled inputs: fields register with optional
// validators, values live in one map, Submit validates everything before
// handing the values to a Submitter, and field issues reported by the API
// are mapped back onto the fields they name.
package form

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/vitrine/storefront_sdk_go/pkg/gateway"
)

var (
	// ErrSubmitting is returned by Submit while a submission is in flight.
	ErrSubmitting = errors.New("form: submission already in progress")
	// ErrSubmitted is returned by Submit after a successful submission until
	// Reset is called.
	ErrSubmitted = errors.New("form: already submitted")
	// ErrClosed is returned by Submit once the form is closed.
	ErrClosed = errors.New("form: closed")
	// ErrNoSubmitter is returned by Submit on a form built without one.
	ErrNoSubmitter = errors.New("form: no submitter")
)

// State is the lifecycle of a form.
type State int

const (
	StateEmpty State = iota
	StateEditing
	StateValidating
	StateSubmitting
	StateSubmitted
)

func (s State) String() string {
	switch s {
	case StateEditing:
		return "editing"
	case StateValidating:
		return "validating"
	case StateSubmitting:
		return "submitting"
	case StateSubmitted:
		return "submitted"
	default:
		return "empty"
	}
}

// Values maps field names to their current values.
type Values map[string]any

// ValidationError lists the fields that failed local validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("form: invalid fields %v", names)
}

// Submitter sends the validated values.
type Submitter interface {
	Submit(ctx context.Context, values Values) (json.RawMessage, error)
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, values Values) (json.RawMessage, error)

func (f SubmitterFunc) Submit(ctx context.Context, values Values) (json.RawMessage, error) {
	return f(ctx, values)
}

// Options configures a Form.
type Options struct {
	OnSuccess func(data json.RawMessage)
	OnError   func(err error)
	Logger    *zap.Logger
}

// Form owns the values, errors and validators of one form instance.
type Form struct {
	submitter Submitter
	opts      Options
	logger    *zap.Logger

	mu         sync.Mutex
	state      State
	values     Values
	errors     map[string]string
	validators map[string][]Validator
	fields     map[string]*Field
	banner     []string
	closed     bool
}

// New creates an empty form that submits through s.
func New(s Submitter, opts Options) *Form {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Form{
		submitter:  s,
		opts:       opts,
		logger:     logger,
		values:     make(Values),
		errors:     make(map[string]string),
		validators: make(map[string][]Validator),
		fields:     make(map[string]*Field),
	}
}

// Field registers name with its validators and returns its handle.
// Registering a name again replaces the validators and keeps the value.
func (f *Form) Field(name string, validators ...Validator) *Field {
	f.mu.Lock()
	defer f.mu.Unlock()

	h := &Field{name: name, form: f}
	f.fields[name] = h
	if len(validators) > 0 {
		f.validators[name] = append([]Validator(nil), validators...)
	} else {
		delete(f.validators, name)
	}
	if f.state == StateEmpty {
		f.state = StateEditing
	}
	return h
}

// Unregister removes name's value, validators and error.
func (f *Form) Unregister(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unregisterLocked(name)
}

func (f *Form) unregisterLocked(name string) {
	delete(f.fields, name)
	delete(f.validators, name)
	delete(f.values, name)
	delete(f.errors, name)
	if len(f.fields) == 0 && f.state == StateEditing {
		f.state = StateEmpty
	}
}

// SetValue stores v for name and clears name's error.
func (f *Form) SetValue(name string, v any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[name] = v
	delete(f.errors, name)
}

// Value returns name's current value, or nil.
func (f *Form) Value(name string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[name]
}

// Values returns a copy of every value.
func (f *Form) Values() Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyValues(f.values)
}

// Error returns name's error message, or "".
func (f *Form) Error(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errors[name]
}

// Errors returns a copy of the per-field errors.
func (f *Form) Errors() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

// Banner returns form-wide messages: API issues that name no registered
// field and the API message when no issue could be placed on a field.
func (f *Form) Banner() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.banner...)
}

// DismissBanner clears the form-wide messages.
func (f *Form) DismissBanner() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.banner = nil
}

// State returns the current lifecycle state.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Submitting reports whether a submission is in flight.
func (f *Form) Submitting() bool {
	return f.State() == StateSubmitting
}

// FieldNames returns the registered field names in order.
func (f *Form) FieldNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.fields))
	for name := range f.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset clears values, errors and the banner and leaves a submitted form
// editable again. Registered fields and validators stay.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateSubmitting {
		return
	}
	f.values = make(Values)
	f.errors = make(map[string]string)
	f.banner = nil
	f.state = StateEmpty
	if len(f.fields) > 0 {
		f.state = StateEditing
	}
}

// Close detaches the form. A submission still in flight settles without
// touching form state.
func (f *Form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

// Submit validates every registered field and, when all pass, sends the
// values. A local validation failure returns *ValidationError without
// calling the submitter.
func (f *Form) Submit(ctx context.Context) (json.RawMessage, error) {
	f.mu.Lock()
	switch {
	case f.closed:
		f.mu.Unlock()
		return nil, ErrClosed
	case f.submitter == nil:
		f.mu.Unlock()
		return nil, ErrNoSubmitter
	case f.state == StateSubmitting:
		f.mu.Unlock()
		return nil, ErrSubmitting
	case f.state == StateSubmitted:
		f.mu.Unlock()
		return nil, ErrSubmitted
	}

	prev := f.state
	f.state = StateValidating
	invalid := make(map[string]string)
	for name, validators := range f.validators {
		if msg := runValidators(validators, f.values[name], f.values); msg != "" {
			invalid[name] = msg
		}
	}
	if len(invalid) > 0 {
		f.errors = invalid
		f.state = prev
		if f.state == StateEmpty && len(f.fields) > 0 {
			f.state = StateEditing
		}
		f.mu.Unlock()
		f.logger.Debug("form validation failed", zap.Int("fields", len(invalid)))
		return nil, &ValidationError{Fields: copyErrors(invalid)}
	}

	f.errors = make(map[string]string)
	f.banner = nil
	f.state = StateSubmitting
	values := copyValues(f.values)
	f.mu.Unlock()

	data, err := f.submitter.Submit(ctx, values)

	f.mu.Lock()
	if !f.closed {
		if err != nil {
			f.applyErrorLocked(err)
			f.state = StateEditing
		} else {
			f.state = StateSubmitted
		}
	}
	f.mu.Unlock()

	if err != nil {
		f.logger.Debug("form submission failed", zap.Error(err))
		if f.opts.OnError != nil {
			f.opts.OnError(err)
		}
		return nil, err
	}
	if f.opts.OnSuccess != nil {
		f.opts.OnSuccess(data)
	}
	return data, nil
}

// applyErrorLocked maps API issues onto known fields; everything else goes
// to the banner.
func (f *Form) applyErrorLocked(err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		var banner []string
		for name, msg := range verr.Fields {
			if f.knownLocked(name) {
				f.errors[name] = msg
			} else if msg != "" {
				banner = append(banner, msg)
			}
		}
		sort.Strings(banner)
		f.banner = banner
		return
	}

	apiErr, ok := gateway.AsAPIError(err)
	if !ok {
		f.banner = []string{err.Error()}
		return
	}

	placed := 0
	var banner []string
	for _, is := range apiErr.Issues {
		if is.Field != "" && f.knownLocked(is.Field) {
			f.errors[is.Field] = is.Message
			placed++
			continue
		}
		if is.Message != "" {
			banner = append(banner, is.Message)
		}
	}
	if placed == 0 && apiErr.Message != "" {
		banner = append([]string{apiErr.Message}, banner...)
	}
	f.banner = banner
}

func (f *Form) knownLocked(name string) bool {
	if _, ok := f.fields[name]; ok {
		return true
	}
	if _, ok := f.values[name]; ok {
		return true
	}
	_, ok := f.validators[name]
	return ok
}

func copyValues(in Values) Values {
	out := make(Values, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyErrors(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Field is the handle returned by Form.Field.
type Field struct {
	name string
	form *Form
}

// Name returns the field name.
func (h *Field) Name() string { return h.name }

// Set stores v and clears the field's error.
func (h *Field) Set(v any) { h.form.SetValue(h.name, v) }

// Value returns the current value.
func (h *Field) Value() any { return h.form.Value(h.name) }

// Error returns the current error message.
func (h *Field) Error() string { return h.form.Error(h.name) }

// Dispose unregisters the field. It is a no-op when the name has since been
// registered by another handle or the field was already disposed.
func (h *Field) Dispose() {
	f := h.form
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fields[h.name] != h {
		return
	}
	f.unregisterLocked(h.name)
}
