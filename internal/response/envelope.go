// Package response builds the uniform JSON envelope returned by every gateway endpoint.
package response

import (
	"fmt"
	"time"
)

// TimestampLayout renders UTC instants as ISO-8601 with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Envelope is the JSON wrapper shared by all responses. A successful envelope
// never carries Error; a failed one never carries Data.
type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Total     *int   `json:"total,omitempty"`
	Error     string `json:"error,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
	Stack     string `json:"stack,omitempty"`
}

// Builder creates envelopes stamped with the current time. In debug mode,
// failure envelopes include the error's stack trace.
type Builder struct {
	debug bool
	now   func() time.Time
}

// NewBuilder creates a Builder. debug enables stack traces on failures.
func NewBuilder(debug bool) *Builder {
	return &Builder{debug: debug, now: time.Now}
}

// Debug reports whether failures carry stack traces.
func (b *Builder) Debug() bool {
	return b.debug
}

// Now returns the builder's current time formatted with TimestampLayout.
func (b *Builder) Now() string {
	return Timestamp(b.now())
}

// Success wraps data in a successful envelope. An empty message is omitted.
func (b *Builder) Success(data any, message string) Envelope {
	return Envelope{
		Success:   true,
		Data:      data,
		Message:   message,
		Timestamp: b.Now(),
	}
}

// List wraps a collection and records its length in Total.
func (b *Builder) List(items []map[string]any, message string) Envelope {
	if items == nil {
		items = []map[string]any{}
	}
	total := len(items)
	env := b.Success(items, message)
	env.Total = &total
	return env
}

// Failure builds an error envelope. message is the caller-facing error; when
// err is non-nil its text becomes Message, otherwise Message repeats message.
func (b *Builder) Failure(message string, err error) Envelope {
	env := Envelope{
		Success:   false,
		Error:     message,
		Message:   message,
		Timestamp: b.Now(),
	}
	if err != nil {
		env.Message = err.Error()
		if b.debug {
			env.Stack = fmt.Sprintf("%+v", err)
		}
	}
	return env
}

// Timestamp formats t in UTC using TimestampLayout.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// IsEnvelope reports whether an upstream payload already has the envelope
// shape, i.e. is a JSON object with a boolean "success" field.
func IsEnvelope(data any) bool {
	obj, ok := data.(map[string]any)
	if !ok {
		return false
	}
	_, ok = obj["success"].(bool)
	return ok
}
