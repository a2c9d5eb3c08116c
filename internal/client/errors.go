// Package client implements the companion front-end orchestration: the
// session gate, screen navigator, chat synchronizer, emotion sampler and
// voice capture pipeline, all speaking to the backend over HTTP and
// websocket.
package client

import "fmt"

// Category tags a surfaced error with the feature area it belongs to.
type Category string

const (
	CategoryAuth   Category = "auth"
	CategoryChat   Category = "chat"
	CategoryCamera Category = "camera"
	CategoryAudio  Category = "audio"
	CategorySync   Category = "sync"
)

// Error is a user-visible failure. Errors never alter navigation state and
// never discard already-held data; the UI renders them as dismissible
// banners.
type Error struct {
	Category Category
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorSink receives surfaced errors. A nil sink drops them.
type ErrorSink func(*Error)

func (sink ErrorSink) emit(category Category, message string, err error) {
	if sink == nil {
		return
	}
	sink(&Error{Category: category, Message: message, Err: err})
}
