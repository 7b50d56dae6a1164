package util

import "fmt"

// ResponseError carries an HTTP status alongside the message so handlers
// can surface domain failures without importing net/http everywhere.
type ResponseError struct {
	Msg    string
	Status int
}

func (e ResponseError) Error() string { return e.Msg }

func NewResponseError(status int, format string, args ...interface{}) error {
	return ResponseError{
		Msg:    fmt.Sprintf(format, args...),
		Status: status,
	}
}
