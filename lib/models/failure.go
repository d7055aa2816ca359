package models

import (
	"errors"
	"fmt"
)

type FailureKind string

const (
	FetchFailure FailureKind = "fetch"
	ParseFailure FailureKind = "parse"
	StoreFailure FailureKind = "store"
	NotFound     FailureKind = "not_found"
)

type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string { return fmt.Sprintf("%s failure: %v", f.Kind, f.Err) }
func (f *Failure) Unwrap() error { return f.Err }

// Fail wraps err with a failure kind, passing nil through untouched.
func Fail(kind FailureKind, err error) error {
	if err == nil {
		return nil
	}
	return &Failure{Kind: kind, Err: err}
}

func Failf(kind FailureKind, format string, args ...any) error {
	return &Failure{Kind: kind, Err: fmt.Errorf(format, args...)}
}

func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

func IsNotFound(err error) bool { return KindOf(err) == NotFound }
