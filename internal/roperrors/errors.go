package roperrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies failures of the classifier pipeline.
type Kind int

const (
	KindUnknown Kind = iota
	KindLoad
	KindPreprocess
	KindInference
	KindNotReady
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindLoad:
		return "load"
	case KindPreprocess:
		return "preprocess"
	case KindInference:
		return "inference"
	case KindNotReady:
		return "not_ready"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is, matched by kind only.
var (
	ErrLoad         = &Error{Kind: KindLoad}
	ErrPreprocess   = &Error{Kind: KindPreprocess}
	ErrInference    = &Error{Kind: KindInference}
	ErrNotReady     = &Error{Kind: KindNotReady}
	ErrInvalidInput = &Error{Kind: KindInvalidInput}
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}

	if e.Message == "" {
		return e.Err.Error()
	}

	return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a kind and a message, recording a stack trace on the cause.
func Wrap(kind Kind, err error, msg string) *Error {
	if err == nil {
		return New(kind, msg)
	}

	return &Error{Kind: kind, Message: msg, Err: errors.WithStack(err)}
}

func Wrapf(kind Kind, err error, format string, args ...any) *Error {
	return Wrap(kind, err, fmt.Sprintf(format, args...))
}

// KindOf returns the kind of the outermost *Error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindUnknown
}

// Message returns the message of the outermost *Error in the chain, or err.Error().
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}

	return err.Error()
}
