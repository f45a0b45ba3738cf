// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package prga

import "github.com/pkg/errors"

// kind is a sentinel error that belongs to a family of errors. errors.Is
// reports true for the kind itself and for every one of its ancestors.
//
type kind struct {
	msg    string
	parent error
}

func newKind(msg string, parent error) error {
	return &kind{msg: msg, parent: parent}
}

func (k *kind) Error() string { return k.msg }

func (k *kind) Is(target error) bool {
	for e := k.parent; e != nil; {
		if e == target {
			return true
		}
		p, ok := e.(*kind)
		if !ok {
			break
		}
		e = p.parent
	}
	return false
}

// Error kinds. Errors returned by this package and its sub-packages wrap one
// of these and can be tested with errors.Is.
//
var (
	ErrInternal = newKind("internal error", nil)
	ErrAPI      = newKind("api error", nil)
	ErrFlow     = newKind("flow error", nil)

	ErrBridgeMismatch     = newKind("bridge mismatch", ErrInternal)
	ErrLogicalityMismatch = newKind("logicality mismatch", ErrInternal)

	ErrDuplicateKey  = newKind("duplicate key", ErrAPI)
	ErrWidthMismatch = newKind("width mismatch", ErrAPI)
	ErrPortMismatch  = newKind("port mismatch", ErrAPI)
	ErrInvalidSource = newKind("invalid source", ErrAPI)
	ErrInvalidSink   = newKind("invalid sink", ErrAPI)
	ErrOutOfBounds   = newKind("out of bounds", ErrAPI)
	ErrConflict      = newKind("conflict", ErrAPI)

	ErrPassConflict      = newKind("pass conflict", ErrFlow)
	ErrPassCycle         = newKind("pass cycle", ErrFlow)
	ErrMissingDependency = newKind("missing dependency", ErrFlow)
)

// misuse re-tags an error raised deep inside the model as a user error.
type misuse struct {
	error
}

func (m misuse) Unwrap() error { return m.error }

func (m misuse) Is(target error) bool { return target == ErrAPI }

// blame marks internal errors as api errors when the caller passed the
// offending value in.
//
func blame(err error) error {
	if err == nil || !errors.Is(err, ErrInternal) {
		return err
	}
	return misuse{err}
}
