// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2022-2023 Intel Corporation, or its subsidiaries.
// Copyright (C) 2023 Nordix Foundation.

// Package errors contains the error taxonomy shared by the descriptor loader
// and the table metadata resolver.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIO is returned when a descriptor file cannot be read.
	ErrIO = errors.New("descriptor unreadable")
	// ErrParse is returned for malformed descriptors and for names that do not
	// follow the expected pattern.
	ErrParse = errors.New("parse error")
	// ErrObjectNotFound is returned when a referenced table or resource is not
	// part of the program.
	ErrObjectNotFound = errors.New("object not found")
	// ErrInconsistentState is returned when an invariant of the resolved
	// metadata has been violated.
	ErrInconsistentState = errors.New("inconsistent state")
)

// Error carries the location of a failure inside the program metadata.
type Error struct {
	Kind      error
	Component string
	Table     string
	Field     string
	Err       error
	msg       string
}

// Newf builds an Error of the given kind.
func Newf(kind error, component, table, format string, args ...interface{}) *Error {
	return &Error{
		Kind:      kind,
		Component: component,
		Table:     table,
		msg:       fmt.Sprintf(format, args...),
	}
}

// Wrap builds an Error of the given kind around err.
func Wrap(kind error, component, table string, err error) *Error {
	return &Error{
		Kind:      kind,
		Component: component,
		Table:     table,
		Err:       err,
	}
}

// WithField records the field the error refers to.
func (e *Error) WithField(name string) *Error {
	e.Field = name
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Component != "" {
		b.WriteString(e.Component)
		b.WriteString(": ")
	}
	if e.Table != "" {
		fmt.Fprintf(&b, "table %s: ", e.Table)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, "field %s: ", e.Field)
	}
	switch {
	case e.msg != "" && e.Err != nil:
		fmt.Fprintf(&b, "%s: %v", e.msg, e.Err)
	case e.msg != "":
		b.WriteString(e.msg)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	}
	if e.Kind != nil {
		fmt.Fprintf(&b, " (%v)", e.Kind)
	}
	return b.String()
}

// Unwrap exposes both the kind and the underlying cause to errors.Is and
// errors.As.
func (e *Error) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

