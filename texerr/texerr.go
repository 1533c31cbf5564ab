// Package texerr implements the three-tier error/warning model:
// lexer-fatal, walker-soft (expected backtracking signal), and semantic
// warning. Fatal errors carry github.com/juju/errors annotation so one
// surfaced at the top of the pipeline keeps its full causal chain through
// lexer -> parser -> walker -> reader; the warning tier goes through
// github.com/juju/loggo, reaching stderr without aborting conversion.
package texerr

import (
	"fmt"

	"github.com/juju/errors"
	"github.com/juju/loggo"
)

// Pos is a source position: file, 1-based line, 1-based column.
type Pos struct {
	File string
	Line int
	Col  int
}

func (p Pos) String() string {
	if p.File == "" && p.Line == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}

// Tier classifies where in the pipeline an error originated.
type Tier int

const (
	// TierFatal aborts conversion (unterminated group/conditional, missing
	// mandatory argument at EOF, macro recursion exceeded, bad catcode).
	TierFatal Tier = iota
	// TierSoft is an expected backtracking signal from the walker
	// (EndOfGroup, Unexpected) surfaced only when every alternative at a
	// top-level production has failed.
	TierSoft
	// TierWarning is a semantic warning; conversion continues.
	TierWarning
)

// FatalError is the lexer/walker-fatal error type. It wraps the
// underlying cause with github.com/juju/errors so annotations accumulate as
// the error is passed up through layers.
type FatalError struct {
	Pos    Pos
	Sender string
	cause  error
}

func NewFatal(pos Pos, sender, msg string) *FatalError {
	return &FatalError{Pos: pos, Sender: sender, cause: errors.New(msg)}
}

// Wrap annotates an existing error as it crosses a layer boundary, e.g. the
// parser wrapping a lexer-fatal error, or the reader wrapping a walker
// error that escaped every alternative.
func Wrap(pos Pos, sender string, err error) *FatalError {
	return &FatalError{Pos: pos, Sender: sender, cause: errors.Annotate(err, sender)}
}

func (e *FatalError) Error() string {
	loc := e.Pos.String()
	if loc == "" {
		return fmt.Sprintf("[%s] %s", e.Sender, e.cause.Error())
	}
	return fmt.Sprintf("[%s %s] %s", e.Sender, loc, e.cause.Error())
}

func (e *FatalError) Unwrap() error { return e.cause }

// Cause returns the deepest wrapped error, mirroring juju/errors.Cause.
func (e *FatalError) Cause() error { return errors.Cause(e.cause) }

// SoftKind tags the reason a walker combinator backtracked.
type SoftKind int

const (
	EndOfGroup SoftKind = iota
	Unexpected
	UserError
)

func (k SoftKind) String() string {
	switch k {
	case EndOfGroup:
		return "EndOfGroup"
	case Unexpected:
		return "Unexpected"
	case UserError:
		return "UserError"
	default:
		return "?"
	}
}

// SoftError is a backtracking signal. It is cheap to
// construct — walker combinators construct and discard many of these per
// successful parse — and is only ever surfaced to the caller of Convert
// when no alternative at a top-level production succeeded.
type SoftError struct {
	Kind SoftKind
	Pos  Pos
	Msg  string
}

func NewSoft(kind SoftKind, pos Pos, msg string) *SoftError {
	return &SoftError{Kind: kind, Pos: pos, Msg: msg}
}

func (e *SoftError) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Warning is a semantic warning, e.g. a malformed figure, an undefined
// citation key or an unresolved cross-reference; duplicate labels and
// unknown block-level commands raise none. Warnings are collected and also logged via
// loggo; conversion never aborts because of one.
type Warning struct {
	Pos     Pos
	Sender  string
	Message string
}

func (w Warning) String() string {
	loc := w.Pos.String()
	if loc == "" {
		return fmt.Sprintf("[%s] %s", w.Sender, w.Message)
	}
	return fmt.Sprintf("[%s %s] %s", w.Sender, loc, w.Message)
}

// Logger is a juju/loggo logger named "texfront.<name>" (e.g.
// "texfront.lexer", or "texfront.texfront" for the warning collector
// Convert builds), configured by the caller of Convert (normally the CLI
// driver).
type Logger = loggo.Logger

// GetLogger returns the module-scoped logger for name, e.g. "lexer".
func GetLogger(name string) Logger {
	return loggo.GetLogger("texfront." + name)
}

// Collector accumulates semantic warnings during a single conversion and
// forwards each one to a loggo logger at Warning level as it is recorded.
type Collector struct {
	log      Logger
	warnings []Warning
}

func NewCollector(log Logger) *Collector {
	return &Collector{log: log}
}

func (c *Collector) Warnf(pos Pos, sender, format string, args ...any) {
	w := Warning{Pos: pos, Sender: sender, Message: fmt.Sprintf(format, args...)}
	c.warnings = append(c.warnings, w)
	c.log.Warningf("%s", w.String())
}

func (c *Collector) Warnings() []Warning {
	return c.warnings
}
