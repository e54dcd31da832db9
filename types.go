// Package aio is the asynchronous block-I/O engine: requests, their
// lifecycle and cancellation, per-disk request queues with dedicated
// workers, pluggable backend file implementations, and the process-wide
// statistics singleton.
//
// The queue registry (internal/queue) is a process-wide singleton with an
// ordering requirement on teardown: queues must be drained before the
// stats singleton is touched, because a worker's last request still
// updates stats. Go has no atexit equivalent, so this package does not
// attempt one — call Shutdown explicitly before process exit (from main,
// or a TestMain) rather than relying on finalizers.
package aio

import "github.com/manpen/foxxll/internal/engine"

// Core types live in internal/engine and are re-exported here as aliases
// so application code only ever sees package aio. See internal/engine's
// package doc for why the split exists.
type (
	Direction         = engine.Direction
	OpenFlags         = engine.OpenFlags
	File              = engine.File
	Request           = engine.Request
	RequestState      = engine.RequestState
	CompletionHandler = engine.CompletionHandler
	Error             = engine.Error
	ErrorKind         = engine.ErrorKind
)

const (
	Read  = engine.Read
	Write = engine.Write
)

const (
	Creat         = engine.Creat
	RDOnly        = engine.RDOnly
	WROnly        = engine.WROnly
	RDWR          = engine.RDWR
	Trunc         = engine.Trunc
	Direct        = engine.Direct
	TryDirect     = engine.TryDirect
	NoLock        = engine.NoLock
	Sync          = engine.Sync
	RequireDirect = engine.RequireDirect
)

const (
	StateOP         = engine.StateOP
	StateDone       = engine.StateDone
	StateReadyToDie = engine.StateReadyToDie
)

const (
	KindInvalidArgument = engine.KindInvalidArgument
	KindIO              = engine.KindIO
	KindEOF             = engine.KindEOF
	KindConfiguration   = engine.KindConfiguration
	KindBug             = engine.KindBug
)

var (
	NewError          = engine.NewError
	NewErrorWithErrno = engine.NewErrorWithErrno
	WrapError         = engine.WrapError
	IsKind            = engine.IsKind
	IsErrno           = engine.IsErrno
)
