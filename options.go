package psd

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/go-psd/psd/internal/channel"
	"github.com/go-psd/psd/internal/descriptor"
	"github.com/go-psd/psd/internal/errkind"
)

// Progress is the collaborator a long Read/Write reports progress to and
// polls for cancellation (spec.md §6 "Progress callback"). A nil Progress
// is a no-op; callers only need to implement the methods they care about
// by embedding NoopProgress.
type Progress interface {
	SetMax(n int)
	Increment()
	SetTask(name string)
	IsCancelled() bool
}

// NoopProgress is a Progress that does nothing and never cancels; embed it
// to satisfy the interface without implementing every method.
type NoopProgress struct{}

func (NoopProgress) SetMax(int)        {}
func (NoopProgress) Increment()        {}
func (NoopProgress) SetTask(string)    {}
func (NoopProgress) IsCancelled() bool { return false }

// ReadOptions configures Read (spec.md §6, §7).
type ReadOptions struct {
	// Strict is carried on the options but Read does not consult it:
	// descriptors inside tagged blocks are parsed with the bounded forward
	// scan (spec.md §4.4) whether or not it is set.
	Strict bool

	// ScanWindow is resolved by scanWindow(), where zero means
	// descriptor.DefaultScanWindow. Read does not consult it; descriptor
	// parsing during Read always uses descriptor.DefaultScanWindow.
	ScanWindow int

	Logger   zerolog.Logger
	Progress Progress
}

func (o *ReadOptions) scanWindow() int {
	if o == nil || o.ScanWindow == 0 {
		return descriptor.DefaultScanWindow
	}
	return o.ScanWindow
}

func (o *ReadOptions) logger() zerolog.Logger {
	if o == nil {
		return zerolog.Nop()
	}
	return o.Logger
}

func (o *ReadOptions) progress() Progress {
	if o == nil || o.Progress == nil {
		return NoopProgress{}
	}
	return o.Progress
}

func (o *ReadOptions) checkCancelled() error {
	if o.progress().IsCancelled() {
		return errors.WithStack(errkind.ErrCancelled)
	}
	return nil
}

// WriteOptions configures Write (spec.md §6).
type WriteOptions struct {
	// Compression overrides the document's own compression policy for this
	// write only; nil keeps whatever Document.SetCompression set.
	Compression func(depth uint8) channel.Compression

	Logger   zerolog.Logger
	Progress Progress
}

func (o *WriteOptions) logger() zerolog.Logger {
	if o == nil {
		return zerolog.Nop()
	}
	return o.Logger
}

func (o *WriteOptions) progress() Progress {
	if o == nil || o.Progress == nil {
		return NoopProgress{}
	}
	return o.Progress
}

func (o *WriteOptions) checkCancelled() error {
	if o.progress().IsCancelled() {
		return errors.WithStack(errkind.ErrCancelled)
	}
	return nil
}
