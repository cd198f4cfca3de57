package psd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/go-psd/psd/internal/errkind"
)

type countingProgress struct {
	max, incremented int
	lastTask         string
	cancelled        bool
}

func (p *countingProgress) SetMax(n int)        { p.max = n }
func (p *countingProgress) Increment()          { p.incremented++ }
func (p *countingProgress) SetTask(name string) { p.lastTask = name }
func (p *countingProgress) IsCancelled() bool   { return p.cancelled }

func TestNilReadOptionsAreSafe(t *testing.T) {
	var opts *ReadOptions
	assert.Equal(t, NoopProgress{}, opts.progress())
	assert.NoError(t, opts.checkCancelled())
	assert.NotPanics(t, func() { opts.logger() })
}

func TestNilWriteOptionsAreSafe(t *testing.T) {
	var opts *WriteOptions
	assert.Equal(t, NoopProgress{}, opts.progress())
	assert.NoError(t, opts.checkCancelled())
}

func TestReadOptionsCancellation(t *testing.T) {
	p := &countingProgress{cancelled: true}
	opts := &ReadOptions{Progress: p}
	err := opts.checkCancelled()
	assert.ErrorIs(t, err, errkind.ErrCancelled)
}

func TestReadOptionsScanWindowDefault(t *testing.T) {
	var opts *ReadOptions
	assert.Equal(t, 1024, opts.scanWindow())

	opts = &ReadOptions{ScanWindow: 512}
	assert.Equal(t, 512, opts.scanWindow())
}

func TestProgressPropagatesThroughWriteOptions(t *testing.T) {
	p := &countingProgress{}
	opts := &WriteOptions{Progress: p}
	opts.progress().SetMax(5)
	opts.progress().SetTask("compressing")
	opts.progress().Increment()
	assert.Equal(t, 5, p.max)
	assert.Equal(t, "compressing", p.lastTask)
	assert.Equal(t, 1, p.incremented)
}
