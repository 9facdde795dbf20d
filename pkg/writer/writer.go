// Package writer buffers records in memory and writes them out column by
// column through the record type's codec.
//
//	w := writer.New[Tick]("out.parquet")
//	defer w.Close()
//	w.WriteRecords(ticks)
//	if err := w.Finish(); err != nil {
//	    ...
//	}
//
// No I/O happens before Finish. A writer that buffered nothing creates no
// file; Discard drops the buffer without ever touching storage. Close is the
// safety net for abandoned writers: it attempts a best-effort Finish and logs
// the failure, so a caller who cares about write errors must call Finish and
// check its result.
//
// A Writer is confined to one goroutine; the buffer is single-owner state.
package writer

import (
	"go.uber.org/zap"

	"github.com/ajitpratap0/strata/pkg/codec"
	"github.com/ajitpratap0/strata/pkg/engine"
	"github.com/ajitpratap0/strata/pkg/logger"
	"github.com/ajitpratap0/strata/pkg/strataerrors"
)

// Writer buffers records of type R destined for one parquet file.
type Writer[R any] struct {
	path     string
	opts     []engine.WriterOption
	buf      []R
	finished bool
}

// New creates a writer targeting path. Options are handed through to the
// engine writer at Finish.
func New[R any](path string, opts ...engine.WriterOption) *Writer[R] {
	return &Writer[R]{path: path, opts: opts}
}

// WriteRecord buffers a single record. No I/O occurs.
func (w *Writer[R]) WriteRecord(rec R) error {
	if w.finished {
		return strataerrors.New(strataerrors.ErrorTypeValidation, "writer already finished")
	}
	w.buf = append(w.buf, rec)
	return nil
}

// WriteRecords buffers multiple records. No I/O occurs.
func (w *Writer[R]) WriteRecords(recs []R) error {
	if w.finished {
		return strataerrors.New(strataerrors.ErrorTypeValidation, "writer already finished")
	}
	w.buf = append(w.buf, recs...)
	return nil
}

// Len returns the number of buffered records.
func (w *Writer[R]) Len() int {
	return len(w.buf)
}

// Finish writes all buffered records as one parquet file and marks the
// writer finished. An empty buffer finishes without creating a file.
// Finishing an already finished writer is a no-op. The file only becomes
// visible when every column was emitted; a failed write leaves no file.
func (w *Writer[R]) Finish() error {
	if w.finished {
		return nil
	}
	if len(w.buf) == 0 {
		w.finished = true
		return nil
	}

	c, err := codec.For[R]()
	if err != nil {
		return err
	}

	ew := engine.NewWriter(w.path, w.opts...)
	if err := c.WriteAll(ew, w.buf); err != nil {
		return err
	}
	if err := ew.Finish(); err != nil {
		return err
	}

	w.finished = true
	w.buf = nil
	return nil
}

// Discard drops all buffered records and marks the writer finished without
// touching storage.
func (w *Writer[R]) Discard() {
	w.buf = nil
	w.finished = true
}

// Close attempts a best-effort Finish for a writer that was never finished
// explicitly. The error is logged and returned; a deferred Close discards it
// by construction, which is the intended cleanup behavior.
func (w *Writer[R]) Close() error {
	if w.finished {
		return nil
	}
	if err := w.Finish(); err != nil {
		logger.Get().Warn("implicit writer finish failed",
			zap.String("path", w.path),
			zap.Error(err))
		return err
	}
	return nil
}
