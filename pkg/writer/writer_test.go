package writer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/strata/pkg/codec"
	"github.com/ajitpratap0/strata/pkg/engine"
	"github.com/ajitpratap0/strata/pkg/frame"
	"github.com/ajitpratap0/strata/pkg/strataerrors"
)

type event struct {
	ID    int64
	Label string
	Value float64
}

func init() {
	codec.Register(func(c *codec.Codec[event]) {
		codec.Number(c, "id", func(e *event) *int64 { return &e.ID })
		codec.String(c, "label", func(e *event) *string { return &e.Label })
		codec.Number(c, "value", func(e *event) *float64 { return &e.Value })
	})
}

func sampleEvents() []event {
	return []event{
		{ID: 1, Label: "alpha", Value: 1.5},
		{ID: 2, Label: "beta", Value: 2.5},
		{ID: 3, Label: "gamma", Value: 3.5},
	}
}

func TestWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.parquet")
	want := sampleEvents()

	w := New[event](path)
	require.NoError(t, w.WriteRecord(want[0]))
	require.NoError(t, w.WriteRecords(want[1:]))
	assert.Equal(t, 3, w.Len())
	require.NoError(t, w.Finish())

	f, err := frame.Open(path)
	require.NoError(t, err)
	defer f.Close()

	c, err := codec.For[event]()
	require.NoError(t, err)
	got, err := c.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestWriterEmptyFinishCreatesNoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.parquet")

	w := New[event](path)
	require.NoError(t, w.Finish())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestWriterDiscard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "discarded.parquet")

	w := New[event](path)
	require.NoError(t, w.WriteRecords(sampleEvents()))
	w.Discard()

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "discard must not touch storage")

	assert.Equal(t, 0, w.Len())
	err = w.WriteRecord(event{ID: 9})
	assert.True(t, strataerrors.IsType(err, strataerrors.ErrorTypeValidation))
}

func TestWriterFinishIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "once.parquet")

	w := New[event](path)
	require.NoError(t, w.WriteRecords(sampleEvents()))
	require.NoError(t, w.Finish())
	require.NoError(t, w.Finish())

	err := w.WriteRecord(event{ID: 4})
	assert.True(t, strataerrors.IsType(err, strataerrors.ErrorTypeValidation))

	f, err := frame.Open(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, 3, f.NumRows())
}

func TestWriterCloseFlushes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "closed.parquet")

	w := New[event](path)
	require.NoError(t, w.WriteRecords(sampleEvents()))
	require.NoError(t, w.Close())

	f, err := frame.Open(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, 3, f.NumRows())

	require.NoError(t, w.Close(), "close after finish is a no-op")
}

type unbound struct {
	X int64
}

func TestWriterUnregisteredTypeFailsAtFinish(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unbound.parquet")

	w := New[unbound](path)
	require.NoError(t, w.WriteRecord(unbound{X: 1}))

	err := w.Finish()
	assert.True(t, strataerrors.IsType(err, strataerrors.ErrorTypeLookup))

	_, serr := os.Stat(path)
	assert.True(t, os.IsNotExist(serr), "failed finish must leave no file")
}

func TestWriterOptionsPassThrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grouped.parquet")

	n := 10
	recs := make([]event, n)
	for i := range recs {
		recs[i] = event{ID: int64(i), Label: "x", Value: float64(i)}
	}

	w := New[event](path, engine.WithRowGroupSize(3))
	require.NoError(t, w.WriteRecords(recs))
	require.NoError(t, w.Finish())

	f, err := frame.Open(path)
	require.NoError(t, err)
	defer f.Close()

	ids, err := frame.Column[int64](f, "id")
	require.NoError(t, err)
	assert.Greater(t, ids.NumChunks(), 1)
	assert.Equal(t, n, ids.Len())
}
