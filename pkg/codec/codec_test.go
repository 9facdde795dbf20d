package codec

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/strata/pkg/engine"
	"github.com/ajitpratap0/strata/pkg/frame"
	"github.com/ajitpratap0/strata/pkg/strataerrors"
)

type tick struct {
	ID     int64
	Name   string
	Score  float64
	Active bool
	At     time.Time
}

func init() {
	Register(func(c *Codec[tick]) {
		Number(c, "id", func(t *tick) *int64 { return &t.ID })
		String(c, "name", func(t *tick) *string { return &t.Name })
		Number(c, "score", func(t *tick) *float64 { return &t.Score })
		Bool(c, "active", func(t *tick) *bool { return &t.Active })
		Time(c, "at", func(t *tick) *time.Time { return &t.At })
	})
}

func sampleTicks() []tick {
	return []tick{
		{ID: 1, Name: "alice", Score: 85.5, Active: true, At: time.UnixMilli(1700000000000).UTC()},
		{ID: 2, Name: "bob", Score: 92.0, Active: false, At: time.UnixMilli(1700000001000).UTC()},
		{ID: 3, Name: "charlie", Score: 78.5, Active: true, At: time.UnixMilli(1700000002000).UTC()},
	}
}

func writeTicks(t *testing.T, recs []tick) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ticks.parquet")

	c, err := For[tick]()
	require.NoError(t, err)

	w := engine.NewWriter(path)
	require.NoError(t, c.WriteAll(w, recs))
	require.NoError(t, w.Finish())
	return path
}

func TestCodecRoundTrip(t *testing.T) {
	want := sampleTicks()
	path := writeTicks(t, want)

	f, err := frame.Open(path)
	require.NoError(t, err)
	defer f.Close()

	c, err := For[tick]()
	require.NoError(t, err)

	got, err := c.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCodecColumnMetadata(t *testing.T) {
	c, err := For[tick]()
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name", "score", "active", "at"}, c.ColumnNames())
	assert.Equal(t, []engine.ColumnInfo{
		{Name: "id", Type: engine.TypeInt64},
		{Name: "name", Type: engine.TypeString},
		{Name: "score", Type: engine.TypeFloat64},
		{Name: "active", Type: engine.TypeBool},
		{Name: "at", Type: engine.TypeDatetime},
	}, c.ColumnTypes())
}

func TestCodecFindColumnName(t *testing.T) {
	c, err := For[tick]()
	require.NoError(t, err)

	name, err := c.FindColumnName(F(func(t *tick) *float64 { return &t.Score }))
	require.NoError(t, err)
	assert.Equal(t, "score", name)

	name, err = c.FindColumnName(F(func(t *tick) *int64 { return &t.ID }))
	require.NoError(t, err)
	assert.Equal(t, "id", name)
}

type partial struct {
	ID    int64
	Extra float64
}

func init() {
	Register(func(c *Codec[partial]) {
		Number(c, "id", func(p *partial) *int64 { return &p.ID })
	})
}

func TestCodecUnregisteredFieldLookup(t *testing.T) {
	c, err := For[partial]()
	require.NoError(t, err)

	_, err = c.FindColumnName(F(func(p *partial) *float64 { return &p.Extra }))
	assert.True(t, strataerrors.IsType(err, strataerrors.ErrorTypeLookup))

	_, err = c.IndexOf("extra")
	assert.True(t, strataerrors.IsType(err, strataerrors.ErrorTypeLookup))
}

func TestCodecReadSelected(t *testing.T) {
	want := sampleTicks()
	path := writeTicks(t, want)

	f, err := frame.Open(path)
	require.NoError(t, err)
	defer f.Close()

	c, err := For[tick]()
	require.NoError(t, err)

	idIdx, err := c.IndexOf("id")
	require.NoError(t, err)
	scoreIdx, err := c.IndexOf("score")
	require.NoError(t, err)

	got, err := c.ReadSelected(f, []int{idIdx, scoreIdx})
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, rec := range got {
		assert.Equal(t, want[i].ID, rec.ID)
		assert.Equal(t, want[i].Score, rec.Score)
		// Unselected fields stay zero.
		assert.Empty(t, rec.Name)
		assert.False(t, rec.Active)
		assert.True(t, rec.At.IsZero())
	}
}

func TestCodecReadSelectedBadIndex(t *testing.T) {
	path := writeTicks(t, sampleTicks())

	f, err := frame.Open(path)
	require.NoError(t, err)
	defer f.Close()

	c, err := For[tick]()
	require.NoError(t, err)

	_, err = c.ReadSelected(f, []int{99})
	assert.True(t, strataerrors.IsType(err, strataerrors.ErrorTypeOutOfRange))
}

type unregistered struct {
	X int64
}

func TestForUnregisteredType(t *testing.T) {
	_, err := For[unregistered]()
	assert.True(t, strataerrors.IsType(err, strataerrors.ErrorTypeLookup))
}

func TestRegisterDuplicateTypePanics(t *testing.T) {
	assert.Panics(t, func() {
		Register(func(c *Codec[tick]) {})
	})
}

func TestDuplicateBindingPanics(t *testing.T) {
	assert.Panics(t, func() {
		c := New[tick]()
		Number(c, "id", func(t *tick) *int64 { return &t.ID })
		Number(c, "id2", func(t *tick) *int64 { return &t.ID })
	}, "same field bound twice")

	assert.Panics(t, func() {
		c := New[tick]()
		Number(c, "id", func(t *tick) *int64 { return &t.ID })
		Number(c, "id", func(t *tick) *float64 { return &t.Score })
	}, "same column name bound twice")
}
