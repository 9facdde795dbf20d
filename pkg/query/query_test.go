package query

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/strata/pkg/codec"
	"github.com/ajitpratap0/strata/pkg/engine"
	"github.com/ajitpratap0/strata/pkg/frame"
	"github.com/ajitpratap0/strata/pkg/strataerrors"
)

type player struct {
	ID      int64
	Name    string
	Score   float64
	Joined  time.Time
	Comment string // never registered
}

func init() {
	codec.Register(func(c *codec.Codec[player]) {
		codec.Number(c, "id", func(p *player) *int64 { return &p.ID })
		codec.String(c, "name", func(p *player) *string { return &p.Name })
		codec.Number(c, "score", func(p *player) *float64 { return &p.Score })
		codec.Time(c, "joined", func(p *player) *time.Time { return &p.Joined })
	})
}

func samplePlayers() []player {
	return []player{
		{ID: 1, Name: "alice", Score: 85.5, Joined: time.UnixMilli(1700000000000).UTC()},
		{ID: 2, Name: "bob", Score: 92.0, Joined: time.UnixMilli(1700000001000).UTC()},
		{ID: 3, Name: "charlie", Score: 78.5, Joined: time.UnixMilli(1700000002000).UTC()},
	}
}

func writePlayers(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "players.parquet")

	c, err := codec.For[player]()
	require.NoError(t, err)

	w := engine.NewWriter(path)
	require.NoError(t, c.WriteAll(w, samplePlayers()))
	require.NoError(t, w.Finish())
	return path
}

func TestQueryCollectAll(t *testing.T) {
	got, err := New[player](writePlayers(t)).Collect()
	require.NoError(t, err)
	assert.Equal(t, samplePlayers(), got)
}

func TestQuerySelectByRef(t *testing.T) {
	got, err := New[player](writePlayers(t)).
		Select(codec.F(func(p *player) *int64 { return &p.ID }),
			codec.F(func(p *player) *float64 { return &p.Score })).
		Collect()
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, player{ID: 1, Score: 85.5}, got[0])
	assert.Equal(t, player{ID: 2, Score: 92.0}, got[1])
	assert.Equal(t, player{ID: 3, Score: 78.5}, got[2])
}

func TestQuerySelectColumns(t *testing.T) {
	got, err := New[player](writePlayers(t)).
		SelectColumns("name").
		Collect()
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, player{Name: "alice"}, got[0])
	assert.Equal(t, player{Name: "charlie"}, got[2])
}

func TestQueryFilter(t *testing.T) {
	got, err := New[player](writePlayers(t)).
		FilterFloat64(func(p *player) *float64 { return &p.Score }, engine.Gt, 80.0).
		Collect()
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "alice", got[0].Name)
	assert.Equal(t, "bob", got[1].Name)
}

// A filter column that is not selected still narrows the result, and the
// unselected field comes back zero.
func TestQueryFilterOnUnselectedColumn(t *testing.T) {
	got, err := New[player](writePlayers(t)).
		Select(codec.F(func(p *player) *string { return &p.Name })).
		FilterFloat64(func(p *player) *float64 { return &p.Score }, engine.Gt, 90.0).
		Collect()
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "bob", got[0].Name)
	assert.Zero(t, got[0].Score)
}

func TestQueryConjunctiveFilters(t *testing.T) {
	got, err := New[player](writePlayers(t)).
		FilterFloat64(func(p *player) *float64 { return &p.Score }, engine.Gt, 80.0).
		FilterInt64(func(p *player) *int64 { return &p.ID }, engine.Lt, 2).
		Collect()
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "alice", got[0].Name)
}

func TestQueryFilterTime(t *testing.T) {
	cutoff := time.UnixMilli(1700000001000).UTC()

	got, err := New[player](writePlayers(t)).
		FilterTime(func(p *player) *time.Time { return &p.Joined }, engine.Ge, cutoff).
		Collect()
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "bob", got[0].Name)
	assert.Equal(t, "charlie", got[1].Name)
}

func TestQueryFilterMatchesNothing(t *testing.T) {
	got, err := New[player](writePlayers(t)).
		FilterFloat64(func(p *player) *float64 { return &p.Score }, engine.Gt, 1000.0).
		Collect()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestQueryUnregisteredFieldLookup(t *testing.T) {
	_, err := New[player](writePlayers(t)).
		Select(codec.F(func(p *player) *string { return &p.Comment })).
		Collect()
	assert.True(t, strataerrors.IsType(err, strataerrors.ErrorTypeLookup))

	_, err = New[player](writePlayers(t)).
		FilterString(func(p *player) *string { return &p.Comment }, engine.Eq, "x").
		Collect()
	assert.True(t, strataerrors.IsType(err, strataerrors.ErrorTypeLookup))
}

func TestQueryUnknownColumnName(t *testing.T) {
	_, err := New[player](writePlayers(t)).
		SelectColumns("no_such").
		Collect()
	assert.True(t, strataerrors.IsType(err, strataerrors.ErrorTypeLookup))
}

func TestQueryCollectTwice(t *testing.T) {
	q := New[player](writePlayers(t))

	_, err := q.Collect()
	require.NoError(t, err)

	_, err = q.Collect()
	assert.True(t, strataerrors.IsType(err, strataerrors.ErrorTypeValidation))

	_, err = q.CollectFrame()
	assert.True(t, strataerrors.IsType(err, strataerrors.ErrorTypeValidation))
}

func TestQueryCollectFrame(t *testing.T) {
	f, err := New[player](writePlayers(t)).
		Select(codec.F(func(p *player) *int64 { return &p.ID })).
		FilterFloat64(func(p *player) *float64 { return &p.Score }, engine.Gt, 80.0).
		CollectFrame()
	require.NoError(t, err)
	defer f.Close()

	// The scan set carries the filter column alongside the selection.
	assert.Equal(t, 2, f.NumRows())
	assert.Equal(t, 2, f.NumCols())

	ids, err := frame.Column[int64](f, "id")
	require.NoError(t, err)
	require.Equal(t, 2, ids.Len())
	assert.Equal(t, int64(1), ids.Value(0))
	assert.Equal(t, int64(2), ids.Value(1))
}

type orphan struct {
	X int64
}

func TestQueryUnregisteredRecordType(t *testing.T) {
	_, err := New[orphan]("irrelevant.parquet").Collect()
	assert.True(t, strataerrors.IsType(err, strataerrors.ErrorTypeLookup))
}
