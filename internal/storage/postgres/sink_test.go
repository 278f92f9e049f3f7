package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/movie-harvester/internal/movie"
	"github.com/JakeFAU/movie-harvester/internal/normalize"
)

func sampleResult() normalize.Result {
	budget := int64(190000000)
	rating := 8.1
	return normalize.Result{
		Dimensions: map[movie.DimensionKind][]movie.DimensionEntity{
			movie.DimensionCompany:  {{ID: 1, Name: "Legendary Pictures"}},
			movie.DimensionGenre:    {{ID: 1, Name: "Science Fiction"}, {ID: 2, Name: "Adventure"}},
			movie.DimensionDirector: {{ID: 1, Name: "Denis Villeneuve"}},
			movie.DimensionActor:    {{ID: 1, Name: "Timothée Chalamet"}},
		},
		Bridges: map[movie.DimensionKind][]movie.BridgeRow{
			movie.DimensionCompany:  {{FactID: 1, DimensionID: 1}},
			movie.DimensionGenre:    {{FactID: 1, DimensionID: 1}, {FactID: 1, DimensionID: 2}},
			movie.DimensionDirector: {{FactID: 1, DimensionID: 1}},
			movie.DimensionActor:    {{FactID: 1, DimensionID: 1}},
		},
		Facts: []movie.FactRow{{
			FactID:      1,
			TMDBID:      693134,
			Title:       "Dune: Part Two",
			Budget:      &budget,
			Rating:      &rating,
			ReleaseDate: "2024-02-27",
			Source:      "listing",
		}},
		Dates: []movie.DateDimension{{ReleaseDate: "2024-02-27", Year: 2024, Month: 2, Day: 27}},
	}
}

func expectCopies(mock pgxmock.PgxPoolIface, stopAt string, failure error) {
	copyOne := func(table string, columns []string, n int64) bool {
		exp := mock.ExpectCopyFrom(pgx.Identifier{table}, columns)
		if table == stopAt {
			exp.WillReturnError(failure)
			return false
		}
		exp.WillReturnResult(n)
		return true
	}
	dims := map[movie.DimensionKind]int64{
		movie.DimensionCompany: 1, movie.DimensionGenre: 2, movie.DimensionDirector: 1, movie.DimensionActor: 1,
	}
	for _, kind := range movie.DimensionKinds {
		if !copyOne("dim_"+string(kind), []string{"id", "name"}, dims[kind]) {
			return
		}
	}
	if !copyOne("dim_date", dateColumns, 1) {
		return
	}
	if !copyOne("fact_movie", factColumns, 1) {
		return
	}
	for _, kind := range movie.DimensionKinds {
		if !copyOne("bridge_movie_"+string(kind), bridgeColumns(kind), dims[kind]) {
			return
		}
	}
}

func TestNewSinkWithPoolValidation(t *testing.T) {
	t.Parallel()

	_, err := NewSinkWithPool(nil, "", nil)
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	_, err = NewSinkWithPool(mock, "bad-prefix;", nil)
	require.ErrorContains(t, err, "invalid table prefix")
	_, err = NewSinkWithPool(mock, "stage_", nil)
	require.NoError(t, err)
}

func TestEnsureSchemaCreatesEveryTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	sink, err := NewSinkWithPool(mock, "", nil)
	require.NoError(t, err)

	for _, kind := range movie.DimensionKinds {
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS dim_" + string(kind))).
			WillReturnResult(pgxmock.NewResult("CREATE", 0))
	}
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS dim_date")).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS fact_movie")).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	for _, kind := range movie.DimensionKinds {
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS bridge_movie_" + string(kind))).
			WillReturnResult(pgxmock.NewResult("CREATE", 0))
	}
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS harvest_runs")).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, sink.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchemaStopsOnError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	sink, err := NewSinkWithPool(mock, "", nil)
	require.NoError(t, err)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS dim_company").WillReturnError(errors.New("permission denied"))

	err = sink.EnsureSchema(context.Background())
	require.ErrorContains(t, err, "permission denied")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadTruncatesAndCopiesInOneTransaction(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	sink, err := NewSinkWithPool(mock, "", nil)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("TRUNCATE dim_company, dim_genre, dim_director, dim_actor, dim_date, fact_movie")).
		WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	expectCopies(mock, "", nil)
	mock.ExpectCommit()

	stats, err := sink.Load(context.Background(), sampleResult())
	require.NoError(t, err)
	require.Equal(t, int64(2), stats["dim_genre"])
	require.Equal(t, int64(1), stats["fact_movie"])
	require.Len(t, stats, 2*len(movie.DimensionKinds)+2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadRollsBackOnCopyFailure(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	sink, err := NewSinkWithPool(mock, "", nil)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("TRUNCATE").WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	expectCopies(mock, "fact_movie", errors.New("disk full"))
	mock.ExpectRollback()

	stats, err := sink.Load(context.Background(), sampleResult())
	require.Nil(t, stats)
	require.ErrorContains(t, err, "copy fact_movie")
	require.ErrorContains(t, err, "disk full")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadBeginFailure(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	sink, err := NewSinkWithPool(mock, "", nil)
	require.NoError(t, err)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	_, err = sink.Load(context.Background(), sampleResult())
	require.ErrorContains(t, err, "begin load")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsoDate(t *testing.T) {
	t.Parallel()

	require.Nil(t, isoDate(""))
	require.Nil(t, isoDate("27 February"))
	got := isoDate(" 2024-02-27 ")
	require.NotNil(t, got)
	require.Equal(t, 27, got.Day())
}
