package inbox

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func TestRecordFirstAndDuplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO inbox_events").WithArgs("evt-1", "booking.reminder.due.v1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO inbox_events").WithArgs("evt-1", "booking.reminder.due.v1").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	repo := NewRepository(mock)
	ok, err := repo.Record(context.Background(), "evt-1", "booking.reminder.due.v1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.Record(context.Background(), "evt-1", "booking.reminder.due.v1")
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordPropagatesOtherErrors(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO inbox_events").WillReturnError(errors.New("connection reset"))
	ok, err := NewRepository(mock).Record(context.Background(), "evt-2", "x")
	require.Error(t, err)
	require.False(t, ok)
}
