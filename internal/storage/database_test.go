package storage

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/studydeck/internal/domain"
	"github.com/conorfennell/studydeck/internal/progress"
)

var t0 = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return New(sqlx.NewDb(conn, driverName)), mock
}

func TestApplyProgressDelta_SQL(t *testing.T) {
	d := progress.BuildDelta("u1", "spanish", "c1", domain.Good,
		domain.StudyCard{LastInterval: 7, EaseFactor: 2.5}, t0)

	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		wantErr   bool
	}{
		{
			name: "appends and increments in one transaction",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO review_history")).
					WithArgs("u1", "spanish", "c1", "GOOD", 7, 2.5, sqlmock.AnyArg()).
					WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_progress")).
					WithArgs("u1", "spanish", 1, 1, 8, "2025-03-01", sqlmock.AnyArg()).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "review insert failure rolls back",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO review_history")).
					WillReturnError(fmt.Errorf("disk I/O error"))
				mock.ExpectRollback()
			},
			wantErr: true,
		},
		{
			name: "counter update failure rolls back",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO review_history")).
					WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_progress")).
					WillReturnError(fmt.Errorf("database is locked"))
				mock.ExpectRollback()
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			tt.setupMock(mock)

			err := db.ApplyProgressDelta(context.Background(), "u1", "spanish", d)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestFindSourceByPath_SQL(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, path, type, last_scanned FROM sources WHERE path = ?")).
		WithArgs("decks").
		WillReturnRows(sqlmock.NewRows([]string{"id", "path", "type", "last_scanned"}))

	s, err := db.FindSourceByPath(context.Background(), "decks")
	require.NoError(t, err)
	assert.Nil(t, s)

	mock.ExpectQuery("SELECT id, path, type, last_scanned").
		WithArgs("https://github.com/me/decks.git").
		WillReturnRows(sqlmock.NewRows([]string{"id", "path", "type", "last_scanned"}).
			AddRow(3, "https://github.com/me/decks.git", SourceGit, t0))

	s, err = db.FindSourceByPath(context.Background(), "https://github.com/me/decks.git")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, int64(3), s.ID)
	assert.Equal(t, SourceGit, s.Type)
	assert.True(t, s.LastScanned.Valid)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReport_SQL(t *testing.T) {
	db, mock := newMockDB(t)
	summary := domain.SessionSummary{
		SessionID:   "s1",
		DeckID:      "spanish",
		UserID:      "u1",
		StartedAt:   t0,
		CompletedAt: t0.Add(5 * time.Minute),
		Stats:       domain.SessionStats{CardsStudied: 12, CorrectAnswers: 9},
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO session_summaries")).
		WithArgs("s1", "spanish", "u1", sqlmock.AnyArg(), sqlmock.AnyArg(), 12, 9).
		WillReturnError(fmt.Errorf("UNIQUE constraint failed"))

	err := db.Report(context.Background(), summary)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetDailyXP_SQL(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE user_progress")).
		WithArgs("2025-03-01").
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := db.ResetDailyXP(context.Background(), t0)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
