package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/matsl08/ems-api/internal/models"
)

func newRegistrationRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRegistrationRepositoryEnrollFansOutInOneTransaction(t *testing.T) {
	db, mock, cleanup := newRegistrationRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	offering := &models.Offering{
		EDPCode:    "53944",
		SchoolYear: "2025-2026",
		Semester:   1,
		TeacherID:  "FAC-001",
		Amount:     3000,
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO offering_roster")).
		WithArgs("53944", "STU-100", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO grade_records")).
		WithArgs(sqlmock.AnyArg(), "STU-100", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO grade_entries")).
		WithArgs(sqlmock.AnyArg(), "STU-100", "53944", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO clearance_entries")).
		WithArgs(sqlmock.AnyArg(), "STU-100", "53944", "FAC-001", models.ClearanceStatusPending, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Each payment period carries the full offering amount, and a term row
	// that already exists is never added to.
	mock.ExpectExec(`(?s)INSERT INTO payments.*ON CONFLICT \(student_id, school_year, semester\) DO NOTHING`).
		WithArgs(sqlmock.AnyArg(), "STU-100", "2025-2026", 1, 3000.0, models.PaymentStatusPending, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Enroll(context.Background(), "STU-100", offering))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryEnrollRollsBackOnLedgerFailure(t *testing.T) {
	db, mock, cleanup := newRegistrationRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	offering := &models.Offering{EDPCode: "53944", SchoolYear: "2025-2026", Semester: 1, Amount: 3000}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO offering_roster")).
		WithArgs("53944", "STU-100", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO grade_records")).
		WithArgs(sqlmock.AnyArg(), "STU-100", sqlmock.AnyArg()).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	require.Error(t, repo.Enroll(context.Background(), "STU-100", offering))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryDropRemovesEntriesButNotPayments(t *testing.T) {
	db, mock, cleanup := newRegistrationRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM offering_roster WHERE edp_code = $1 AND student_id = $2")).
		WithArgs("53944", "STU-100").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM grade_entries WHERE student_id = $1 AND edp_code = $2")).
		WithArgs("STU-100", "53944").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM clearance_entries WHERE student_id = $1 AND edp_code = $2")).
		WithArgs("STU-100", "53944").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Drop(context.Background(), "STU-100", "53944"))
	// No statement ever touches the payments table on a drop.
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryDropNotOnRoster(t *testing.T) {
	db, mock, cleanup := newRegistrationRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM offering_roster")).
		WithArgs("53944", "STU-100").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Drop(context.Background(), "STU-100", "53944")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
