package repository_test

import (
	"context"
	"errors"
	"order-status-service/models"
	"order-status-service/repository"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	assert.NoError(t, err)
	return gormDB, mock
}

var orderColumns = []string{"id", "public_token", "status", "email", "phone", "metadata", "created_at", "updated_at"}

func TestCreate_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	order := models.NewOrder("jane@example.com", "03001234567")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "orders"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(order.ID.String()))
	mock.ExpectCommit()

	err := repo.Create(context.Background(), order)
	assert.NoError(t, err)
}

func TestFindByID_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders"`)).
		WillReturnRows(sqlmock.NewRows(orderColumns))

	o, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, models.ErrOrderNotFound)
	assert.Nil(t, o)
}

func TestFindByID_StorageFailure(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders"`)).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, models.ErrStorage)
}

func TestFindByPublicToken_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	id := uuid.New()
	now := time.Now()
	rows := sqlmock.NewRows(orderColumns).
		AddRow(id.String(), "tok123", "shipped", "jane@example.com", nil, []byte(`{"public_token":"tok123"}`), now, now)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders"`)).
		WillReturnRows(rows)

	o, err := repo.FindByPublicToken(context.Background(), "tok123")
	assert.NoError(t, err)
	assert.Equal(t, id, o.ID)
	assert.Equal(t, models.StatusShipped, o.Status)
	assert.Equal(t, "tok123", o.Metadata[models.MetaPublicToken])
	assert.Nil(t, o.Phone)
}

func TestUpdateStatus_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	id := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE "orders" SET "status"=.* RETURNING \*`).
		WillReturnRows(sqlmock.NewRows(orderColumns).
			AddRow(id.String(), "tok123", "confirmed", nil, nil, nil, now, now))
	mock.ExpectCommit()

	o, err := repo.UpdateStatus(context.Background(), id, models.StatusConfirmed)
	assert.NoError(t, err)
	assert.Equal(t, id, o.ID)
	assert.Equal(t, models.StatusConfirmed, o.Status)
	assert.Equal(t, "tok123", o.PublicToken)
	// The written row comes back from the UPDATE itself; no follow-up SELECT.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_NoRowsIsNotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE "orders"`)).
		WillReturnRows(sqlmock.NewRows(orderColumns))
	mock.ExpectCommit()

	_, err := repo.UpdateStatus(context.Background(), uuid.New(), models.StatusShipped)
	assert.ErrorIs(t, err, models.ErrOrderNotFound)
}

func TestUpdateStatus_QueryError(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE "orders"`)).
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	o, err := repo.UpdateStatus(context.Background(), uuid.New(), models.StatusShipped)
	assert.ErrorIs(t, err, models.ErrStorage)
	assert.Nil(t, o)
}
