package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/edu-identity/internal/migrations"
	"github.com/magabrotheeeer/edu-identity/internal/models"
)

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции.
func setupTestDatabase(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(ctx, dsn, WithTimeout(10*time.Second))
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	projectRoot, err := filepath.Abs("../../..")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, filepath.Join(projectRoot, "migrations")))
	require.NoError(t, CheckDatabaseReady(ctx, storage))

	return storage
}

// TestDataFactory создаёт тестовые записи напрямую через SQL.
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создаёт фабрику тестовых данных.
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateAccount создаёт аккаунт с профилем.
func (f *TestDataFactory) CreateAccount(t *testing.T, handle string, role models.Role) int64 {
	t.Helper()
	id, err := f.storage.CreateAccount(context.Background(), models.Account{
		Handle:       handle,
		Email:        handle + "@example.com",
		PasswordHash: "digest",
		Role:         role,
		SignupMethod: models.SignupPassword,
		CreatedAt:    time.Now().UTC(),
	}, models.Profile{FirstName: handle, LastName: "Test", Email: handle + "@example.com"})
	require.NoError(t, err)
	return id
}

// CreateCatalog создаёт класс с одним предметом и одной темой.
func (f *TestDataFactory) CreateCatalog(t *testing.T) (classID, subjectID, topicID int64) {
	t.Helper()
	db := f.storage.DB
	require.NoError(t, db.QueryRow(`INSERT INTO classes (name) VALUES ('Grade 9') RETURNING id`).Scan(&classID))
	require.NoError(t, db.QueryRow(`INSERT INTO subjects (class_id, name) VALUES ($1, 'Math') RETURNING id`, classID).Scan(&subjectID))
	require.NoError(t, db.QueryRow(`INSERT INTO topics (subject_id, name) VALUES ($1, 'Algebra') RETURNING id`, subjectID).Scan(&topicID))
	return classID, subjectID, topicID
}

// CreatePlan создаёт тарифный план.
func (f *TestDataFactory) CreatePlan(t *testing.T, targetType models.TargetType, targetID int64, durationDays, graceDays int) int64 {
	t.Helper()
	var id int64
	err := f.storage.DB.QueryRow(`
		INSERT INTO subscription_plans (name, target_type, target_id, duration_days, price, grace_period_days)
		VALUES ('Plan', $1, $2, $3, 9.99, $4) RETURNING id`,
		targetType, targetID, durationDays, graceDays).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreateInstance создаёт подписку аккаунта.
func (f *TestDataFactory) CreateInstance(t *testing.T, accountID int64, targetType models.TargetType, targetID int64, subscribedAt time.Time, active bool) int64 {
	t.Helper()
	var id int64
	err := f.storage.DB.QueryRow(`
		INSERT INTO subscription_instances (account_id, target_type, target_id, subscribed_at, active)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		accountID, targetType, targetID, subscribedAt, active).Scan(&id)
	require.NoError(t, err)
	return id
}
