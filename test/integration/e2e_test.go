//go:build integration
// +build integration

package integration

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/renewalwatch/backend/internal/dispatch"
	"github.com/renewalwatch/backend/internal/model"
	"github.com/renewalwatch/backend/internal/repository"
	"github.com/renewalwatch/backend/internal/service"
)

// Tables owned by the CRUD service. The alert engine only reads them.
const externalSchema = `
CREATE TABLE IF NOT EXISTS tenants (
    id UUID PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    timezone VARCHAR(64) NOT NULL DEFAULT 'UTC',
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY,
    tenant_id UUID NOT NULL REFERENCES tenants(id),
    full_name VARCHAR(255) NOT NULL
);

CREATE TABLE IF NOT EXISTS departments (
    id UUID PRIMARY KEY,
    tenant_id UUID NOT NULL REFERENCES tenants(id),
    name VARCHAR(255) NOT NULL
);

CREATE TABLE IF NOT EXISTS subscriptions (
    id UUID PRIMARY KEY,
    tenant_id UUID NOT NULL REFERENCES tenants(id),
    vendor_name VARCHAR(255) NOT NULL,
    service_name VARCHAR(255) NOT NULL DEFAULT '',
    status VARCHAR(20) NOT NULL,
    amount DECIMAL(15, 2) NOT NULL,
    currency VARCHAR(3) NOT NULL DEFAULT 'USD',
    billing_cycle VARCHAR(20) NOT NULL,
    next_renewal_date DATE NOT NULL,
    owner_id UUID REFERENCES users(id),
    department_id UUID REFERENCES departments(id),
    cost_center VARCHAR(64),
    deleted_at TIMESTAMP WITH TIME ZONE
);
`

// TestEnv holds the test environment
type TestEnv struct {
	DB        *sqlx.DB
	Container testcontainers.Container
	Chat      *httptest.Server
	Service   *service.AlertService

	mu       sync.Mutex
	received []map[string]interface{}
}

// SetupTestEnv creates a test environment with a real PostgreSQL database
func SetupTestEnv(t *testing.T, now time.Time) *TestEnv {
	ctx := context.Background()

	// Start PostgreSQL container
	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sqlx.Connect("postgres", connStr)
	require.NoError(t, err)

	_, err = db.Exec(externalSchema)
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(ctx, db))
	// Migrations are idempotent
	require.NoError(t, repository.Migrate(ctx, db))

	env := &TestEnv{DB: db, Container: pgContainer}
	env.Chat = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		env.mu.Lock()
		env.received = append(env.received, payload)
		env.mu.Unlock()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"name":"spaces/AAA/messages/1"}`))
	}))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env.Service = service.NewAlertService(
		repository.NewTenantRepository(db),
		repository.NewAlertSettingsRepository(db),
		repository.NewAlertChannelRepository(db),
		repository.NewSubscriptionRepository(db),
		repository.NewAlertLogRepository(db),
		dispatch.NewDefaultDispatcher("https://app.example.com", 5*time.Second, logger),
		logger,
	)
	env.Service.SetClock(func() time.Time { return now })

	return env
}

// Cleanup tears down the test environment
func (e *TestEnv) Cleanup(t *testing.T) {
	e.Chat.Close()
	e.DB.Close()
	if err := e.Container.Terminate(context.Background()); err != nil {
		t.Logf("Failed to terminate container: %v", err)
	}
}

func (e *TestEnv) Received() []map[string]interface{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]map[string]interface{}(nil), e.received...)
}

func (e *TestEnv) seedAcme(t *testing.T, renewal time.Time) (tenantID, subID, channelID uuid.UUID) {
	t.Helper()
	tenantID, subID, channelID = uuid.New(), uuid.New(), uuid.New()
	ownerID, deptID := uuid.New(), uuid.New()

	e.DB.MustExec(`INSERT INTO tenants (id, name, timezone) VALUES ($1, 'Acme', 'UTC')`, tenantID)
	e.DB.MustExec(`INSERT INTO users (id, tenant_id, full_name) VALUES ($1, $2, 'Dana Ops')`, ownerID, tenantID)
	e.DB.MustExec(`INSERT INTO departments (id, tenant_id, name) VALUES ($1, $2, 'Engineering')`, deptID, tenantID)
	e.DB.MustExec(`
		INSERT INTO subscriptions (id, tenant_id, vendor_name, service_name, status, amount, currency,
			billing_cycle, next_renewal_date, owner_id, department_id, cost_center)
		VALUES ($1, $2, 'Slack', 'Slack Pro', 'active', 99, 'USD', 'monthly', $3, $4, $5, 'CC-100')`,
		subID, tenantID, renewal, ownerID, deptID)
	e.DB.MustExec(`
		INSERT INTO alert_channels (id, tenant_id, name, kind, webhook_url)
		VALUES ($1, $2, 'ops', 'google_chat', $3)`, channelID, tenantID, e.Chat.URL)
	return tenantID, subID, channelID
}

func TestE2E_DailyRunIsDeduplicated(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	env := SetupTestEnv(t, now)
	defer env.Cleanup(t)
	ctx := context.Background()

	tenantID, subID, channelID := env.seedAcme(t, time.Date(2026, 10, 30, 0, 0, 0, 0, time.UTC))

	report, err := env.Service.ProcessAlertsForTenant(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
	require.Len(t, env.Received(), 1)

	// Second run the same day finds the sent row and skips
	report, err = env.Service.ProcessAlertsForTenant(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Sent)
	assert.Equal(t, 1, report.Skipped)
	assert.Len(t, env.Received(), 1)

	logs, err := env.Service.ListLogs(ctx, tenantID, 50)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.AlertStatusSent, logs[0].Status)
	assert.Equal(t, model.RuleDays14, logs[0].RuleType)
	assert.Equal(t, channelID, logs[0].ChannelID)
	require.NotNil(t, logs[0].SubscriptionID)
	assert.Equal(t, subID, *logs[0].SubscriptionID)
	require.NotNil(t, logs[0].ResponseCode)
	assert.Equal(t, http.StatusOK, *logs[0].ResponseCode)
	assert.NotNil(t, logs[0].SentAt)
}

func TestE2E_LiveUniqueIndex(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	env := SetupTestEnv(t, time.Now())
	defer env.Cleanup(t)
	ctx := context.Background()
	repo := repository.NewAlertLogRepository(env.DB)

	key := model.AlertKey{
		TenantID:  uuid.New(),
		RuleType:  model.RuleDataQuality,
		DueDate:   time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC),
		ChannelID: uuid.New(),
	}
	newLog := func() *model.AlertLog {
		return &model.AlertLog{
			TenantID:       key.TenantID,
			SubscriptionID: key.SubscriptionID,
			RuleType:       key.RuleType,
			DueDate:        key.DueDate,
			ChannelID:      key.ChannelID,
		}
	}

	first := newLog()
	inserted, err := repo.CreatePending(ctx, first)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Tenant-level alerts have no subscription; the index still collides
	inserted, err = repo.CreatePending(ctx, newLog())
	require.NoError(t, err)
	assert.False(t, inserted)

	// A failed row leaves the key free for a retry
	require.NoError(t, repo.MarkFailed(ctx, first.ID, nil, nil, "webhook returned non-2xx status: 500"))
	live, err := repo.FindLive(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, live)

	retry := newLog()
	inserted, err = repo.CreatePending(ctx, retry)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Terminal rows cannot be finalized again
	require.NoError(t, repo.MarkSent(ctx, retry.ID, 200, "ok", time.Now()))
	assert.ErrorIs(t, repo.MarkSent(ctx, retry.ID, 200, "ok", time.Now()), repository.ErrAlertLogNotPending)
}

func TestE2E_MonthlySummary(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	now := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	env := SetupTestEnv(t, now)
	defer env.Cleanup(t)
	ctx := context.Background()

	tenantID, _, _ := env.seedAcme(t, time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC))

	report, err := env.Service.SendMonthlySummary(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)

	report, err = env.Service.SendMonthlySummary(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Sent)

	received := env.Received()
	require.Len(t, received, 1)
	body, _ := json.Marshal(received[0])
	assert.Contains(t, string(body), "Monthly Subscription Summary")
	assert.Contains(t, string(body), "October 2026")
}
