package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/renewalwatch/backend/internal/dispatch"
	"github.com/renewalwatch/backend/internal/model"
	"github.com/renewalwatch/backend/internal/repository"
	"github.com/renewalwatch/backend/pkg/datetime"
	"github.com/stretchr/testify/mock"
)

// MockTenantRepo for testing
type MockTenantRepo struct {
	mock.Mock
}

func (m *MockTenantRepo) ListActive(ctx context.Context) ([]model.Tenant, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Tenant), args.Error(1)
}

func (m *MockTenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Tenant), args.Error(1)
}

// MockSettingsRepo for testing
type MockSettingsRepo struct {
	mock.Mock
}

func (m *MockSettingsRepo) GetOrCreate(ctx context.Context, tenantID uuid.UUID) (*model.AlertSettings, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AlertSettings), args.Error(1)
}

// MockChannelRepo for testing
type MockChannelRepo struct {
	mock.Mock
}

func (m *MockChannelRepo) ListActive(ctx context.Context, tenantID uuid.UUID) ([]model.AlertChannel, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AlertChannel), args.Error(1)
}

// MockAlertLogRepo for testing
type MockAlertLogRepo struct {
	mock.Mock
}

func (m *MockAlertLogRepo) FindLive(ctx context.Context, key model.AlertKey) (*model.AlertLog, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AlertLog), args.Error(1)
}

func (m *MockAlertLogRepo) CreatePending(ctx context.Context, log *model.AlertLog) (bool, error) {
	args := m.Called(ctx, log)
	return args.Bool(0), args.Error(1)
}

func (m *MockAlertLogRepo) MarkSent(ctx context.Context, id uuid.UUID, responseCode int, responseBody string, sentAt time.Time) error {
	args := m.Called(ctx, id, responseCode, responseBody, sentAt)
	return args.Error(0)
}

func (m *MockAlertLogRepo) MarkFailed(ctx context.Context, id uuid.UUID, responseCode *int, responseBody *string, errMsg string) error {
	args := m.Called(ctx, id, responseCode, responseBody, errMsg)
	return args.Error(0)
}

func (m *MockAlertLogRepo) LastCreatedAt(ctx context.Context, tenantID uuid.UUID, rule model.RuleType) (*time.Time, error) {
	args := m.Called(ctx, tenantID, rule)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

func (m *MockAlertLogRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]model.AlertLog, error) {
	args := m.Called(ctx, tenantID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AlertLog), args.Error(1)
}

// MockDispatcher for testing
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, channel model.AlertChannel, msg dispatch.Message) dispatch.Result {
	args := m.Called(ctx, channel, msg)
	return args.Get(0).(dispatch.Result)
}

// memorySubRepo answers subscription queries from a slice, applying the
// same filters the SQL does.
type memorySubRepo struct {
	subs      []model.Subscription
	aggregate *model.MonthlyAggregate
	err       error
}

func (r *memorySubRepo) FindDueBetween(_ context.Context, tenantID uuid.UUID, start, end time.Time, status model.SubscriptionStatus) ([]model.Subscription, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []model.Subscription
	for _, s := range r.subs {
		day := datetime.CalendarDate(s.NextRenewalDate)
		if s.TenantID == tenantID && s.Status == status && !day.Before(start) && day.Before(end) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memorySubRepo) FindOverdue(_ context.Context, tenantID uuid.UUID, before time.Time) ([]model.Subscription, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []model.Subscription
	for _, s := range r.subs {
		if s.TenantID == tenantID && s.Status == model.SubscriptionStatusActive && datetime.CalendarDate(s.NextRenewalDate).Before(before) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memorySubRepo) FindDataQualityGaps(_ context.Context, tenantID uuid.UUID) ([]model.Subscription, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []model.Subscription
	for _, s := range r.subs {
		if s.TenantID == tenantID && s.Status == model.SubscriptionStatusActive && len(s.MissingFields()) > 0 {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memorySubRepo) MonthlyAggregate(_ context.Context, _ uuid.UUID, _ time.Time) (*model.MonthlyAggregate, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.aggregate, nil
}

// memoryLogRepo is an in-memory ledger with the live-row uniqueness the
// database index enforces.
type memoryLogRepo struct {
	mu   sync.Mutex
	logs []model.AlertLog
	now  func() time.Time
}

func newMemoryLogRepo(now func() time.Time) *memoryLogRepo {
	return &memoryLogRepo{now: now}
}

func sameKey(l model.AlertLog, key model.AlertKey) bool {
	if l.TenantID != key.TenantID || l.RuleType != key.RuleType || !l.DueDate.Equal(key.DueDate) || l.ChannelID != key.ChannelID {
		return false
	}
	if l.SubscriptionID == nil || key.SubscriptionID == nil {
		return l.SubscriptionID == nil && key.SubscriptionID == nil
	}
	return *l.SubscriptionID == *key.SubscriptionID
}

func (r *memoryLogRepo) findLive(key model.AlertKey) *model.AlertLog {
	for i := range r.logs {
		if sameKey(r.logs[i], key) && r.logs[i].Status != model.AlertStatusFailed {
			l := r.logs[i]
			return &l
		}
	}
	return nil
}

func (r *memoryLogRepo) FindLive(_ context.Context, key model.AlertKey) (*model.AlertLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findLive(key), nil
}

func (r *memoryLogRepo) CreatePending(_ context.Context, log *model.AlertLog) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := model.AlertKey{TenantID: log.TenantID, SubscriptionID: log.SubscriptionID, RuleType: log.RuleType, DueDate: log.DueDate, ChannelID: log.ChannelID}
	if r.findLive(key) != nil {
		return false, nil
	}
	log.Status = model.AlertStatusPending
	log.CreatedAt = r.now()
	log.UpdatedAt = log.CreatedAt
	r.logs = append(r.logs, *log)
	return true, nil
}

// update fails on a cancelled ctx like a real query would.
func (r *memoryLogRepo) update(ctx context.Context, id uuid.UUID, fn func(*model.AlertLog)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.logs {
		if r.logs[i].ID == id && r.logs[i].Status == model.AlertStatusPending {
			fn(&r.logs[i])
			return nil
		}
	}
	return repository.ErrAlertLogNotPending
}

func (r *memoryLogRepo) MarkSent(ctx context.Context, id uuid.UUID, code int, body string, sentAt time.Time) error {
	return r.update(ctx, id, func(l *model.AlertLog) {
		l.Status = model.AlertStatusSent
		l.ResponseCode = &code
		l.ResponseBody = &body
		l.SentAt = &sentAt
	})
}

func (r *memoryLogRepo) MarkFailed(ctx context.Context, id uuid.UUID, code *int, body *string, errMsg string) error {
	return r.update(ctx, id, func(l *model.AlertLog) {
		l.Status = model.AlertStatusFailed
		l.ResponseCode = code
		l.ResponseBody = body
		l.ErrorMessage = &errMsg
	})
}

func (r *memoryLogRepo) LastCreatedAt(_ context.Context, tenantID uuid.UUID, rule model.RuleType) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var last *time.Time
	for i := range r.logs {
		l := r.logs[i]
		if l.TenantID == tenantID && l.RuleType == rule && (last == nil || l.CreatedAt.After(*last)) {
			t := l.CreatedAt
			last = &t
		}
	}
	return last, nil
}

func (r *memoryLogRepo) ListByTenant(_ context.Context, tenantID uuid.UUID, limit int) ([]model.AlertLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.AlertLog
	for i := len(r.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if r.logs[i].TenantID == tenantID {
			out = append(out, r.logs[i])
		}
	}
	return out, nil
}

func (r *memoryLogRepo) all() []model.AlertLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.AlertLog(nil), r.logs...)
}
