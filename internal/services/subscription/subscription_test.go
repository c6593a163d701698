package subscription

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/saas-billing/internal/cache"
	"github.com/magabrotheeeer/saas-billing/internal/config"
	"github.com/magabrotheeeer/saas-billing/internal/models"
)

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

// memRepo — хранилище в памяти с семантикой upsert по BillingSubscriptionID.
type memRepo struct {
	mu     sync.Mutex
	nextID int64
	byID   map[string]models.Subscription
	order  []string
}

func newMemRepo() *memRepo {
	return &memRepo{byID: map[string]models.Subscription{}}
}

func (r *memRepo) GetSubscriptionByBillingID(_ context.Context, id string) (*models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return &sub, nil
}

func (r *memRepo) ListSubscriptionsByUserID(_ context.Context, userID string) ([]models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := []models.Subscription{}
	for _, id := range r.order {
		if sub := r.byID[id]; sub.UserID == userID {
			res = append(res, sub)
		}
	}
	return res, nil
}

func (r *memRepo) UpsertSubscription(_ context.Context, in models.SubscriptionUpsert) (*models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.byID[in.BillingSubscriptionID]
	if !ok {
		r.nextID++
		sub = models.Subscription{ID: r.nextID, UserID: in.UserID, BillingSubscriptionID: in.BillingSubscriptionID}
		r.order = append(r.order, in.BillingSubscriptionID)
	}
	sub.PriceID = in.PriceID
	sub.ProductID = in.ProductID
	sub.Status = in.Status
	sub.CurrentPeriodEnd = in.CurrentPeriodEnd
	sub.CancelAtPeriodEnd = in.CancelAtPeriodEnd
	r.byID[in.BillingSubscriptionID] = sub
	return &sub, nil
}

func (r *memRepo) RemoveSubscription(_ context.Context, id string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.byID[id]
	if !ok {
		return "", nil
	}
	delete(r.byID, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return sub.UserID, nil
}

type RepoMock struct{ mock.Mock }

func (m *RepoMock) GetSubscriptionByBillingID(ctx context.Context, id string) (*models.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *RepoMock) ListSubscriptionsByUserID(ctx context.Context, userID string) ([]models.Subscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Subscription), args.Error(1)
}

func (m *RepoMock) UpsertSubscription(ctx context.Context, in models.SubscriptionUpsert) (*models.Subscription, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *RepoMock) RemoveSubscription(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(ctx context.Context, key string, result any) (bool, error) {
	args := m.Called(ctx, key, result)
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	return m.Called(ctx, key, value, expiration).Error(0)
}

func (m *CacheMock) Invalidate(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *CacheMock) Version(ctx context.Context, key string) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *CacheMock) Bump(ctx context.Context, key string) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

// racyRepo выполняет onList после чтения из хранилища и до возврата результата,
// имитируя запись, которая фиксируется между чтением и сохранением в кэш.
type racyRepo struct {
	*memRepo
	onList func()
}

func (r *racyRepo) ListSubscriptionsByUserID(ctx context.Context, userID string) ([]models.Subscription, error) {
	subs, err := r.memRepo.ListSubscriptionsByUserID(ctx, userID)
	if r.onList != nil {
		hook := r.onList
		r.onList = nil
		hook()
	}
	return subs, err
}

func newTestCache(t *testing.T) (*cache.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	c, err := cache.InitServer(context.Background(), config.RedisConnection{AddressRedis: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func upsert(id, user, status string, periodEnd int64) models.SubscriptionUpsert {
	return models.SubscriptionUpsert{
		UserID:                user,
		BillingSubscriptionID: id,
		PriceID:               "price_1",
		ProductID:             "prod_1",
		Status:                status,
		CurrentPeriodEnd:      periodEnd,
	}
}

func TestCurrent(t *testing.T) {
	active := models.Subscription{BillingSubscriptionID: "sub_active", Status: "active", CurrentPeriodEnd: 100}
	canceledLate := models.Subscription{BillingSubscriptionID: "sub_late", Status: "canceled", CurrentPeriodEnd: 900}
	canceledEarly := models.Subscription{BillingSubscriptionID: "sub_early", Status: "canceled", CurrentPeriodEnd: 50}
	pastDue := models.Subscription{BillingSubscriptionID: "sub_past_due", Status: "past_due", CurrentPeriodEnd: 300}
	activeLater := models.Subscription{BillingSubscriptionID: "sub_active_2", Status: "active", CurrentPeriodEnd: 500}

	tests := []struct {
		name string
		subs []models.Subscription
		want string
	}{
		{name: "empty", subs: nil, want: ""},
		{name: "active first", subs: []models.Subscription{active, canceledLate, canceledEarly}, want: "sub_active"},
		{name: "active last", subs: []models.Subscription{canceledLate, canceledEarly, active}, want: "sub_active"},
		{name: "no active picks latest period end", subs: []models.Subscription{canceledEarly, pastDue, canceledLate}, want: "sub_late"},
		{name: "two active picks latest period end", subs: []models.Subscription{activeLater, active}, want: "sub_active_2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Current(tt.subs)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.BillingSubscriptionID)
		})
	}
}

func TestService_NoSubscriptions(t *testing.T) {
	svc := NewService(newMemRepo(), nil, time.Minute, newNoopLogger())
	ctx := context.Background()

	cur, err := svc.GetCurrent(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, cur)

	ok, err := svc.HasActive(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestService_UpsertIdempotent(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil, time.Minute, newNoopLogger())
	ctx := context.Background()

	in := upsert("sub_1", "user-1", "active", 1000)
	first, err := svc.Upsert(ctx, in)
	require.NoError(t, err)
	second, err := svc.Upsert(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	subs, err := svc.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestService_RemoveUnknownIsNoop(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil, time.Minute, newNoopLogger())
	ctx := context.Background()

	_, err := svc.Upsert(ctx, upsert("sub_1", "user-1", "active", 1000))
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, "sub_unknown"))

	got, err := svc.GetByBillingSubscriptionID(ctx, "sub_1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "active", got.Status)
}

func TestService_CacheInvalidatedOnWrite(t *testing.T) {
	c, mr := newTestCache(t)
	svc := NewService(newMemRepo(), c, time.Minute, newNoopLogger())
	ctx := context.Background()

	ok, err := svc.HasActive(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, mr.Exists("subscriptions:user:user-1:v0"))

	_, err = svc.Upsert(ctx, upsert("sub_1", "user-1", "active", 1000))
	require.NoError(t, err)
	assert.False(t, mr.Exists("subscriptions:user:user-1:v0"))
	ver, err := mr.Get("subscriptions:user:user-1:version")
	require.NoError(t, err)
	assert.Equal(t, "1", ver)

	ok, err = svc.HasActive(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, svc.Remove(ctx, "sub_1"))
	cur, err := svc.GetCurrent(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, cur)
}

func TestService_WriteDuringReadNotServedStale(t *testing.T) {
	c, _ := newTestCache(t)
	repo := &racyRepo{memRepo: newMemRepo()}
	svc := NewService(repo, c, 10*time.Minute, newNoopLogger())
	ctx := context.Background()

	repo.onList = func() {
		_, err := svc.Upsert(ctx, upsert("sub_1", "user-1", "active", 1000))
		require.NoError(t, err)
	}

	ok, err := svc.HasActive(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ok, "read started before the write sees the old state")

	ok, err = svc.HasActive(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, ok)

	cur, err := svc.GetCurrent(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.Equal(t, "sub_1", cur.BillingSubscriptionID)
}

func TestService_CacheFaultsDoNotFail(t *testing.T) {
	repo := new(RepoMock)
	c := new(CacheMock)
	svc := NewService(repo, c, time.Minute, newNoopLogger())
	ctx := context.Background()
	redisDown := errors.New("redis down")

	subs := []models.Subscription{{BillingSubscriptionID: "sub_1", UserID: "user-1", Status: "active"}}
	c.On("Version", mock.Anything, "subscriptions:user:user-1:version").Return(int64(3), nil).Once()
	c.On("Get", mock.Anything, "subscriptions:user:user-1:v3", mock.Anything).Return(false, redisDown).Once()
	repo.On("ListSubscriptionsByUserID", mock.Anything, "user-1").Return(subs, nil).Once()
	c.On("Set", mock.Anything, "subscriptions:user:user-1:v3", subs, time.Minute).Return(redisDown).Once()

	ok, err := svc.HasActive(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, ok)

	in := upsert("sub_1", "user-1", "canceled", 10)
	repo.On("UpsertSubscription", mock.Anything, in).
		Return(&models.Subscription{BillingSubscriptionID: "sub_1", UserID: "user-1", Status: "canceled"}, nil).Once()
	c.On("Bump", mock.Anything, "subscriptions:user:user-1:version").Return(int64(4), nil).Once()
	c.On("Invalidate", mock.Anything, "subscriptions:user:user-1:v3").Return(redisDown).Once()

	_, err = svc.Upsert(ctx, in)
	require.NoError(t, err)

	repo.AssertExpectations(t)
	c.AssertExpectations(t)
}

func TestService_CacheVersionUnavailableReadsRepository(t *testing.T) {
	repo := new(RepoMock)
	c := new(CacheMock)
	svc := NewService(repo, c, time.Minute, newNoopLogger())
	ctx := context.Background()
	redisDown := errors.New("redis down")

	subs := []models.Subscription{{BillingSubscriptionID: "sub_1", UserID: "user-1", Status: "active"}}
	c.On("Version", mock.Anything, "subscriptions:user:user-1:version").Return(int64(0), redisDown).Once()
	repo.On("ListSubscriptionsByUserID", mock.Anything, "user-1").Return(subs, nil).Once()

	ok, err := svc.HasActive(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, ok)

	repo.On("RemoveSubscription", mock.Anything, "sub_1").Return("user-1", nil).Once()
	c.On("Bump", mock.Anything, "subscriptions:user:user-1:version").Return(int64(0), redisDown).Once()
	require.NoError(t, svc.Remove(ctx, "sub_1"))

	repo.AssertExpectations(t)
	c.AssertExpectations(t)
	c.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
	c.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	c.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything)
}

func TestService_RepositoryErrors(t *testing.T) {
	repo := new(RepoMock)
	svc := NewService(repo, nil, time.Minute, newNoopLogger())
	ctx := context.Background()
	dbErr := errors.New("db down")

	repo.On("ListSubscriptionsByUserID", mock.Anything, "user-1").Return(nil, dbErr)
	repo.On("RemoveSubscription", mock.Anything, "sub_1").Return("", dbErr)
	repo.On("UpsertSubscription", mock.Anything, mock.Anything).Return(nil, dbErr)

	_, err := svc.GetCurrent(ctx, "user-1")
	assert.ErrorIs(t, err, dbErr)
	_, err = svc.HasActive(ctx, "user-1")
	assert.ErrorIs(t, err, dbErr)
	assert.ErrorIs(t, svc.Remove(ctx, "sub_1"), dbErr)
	_, err = svc.Upsert(ctx, upsert("sub_1", "user-1", "active", 1))
	assert.ErrorIs(t, err, dbErr)
}
