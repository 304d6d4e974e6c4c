package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"order-status-service/models"
	"order-status-service/services"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ---- mock repository ----

type mockOrderRepo struct {
	mu        sync.Mutex
	orders    map[uuid.UUID]*models.Order
	writes    []models.OrderStatus
	findErr   error
	updateErr error
}

func newMockRepo(orders ...*models.Order) *mockOrderRepo {
	m := &mockOrderRepo{orders: make(map[uuid.UUID]*models.Order)}
	for _, o := range orders {
		m.orders[o.ID] = o
	}
	return m
}

func (m *mockOrderRepo) Create(_ context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
	return nil
}

func (m *mockOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) FindByPublicToken(_ context.Context, token string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, o := range m.orders {
		if o.PublicToken == token {
			cp := *o
			return &cp, nil
		}
	}
	return nil, models.ErrOrderNotFound
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	m.writes = append(m.writes, status)
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) status(id uuid.UUID) models.OrderStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[id].Status
}

// ---- side-effect fakes ----

type recordingDispatcher struct {
	mu     sync.Mutex
	orders []models.Order
	panic  bool
}

func (r *recordingDispatcher) Dispatch(_ context.Context, o *models.Order) []models.NotificationAttempt {
	if r.panic {
		panic("dispatcher exploded")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, *o)
	return nil
}

func (r *recordingDispatcher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

type fakeRealtime struct {
	mu       sync.Mutex
	tokens   []string
	statuses []models.OrderStatus
	err      error
}

func (f *fakeRealtime) Publish(_ context.Context, token string, status models.OrderStatus, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	f.statuses = append(f.statuses, status)
	return f.err
}

type fakeEvents struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
}

func (f *fakeEvents) Publish(_ context.Context, _ string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	return f.err
}

func newService(repo *mockOrderRepo, d services.Dispatcher, rt services.RealtimePublisher, ev services.EventPublisher) *services.StatusService {
	return services.NewStatusService(repo, d, rt, ev, time.Second, zap.NewNop())
}

func waitSideEffects(t *testing.T, svc *services.StatusService) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, svc.Wait(ctx))
}

func TestTransitionStatus_Success(t *testing.T) {
	order := models.NewOrder("jane@example.com", "03001234567")
	repo := newMockRepo(order)
	d := &recordingDispatcher{}
	rt := &fakeRealtime{}
	ev := &fakeEvents{}
	svc := newService(repo, d, rt, ev)

	updated, svcErr := svc.TransitionStatus(context.Background(), order.ID.String(), "shipped")
	require.Nil(t, svcErr)
	assert.Equal(t, models.StatusShipped, updated.Status)

	fresh, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusShipped, fresh.Status)

	waitSideEffects(t, svc)
	assert.Equal(t, 1, d.count())
	assert.Equal(t, []string{order.PublicToken}, rt.tokens)
	assert.Equal(t, []models.OrderStatus{models.StatusShipped}, rt.statuses)

	require.Len(t, ev.payloads, 1)
	var evt models.StatusChangedEvent
	require.NoError(t, json.Unmarshal(ev.payloads[0], &evt))
	assert.Equal(t, models.EventTypeStatusChanged, evt.EventType)
	assert.Equal(t, models.StatusPending, evt.PreviousStatus)
	assert.Equal(t, models.StatusShipped, evt.Status)
}

func TestTransitionStatus_CaseInsensitive(t *testing.T) {
	order := models.NewOrder("", "")
	repo := newMockRepo(order)
	svc := newService(repo, nil, nil, nil)

	updated, svcErr := svc.TransitionStatus(context.Background(), order.ID.String(), "  In_Progress ")
	require.Nil(t, svcErr)
	assert.Equal(t, models.StatusInProgress, updated.Status)
}

func TestTransitionStatus_InvalidStatus(t *testing.T) {
	for _, status := range []string{"bogus", "", "   ", "shipped!", "canceled"} {
		t.Run(fmt.Sprintf("%q", status), func(t *testing.T) {
			order := models.NewOrder("", "")
			repo := newMockRepo(order)
			d := &recordingDispatcher{}
			svc := newService(repo, d, nil, nil)

			updated, svcErr := svc.TransitionStatus(context.Background(), order.ID.String(), status)
			assert.Nil(t, updated)
			require.NotNil(t, svcErr)
			assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
			assert.ErrorIs(t, svcErr, models.ErrInvalidStatus)

			waitSideEffects(t, svc)
			assert.Empty(t, repo.writes)
			assert.Equal(t, models.StatusPending, repo.status(order.ID))
			assert.Equal(t, 0, d.count())
		})
	}
}

func TestTransitionStatus_NotFound(t *testing.T) {
	svc := newService(newMockRepo(), nil, nil, nil)

	_, svcErr := svc.TransitionStatus(context.Background(), uuid.NewString(), "shipped")
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusNotFound, svcErr.StatusCode)

	_, svcErr = svc.TransitionStatus(context.Background(), "abc123", "shipped")
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusNotFound, svcErr.StatusCode)
}

func TestTransitionStatus_EmptyOrderID(t *testing.T) {
	svc := newService(newMockRepo(), nil, nil, nil)

	_, svcErr := svc.TransitionStatus(context.Background(), " ", "shipped")
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
	assert.ErrorIs(t, svcErr, models.ErrInvalidOrderID)
}

func TestTransitionStatus_StorageFailureSkipsSideEffects(t *testing.T) {
	order := models.NewOrder("jane@example.com", "")
	repo := newMockRepo(order)
	repo.updateErr = fmt.Errorf("%w: connection refused", models.ErrStorage)
	d := &recordingDispatcher{}
	rt := &fakeRealtime{}
	svc := newService(repo, d, rt, nil)

	_, svcErr := svc.TransitionStatus(context.Background(), order.ID.String(), "shipped")
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusInternalServerError, svcErr.StatusCode)
	assert.ErrorIs(t, svcErr, models.ErrStorage)

	waitSideEffects(t, svc)
	assert.Equal(t, 0, d.count())
	assert.Empty(t, rt.tokens)
}

func TestTransitionStatus_Idempotent(t *testing.T) {
	order := models.NewOrder("", "")
	repo := newMockRepo(order)
	svc := newService(repo, nil, nil, nil)

	for i := 0; i < 2; i++ {
		updated, svcErr := svc.TransitionStatus(context.Background(), order.ID.String(), "delivered")
		require.Nil(t, svcErr)
		assert.Equal(t, models.StatusDelivered, updated.Status)
	}
	assert.Equal(t, models.StatusDelivered, repo.status(order.ID))
}

func TestTransitionStatus_BackwardMoveAllowed(t *testing.T) {
	order := models.NewOrder("", "")
	order.Status = models.StatusCompleted
	repo := newMockRepo(order)
	svc := newService(repo, nil, nil, nil)

	updated, svcErr := svc.TransitionStatus(context.Background(), order.ID.String(), "pending")
	require.Nil(t, svcErr)
	assert.Equal(t, models.StatusPending, updated.Status)
}

func TestTransitionStatus_SideEffectFailuresDoNotAffectResult(t *testing.T) {
	order := models.NewOrder("jane@example.com", "03001234567")
	repo := newMockRepo(order)
	svc := newService(repo,
		&recordingDispatcher{panic: true},
		&fakeRealtime{err: errors.New("redis unavailable")},
		&fakeEvents{err: errors.New("sns throttled")},
	)

	updated, svcErr := svc.TransitionStatus(context.Background(), order.ID.String(), "shipped")
	require.Nil(t, svcErr)
	assert.Equal(t, models.StatusShipped, updated.Status)

	waitSideEffects(t, svc)
	assert.Equal(t, models.StatusShipped, repo.status(order.ID))
}

func TestTransitionStatus_ConcurrentLastWriteWins(t *testing.T) {
	order := models.NewOrder("", "")
	repo := newMockRepo(order)
	svc := newService(repo, nil, nil, nil)

	var wg sync.WaitGroup
	errs := make([]*services.ServiceError, 2)
	for i, status := range []string{"confirmed", "cancelled"} {
		wg.Add(1)
		go func(i int, status string) {
			defer wg.Done()
			_, errs[i] = svc.TransitionStatus(context.Background(), order.ID.String(), status)
		}(i, status)
	}
	wg.Wait()

	assert.Nil(t, errs[0])
	assert.Nil(t, errs[1])
	require.Len(t, repo.writes, 2)
	assert.Equal(t, repo.writes[1], repo.status(order.ID))
}

func TestGetByPublicToken(t *testing.T) {
	order := models.NewOrder("", "")
	repo := newMockRepo(order)
	svc := newService(repo, nil, nil, nil)

	got, svcErr := svc.GetByPublicToken(context.Background(), order.PublicToken)
	require.Nil(t, svcErr)
	assert.Equal(t, order.ID, got.ID)

	_, svcErr = svc.GetByPublicToken(context.Background(), "nope")
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusNotFound, svcErr.StatusCode)

	_, svcErr = svc.GetByPublicToken(context.Background(), "")
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusNotFound, svcErr.StatusCode)
}

func TestGetByPublicToken_StorageFailure(t *testing.T) {
	repo := newMockRepo()
	repo.findErr = fmt.Errorf("%w: timeout", models.ErrStorage)
	svc := newService(repo, nil, nil, nil)

	_, svcErr := svc.GetByPublicToken(context.Background(), "tok")
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusInternalServerError, svcErr.StatusCode)
}
