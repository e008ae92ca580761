package rates

import (
	"context"
	"log/slog"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/jordymora1978/GSS-Utilidad/internal/accounts"
)

type mockRepo struct {
	rates        map[accounts.Country]Rate
	history      []HistoryEntry
	currentCalls int
}

func newMockRepo() *mockRepo {
	return &mockRepo{rates: make(map[accounts.Country]Rate)}
}

func (m *mockRepo) Current(context.Context) ([]Rate, error) {
	m.currentCalls++
	var out []Rate
	for _, r := range m.rates {
		out = append(out, r)
	}
	return out, nil
}

func (m *mockRepo) Get(_ context.Context, country accounts.Country) (Rate, error) {
	r, ok := m.rates[country]
	if !ok {
		return Rate{}, ErrRateNotFound
	}
	return r, nil
}

func (m *mockRepo) Apply(_ context.Context, rate Rate, entry HistoryEntry) error {
	m.rates[rate.Country] = rate
	m.history = append(m.history, entry)
	return nil
}

func (m *mockRepo) History(_ context.Context, country accounts.Country, limit int) ([]HistoryEntry, error) {
	return m.history, nil
}

type mockRecalc struct {
	calls [][]accounts.Country
}

func (r *mockRecalc) EnqueueRecalc(_ context.Context, countries []accounts.Country) error {
	r.calls = append(r.calls, countries)
	return nil
}

func newTestService(t *testing.T, repo Repository) (*Service, *mockRecalc, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	svc := NewService(slog.New(slog.DiscardHandler), repo, NewCache(client), nil)
	recalc := &mockRecalc{}
	svc.SetRecalculator(recalc)
	return svc, recalc, func() {
		_ = client.Close()
		mr.Close()
	}
}

func TestUpdateFirstRateIsNotSignificant(t *testing.T) {
	repo := newMockRepo()
	svc, recalc, cleanup := newTestService(t, repo)
	defer cleanup()

	change, err := svc.Update(context.Background(), UpdateRequest{
		Country: accounts.Colombia,
		Value:   4000,
		Actor:   "tester",
	})
	require.NoError(t, err)
	require.False(t, change.Significant)
	require.Zero(t, change.Entry.PreviousValue)
	require.Empty(t, recalc.calls)
}

func TestUpdateSignificantChangeEnqueuesRecalc(t *testing.T) {
	repo := newMockRepo()
	svc, recalc, cleanup := newTestService(t, repo)
	defer cleanup()

	_, err := svc.Update(context.Background(), UpdateRequest{
		Country: accounts.Chile, Value: 1000, Actor: "tester",
	})
	require.NoError(t, err)

	change, err := svc.Update(context.Background(), UpdateRequest{
		Country: accounts.Chile, Value: 1020, Actor: "tester",
	})
	require.NoError(t, err)
	require.True(t, change.Significant)
	require.InDelta(t, 2.0, change.Entry.ChangePct, 1e-9)
	require.Len(t, recalc.calls, 1)
	require.Equal(t, []accounts.Country{accounts.Chile}, recalc.calls[0])
}

func TestUpdateSmallChangeDoesNotRecalc(t *testing.T) {
	repo := newMockRepo()
	svc, recalc, cleanup := newTestService(t, repo)
	defer cleanup()

	_, err := svc.Update(context.Background(), UpdateRequest{
		Country: accounts.Peru, Value: 4.00, Actor: "tester",
	})
	require.NoError(t, err)

	change, err := svc.Update(context.Background(), UpdateRequest{
		Country: accounts.Peru, Value: 4.02, Actor: "tester",
	})
	require.NoError(t, err)
	require.False(t, change.Significant)
	require.Empty(t, recalc.calls)
}

func TestUpdateRejectsBadInput(t *testing.T) {
	svc, _, cleanup := newTestService(t, newMockRepo())
	defer cleanup()

	_, err := svc.Update(context.Background(), UpdateRequest{Country: "germany", Value: 1})
	require.ErrorIs(t, err, ErrInvalidRate)

	_, err = svc.Update(context.Background(), UpdateRequest{Country: accounts.Peru, Value: 0})
	require.ErrorIs(t, err, ErrInvalidRate)
}

func TestCurrentRatesCachesAndInvalidates(t *testing.T) {
	repo := newMockRepo()
	svc, _, cleanup := newTestService(t, repo)
	defer cleanup()

	_, err := svc.Update(context.Background(), UpdateRequest{
		Country: accounts.Colombia, Value: 4000, Actor: "tester",
	})
	require.NoError(t, err)

	first, err := svc.CurrentRates(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 4000, first[accounts.Colombia], 1e-9)

	second, err := svc.CurrentRates(context.Background())
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, repo.currentCalls, "second read must come from cache")

	// An update drops the cache so the next read sees the new value.
	_, err = svc.Update(context.Background(), UpdateRequest{
		Country: accounts.Colombia, Value: 4100, Actor: "tester",
	})
	require.NoError(t, err)

	third, err := svc.CurrentRates(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 4100, third[accounts.Colombia], 1e-9)
	require.Equal(t, 2, repo.currentCalls)
}
