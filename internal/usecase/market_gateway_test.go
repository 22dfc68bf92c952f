package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitos/company_page/internal/domain"
	"github.com/vitos/company_page/internal/usecase"
)

func newTestGateway(client domain.MarketDataClient, cache domain.FundamentalsCache) *usecase.MarketGateway {
	return usecase.NewMarketGateway(client, cache, 0, usecase.RetryPolicy{Attempts: 1}, nil)
}

func TestMarketGateway_FetchLatestPrice(t *testing.T) {
	client := NewMockMarketClient()
	client.Prices["AAPL"] = 152.5
	gw := newTestGateway(client, nil)

	var got []float64
	gw.OnPriceUpdate(func(symbol string, price float64) {
		assert.Equal(t, "AAPL", symbol)
		got = append(got, price)
	})

	require.NoError(t, gw.FetchLatestPrice(context.Background(), "AAPL"))

	snap := gw.Snapshot("AAPL")
	require.NotNil(t, snap.LatestPrice)
	assert.Equal(t, 152.5, *snap.LatestPrice)
	assert.False(t, snap.Loading.Price)
	assert.Equal(t, []float64{152.5}, got)
}

func TestMarketGateway_FailureLeavesFlagSet(t *testing.T) {
	client := NewMockMarketClient()
	client.Prices["AAPL"] = 150
	client.FailPrice = 1
	client.FailIntraday = 1
	gw := newTestGateway(client, nil)
	ctx := context.Background()

	err := gw.FetchLatestPrice(ctx, "AAPL")
	require.ErrorIs(t, err, errFeedDown)
	_, err = gw.FetchIntraday(ctx, "AAPL")
	require.ErrorIs(t, err, errFeedDown)

	snap := gw.Snapshot("AAPL")
	assert.True(t, snap.Loading.Price)
	assert.True(t, snap.Loading.Intraday)
	assert.Nil(t, snap.LatestPrice)

	// The next success clears the stall.
	require.NoError(t, gw.FetchLatestPrice(ctx, "AAPL"))
	assert.False(t, gw.Snapshot("AAPL").Loading.Price)
}

func TestMarketGateway_RetryRecovers(t *testing.T) {
	client := NewMockMarketClient()
	client.Prices["AAPL"] = 150
	client.FailPrice = 2
	gw := usecase.NewMarketGateway(client, nil, 0, usecase.RetryPolicy{Attempts: 3}, nil)

	require.NoError(t, gw.FetchLatestPrice(context.Background(), "AAPL"))
	assert.Equal(t, 3, client.CallCount("price"))
	assert.False(t, gw.Snapshot("AAPL").Loading.Price)
}

func TestMarketGateway_FetchIntradayReturnsCopy(t *testing.T) {
	client := NewMockMarketClient()
	client.Intraday["AAPL"] = domain.IntradaySeries{openKey: 150}
	gw := newTestGateway(client, nil)

	series, err := gw.FetchIntraday(context.Background(), "AAPL")
	require.NoError(t, err)
	series[openKey] = 1

	snap := gw.Snapshot("AAPL")
	assert.Equal(t, 150.0, snap.Intraday[openKey])
	assert.False(t, snap.Loading.Intraday)
}

func TestMarketGateway_FundamentalsCache(t *testing.T) {
	client := NewMockMarketClient()
	client.Fundamentals["AAPL"] = &domain.Fundamentals{Symbol: "AAPL", Name: "Apple Inc."}
	cache := &MockFundamentalsCache{}
	gw := newTestGateway(client, cache)
	ctx := context.Background()

	require.NoError(t, gw.FetchFundamentals(ctx, "AAPL"))
	require.NoError(t, gw.FetchFundamentals(ctx, "AAPL"))

	assert.Equal(t, 1, client.CallCount("fundamentals"), "second fetch should hit the cache")
	snap := gw.Snapshot("AAPL")
	require.NotNil(t, snap.Fundamentals)
	assert.Equal(t, "Apple Inc.", snap.Fundamentals.Name)
	assert.False(t, snap.Loading.Fundamentals)
}

func TestMarketGateway_UpdatePriceKeepsFlags(t *testing.T) {
	client := NewMockMarketClient()
	client.FailPrice = 1
	gw := newTestGateway(client, nil)
	_ = gw.FetchLatestPrice(context.Background(), "AAPL")

	calls := 0
	gw.OnPriceUpdate(func(string, float64) { calls++ })
	gw.UpdatePrice("AAPL", 151)

	snap := gw.Snapshot("AAPL")
	require.NotNil(t, snap.LatestPrice)
	assert.Equal(t, 151.0, *snap.LatestPrice)
	assert.True(t, snap.Loading.Price, "pushed prices do not end a loading cycle")
	assert.Equal(t, 1, calls)
}

func TestMarketGateway_SnapshotUnknownSymbol(t *testing.T) {
	gw := newTestGateway(NewMockMarketClient(), nil)
	snap := gw.Snapshot("ZZZ")
	assert.Equal(t, "ZZZ", snap.Symbol)
	assert.Nil(t, snap.LatestPrice)
	assert.Equal(t, domain.LoadingFlags{}, snap.Loading)
}

func waitParked(t *testing.T, parked <-chan struct{}) {
	t.Helper()
	select {
	case <-parked:
	case <-time.After(time.Second):
		t.Fatal("expected a parked price call")
	}
}

func TestMarketGateway_OverlappingFetchesClearFlag(t *testing.T) {
	tests := []struct {
		name   string
		finish func(cancel context.CancelFunc, gate chan error)
	}{
		{
			name:   "slower fetch cancelled",
			finish: func(cancel context.CancelFunc, _ chan error) { cancel() },
		},
		{
			name:   "slower fetch fails",
			finish: func(_ context.CancelFunc, gate chan error) { gate <- errFeedDown },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewMockMarketClient()
			client.Prices["AAPL"] = 150
			gw := newTestGateway(client, nil)

			gate := make(chan error)
			parked := client.ParkPrices(gate)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			done := make(chan error, 1)
			go func() { done <- gw.FetchLatestPrice(ctx, "AAPL") }()
			waitParked(t, parked)

			client.ParkPrices(nil)
			require.NoError(t, gw.FetchLatestPrice(context.Background(), "AAPL"))
			assert.True(t, gw.Snapshot("AAPL").Loading.Price, "a fetch is still in flight")

			tt.finish(cancel, gate)
			require.Error(t, <-done)

			snap := gw.Snapshot("AAPL")
			assert.False(t, snap.Loading.Price)
			require.NotNil(t, snap.LatestPrice)
			assert.Equal(t, 150.0, *snap.LatestPrice)
		})
	}
}

func TestMarketGateway_CancelledFetchIsNotAStall(t *testing.T) {
	client := NewMockMarketClient()
	client.Prices["AAPL"] = 150
	gw := newTestGateway(client, nil)

	parked := client.ParkPrices(make(chan error))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gw.FetchLatestPrice(ctx, "AAPL") }()
	waitParked(t, parked)

	assert.True(t, gw.Snapshot("AAPL").Loading.Price)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	snap := gw.Snapshot("AAPL")
	assert.False(t, snap.Loading.Price)
	assert.Nil(t, snap.LatestPrice)
}
