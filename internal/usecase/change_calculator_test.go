package usecase_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitos/company_page/internal/domain"
	"github.com/vitos/company_page/internal/usecase"
)

// 2024-03-05 12:00 ET
var refInstant = time.Date(2024, 3, 5, 17, 0, 0, 0, time.UTC)

const openKey = "2024-03-05 09:30"

func testCalendar(t *testing.T) domain.TradingCalendar {
	t.Helper()
	cal, err := domain.NewTradingCalendar("America/New_York", "09:30")
	require.NoError(t, err)
	return cal
}

func seriesWithOpen(open float64) domain.IntradaySeries {
	return domain.IntradaySeries{
		openKey:            open,
		"2024-03-05 09:31": open + 1,
	}
}

func TestChangeCalculator_Direction(t *testing.T) {
	calc := usecase.NewChangeCalculator(testCalendar(t))

	tests := []struct {
		name         string
		open         float64
		latest       float64
		wantChange   float64
		wantPct      float64
		wantPositive bool
		wantColor    domain.FillColor
	}{
		{"Gain", 150.00, 152.50, 2.50, 1.67, true, domain.FillColorGain},
		{"Loss", 100.00, 97.25, -2.75, -2.75, false, domain.FillColorLoss},
		{"Unchanged counts as gain", 100.00, 100.00, 0, 0, true, domain.FillColorGain},
		{"Small loss", 10.00, 9.99, -0.01, -0.10, false, domain.FillColorLoss},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm := calc.Compute(tt.latest, seriesWithOpen(tt.open), refInstant)
			assert.InDelta(t, tt.wantChange, vm.DailyChange, 1e-9)
			assert.InDelta(t, tt.wantPct, vm.DailyChangePercentage, 1e-9)
			assert.Equal(t, tt.wantPositive, vm.IsPositive)
			assert.Equal(t, tt.wantColor, vm.FillColor)
		})
	}
}

func TestChangeCalculator_RoundsHalfAwayFromZero(t *testing.T) {
	calc := usecase.NewChangeCalculator(testCalendar(t))

	vm := calc.Compute(105.00, seriesWithOpen(100.005), refInstant)
	assert.Equal(t, 5.00, vm.DailyChange)
	assert.Equal(t, "5.00", vm.DailyChangeText())
	assert.Equal(t, 4.99, vm.DailyChangePercentage)
	assert.True(t, vm.IsPositive)

	vm = calc.Compute(95.00, seriesWithOpen(100.005), refInstant)
	assert.Equal(t, -5.01, vm.DailyChange)
	assert.Equal(t, "-5.01", vm.DailyChangeText())
	assert.False(t, vm.IsPositive)
}

func TestChangeCalculator_ZeroOpenPrice(t *testing.T) {
	calc := usecase.NewChangeCalculator(testCalendar(t))

	var vm domain.DerivedViewModel
	require.NotPanics(t, func() {
		vm = calc.Compute(10, seriesWithOpen(0), refInstant)
	})
	assert.Equal(t, 10.00, vm.DailyChange)
	assert.Equal(t, "10.00", vm.DailyChangeText())
	assert.True(t, math.IsInf(vm.DailyChangePercentage, 1))
	assert.False(t, vm.PercentageFinite())
	assert.True(t, vm.IsPositive)

	vm = calc.Compute(0, seriesWithOpen(0), refInstant)
	assert.True(t, math.IsNaN(vm.DailyChangePercentage))
	assert.Equal(t, 0.0, vm.DailyChange)
}

func TestChangeCalculator_Idempotent(t *testing.T) {
	calc := usecase.NewChangeCalculator(testCalendar(t))
	series := seriesWithOpen(187.13)

	a := calc.Compute(190.77, series, refInstant)
	b := calc.Compute(190.77, series, refInstant)

	assert.Equal(t, a, b)
	assert.Equal(t, math.Float64bits(a.DailyChange), math.Float64bits(b.DailyChange))
	assert.Equal(t, math.Float64bits(a.DailyChangePercentage), math.Float64bits(b.DailyChangePercentage))
}

func TestChangeCalculator_UsesReferenceInstantNotWallClock(t *testing.T) {
	calc := usecase.NewChangeCalculator(testCalendar(t))
	series := domain.IntradaySeries{
		"2024-03-04 09:30": 50,
		openKey:            100,
	}

	yesterday := refInstant.Add(-24 * time.Hour)
	assert.Equal(t, 50.0, calc.Compute(100, series, yesterday).DailyChange)
	assert.Equal(t, 0.0, calc.Compute(100, series, refInstant).DailyChange)
}

func TestChangeCalculator_MissingOpenPanics(t *testing.T) {
	calc := usecase.NewChangeCalculator(testCalendar(t))
	series := domain.IntradaySeries{"2024-03-05 09:31": 100}

	assert.False(t, calc.Ready(series, refInstant))
	assert.Panics(t, func() {
		calc.Compute(100, series, refInstant)
	})

	assert.True(t, calc.Ready(seriesWithOpen(1), refInstant))
}
