package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateTotalPriceFixed(t *testing.T) {
	service := Service{
		PriceType:       PriceTypeFixed,
		BasePriceAmount: 65.00,
		MinPersons:      1,
		MaxPersons:      1,
	}

	assert.Equal(t, 65.00, service.CalculateTotalPrice(1, 0))
	// Fixed pricing ignores the person count
	assert.Equal(t, 65.00, service.CalculateTotalPrice(5, 0))
}

func TestCalculateTotalPricePerPerson(t *testing.T) {
	service := Service{
		PriceType:       PriceTypePerPerson,
		BasePriceAmount: 20.00,
	}

	assert.Equal(t, 20.00, service.CalculateTotalPrice(1, 0))
	assert.Equal(t, 80.00, service.CalculateTotalPrice(4, 0))
}

func TestCalculateTotalPricePerHour(t *testing.T) {
	service := Service{
		PriceType:       PriceTypePerHour,
		BasePriceAmount: 30.00,
		DurationMinutes: 90,
	}

	// Explicit duration wins
	assert.Equal(t, 60.00, service.CalculateTotalPrice(1, 2))
	// Falls back to the configured duration (90 min = 1.5h)
	assert.Equal(t, 45.00, service.CalculateTotalPrice(1, 0))
}

func TestCalculateAdvancePaymentDisabled(t *testing.T) {
	service := Service{
		PriceType:            PriceTypeFixed,
		BasePriceAmount:      65.00,
		PaymentEnabled:       false,
		AdvancePaymentType:   AdvancePaymentFixed,
		AdvancePaymentAmount: 10.00,
	}

	assert.Equal(t, 0.0, service.CalculateAdvancePayment(65.00))
}

func TestCalculateAdvancePaymentNoType(t *testing.T) {
	service := Service{
		PaymentEnabled: true,
	}

	assert.Equal(t, 0.0, service.CalculateAdvancePayment(65.00))
}

func TestCalculateAdvancePaymentFixed(t *testing.T) {
	service := Service{
		PaymentEnabled:       true,
		AdvancePaymentType:   AdvancePaymentFixed,
		AdvancePaymentAmount: 15.00,
	}

	assert.Equal(t, 15.00, service.CalculateAdvancePayment(100.00))
}

func TestCalculateAdvancePaymentPercent(t *testing.T) {
	service := Service{
		PaymentEnabled:       true,
		AdvancePaymentType:   AdvancePaymentPercent,
		AdvancePaymentAmount: 30,
	}

	assert.Equal(t, 30.00, service.CalculateAdvancePayment(100.00))
	assert.Equal(t, 19.50, service.CalculateAdvancePayment(65.00))
}

func TestCalculateAdvancePaymentNeverExceedsTotal(t *testing.T) {
	fixed := Service{
		PaymentEnabled:       true,
		AdvancePaymentType:   AdvancePaymentFixed,
		AdvancePaymentAmount: 80.00,
	}
	// A fixed advance above the total clamps to the total
	assert.Equal(t, 65.00, fixed.CalculateAdvancePayment(65.00))

	percent := Service{
		PaymentEnabled:       true,
		AdvancePaymentType:   AdvancePaymentPercent,
		AdvancePaymentAmount: 150,
	}
	assert.Equal(t, 65.00, percent.CalculateAdvancePayment(65.00))

	for _, service := range []Service{fixed, percent} {
		for _, total := range []float64{0, 10, 65, 1000} {
			advance := service.CalculateAdvancePayment(total)
			assert.LessOrEqual(t, advance, total)
			assert.GreaterOrEqual(t, advance, 0.0)
		}
	}
}

func TestParsePriceType(t *testing.T) {
	for _, valid := range []string{"fixed", "per_hour", "per_person"} {
		parsed, ok := ParsePriceType(valid)
		assert.True(t, ok)
		assert.Equal(t, PriceType(valid), parsed)
	}

	_, ok := ParsePriceType("hourly")
	assert.False(t, ok)
	_, ok = ParsePriceType("")
	assert.False(t, ok)
}

func TestParseAdvancePaymentType(t *testing.T) {
	_, ok := ParseAdvancePaymentType("fixed")
	assert.True(t, ok)
	_, ok = ParseAdvancePaymentType("percent")
	assert.True(t, ok)
	_, ok = ParseAdvancePaymentType("percentage")
	assert.False(t, ok)
}

func TestParseRecurringInterval(t *testing.T) {
	for _, valid := range []string{"day", "week", "month", "year"} {
		_, ok := ParseRecurringInterval(valid)
		assert.True(t, ok)
	}
	_, ok := ParseRecurringInterval("quarter")
	assert.False(t, ok)
}
