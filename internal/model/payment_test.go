package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyStripeEventSucceeded(t *testing.T) {
	payment := Payment{Status: PaymentPending}

	applied := payment.ApplyStripeEvent("payment_intent.succeeded", "ch_123")

	assert.True(t, applied)
	assert.Equal(t, PaymentSucceeded, payment.Status)
	assert.Equal(t, "ch_123", payment.StripeChargeID)
	assert.NotNil(t, payment.PaymentDate)
}

func TestApplyStripeEventFailed(t *testing.T) {
	payment := Payment{Status: PaymentPending}

	applied := payment.ApplyStripeEvent("payment_intent.payment_failed", "")

	assert.True(t, applied)
	assert.Equal(t, PaymentFailed, payment.Status)
	assert.Nil(t, payment.PaymentDate)
}

func TestApplyStripeEventDispute(t *testing.T) {
	payment := Payment{Status: PaymentSucceeded}

	applied := payment.ApplyStripeEvent("charge.dispute.created", "")

	assert.True(t, applied)
	assert.Equal(t, PaymentRefunded, payment.Status)
}

func TestApplyStripeEventUnknown(t *testing.T) {
	payment := Payment{Status: PaymentPending}

	applied := payment.ApplyStripeEvent("invoice.paid", "")

	assert.False(t, applied)
	assert.Equal(t, PaymentPending, payment.Status)
}
