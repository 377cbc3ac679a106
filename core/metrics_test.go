package core

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestAuthMetrics_NilIsNoop(t *testing.T) {
	var m *AuthMetrics
	assert.NotPanics(t, func() {
		m.record("login", "ok")
		m.observeHash("hash", time.Millisecond)
	})
}

func TestAuthMetrics_Record(t *testing.T) {
	m := NewAuthMetrics(prometheus.NewRegistry())
	m.record("login", "ok")
	m.record("login", "ok")
	m.record("login", "invalid")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.attempts.WithLabelValues("login", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.attempts.WithLabelValues("login", "invalid")))
}
