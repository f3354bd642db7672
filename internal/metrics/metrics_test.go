package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.TicketIssued(true)
	m.TicketIssued(false)
	m.TicketIssued(false)
	m.ValidationResult("ok")
	m.ValidationResult("already_used")
	m.ValidationResult("already_used")
	m.AssignResult("already_assigned")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.issued.WithLabelValues("true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.issued.WithLabelValues("false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.validations.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.validations.WithLabelValues("already_used")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.assignments.WithLabelValues("already_assigned")))
}

func TestMetrics_StoreHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveStore("find_by_code", 3*time.Millisecond)
	m.ObserveStore("find_by_code", 5*time.Millisecond)

	assert.Equal(t, 1, testutil.CollectAndCount(m.storeDuration))
	m.ObserveStore("consume_ticket", time.Millisecond)
	assert.Equal(t, 2, testutil.CollectAndCount(m.storeDuration))

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "ticket_store_duration_seconds")
}

func TestNew_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
