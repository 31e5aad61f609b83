package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorsRegisterAndCount(t *testing.T) {
	before := testutil.ToFloat64(CandidatesRejected.WithLabelValues("test"))
	CandidatesRejected.WithLabelValues("test").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(CandidatesRejected.WithLabelValues("test")))

	BestScore.WithLabelValues("test").Set(12.5)
	assert.Equal(t, 12.5, testutil.ToFloat64(BestScore.WithLabelValues("test")))
}
