package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordChat(t *testing.T) {
	before := testutil.ToFloat64(ChatRequestsTotal.WithLabelValues("unset", OutcomeQuota))

	RecordChat("", OutcomeQuota)

	assert.Equal(t, before+1, testutil.ToFloat64(ChatRequestsTotal.WithLabelValues("unset", OutcomeQuota)))
}

func TestRecordInterpreterTier(t *testing.T) {
	before := testutil.ToFloat64(InterpreterTierTotal.WithLabelValues("placeholder"))

	RecordInterpreterTier("placeholder")
	RecordInterpreterTier("placeholder")

	assert.Equal(t, before+2, testutil.ToFloat64(InterpreterTierTotal.WithLabelValues("placeholder")))
}

func TestRecordGeneration(t *testing.T) {
	RecordGeneration("stub", 10*time.Millisecond, nil)
	RecordGeneration("stub", time.Second, errors.New("boom"))

	assert.Equal(t, 2, testutil.CollectAndCount(GenerationDuration))
}
