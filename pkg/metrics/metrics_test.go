package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveHelpers(t *testing.T) {
	hits := testutil.ToFloat64(CacheLookups.WithLabelValues("hit"))
	misses := testutil.ToFloat64(CacheLookups.WithLabelValues("miss"))
	ObserveCache(true)
	ObserveCache(false)
	ObserveCache(false)
	assert.Equal(t, hits+1, testutil.ToFloat64(CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, misses+2, testutil.ToFloat64(CacheLookups.WithLabelValues("miss")))

	fetchErrs := testutil.ToFloat64(ProviderFetches.WithLabelValues("error"))
	ObserveFetch(errors.New("timeout"))
	assert.Equal(t, fetchErrs+1, testutil.ToFloat64(ProviderFetches.WithLabelValues("error")))

	texts := testutil.ToFloat64(EmbedTexts)
	ObserveEmbed(7, 10*time.Millisecond, nil)
	assert.Equal(t, texts+7, testutil.ToFloat64(EmbedTexts))

	reached := testutil.ToFloat64(RunsTotal.WithLabelValues("reached"))
	ObserveRun("reached", 3, time.Second)
	assert.Equal(t, reached+1, testutil.ToFloat64(RunsTotal.WithLabelValues("reached")))
}
