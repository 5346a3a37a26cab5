package measure_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/tractfilter/internal/pipeline/measure"
)

func TestDefaultMetric(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		concurrent    int
		durations     []time.Duration
		transports    []time.Duration
		wantAvg       time.Duration
		wantTransport time.Duration
	}{
		"empty": {
			concurrent: 1,
		},
		"single worker": {
			concurrent:    1,
			durations:     []time.Duration{10 * time.Millisecond, 30 * time.Millisecond},
			transports:    []time.Duration{2 * time.Millisecond, 4 * time.Millisecond},
			wantAvg:       20 * time.Millisecond,
			wantTransport: 3 * time.Millisecond,
		},
		"two workers": {
			concurrent:    2,
			durations:     []time.Duration{10 * time.Millisecond},
			transports:    []time.Duration{8 * time.Millisecond},
			wantAvg:       10 * time.Millisecond,
			wantTransport: 4 * time.Millisecond,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			msr := measure.NewDefaultMeasure()
			mt := msr.AddMetric("step", tc.concurrent)

			for _, d := range tc.durations {
				mt.AddDuration(d)
			}

			for _, d := range tc.transports {
				mt.AddTransportDuration("parent", d)
			}

			assert.Equal(t, tc.wantAvg, mt.AVGDuration())
			assert.Equal(t, int64(len(tc.durations)), mt.Count())

			if len(tc.transports) > 0 {
				require.Contains(t, mt.AVGTransportDuration(), "parent")
				assert.Equal(t, tc.wantTransport, mt.AVGTransportDuration()["parent"].Elapsed)
			}
		})
	}
}

func TestAddMetricKeepsFirst(t *testing.T) {
	t.Parallel()

	msr := measure.NewDefaultMeasure()
	first := msr.AddMetric("step", 1)
	first.AddDuration(time.Second)

	second := msr.AddMetric("step", 4)
	assert.Same(t, first, second)
	assert.Nil(t, msr.GetMetric("missing"))
}

func TestTimings(t *testing.T) {
	t.Parallel()

	msr := measure.NewDefaultMeasure()
	msr.AddMetric("unused", 1)
	msr.AddMetric("resample", 1).AddDuration(4 * time.Millisecond)
	msr.AddMetric("count", 1).AddDuration(2 * time.Millisecond)
	msr.AddMetric("collect", 1).SetTotalDuration(time.Second)

	got := measure.Timings(msr)
	require.Len(t, got, 3)
	assert.Equal(t, "collect", got[0].Step)
	assert.Equal(t, time.Second, got[0].Total)
	assert.Equal(t, "count", got[1].Step)
	assert.Equal(t, int64(1), got[1].Items)
	assert.Equal(t, "resample", got[2].Step)
	assert.Equal(t, 4*time.Millisecond, got[2].Average)
}
