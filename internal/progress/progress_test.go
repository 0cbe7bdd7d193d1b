package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestObserve_KeepsMaxMarker(t *testing.T) {
	start := time.Now()
	e := NewEstimatorAt(start)

	e.Observe("[3/120] Compile Game.cpp 12%")
	require.Equal(t, 12, e.EstimateAt(start))

	e.Observe("45% done")
	require.Equal(t, 45, e.EstimateAt(start))

	// A later, smaller marker never regresses the estimate
	e.Observe("back to 10%")
	require.Equal(t, 45, e.EstimateAt(start))
}

func TestObserve_IgnoresImpossibleMarkers(t *testing.T) {
	start := time.Now()
	e := NewEstimatorAt(start)

	e.Observe("retrying in 500%s") // garbage over 100 is ignored
	require.Equal(t, 0, e.EstimateAt(start))
}

func TestEstimate_FallsBackToElapsedTime(t *testing.T) {
	start := time.Now()
	e := NewEstimatorAt(start)

	e.Observe("10% complete")

	// Halfway through the assumed duration the extrapolation overtakes the
	// stale marker.
	halfway := start.Add(AssumedDuration / 2)
	require.Equal(t, 50, e.EstimateAt(halfway))
}

func TestEstimate_CappedBelowHundred(t *testing.T) {
	start := time.Now()
	e := NewEstimatorAt(start)

	e.Observe("100% almost there")
	require.Equal(t, 99, e.EstimateAt(start))

	wayPast := start.Add(3 * AssumedDuration)
	require.Equal(t, 99, e.EstimateAt(wayPast))
}

func TestEstimate_Monotonic(t *testing.T) {
	start := time.Now()
	e := NewEstimatorAt(start)

	last := 0
	for i := 0; i <= 10; i++ {
		now := start.Add(time.Duration(i) * AssumedDuration / 10)
		pct := e.EstimateAt(now)
		require.GreaterOrEqual(t, pct, last)
		last = pct
	}
}

func TestPhase_PriorityOrder(t *testing.T) {
	require.Equal(t, "compiling", Phase("Compiling Module.Game.cpp while linking nothing"))
	require.Equal(t, "linking", Phase("Linking GameEditor... generating symbols"))
	require.Equal(t, "generating", Phase("Generating project files..."))
	require.Equal(t, "processing", Phase("Parsing headers"))
}

func TestPhase_CaseInsensitive(t *testing.T) {
	require.Equal(t, "compiling", Phase("COMPILING shaders"))
}
