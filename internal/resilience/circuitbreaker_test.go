package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testBreaker() *Breaker {
	return NewBreaker(BreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Cooldown:         10 * time.Millisecond,
	})
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b := testBreaker()

	b.Failure()
	b.Failure()
	require.NoError(t, b.Allow(), "circuit must stay closed below the threshold")

	b.Failure()
	require.Equal(t, CircuitOpen, b.State())
	require.ErrorIs(t, b.Allow(), ErrCircuitOpen)
	require.EqualValues(t, 1, b.Rejected())
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := testBreaker()

	b.Failure()
	b.Failure()
	b.Success()
	b.Failure()
	b.Failure()

	require.Equal(t, CircuitClosed, b.State(), "non-consecutive failures must not open the circuit")
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	b := testBreaker()
	for i := 0; i < 3; i++ {
		b.Failure()
	}
	require.Equal(t, CircuitOpen, b.State())

	time.Sleep(15 * time.Millisecond)
	require.NoError(t, b.Allow(), "cooldown expiry must admit a probe")
	require.Equal(t, CircuitHalfOpen, b.State())

	// A probe failure slams the circuit shut again.
	b.Failure()
	require.Equal(t, CircuitOpen, b.State())
	require.ErrorIs(t, b.Allow(), ErrCircuitOpen)
}

func TestBreakerClosesAfterSuccessThreshold(t *testing.T) {
	b := testBreaker()
	for i := 0; i < 3; i++ {
		b.Failure()
	}

	time.Sleep(15 * time.Millisecond)
	require.NoError(t, b.Allow())

	b.Success()
	require.Equal(t, CircuitHalfOpen, b.State(), "one success is below the close threshold")
	b.Success()
	require.Equal(t, CircuitClosed, b.State())
	require.NoError(t, b.Allow())
}
