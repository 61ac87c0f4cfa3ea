package bench

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunStopAndWaitLossless(t *testing.T) {
	res, err := Run(Options{
		Protocol:    StopAndWait,
		SizeBytes:   2000,
		SegmentSize: 256,
		Timeout:     200 * time.Millisecond,
	})
	require.NoError(t, err)
	require.Equal(t, 2000, res.BytesTransferred)
	require.EqualValues(t, 0, res.Timeouts)
	require.EqualValues(t, 0, res.Retransmits)
}

// Scenario 2: lossless GBN with a real window produces zero
// retransmits/timeouts.
func TestRunGoBackNLossless(t *testing.T) {
	res, err := Run(Options{
		Protocol:    GoBackN,
		SizeBytes:   10_000,
		SegmentSize: 1000,
		WindowSize:  4,
		Timeout:     300 * time.Millisecond,
	})
	require.NoError(t, err)
	require.Equal(t, 10_000, res.BytesTransferred)
	require.EqualValues(t, 0, res.Timeouts)
	require.EqualValues(t, 0, res.Retransmits)
}

// Scenario 3: GBN under 20% loss still completes with an identical
// byte count, accumulating retransmits along the way.
func TestRunGoBackNWithLoss(t *testing.T) {
	res, err := Run(Options{
		Protocol:    GoBackN,
		SizeBytes:   100_000,
		SegmentSize: 1000,
		WindowSize:  8,
		LossRate:    0.2,
		Timeout:     150 * time.Millisecond,
	})
	require.NoError(t, err)
	require.Equal(t, 100_000, res.BytesTransferred)
	require.Greater(t, res.Retransmits, int64(0))
}
