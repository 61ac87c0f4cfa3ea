package endpoint

import (
	"math/rand"
	"sync"
	"time"
)

// Impairment is a synthetic loss/delay profile applied at an Endpoint's
// send and receive paths so the reliability logic can be exercised
// deterministically under controlled network conditions. The Bernoulli
// drop draw and delay sleep follow the same shape as a link-layer
// impairment shim: an independent per-datagram draw against LossRate,
// then an optional fixed delay before the datagram is handed to the
// socket (or to the caller, on the receive side).
type Impairment struct {
	LossRate float64 // Bernoulli drop probability in [0,1], applied per call.
	DelayMs  int      // fixed delay applied when a datagram is not dropped.

	mu  sync.Mutex // guards rng: an Endpoint's Send and Recv paths share it
	rng *rand.Rand
}

// NewImpairment builds an Impairment with its own PRNG, seeded
// independently of the global one so concurrent senders/receivers in the
// same process (e.g. the benchmark harness) don't contend on it.
func NewImpairment(lossRate float64, delayMs int) *Impairment {
	return &Impairment{
		LossRate: lossRate,
		DelayMs:  delayMs,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// none is the zero-value impairment: never drops, never delays.
func none() *Impairment {
	return &Impairment{rng: rand.New(rand.NewSource(1))}
}

// shouldDrop makes the independent Bernoulli drop decision for one call.
func (im *Impairment) shouldDrop() bool {
	if im.LossRate <= 0 {
		return false
	}
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.rng.Float64() < im.LossRate
}

// delay blocks for the configured delay, if any.
func (im *Impairment) delay() {
	if im.DelayMs > 0 {
		time.Sleep(time.Duration(im.DelayMs) * time.Millisecond)
	}
}
