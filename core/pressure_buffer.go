package core

import "github.com/signalsfoundry/orrery/model"

// PressureBufferCapacity is the hard bound on retained samples.
const PressureBufferCapacity = 60

// PressureBuffer is a fixed-capacity ring of samples read newest-first.
// Pushing onto a full buffer evicts the oldest sample. Not safe for
// concurrent use; TrendTracker serializes access.
type PressureBuffer struct {
	items [PressureBufferCapacity]model.PressureSample
	head  int // index of the newest sample
	n     int
}

// PushFront inserts s as the newest sample. It returns the evicted sample
// and true when the buffer was already full.
func (b *PressureBuffer) PushFront(s model.PressureSample) (model.PressureSample, bool) {
	var evicted model.PressureSample
	full := b.n == PressureBufferCapacity
	if full {
		evicted = b.at(b.n - 1)
	} else {
		b.n++
	}
	// The new head overwrites the old tail slot when full.
	b.head = (b.head - 1 + PressureBufferCapacity) % PressureBufferCapacity
	b.items[b.head] = s
	return evicted, full
}

// Len reports the number of samples held.
func (b *PressureBuffer) Len() int { return b.n }

// Newest returns the most recent sample.
func (b *PressureBuffer) Newest() (model.PressureSample, bool) {
	if b.n == 0 {
		return model.PressureSample{}, false
	}
	return b.at(0), true
}

// Oldest returns the least recent retained sample.
func (b *PressureBuffer) Oldest() (model.PressureSample, bool) {
	if b.n == 0 {
		return model.PressureSample{}, false
	}
	return b.at(b.n - 1), true
}

// Samples returns a newest-first copy of the contents.
func (b *PressureBuffer) Samples() []model.PressureSample {
	res := make([]model.PressureSample, b.n)
	for i := range res {
		res[i] = b.at(i)
	}
	return res
}

// Reset empties the buffer.
func (b *PressureBuffer) Reset() {
	*b = PressureBuffer{}
}

func (b *PressureBuffer) at(i int) model.PressureSample {
	return b.items[(b.head+i)%PressureBufferCapacity]
}
