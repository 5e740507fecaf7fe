package fabric

// reduceState is the rendezvous for one in-progress collective reduction.
// Bulk-synchronous use means every rank calls the same collectives in the
// same order, so a single slot suffices.
type reduceState struct {
	count  int
	acc    uint64
	result uint64
	epoch  uint64
}

func (r *Rank) reduceUint64(v uint64, combine func(a, b uint64) uint64) uint64 {
	c := r.comm
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.reduce.count == 0 {
		c.reduce.acc = v
	} else {
		c.reduce.acc = combine(c.reduce.acc, v)
	}
	c.reduce.count++
	if c.reduce.count == len(c.ranks) {
		c.reduce.result = c.reduce.acc
		c.reduce.count = 0
		c.reduce.epoch++
		c.cond.Broadcast()
		return c.reduce.result
	}
	epoch := c.reduce.epoch
	for c.reduce.epoch == epoch {
		c.cond.Wait()
	}
	return c.reduce.result
}

// SumUint64 is a collective sum over every rank's contribution. All ranks
// must call it; every caller receives the global total.
func (r *Rank) SumUint64(v uint64) uint64 {
	return r.reduceUint64(v, func(a, b uint64) uint64 { return a + b })
}

// MaxUint64 is a collective maximum.
func (r *Rank) MaxUint64(v uint64) uint64 {
	return r.reduceUint64(v, func(a, b uint64) uint64 {
		if a > b {
			return a
		}
		return b
	})
}

// MaxUint32 is a collective maximum over 32-bit contributions.
func (r *Rank) MaxUint32(v uint32) uint32 {
	return uint32(r.MaxUint64(uint64(v)))
}

// MinUint32 is a collective minimum over 32-bit contributions.
func (r *Rank) MinUint32(v uint32) uint32 {
	res := r.reduceUint64(uint64(v), func(a, b uint64) uint64 {
		if a < b {
			return a
		}
		return b
	})
	return uint32(res)
}
