package client

// liveness tracks the two sequence numbers the distilled data model's
// "Liveness record" names: the last observed birth and death
// sequence, each either the NBIRTH/NDEATH's bdSeq byte (0-255,
// wrapping) if the message carried one, or its payload timestamp as a
// fallback when it didn't.
//
// Go has no tagged-union value type as cheap as Python's "int or
// None" duck typing here, so presence is tracked with explicit bools
// rather than a sentinel value, matching the rest of this port's
// has-field convention (e.g. tahu.Metric's HasName/HasAlias fields).
type liveness struct {
	hasBirth bool
	birthSeq uint64
	hasDeath bool
	deathSeq uint64
}

func (l *liveness) recordBirth(seq uint64) {
	l.hasBirth, l.birthSeq = true, seq
}

func (l *liveness) recordDeath(seq uint64) {
	l.hasDeath, l.deathSeq = true, seq
}

// online implements the distilled decision rule: a birth must have
// been seen, and either no death has, or the birth postdates the
// death, or the death sequence was 255 and the birth sequence wrapped
// back below it (bdSeq is an 8-bit counter; a death recorded at the
// top of its range can be immediately followed by a birth that wraps
// to a small value and must still read as newer).
func (l *liveness) online() bool {
	if !l.hasBirth {
		return false
	}
	if !l.hasDeath {
		return true
	}
	if l.birthSeq > l.deathSeq {
		return true
	}
	if l.deathSeq == 255 && l.birthSeq < 255 {
		return true
	}
	return false
}

func (l *liveness) state() EndpointState {
	if !l.hasBirth {
		return StateUnknown
	}
	if l.online() {
		return StateOnline
	}
	return StateOffline
}
