package avrdrivers

// Poll samples done until it reports true.
//
// A limit of zero polls forever, which is how the hardware is meant to be driven: a
// status bit that never changes hangs the caller. Any other limit is the number of
// samples taken before giving up with ErrTimeout.
func Poll(limit uint32, done func() bool) error {
	if limit == 0 {
		for !done() {
		}
		return nil
	}
	for i := uint32(0); i < limit; i++ {
		if done() {
			return nil
		}
	}
	return ErrTimeout
}
