package core

// TimeStamp orders change and sync events. Zero means "never".
type TimeStamp uint64

// Clock is a logical clock. It only moves forward.
type Clock struct {
	now TimeStamp
}

func (c *Clock) Now() TimeStamp {
	return c.now
}

// Tick advances the clock and returns the new time.
func (c *Clock) Tick() TimeStamp {
	c.now++
	return c.now
}

func MaxTimeStamp(stamps ...TimeStamp) TimeStamp {
	var m TimeStamp
	for _, s := range stamps {
		if s > m {
			m = s
		}
	}
	return m
}
