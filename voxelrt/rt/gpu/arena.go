package gpu

// Handle names a device resource. The low 32 bits hold slot index + 1, the
// high 32 bits the slot generation, so a handle kept past Destroy never
// resolves to the resource that reused its slot. The zero Handle is invalid.
type Handle uint64

const InvalidHandle Handle = 0

func makeHandle(index, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(index+1))
}

func (h Handle) index() (uint32, bool) {
	lo := uint32(h)
	if lo == 0 {
		return 0, false
	}
	return lo - 1, true
}

func (h Handle) generation() uint32 {
	return uint32(h >> 32)
}

func (h Handle) Valid() bool {
	return h != InvalidHandle
}

type arenaEntry[T any] struct {
	value T
	gen   uint32
	live  bool
}

// Arena stores values in reusable slots addressed by generational handles.
type Arena[T any] struct {
	entries []arenaEntry[T]
	free    []uint32
	live    int
}

func (a *Arena[T]) Insert(v T) Handle {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		idx = uint32(len(a.entries))
		a.entries = append(a.entries, arenaEntry[T]{})
	}
	e := &a.entries[idx]
	e.value = v
	e.live = true
	a.live++
	return makeHandle(idx, e.gen)
}

func (a *Arena[T]) lookup(h Handle) (*arenaEntry[T], bool) {
	idx, ok := h.index()
	if !ok || int(idx) >= len(a.entries) {
		return nil, false
	}
	e := &a.entries[idx]
	if !e.live || e.gen != h.generation() {
		return nil, false
	}
	return e, true
}

func (a *Arena[T]) Get(h Handle) (T, bool) {
	e, ok := a.lookup(h)
	if !ok {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Set replaces the value behind a live handle.
func (a *Arena[T]) Set(h Handle, v T) bool {
	e, ok := a.lookup(h)
	if !ok {
		return false
	}
	e.value = v
	return true
}

func (a *Arena[T]) Remove(h Handle) (T, bool) {
	e, ok := a.lookup(h)
	if !ok {
		var zero T
		return zero, false
	}
	v := e.value
	var zero T
	e.value = zero
	e.live = false
	e.gen++
	idx, _ := h.index()
	a.free = append(a.free, idx)
	a.live--
	return v, true
}

func (a *Arena[T]) Len() int {
	return a.live
}

// Each visits live entries in slot order.
func (a *Arena[T]) Each(fn func(h Handle, v T) bool) {
	for i := range a.entries {
		e := &a.entries[i]
		if !e.live {
			continue
		}
		if !fn(makeHandle(uint32(i), e.gen), e.value) {
			return
		}
	}
}
