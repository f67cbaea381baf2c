package suggest

// Sequence is a deterministic pseudo-random source seeded from a string. The
// seed string is folded into a 32-bit state which is then iterated with an
// xorshift mix; identical seed strings always replay the identical value
// stream, which is what keeps repeated engine invocations byte-stable.
type Sequence struct {
	state uint32
}

// NewSequence derives a sequence from an arbitrary seed string.
func NewSequence(seed string) *Sequence {
	var h uint32
	for _, r := range seed {
		h = h*31 + uint32(r)
	}
	if h == 0 {
		// xorshift has a fixed point at zero.
		h = 0x9e3779b9
	}
	return &Sequence{state: h}
}

func (s *Sequence) next() uint32 {
	x := s.state
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	s.state = x
	return x
}

// Float64 returns the next value in [0, 1).
func (s *Sequence) Float64() float64 {
	return float64(s.next()) / (1 << 32)
}

// Intn returns the next value in [0, n). It returns 0 when n is not positive.
func (s *Sequence) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(s.Float64() * float64(n))
}

// Shuffle performs a seeded Fisher-Yates shuffle over n elements.
func (s *Sequence) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := s.Intn(i + 1)
		swap(i, j)
	}
}
