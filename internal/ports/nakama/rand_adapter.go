package nakama

import "math/rand"

// mathRandSource implements ports.RandSource over a process-local math/rand
// generator. Room codes are a usability device, not a security boundary, so
// the default source is sufficient.
type mathRandSource struct{}

func (mathRandSource) Intn(n int) int { return rand.Intn(n) }
