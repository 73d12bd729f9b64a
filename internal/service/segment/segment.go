package segment

import (
	"fmt"
	"sync/atomic"
)

// Generator hands out source ids for streams whose recognizer does not
// identify utterances itself.
type Generator struct {
	counter uint64
}

func New() *Generator {
	return &Generator{}
}

func (g *Generator) Next(stream string) string {
	n := atomic.AddUint64(&g.counter, 1)
	return fmt.Sprintf("%s-utt-%d", stream, n)
}
