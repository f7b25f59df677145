package embedder

import "context"

// NoOp returns a zero vector of the correct dimension without calling
// any external service. Used when no embedding provider is configured,
// matching the teacher's pattern of a disabled-but-present collaborator
// rather than a nil interface scattered through call sites.
type NoOp struct {
	dim int
}

func NewNoOp(dim int) *NoOp {
	return &NoOp{dim: dim}
}

func (n *NoOp) Embed(ctx context.Context, text string) ([]float32, error) {
	return make([]float32, n.dim), nil
}
