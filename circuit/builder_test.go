package circuit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type noopOperator struct{}

func (noopOperator) Step() error  { return nil }
func (noopOperator) Flush() error { return nil }

func TestBuilderLinearPipeline(t *testing.T) {
	b := NewBuilder(1)
	src, err := b.AddOperator("src", KindSource, noopOperator{})
	require.NoError(t, err)
	flt, err := b.AddOperator("flt", KindFilter, noopOperator{}, src)
	require.NoError(t, err)
	snk, err := b.AddOperator("snk", KindSink, noopOperator{}, flt)
	require.NoError(t, err)

	require.NoError(t, b.AddInput("in", src))
	require.NoError(t, b.AddOutput("out", snk))

	def, err := b.Build()
	require.NoError(t, err)
	require.Equal(t, []NodeId{src, flt, snk}, def.ExecOrder)
	require.Equal(t, src, def.Inputs["in"].Node)
	require.Equal(t, snk, def.Outputs["out"].Node)
	require.True(t, def.LiveOutputs(snk))
	require.False(t, def.LiveOutputs(flt))
}

func TestBuilderRejectsUnknownInput(t *testing.T) {
	b := NewBuilder(1)
	_, err := b.AddOperator("flt", KindFilter, noopOperator{}, NodeId(99))
	require.ErrorIs(t, err, ErrUnknownNode)
}

func TestBuilderRejectsUnknownOutput(t *testing.T) {
	b := NewBuilder(1)
	src, err := b.AddOperator("src", KindSource, noopOperator{})
	require.NoError(t, err)
	_ = src
	require.ErrorIs(t, b.AddOutput("out", NodeId(99)), ErrUnknownNode)
}

func TestBuilderFeedbackEdgeExemptFromCycleCheck(t *testing.T) {
	b := NewBuilder(1)
	a, err := b.AddOperator("a", KindGeneric, noopOperator{})
	require.NoError(t, err)
	c, err := b.AddOperator("c", KindGeneric, noopOperator{}, a)
	require.NoError(t, err)

	// Feedback from c back to a would be a cycle under plain data edges,
	// but must be exempt per spec.md §9.
	require.NoError(t, b.AddFeedbackEdge(c, a))

	def, err := b.Build()
	require.NoError(t, err)
	require.Len(t, def.ExecOrder, 2)
}

func TestBuilderDetectsDataCycle(t *testing.T) {
	b := NewBuilder(1)
	a, err := b.AddOperator("a", KindGeneric, noopOperator{})
	require.NoError(t, err)
	d, err := b.AddOperator("d", KindGeneric, noopOperator{}, a)
	require.NoError(t, err)

	// Directly wire a second data edge from d back to a, bypassing
	// AddOperator's input validation, to synthesize a cycle for the test.
	b.edges = append(b.edges, Edge{From: d, To: a, Kind: EdgeData})

	_, err = b.Build()
	require.ErrorIs(t, err, ErrCycle)
}

func TestDescribeIncludesNodesAndHandles(t *testing.T) {
	b := NewBuilder(1)
	src, err := b.AddOperator("src", KindSource, noopOperator{})
	require.NoError(t, err)
	require.NoError(t, b.AddInput("in", src))
	require.NoError(t, b.AddOutput("out", src))

	def, err := b.Build()
	require.NoError(t, err)
	desc := def.Describe()
	require.Contains(t, desc, "src")
	require.Contains(t, desc, "input \"in\"")
	require.Contains(t, desc, "output \"out\"")
}
