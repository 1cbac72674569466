package circuit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var _ Operator = (*MockOperator)(nil)

// TestMockOperatorScriptedCallSequence exercises the gomock double with a
// scripted, ordered expectation set - the kind of precise call-count/
// argument check a hand-rolled fake can't express as directly.
func TestMockOperatorScriptedCallSequence(t *testing.T) {
	ctrl := gomock.NewController(t)
	op := NewMockOperator(ctrl)

	gomock.InOrder(
		op.EXPECT().Step().Return(nil),
		op.EXPECT().Step().Return(errors.New("boom")),
	)
	op.EXPECT().Flush().Return(nil).Times(1)

	require.NoError(t, op.Step())
	require.Error(t, op.Step())
	require.NoError(t, op.Flush())
}

// TestBuilderAcceptsMockOperator confirms MockOperator satisfies Operator
// well enough to sit in a real CircuitDefinition, not just stand alone.
func TestBuilderAcceptsMockOperator(t *testing.T) {
	ctrl := gomock.NewController(t)
	op := NewMockOperator(ctrl)
	op.EXPECT().Step().Return(nil).Times(1)

	b := NewBuilder(1)
	id, err := b.AddOperator("mocked", KindGeneric, op)
	require.NoError(t, err)
	def, err := b.Build()
	require.NoError(t, err)

	require.Equal(t, op, def.Operators[id].Op)
	require.NoError(t, def.Operators[id].Op.Step())
}
