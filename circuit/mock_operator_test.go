package circuit

import (
	"reflect"

	"go.uber.org/mock/gomock"
)

// MockOperator is a hand-written gomock double for Operator, used where a
// scripted call-count/argument expectation is more precise than a
// hand-rolled fake (spec.md's ambient test-tooling convention).
type MockOperator struct {
	ctrl     *gomock.Controller
	recorder *MockOperatorMockRecorder
}

type MockOperatorMockRecorder struct {
	mock *MockOperator
}

func NewMockOperator(ctrl *gomock.Controller) *MockOperator {
	m := &MockOperator{ctrl: ctrl}
	m.recorder = &MockOperatorMockRecorder{m}
	return m
}

func (m *MockOperator) EXPECT() *MockOperatorMockRecorder {
	return m.recorder
}

func (m *MockOperator) Step() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Step")
	err, _ := ret[0].(error)
	return err
}

func (mr *MockOperatorMockRecorder) Step() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Step", reflect.TypeOf((*MockOperator)(nil).Step))
}

func (m *MockOperator) Flush() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Flush")
	err, _ := ret[0].(error)
	return err
}

func (mr *MockOperatorMockRecorder) Flush() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Flush", reflect.TypeOf((*MockOperator)(nil).Flush))
}
