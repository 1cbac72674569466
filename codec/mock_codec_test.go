package codec

import (
	"reflect"

	"go.uber.org/mock/gomock"
)

// MockCodec is a hand-written gomock double for Codec[int], used where a
// scripted call-count/argument expectation is more precise than a
// hand-rolled fake.
type MockCodec struct {
	ctrl     *gomock.Controller
	recorder *MockCodecMockRecorder
}

type MockCodecMockRecorder struct {
	mock *MockCodec
}

func NewMockCodec(ctrl *gomock.Controller) *MockCodec {
	m := &MockCodec{ctrl: ctrl}
	m.recorder = &MockCodecMockRecorder{m}
	return m
}

func (m *MockCodec) EXPECT() *MockCodecMockRecorder {
	return m.recorder
}

func (m *MockCodec) Serialize(v int) ([]byte, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Serialize", v)
	data, _ := ret[0].([]byte)
	err, _ := ret[1].(error)
	return data, err
}

func (mr *MockCodecMockRecorder) Serialize(v interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Serialize", reflect.TypeOf((*MockCodec)(nil).Serialize), v)
}

func (m *MockCodec) Deserialize(data []byte) (int, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Deserialize", data)
	v, _ := ret[0].(int)
	err, _ := ret[1].(error)
	return v, err
}

func (mr *MockCodecMockRecorder) Deserialize(data interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Deserialize", reflect.TypeOf((*MockCodec)(nil).Deserialize), data)
}

func (m *MockCodec) EstimateSize(v int) int {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "EstimateSize", v)
	n, _ := ret[0].(int)
	return n
}

func (mr *MockCodecMockRecorder) EstimateSize(v interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "EstimateSize", reflect.TypeOf((*MockCodec)(nil).EstimateSize), v)
}
