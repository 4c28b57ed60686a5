package mock

import (
	context "context"
	reflect "reflect"
	time "time"

	trade "github.com/disgoorg/tradebot/internal/domain/trade"
	gomock "go.uber.org/mock/gomock"
)

// MockMessenger is a mock of Messenger interface.
type MockMessenger struct {
	ctrl     *gomock.Controller
	recorder *MockMessengerMockRecorder
	isgomock struct{}
}

// MockMessengerMockRecorder is the mock recorder for MockMessenger.
type MockMessengerMockRecorder struct {
	mock *MockMessenger
}

// NewMockMessenger creates a new mock instance.
func NewMockMessenger(ctrl *gomock.Controller) *MockMessenger {
	mock := &MockMessenger{ctrl: ctrl}
	mock.recorder = &MockMessengerMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockMessenger) EXPECT() *MockMessengerMockRecorder {
	return m.recorder
}

// NotifyOutcome mocks base method.
func (m *MockMessenger) NotifyOutcome(ctx context.Context, userID string, rec trade.Record) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "NotifyOutcome", ctx, userID, rec)
	ret0, _ := ret[0].(error)
	return ret0
}

// NotifyOutcome indicates an expected call of NotifyOutcome.
func (mr *MockMessengerMockRecorder) NotifyOutcome(ctx, userID, rec any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "NotifyOutcome", reflect.TypeOf((*MockMessenger)(nil).NotifyOutcome), ctx, userID, rec)
}

// PromptFinalConfirmation mocks base method.
func (m *MockMessenger) PromptFinalConfirmation(ctx context.Context, p trade.FinalPrompt) (bool, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "PromptFinalConfirmation", ctx, p)
	ret0, _ := ret[0].(bool)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// PromptFinalConfirmation indicates an expected call of PromptFinalConfirmation.
func (mr *MockMessengerMockRecorder) PromptFinalConfirmation(ctx, p any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "PromptFinalConfirmation", reflect.TypeOf((*MockMessenger)(nil).PromptFinalConfirmation), ctx, p)
}

// PromptOffer mocks base method.
func (m *MockMessenger) PromptOffer(ctx context.Context, p trade.OfferPrompt) (trade.Offer, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "PromptOffer", ctx, p)
	ret0, _ := ret[0].(trade.Offer)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// PromptOffer indicates an expected call of PromptOffer.
func (mr *MockMessengerMockRecorder) PromptOffer(ctx, p any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "PromptOffer", reflect.TypeOf((*MockMessenger)(nil).PromptOffer), ctx, p)
}

// Reachable mocks base method.
func (m *MockMessenger) Reachable(ctx context.Context, userID string) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Reachable", ctx, userID)
	ret0, _ := ret[0].(error)
	return ret0
}

// Reachable indicates an expected call of Reachable.
func (mr *MockMessengerMockRecorder) Reachable(ctx, userID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Reachable", reflect.TypeOf((*MockMessenger)(nil).Reachable), ctx, userID)
}

// MockRecordStore is a mock of RecordStore interface.
type MockRecordStore struct {
	ctrl     *gomock.Controller
	recorder *MockRecordStoreMockRecorder
	isgomock struct{}
}

// MockRecordStoreMockRecorder is the mock recorder for MockRecordStore.
type MockRecordStoreMockRecorder struct {
	mock *MockRecordStore
}

// NewMockRecordStore creates a new mock instance.
func NewMockRecordStore(ctrl *gomock.Controller) *MockRecordStore {
	mock := &MockRecordStore{ctrl: ctrl}
	mock.recorder = &MockRecordStoreMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockRecordStore) EXPECT() *MockRecordStoreMockRecorder {
	return m.recorder
}

// Get mocks base method.
func (m *MockRecordStore) Get(ctx context.Context, sessionID string) (trade.Record, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Get", ctx, sessionID)
	ret0, _ := ret[0].(trade.Record)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Get indicates an expected call of Get.
func (mr *MockRecordStoreMockRecorder) Get(ctx, sessionID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Get", reflect.TypeOf((*MockRecordStore)(nil).Get), ctx, sessionID)
}

// LoadRecent mocks base method.
func (m *MockRecordStore) LoadRecent(ctx context.Context, userID string, limit int) ([]trade.Record, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "LoadRecent", ctx, userID, limit)
	ret0, _ := ret[0].([]trade.Record)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// LoadRecent indicates an expected call of LoadRecent.
func (mr *MockRecordStoreMockRecorder) LoadRecent(ctx, userID, limit any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "LoadRecent", reflect.TypeOf((*MockRecordStore)(nil).LoadRecent), ctx, userID, limit)
}

// Save mocks base method.
func (m *MockRecordStore) Save(ctx context.Context, rec trade.Record) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Save", ctx, rec)
	ret0, _ := ret[0].(error)
	return ret0
}

// Save indicates an expected call of Save.
func (mr *MockRecordStoreMockRecorder) Save(ctx, rec any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Save", reflect.TypeOf((*MockRecordStore)(nil).Save), ctx, rec)
}

// MockSessionRegistry is a mock of SessionRegistry interface.
type MockSessionRegistry struct {
	ctrl     *gomock.Controller
	recorder *MockSessionRegistryMockRecorder
	isgomock struct{}
}

// MockSessionRegistryMockRecorder is the mock recorder for MockSessionRegistry.
type MockSessionRegistryMockRecorder struct {
	mock *MockSessionRegistry
}

// NewMockSessionRegistry creates a new mock instance.
func NewMockSessionRegistry(ctrl *gomock.Controller) *MockSessionRegistry {
	mock := &MockSessionRegistry{ctrl: ctrl}
	mock.recorder = &MockSessionRegistryMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockSessionRegistry) EXPECT() *MockSessionRegistryMockRecorder {
	return m.recorder
}

// Acquire mocks base method.
func (m *MockSessionRegistry) Acquire(ctx context.Context, userID, sessionID string, ttl time.Duration) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Acquire", ctx, userID, sessionID, ttl)
	ret0, _ := ret[0].(error)
	return ret0
}

// Acquire indicates an expected call of Acquire.
func (mr *MockSessionRegistryMockRecorder) Acquire(ctx, userID, sessionID, ttl any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Acquire", reflect.TypeOf((*MockSessionRegistry)(nil).Acquire), ctx, userID, sessionID, ttl)
}

// Release mocks base method.
func (m *MockSessionRegistry) Release(ctx context.Context, userID, sessionID string) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Release", ctx, userID, sessionID)
	ret0, _ := ret[0].(error)
	return ret0
}

// Release indicates an expected call of Release.
func (mr *MockSessionRegistryMockRecorder) Release(ctx, userID, sessionID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Release", reflect.TypeOf((*MockSessionRegistry)(nil).Release), ctx, userID, sessionID)
}

// MockOutcomeListener is a mock of OutcomeListener interface.
type MockOutcomeListener struct {
	ctrl     *gomock.Controller
	recorder *MockOutcomeListenerMockRecorder
	isgomock struct{}
}

// MockOutcomeListenerMockRecorder is the mock recorder for MockOutcomeListener.
type MockOutcomeListenerMockRecorder struct {
	mock *MockOutcomeListener
}

// NewMockOutcomeListener creates a new mock instance.
func NewMockOutcomeListener(ctrl *gomock.Controller) *MockOutcomeListener {
	mock := &MockOutcomeListener{ctrl: ctrl}
	mock.recorder = &MockOutcomeListenerMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockOutcomeListener) EXPECT() *MockOutcomeListenerMockRecorder {
	return m.recorder
}

// OnOutcome mocks base method.
func (m *MockOutcomeListener) OnOutcome(ctx context.Context, rec trade.Record) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "OnOutcome", ctx, rec)
	ret0, _ := ret[0].(error)
	return ret0
}

// OnOutcome indicates an expected call of OnOutcome.
func (mr *MockOutcomeListenerMockRecorder) OnOutcome(ctx, rec any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "OnOutcome", reflect.TypeOf((*MockOutcomeListener)(nil).OnOutcome), ctx, rec)
}
