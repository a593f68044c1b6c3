package windowing_test

import (
	"errors"
	"testing"

	"github.com/phinze/wallpanel/internal/processor"
	"github.com/phinze/wallpanel/internal/routing"
	"github.com/phinze/wallpanel/internal/testhelpers"
	"github.com/phinze/wallpanel/internal/windowing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) Model() string { return m.Called().String(0) }

func (m *mockProcessor) IsOnline() bool { return m.Called().Bool(0) }

func (m *mockProcessor) InputCount() uint { return m.Called().Get(0).(uint) }

func (m *mockProcessor) WindowCount() uint { return m.Called().Get(0).(uint) }

func (m *mockProcessor) Input(n uint) (processor.Input, error) {
	args := m.Called(n)
	in, _ := args.Get(0).(processor.Input)
	return in, args.Error(1)
}

func (m *mockProcessor) SetVideoSource(window uint, src processor.VideoSource) error {
	return m.Called(window, src).Error(0)
}

func (m *mockProcessor) SetAudioSource(src processor.AudioSource) error {
	return m.Called(src).Error(0)
}

func (m *mockProcessor) RecallLayout(layout processor.LayoutType) error {
	return m.Called(layout).Error(0)
}

func (m *mockProcessor) VideoSourceFeedback(window uint) (processor.VideoSource, error) {
	args := m.Called(window)
	return args.Get(0).(processor.VideoSource), args.Error(1)
}

func (m *mockProcessor) AudioSourceFeedback() (processor.AudioSource, error) {
	args := m.Called()
	return args.Get(0).(processor.AudioSource), args.Error(1)
}

func (m *mockProcessor) LayoutFeedback() (processor.LayoutType, error) {
	args := m.Called()
	return args.Get(0).(processor.LayoutType), args.Error(1)
}

func (m *mockProcessor) Subscribe(kind processor.EventKind, _ processor.Handler) {
	m.Called(kind)
}

type stubInput struct {
	number uint
	name   string
}

func (in *stubInput) Number() uint { return in.number }

func (in *stubInput) Name() string { return in.name }

func (in *stubInput) SetName(name string) error {
	in.name = name
	return nil
}

func (in *stubInput) SyncDetected() bool { return false }

func (in *stubInput) IsOnline() bool { return false }

func TestInputFailureSkipsSlot(t *testing.T) {
	p := &mockProcessor{}
	p.On("Model").Return("mock").Maybe()
	p.On("IsOnline").Return(false)
	p.On("InputCount").Return(uint(4))
	p.On("WindowCount").Return(uint(4))
	p.On("Subscribe", mock.Anything).Return()
	p.On("Input", uint(1)).Return(&stubInput{number: 1}, nil)
	p.On("Input", uint(2)).Return(nil, errors.New("slot not responding"))
	p.On("Input", uint(3)).Return(&stubInput{number: 3}, nil)
	p.On("Input", uint(4)).Return(&stubInput{number: 4}, nil)
	p.On("VideoSourceFeedback", mock.Anything).Return(processor.VideoSourceInput2, nil)
	p.On("AudioSourceFeedback").Return(processor.AudioSourceAuto, nil)
	p.On("LayoutFeedback").Return(processor.LayoutQuadview, nil)

	c := windowing.New(windowing.Params{
		Processor:  p,
		Properties: testProperties(),
		Logger:     testhelpers.NewTestLogger(t),
	})

	assert.Equal(t, windowing.StateOffline, c.State())
	assert.Len(t, c.InputSlots(), 3)
	assert.True(t, routing.IsClear(c.InputSlot(2)))
	assert.Equal(t, "Laptop", c.InputSlot(3).Name())

	// Routes to the missing input resolve to no input.
	out, ok := c.OutputSlot(1)
	assert.True(t, ok)
	assert.True(t, routing.IsClear(out.Route(routing.Video)))

	_, ok = c.Feedbacks().VideoSync.Get(2)
	assert.False(t, ok)

	g, _ := c.Group(1)
	assert.Equal(t, "3", g.CurrentItem())

	p.On("RecallLayout", processor.LayoutFullscreen).Return(nil).Once()
	for w := uint(1); w <= 4; w++ {
		p.On("SetVideoSource", w, processor.VideoSource(w)).Return(nil).Once()
	}
	p.On("SetAudioSource", processor.AudioSourceAuto).Return(nil).Once()

	assert.NoError(t, g.Select("1"))
	p.AssertExpectations(t)
	p.AssertNumberOfCalls(t, "SetVideoSource", 4)
}

func TestCommandFailuresAreAbsorbed(t *testing.T) {
	p := &mockProcessor{}
	p.On("Model").Return("mock").Maybe()
	p.On("IsOnline").Return(false)
	p.On("InputCount").Return(uint(1))
	p.On("WindowCount").Return(uint(1))
	p.On("Subscribe", mock.Anything).Return()
	p.On("Input", uint(1)).Return(&stubInput{number: 1}, nil)
	p.On("VideoSourceFeedback", mock.Anything).Return(processor.VideoSourceNone, nil)
	p.On("AudioSourceFeedback").Return(processor.AudioSourceNone, nil)
	p.On("LayoutFeedback").Return(processor.LayoutAutomatic, nil)

	c := windowing.New(windowing.Params{
		Processor:  p,
		Properties: testProperties(),
		Logger:     testhelpers.NewNopLogger(),
	})

	timeout := errors.New("timeout")
	p.On("RecallLayout", processor.LayoutQuadview).Return(timeout).Once()
	p.On("SetVideoSource", uint(1), processor.VideoSourceInput1).Return(timeout).Once()
	p.On("SetAudioSource", processor.AudioSourceAuto).Return(timeout).Once()

	assert.NoError(t, c.SetWindowLayout(int(processor.LayoutQuadview)))
	p.AssertExpectations(t)
}
