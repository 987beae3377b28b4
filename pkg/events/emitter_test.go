package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitCallsHandlersInOrder(t *testing.T) {
	e := NewEmitter(nil)

	var got []int
	e.On(JobStart, func(any) { got = append(got, 1) })
	e.On(JobStart, func(any) { got = append(got, 2) })

	e.Emit(JobStart, "payload")
	assert.Equal(t, []int{1, 2}, got)
}

func TestEmitPassesPayload(t *testing.T) {
	e := NewEmitter(nil)

	var got any
	e.On(JobComplete, func(p any) { got = p })

	e.Emit(JobComplete, map[string]string{"jobId": "j1"})
	assert.Equal(t, map[string]string{"jobId": "j1"}, got)
}

func TestPanickingHandlerDoesNotBreakEmitter(t *testing.T) {
	var reported []string
	e := NewEmitter(func(event string, _ any) {
		reported = append(reported, event)
	})

	var secondRan bool
	e.On(JobStart, func(any) { panic("handler bug") })
	e.On(JobStart, func(any) { secondRan = true })

	assert.NotPanics(t, func() { e.Emit(JobStart, nil) })
	assert.True(t, secondRan, "handler after the panicking one should still run")
	assert.Equal(t, []string{JobStart}, reported)
}

func TestEmitUnknownEventIsNoop(t *testing.T) {
	e := NewEmitter(nil)
	assert.NotPanics(t, func() { e.Emit("job:unknown", nil) })
}

func TestNilHandlerIgnored(t *testing.T) {
	e := NewEmitter(nil)
	e.On(JobStart, nil)
	assert.Equal(t, 0, e.HandlerCount(JobStart))
}
