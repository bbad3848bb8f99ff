package statemachine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"medicare-server/internal/apperrors"
)

type light string
type who string

const (
	red    light = "Red"
	green  light = "Green"
	yellow light = "Yellow"
	broken light = "Broken"

	driver   who = "driver"
	operator who = "operator"
)

func newLights() *Machine[light, who] {
	return New("light",
		map[light]string{green: "open", red: "close"},
		Transition[light, who]{From: red, To: green, Actors: []who{operator}},
		Transition[light, who]{From: green, To: yellow, Actors: []who{operator}},
		Transition[light, who]{From: yellow, To: red, Actors: []who{operator}},
		Transition[light, who]{From: green, To: broken, Actors: []who{driver, operator}},
	)
}

func TestCanTransition(t *testing.T) {
	m := newLights()

	assert.True(t, m.CanTransition(red, green, operator))
	assert.False(t, m.CanTransition(red, green, driver))
	assert.False(t, m.CanTransition(red, yellow, operator))
	assert.True(t, m.CanTransition(green, broken, driver))
}

func TestCheck(t *testing.T) {
	m := newLights()

	assert.NoError(t, m.Check(red, green, operator))

	err := m.Check(yellow, green, operator)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
	assert.Equal(t, "cannot open light, current status is Yellow", err.Error())

	err = m.Check(red, green, driver)
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))

	err = m.Check(red, yellow, operator)
	assert.EqualError(t, err, "cannot move to yellow light, current status is Red")
}

func TestTerminal(t *testing.T) {
	m := newLights()

	assert.True(t, m.Terminal(broken))
	assert.False(t, m.Terminal(green))
}
