package lifecycle

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachine_Transitions(t *testing.T) {
	tests := []struct {
		name        string
		steps       []func(*Machine) error
		expectState State
		expectErr   bool
	}{
		{
			name:        "running to terminated",
			steps:       []func(*Machine) error{(*Machine).Terminate},
			expectState: StateTerminated,
		},
		{
			name:        "running to draining to terminated",
			steps:       []func(*Machine) error{(*Machine).Drain, (*Machine).Terminate},
			expectState: StateTerminated,
		},
		{
			name:        "drain twice",
			steps:       []func(*Machine) error{(*Machine).Drain, (*Machine).Drain},
			expectState: StateDraining,
			expectErr:   true,
		},
		{
			name:        "terminate twice",
			steps:       []func(*Machine) error{(*Machine).Terminate, (*Machine).Terminate},
			expectState: StateTerminated,
			expectErr:   true,
		},
		{
			name:        "drain after terminate",
			steps:       []func(*Machine) error{(*Machine).Terminate, (*Machine).Drain},
			expectState: StateTerminated,
			expectErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New("order")
			var err error
			for _, step := range tt.steps {
				if err = step(m); err != nil {
					break
				}
			}

			if tt.expectErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidTransition))
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.expectState, m.State())
		})
	}
}

func TestMachine_RecordsTerminationTime(t *testing.T) {
	m := New("payment")
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	assert.True(t, m.Running())
	assert.True(t, m.TerminatedAt().IsZero())

	require.NoError(t, m.Drain())
	assert.False(t, m.Running())
	require.NoError(t, m.Terminate())

	assert.Equal(t, fixed, m.TerminatedAt())
	assert.Equal(t, "payment", m.Service())
	assert.Equal(t, []Transition{
		{From: StateRunning, To: StateDraining, At: fixed},
		{From: StateDraining, To: StateTerminated, At: fixed},
	}, m.transitions)
}
