package workflow

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainwf "github.com/garyjia/travel-approval/internal/domain/workflow"
)

func TestBuildTravelStateMachine_Approve(t *testing.T) {
	tests := []struct {
		name    string
		from    domainwf.State
		hasNext bool
		want    domainwf.State
	}{
		{"pending with stages left", domainwf.StatePending, true, domainwf.StatePending},
		{"pending on last stage", domainwf.StatePending, false, domainwf.StateCompleted},
		{"escalated with stages left", domainwf.StateEscalated, true, domainwf.StatePending},
		{"escalated on last stage", domainwf.StateEscalated, false, domainwf.StateCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := BuildTravelStateMachine(tt.from)
			got, err := sm.Peek(withNextStage(context.Background(), tt.hasNext), domainwf.TriggerApprove)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildTravelStateMachine_PermittedTriggers(t *testing.T) {
	tests := []struct {
		from domainwf.State
		want []domainwf.Trigger
	}{
		{domainwf.StatePending, []domainwf.Trigger{
			domainwf.TriggerApprove, domainwf.TriggerEscalate, domainwf.TriggerReject, domainwf.TriggerRequestChanges,
		}},
		{domainwf.StateEscalated, []domainwf.Trigger{
			domainwf.TriggerApprove, domainwf.TriggerEscalate, domainwf.TriggerReject, domainwf.TriggerRequestChanges,
		}},
		{domainwf.StateChangesRequested, []domainwf.Trigger{domainwf.TriggerResubmit}},
		{domainwf.StateApproved, []domainwf.Trigger{}},
		{domainwf.StateRejected, []domainwf.Trigger{}},
		{domainwf.StateCompleted, []domainwf.Trigger{}},
	}

	for _, tt := range tests {
		t.Run(tt.from.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, BuildTravelStateMachine(tt.from).PermittedTriggers())
		})
	}
}

func TestBuildTravelStateMachine_ResubmitOnlyFromChangesRequested(t *testing.T) {
	_, err := BuildTravelStateMachine(domainwf.StatePending).Peek(context.Background(), domainwf.TriggerResubmit)
	assert.ErrorIs(t, err, domainwf.ErrInvalidTransition)

	got, err := BuildTravelStateMachine(domainwf.StateChangesRequested).Peek(context.Background(), domainwf.TriggerResubmit)
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatePending, got)
}

func TestKeyedLocker(t *testing.T) {
	l := newKeyedLocker()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("wf-1")
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Zero(t, l.size())

	unlockA := l.Lock("a")
	unlockB := l.Lock("b")
	assert.Equal(t, 2, l.size())
	unlockA()
	unlockB()
	assert.Zero(t, l.size())
}
