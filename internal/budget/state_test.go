package budget

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_SetReplaces(t *testing.T) {
	var s State

	_, ok := s.Current()
	require.False(t, ok)

	s.Set(Alert{Title: TitleAlert, Severity: SeverityInfo})
	s.Set(Alert{Title: TitleExceeded, Severity: SeverityWarning})

	got, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, TitleExceeded, got.Title)
}

func TestState_Clear(t *testing.T) {
	var s State
	s.Set(Alert{Title: TitleWarning})
	s.Clear()

	_, ok := s.Current()
	assert.False(t, ok)

	// clearing an empty state is a no-op
	s.Clear()
	_, ok = s.Current()
	assert.False(t, ok)
}

func TestState_CurrentReturnsCopy(t *testing.T) {
	var s State
	s.Set(Alert{Title: TitleAlert})

	got, _ := s.Current()
	got.Title = "mutated"

	again, _ := s.Current()
	assert.Equal(t, TitleAlert, again.Title)
}

func TestState_Concurrent(t *testing.T) {
	var s State
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Set(Alert{Title: TitleWarning})
		}()
		go func() {
			defer wg.Done()
			s.Current()
		}()
	}
	wg.Wait()

	got, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, TitleWarning, got.Title)
}
