package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLifecycle_Rank tests that stages are ordered
func TestLifecycle_Rank(t *testing.T) {
	stages := Lifecycles()
	require.Len(t, stages, 5)

	for i := 1; i < len(stages); i++ {
		assert.Greater(t, stages[i].Rank(), stages[i-1].Rank())
	}
	assert.Equal(t, -1, Lifecycle("archived").Rank())
}

func TestParseLifecycle(t *testing.T) {
	tests := []struct {
		in      string
		want    Lifecycle
		wantErr bool
	}{
		{"planned", LifecyclePlanned, false},
		{" Schema-Ready ", LifecycleSchemaReady, false},
		{"delta-active", LifecycleDeltaActive, false},
		{"done", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLifecycle(tt.in)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLifecycle_IsLoaded(t *testing.T) {
	assert.True(t, LifecycleLoaded.IsLoaded())
	assert.True(t, LifecycleDeltaActive.IsLoaded())
	assert.False(t, LifecycleSchemaReady.IsLoaded())
}

// TestDataSource_WithLifecycle tests that advancing returns a copy
func TestDataSource_WithLifecycle(t *testing.T) {
	src := DataSource{ID: "codice-civile", Lifecycle: LifecyclePlanned}

	advanced := src.WithLifecycle(LifecycleLoaded)

	assert.Equal(t, LifecycleLoaded, advanced.Lifecycle)
	assert.Equal(t, LifecyclePlanned, src.Lifecycle)
}

func TestParsePhaseAndMode(t *testing.T) {
	p, err := ParsePhase("model")
	require.NoError(t, err)
	assert.Equal(t, PhaseModel, p)

	_, err = ParsePhase("embed")
	assert.ErrorIs(t, err, ErrInvalidInput)

	m, err := ParseMode("delta")
	require.NoError(t, err)
	assert.Equal(t, ModeDelta, m)

	_, err = ParseMode("partial")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestFetchOptions_Apply(t *testing.T) {
	items := []ParsedArticle{{Number: "1"}, {Number: "2"}, {Number: "3"}}

	assert.Len(t, FetchOptions{}.Apply(items), 3)
	assert.Len(t, FetchOptions{Limit: 2}.Apply(items), 2)
	assert.Len(t, FetchOptions{Limit: 10}.Apply(items), 3)
}

func TestResolutionError(t *testing.T) {
	err := &ResolutionError{Kind: "connector", Key: "gazzetta", Known: []string{"normattiva", "eurlex"}}

	assert.Equal(t, `no connector registered for "gazzetta" (available: eurlex, normattiva)`, err.Error())
	assert.True(t, errors.Is(err, ErrNotRegistered))

	empty := &ResolutionError{Kind: "model", Key: "x"}
	assert.Contains(t, empty.Error(), "(none)")
}
