package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"sam/app/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	cfg := &config.Config{}
	cfg.Memory.Path = filepath.Join(t.TempDir(), "memory.json")

	return &Service{cfg: cfg}
}

func TestService_LoadMissingFile(t *testing.T) {
	svc := newTestService(t)

	m, err := svc.Load()

	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestService_UpdateThenLoad(t *testing.T) {
	svc := newTestService(t)

	err := svc.Update(Mapping{
		"identity": map[string]any{
			"name": map[string]any{"value": "David"},
		},
	})
	require.NoError(t, err)

	err = svc.Update(Mapping{
		"identity": map[string]any{
			"occupation": map[string]any{"value": "engineer"},
		},
		"preferences": map[string]any{
			"favorite_color": map[string]any{"value": "blue"},
		},
	})
	require.NoError(t, err)

	m, err := svc.Load()
	require.NoError(t, err)

	// the second update merged into identity instead of replacing it
	identity := m["identity"].(map[string]any)
	assert.Equal(t, "David", identity["name"].(map[string]any)["value"])
	assert.Equal(t, "engineer", identity["occupation"].(map[string]any)["value"])
	assert.Contains(t, m, "preferences")
}

func TestService_UpdateOverwritesLeaf(t *testing.T) {
	svc := newTestService(t)

	require.NoError(t, svc.Update(Mapping{
		"preferences": map[string]any{"favorite_color": map[string]any{"value": "blue"}},
	}))
	require.NoError(t, svc.Update(Mapping{
		"preferences": map[string]any{"favorite_color": map[string]any{"value": "green"}},
	}))

	m, err := svc.Load()
	require.NoError(t, err)

	prefs := m["preferences"].(map[string]any)
	assert.Equal(t, "green", prefs["favorite_color"].(map[string]any)["value"])
}

func TestService_UpdateEmptyIsNoop(t *testing.T) {
	svc := newTestService(t)

	require.NoError(t, svc.Update(Mapping{}))

	_, err := os.Stat(svc.cfg.Memory.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestService_ConcurrentUpdatesKeepAllTopics(t *testing.T) {
	svc := newTestService(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			topic := fmt.Sprintf("topic_%d", i)
			err := svc.Update(Mapping{
				topic: map[string]any{
					"field": map[string]any{"value": i},
				},
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	m, err := svc.Load()
	require.NoError(t, err)
	require.Len(t, m, 16)

	for i := 0; i < 16; i++ {
		assert.Contains(t, m, fmt.Sprintf("topic_%d", i))
	}
}

func TestProjectForPrompt(t *testing.T) {
	m := Mapping{
		"identity": map[string]any{
			"name": map[string]any{"value": "David"},
			"age":  map[string]any{"value": 30},
		},
		"preferences": map[string]any{
			"favorite_color": map[string]any{"value": "blue"},
			"favorite_food":  map[string]any{"value": map[string]any{"value": "jollof rice"}},
			"favorite_team":  map[string]any{"value": "Arsenal"},
		},
		"relationships": map[string]any{
			"wife":   map[string]any{"name": map[string]any{"value": "Amaka"}},
			"friend": "not a record",
		},
		"emotional_state": map[string]any{
			"exam": map[string]any{"value": "anxious"},
		},
		"goals": map[string]any{
			"career": map[string]any{"value": "promotion"},
		},
	}

	got := ProjectForPrompt(m)

	assert.Equal(t, map[string]any{
		"user_name":      "David",
		"favorite_color": "blue",
		"favorite_food":  "jollof rice",
		"wife_name":      "Amaka",
		"emotion_exam":   "anxious",
	}, got)
}

func TestProjectForPrompt_Empty(t *testing.T) {
	assert.Empty(t, ProjectForPrompt(Mapping{}))
	assert.Empty(t, ProjectForPrompt(nil))
}
