package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"sam/app/config"

	"github.com/samber/do"
	"github.com/samber/lo"
)

// Service is the durable long-term memory store: a single JSON document of
// topic records, loaded whole and updated by whole-mapping merges.
type Service struct {
	cfg *config.Config
	mu  sync.RWMutex
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	if err := os.MkdirAll(filepath.Dir(cfg.Memory.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create memory dir: %w", err)
	}

	return &Service{cfg: cfg}, nil
}

func (s *Service) Load() (Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.load()
}

// load reads the document without locking; callers hold s.mu.
func (s *Service) load() (Mapping, error) {
	data, err := os.ReadFile(s.cfg.Memory.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return Mapping{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read memory file: %w", err)
	}

	var result Mapping
	if err = json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse memory file: %w", err)
	}

	if result == nil {
		result = Mapping{}
	}

	return result, nil
}

// Update deep-merges partial into the stored document and writes it back.
// The read-merge-write runs under one write lock so concurrent updates
// cannot lose each other's merges.
func (s *Service) Update(partial Mapping) error {
	if len(partial) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load()
	if err != nil {
		return err
	}

	merged := mergeMaps(current, partial)

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal memory: %w", err)
	}

	if err = os.WriteFile(s.cfg.Memory.Path, data, 0644); err != nil {
		return fmt.Errorf("failed to write memory file: %w", err)
	}

	slog.Info("Updated long-term memory", "topics", lo.Keys(partial))

	return nil
}

func mergeMaps(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}

	for k, v := range src {
		srcMap, srcOk := asMap(v)
		dstMap, dstOk := asMap(dst[k])

		if srcOk && dstOk {
			dst[k] = mergeMaps(dstMap, srcMap)
			continue
		}

		dst[k] = v
	}

	return dst
}

// ProjectForPrompt distills the full document into the handful of fields
// worth showing the classifier: user name, favorites, relationship names and
// recent emotional notes. The full document never reaches a prompt.
func ProjectForPrompt(m Mapping) map[string]any {
	result := make(map[string]any)

	if identity, ok := asMap(m["identity"]); ok {
		if name := leafValue(identity["name"]); name != nil {
			result["user_name"] = name
		}
	}

	if preferences, ok := asMap(m["preferences"]); ok {
		for _, key := range []string{"favorite_color", "favorite_food", "favorite_music"} {
			if v := leafValue(preferences[key]); v != nil {
				result[key] = v
			}
		}
	}

	if relationships, ok := asMap(m["relationships"]); ok {
		for rel, info := range relationships {
			infoMap, ok := asMap(info)
			if !ok {
				continue
			}
			if name := leafValue(infoMap["name"]); name != nil {
				result[rel+"_name"] = name
			}
		}
	}

	if emotional, ok := asMap(m["emotional_state"]); ok {
		for event, info := range emotional {
			if v := leafValue(info); v != nil {
				result["emotion_"+event] = v
			}
		}
	}

	return lo.PickBy(result, func(_ string, v any) bool {
		return v != nil && v != ""
	})
}
