package mesh

import (
	"fmt"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// StoredScene is a built scene kept for the HTTP API
type StoredScene struct {
	ID        string      `json:"id"`
	Source    string      `json:"source"` // "http", "mqtt" or "cli"
	Plan      *FloorPlan  `json:"plan"`
	Scene     *Scene      `json:"scene"`
	Summary   PlanSummary `json:"summary"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// SceneStore keeps the most recently built scenes, evicting the least
// recently used once full
type SceneStore struct {
	mu     sync.RWMutex
	scenes *lru.Cache[string, *StoredScene]
	latest string
}

// NewSceneStore creates a store holding at most size scenes
func NewSceneStore(size int) (*SceneStore, error) {
	if size <= 0 {
		size = DefaultMaxScenes
	}
	cache, err := lru.New[string, *StoredScene](size)
	if err != nil {
		return nil, fmt.Errorf("creating scene cache: %w", err)
	}
	return &SceneStore{scenes: cache}, nil
}

// Put stores a scene under id, replacing any previous build
func (s *SceneStore) Put(id, source string, plan *FloorPlan, scene *Scene) *StoredScene {
	stored := &StoredScene{
		ID:        id,
		Source:    source,
		Plan:      plan,
		Scene:     scene,
		Summary:   Summarize(plan),
		UpdatedAt: time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenes.Add(id, stored)
	s.latest = id
	return stored
}

// Get returns the scene stored under id
func (s *SceneStore) Get(id string) (*StoredScene, bool) {
	return s.scenes.Get(id)
}

// Latest returns the most recently stored scene still in the store
func (s *SceneStore) Latest() (*StoredScene, bool) {
	s.mu.RLock()
	id := s.latest
	s.mu.RUnlock()
	if id == "" {
		return nil, false
	}
	return s.scenes.Peek(id)
}

// IDs returns the stored ids in sorted order
func (s *SceneStore) IDs() []string {
	ids := s.scenes.Keys()
	sort.Strings(ids)
	return ids
}

// Len returns the number of stored scenes
func (s *SceneStore) Len() int {
	return s.scenes.Len()
}

// Remove drops a scene
func (s *SceneStore) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == id {
		s.latest = ""
	}
	return s.scenes.Remove(id)
}
