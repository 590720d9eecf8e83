package empathy

import "sync"

type prefKey struct {
	userID, emotionKind string
}

// memPreferenceStore is the default process-local PreferenceStore.
type memPreferenceStore struct {
	mu   sync.RWMutex
	prefs map[prefKey]Preference
}

// NewInMemoryPreferenceStore returns a process-local PreferenceStore.
func NewInMemoryPreferenceStore() PreferenceStore {
	return &memPreferenceStore{prefs: map[prefKey]Preference{}}
}

func (s *memPreferenceStore) Get(userID, emotionKind string) (Preference, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prefs[prefKey{userID, emotionKind}]
	return p, ok
}

func (s *memPreferenceStore) Put(p Preference) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[prefKey{p.UserID, p.EmotionKind}] = p
}
