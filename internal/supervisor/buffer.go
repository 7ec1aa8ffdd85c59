package supervisor

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// LogStore keeps the N most recently sealed per-instance log buffers
// parsed and ready in memory (spec §3's LogBuffer data model: "an
// in-memory LRU keeps the N most recent sealed buffers parsed and
// ready"), keyed by "<instance_name>/<log_id>".
type LogStore struct {
	cache *lru.Cache[string, []TaggedLine]
}

func NewLogStore(capacity int) (*LogStore, error) {
	if capacity <= 0 {
		capacity = 32
	}
	cache, err := lru.New[string, []TaggedLine](capacity)
	if err != nil {
		return nil, err
	}
	return &LogStore{cache: cache}, nil
}

func (s *LogStore) Seal(instanceName, logID string, lines []TaggedLine) {
	s.cache.Add(key(instanceName, logID), lines)
}

func (s *LogStore) Get(instanceName, logID string) ([]TaggedLine, bool) {
	return s.cache.Get(key(instanceName, logID))
}

func key(instanceName, logID string) string {
	return instanceName + "/" + logID
}
