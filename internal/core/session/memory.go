package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type memEntry struct {
	b         []byte
	expiresAt time.Time
}

// MemoryStore 进程内存储，单实例部署 / 测试用
type MemoryStore struct {
	mu        sync.Mutex
	ttl       time.Duration
	m         map[string]memEntry
	now       func() time.Time
	lastSweep time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, m: make(map[string]memEntry), now: time.Now}
}

// Get 读到即续期（滑动过期）
func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	now := s.now()
	e, ok := s.m[id]
	if ok && s.expired(e, now) {
		delete(s.m, id)
		ok = false
	}
	if ok && s.ttl > 0 {
		e.expiresAt = now.Add(s.ttl)
		s.m[id] = e
	}
	s.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	// 存序列化副本，调用方拿到的是独立对象
	var out Session
	if err := json.Unmarshal(e.b, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *MemoryStore) Save(_ context.Context, sess *Session) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweep(now)
	s.m[sess.ID] = memEntry{b: b, expiresAt: now.Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
	return nil
}

func (s *MemoryStore) expired(e memEntry, now time.Time) bool {
	return s.ttl > 0 && now.After(e.expiresAt)
}

// sweep 清理过期会话，每个 TTL 周期最多扫一次；调用方持有锁
func (s *MemoryStore) sweep(now time.Time) {
	if s.ttl <= 0 || now.Sub(s.lastSweep) < s.ttl {
		return
	}
	s.lastSweep = now
	for id, e := range s.m {
		if s.expired(e, now) {
			delete(s.m, id)
		}
	}
}
