package ratelimit

import (
	"sync"
	"time"

	"github.com/campussathi/campussathi-go/internal/metrics"
)

// Decision is the outcome of a keyed check.
type Decision int

const (
	// Allowed means the request may proceed.
	Allowed Decision = iota
	// DeniedBurst means the short-term token bucket is empty.
	DeniedBurst
	// DeniedDaily means the rolling 24h quota is used up.
	DeniedDaily
)

// String returns the metric-friendly name of d.
func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case DeniedBurst:
		return "burst"
	case DeniedDaily:
		return "daily"
	default:
		return "unknown"
	}
}

// KeyedConfig configures a KeyedLimiter.
type KeyedConfig struct {
	// Name labels this limiter in metrics (e.g. "chat").
	Name string

	Burst      float64 // bucket capacity
	RefillRate float64 // tokens per second

	// DailyLimit caps requests per rolling 24h; 0 disables it.
	DailyLimit int

	// CleanupPeriod is how often idle keys are dropped.
	CleanupPeriod time.Duration

	Metrics *metrics.Metrics
}

// KeyedLimiter keeps a token bucket, and optionally a daily quota, per key
// (student uid, LINE user or client IP). Idle keys are forgotten by a
// background loop; call Stop to end it.
type KeyedLimiter struct {
	mu      sync.RWMutex
	entries map[string]*keyedEntry
	config  KeyedConfig
	stopCh  chan struct{}
	once    sync.Once
}

// keyedEntry's mutex makes the two-layer check-then-consume atomic.
type keyedEntry struct {
	mu     sync.Mutex
	bucket *Limiter
	daily  *WindowCounter
}

// NewKeyedLimiter creates the limiter and starts its cleanup loop.
func NewKeyedLimiter(cfg KeyedConfig) *KeyedLimiter {
	if cfg.CleanupPeriod <= 0 {
		cfg.CleanupPeriod = 5 * time.Minute
	}
	kl := &KeyedLimiter{
		entries: make(map[string]*keyedEntry),
		config:  cfg,
		stopCh:  make(chan struct{}),
	}
	go kl.cleanupLoop()
	return kl
}

// Allow reports whether key may make a request. An empty key is never limited.
func (kl *KeyedLimiter) Allow(key string) bool {
	return kl.Decide(key) == Allowed
}

// Decide checks both layers and consumes from both only if both pass.
func (kl *KeyedLimiter) Decide(key string) Decision {
	if key == "" {
		return Allowed
	}
	entry := kl.entry(key)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if !entry.daily.Check() {
		kl.config.Metrics.RecordRateLimiterDrop(kl.config.Name)
		return DeniedDaily
	}
	if !entry.bucket.Check() {
		kl.config.Metrics.RecordRateLimiterDrop(kl.config.Name)
		return DeniedBurst
	}
	entry.daily.Consume()
	entry.bucket.Consume()
	return Allowed
}

func (kl *KeyedLimiter) entry(key string) *keyedEntry {
	kl.mu.RLock()
	e, ok := kl.entries[key]
	kl.mu.RUnlock()
	if ok {
		return e
	}

	kl.mu.Lock()
	defer kl.mu.Unlock()
	if e, ok = kl.entries[key]; ok {
		return e
	}
	e = &keyedEntry{
		bucket: New(kl.config.Burst, kl.config.RefillRate),
		daily:  NewWindowCounter(kl.config.DailyLimit, 24*time.Hour),
	}
	kl.entries[key] = e
	return e
}

// DailyRemaining returns the quota left for key, or -1 when no daily limit is set.
func (kl *KeyedLimiter) DailyRemaining(key string) int {
	if kl.config.DailyLimit <= 0 {
		return -1
	}
	kl.mu.RLock()
	e, ok := kl.entries[key]
	kl.mu.RUnlock()
	if !ok {
		return kl.config.DailyLimit
	}
	return e.daily.Remaining()
}

// ActiveCount returns the number of tracked keys.
func (kl *KeyedLimiter) ActiveCount() int {
	kl.mu.RLock()
	defer kl.mu.RUnlock()
	return len(kl.entries)
}

// sweep drops keys whose bucket is full and whose daily quota is untouched.
func (kl *KeyedLimiter) sweep() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	for key, e := range kl.entries {
		if e.bucket.IsFull() && (e.daily == nil || e.daily.Remaining() == kl.config.DailyLimit) {
			delete(kl.entries, key)
		}
	}
	return len(kl.entries)
}

func (kl *KeyedLimiter) cleanupLoop() {
	ticker := time.NewTicker(kl.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-kl.stopCh:
			return
		case <-ticker.C:
			kl.config.Metrics.SetRateLimiterUsers(kl.config.Name, kl.sweep())
		}
	}
}

// Stop ends the cleanup loop. Safe to call more than once.
func (kl *KeyedLimiter) Stop() {
	kl.once.Do(func() { close(kl.stopCh) })
}
