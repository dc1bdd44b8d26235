package tracelib

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// UsageStats collects how a geolocation provider was used. Cache hits
// are not counted here, only real lookups.
type UsageStats struct {
	Name string

	mutex         sync.Mutex
	lastUsed      time.Time
	successCount  uint64
	notFoundCount uint64
	failureCount  uint64
}

func (u *UsageStats) Used(err error) {
	now := time.Now()

	u.mutex.Lock()
	defer u.mutex.Unlock()

	u.lastUsed = now

	switch {
	case err == nil:
		u.successCount++
	case errors.Is(err, ErrLocationNotFound):
		u.notFoundCount++
	default:
		u.failureCount++
	}
}

func (u *UsageStats) MarshalJSON() ([]byte, error) {
	var lastUsedTime int64

	u.mutex.Lock()

	if !u.lastUsed.IsZero() {
		lastUsedTime = u.lastUsed.Unix()
	}

	rawStruct := struct {
		Name          string `json:"name"`
		LastUsed      int64  `json:"last_used"`
		SuccessCount  uint64 `json:"success_count"`
		NotFoundCount uint64 `json:"not_found_count"`
		FailureCount  uint64 `json:"failure_count"`
	}{
		Name:          u.Name,
		LastUsed:      lastUsedTime,
		SuccessCount:  u.successCount,
		NotFoundCount: u.notFoundCount,
		FailureCount:  u.failureCount,
	}

	u.mutex.Unlock()

	return json.Marshal(&rawStruct)
}
