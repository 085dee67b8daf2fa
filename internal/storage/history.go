package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"burstbench/internal/runner"
	"burstbench/internal/stats"
)

type HistoryItem struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Config    runner.Config `json:"config"`
	Result    stats.Result  `json:"result"`
}

// NewHistoryItem stamps a finished run for saving. The per-request samples
// are dropped; history keeps only the aggregates.
func NewHistoryItem(cfg runner.Config, res stats.Result) HistoryItem {
	res.ResponseTimesMs = nil
	return HistoryItem{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Config:    cfg,
		Result:    res,
	}
}

func (h HistoryItem) key() []byte {
	return []byte(fmt.Sprintf("%020d-%s", h.Timestamp.UnixNano(), h.ID))
}

func (h HistoryItem) ShortID() string {
	if len(h.ID) > 8 {
		return h.ID[:8]
	}
	return h.ID
}
