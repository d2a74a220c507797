package engine

type Metrics struct {
	Tick  uint64 `json:"tick"`
	Peers int    `json:"peers"`

	InboxDepth     int `json:"inbox_depth"`
	PendingRecords int `json:"pending_records"`

	Crops      int `json:"crops"`
	Structures int `json:"structures"`
	Players    int `json:"players"`
	Drops      int `json:"drops"`

	Accepted    uint64            `json:"accepted"`
	Rejected    map[string]uint64 `json:"rejected,omitempty"`
	RateLimited uint64            `json:"rate_limited"`

	StepMS float64 `json:"step_ms"`
}

// Metrics returns the values published at the end of the last tick. Safe for
// concurrent use.
func (e *Engine) Metrics() Metrics {
	if e == nil {
		return Metrics{}
	}
	m, _ := e.metrics.Load().(Metrics)
	m.InboxDepth = len(e.inbox)
	m.PendingRecords, _ = e.out.Pending()
	m.RateLimited = e.rateLimited.Load()
	return m
}

func (e *Engine) publishMetrics() {
	rejected := make(map[string]uint64, len(e.stats.rejected))
	for k, v := range e.stats.rejected {
		rejected[k] = v
	}
	e.metrics.Store(Metrics{
		Tick:       e.tick,
		Peers:      e.peers,
		Crops:      len(e.world.Crops()),
		Structures: len(e.world.Structures()),
		Players:    e.players.Count(),
		Drops:      e.drops.Len(),
		Accepted:   e.stats.accepted,
		Rejected:   rejected,
		StepMS:     float64(e.stats.lastStep.Microseconds()) / 1000,
	})
}
