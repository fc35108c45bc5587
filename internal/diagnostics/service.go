package diagnostics

import (
	"time"

	"evcore/internal/dispatch"
	"evcore/pkg/types"
)

// Service answers the diagnostics HTTP API from a dispatcher and its sink.
type Service struct {
	src     StatsSource
	sink    *Sink
	started time.Time
}

// NewService returns a Service. sink may be nil.
func NewService(src StatsSource, sink *Sink) *Service {
	return &Service{src: src, sink: sink, started: time.Now()}
}

// Stats returns the dispatcher counters in the /stats response shape.
func (s *Service) Stats() types.StatsResponse {
	st := s.src.Stats()
	return types.StatsResponse{
		Running:        s.src.IsRunning(),
		Published:      st.Published,
		Dispatched:     st.Dispatched,
		Notifications:  st.Notifications,
		Dropped:        st.Dropped,
		NotReady:       st.NotReady,
		NoObservers:    st.NoObservers,
		InvalidModel:   st.InvalidModel,
		ObserverPanics: st.ObserverPanics,
		AfterStop:      st.AfterStop,
		Queues: []types.QueueStatus{
			{Priority: dispatch.PriorityHigh.String(), Depth: st.HighDepth, MaxDepth: st.MaxHighDepth, Capacity: st.HighCapacity},
			{Priority: dispatch.PriorityNormal.String(), Depth: st.NormalDepth, MaxDepth: st.MaxNormalDepth, Capacity: st.NormalCapacity},
		},
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}
}

// Errors returns the sink's per-code counts.
func (s *Service) Errors() types.ErrorsResponse {
	if s.sink == nil {
		return types.ErrorsResponse{Errors: []types.ErrorCount{}}
	}
	return s.sink.Snapshot()
}

// Ready reports whether the dispatch loop is running and no fatal condition
// has been reported.
func (s *Service) Ready() bool {
	if !s.src.IsRunning() {
		return false
	}
	return s.sink == nil || s.sink.FatalCount() == 0
}
