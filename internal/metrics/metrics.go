package metrics

import (
	"sort"
	"sync"
	"time"
)

// Unrouted is the worker key used for requests that never reached a worker.
const Unrouted = "none"

const maxSamples = 1000

type Metrics struct {
	mutex         sync.RWMutex
	requests      map[string]int64
	selections    map[string]int64
	failures      map[string]map[string]int64
	responseTimes map[string][]time.Duration
	statusCodes   map[string]map[int]int64
	status        map[string]string
	startTime     time.Time
}

type Snapshot struct {
	TotalRequests int64                    `json:"total_requests"`
	TotalFailures int64                    `json:"total_failures"`
	Uptime        time.Duration            `json:"uptime"`
	Workers       map[string]WorkerMetrics `json:"workers"`
	Strategy      string                   `json:"strategy"`
}

type WorkerMetrics struct {
	Requests    int64            `json:"requests"`
	Selections  int64            `json:"selections"`
	Failures    map[string]int64 `json:"failures,omitempty"`
	Status      string           `json:"status,omitempty"`
	AvgResponse time.Duration    `json:"avg_response"`
	P50Response time.Duration    `json:"p50_response"`
	P95Response time.Duration    `json:"p95_response"`
	P99Response time.Duration    `json:"p99_response"`
	StatusCodes map[int]int64    `json:"status_codes,omitempty"`
}

func (m *Metrics) IncrementRequests(worker string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.requests[workerKey(worker)]++
}

func (m *Metrics) RecordSelection(worker string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.selections[workerKey(worker)]++
}

func (m *Metrics) RecordFailure(worker, kind string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	key := workerKey(worker)
	if m.failures[key] == nil {
		m.failures[key] = make(map[string]int64)
	}
	m.failures[key][kind]++
}

func (m *Metrics) RecordResponse(worker string, duration time.Duration, statusCode int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	key := workerKey(worker)
	m.responseTimes[key] = append(m.responseTimes[key], duration)

	if len(m.responseTimes[key]) > maxSamples {
		m.responseTimes[key] = m.responseTimes[key][1:]
	}

	if m.statusCodes[key] == nil {
		m.statusCodes[key] = make(map[int]int64)
	}
	m.statusCodes[key][statusCode]++
}

func (m *Metrics) UpdateStatus(worker, status string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.status[workerKey(worker)] = status
}

func (m *Metrics) Snapshot(strategy string) Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:   time.Since(m.startTime),
		Workers:  make(map[string]WorkerMetrics),
		Strategy: strategy,
	}

	all := make(map[string]bool)
	for w := range m.requests {
		all[w] = true
	}
	for w := range m.selections {
		all[w] = true
	}
	for w := range m.failures {
		all[w] = true
	}
	for w := range m.responseTimes {
		all[w] = true
	}
	for w := range m.status {
		all[w] = true
	}

	for w := range all {
		snap.TotalRequests += m.requests[w]

		wm := WorkerMetrics{
			Requests:    m.requests[w],
			Selections:  m.selections[w],
			Status:      m.status[w],
			Failures:    copyCounts(m.failures[w]),
			StatusCodes: copyCounts(m.statusCodes[w]),
		}

		for _, n := range wm.Failures {
			snap.TotalFailures += n
		}

		durations := m.responseTimes[w]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			wm.AvgResponse = average(sorted)
			wm.P50Response = percentile(sorted, 0.50)
			wm.P95Response = percentile(sorted, 0.95)
			wm.P99Response = percentile(sorted, 0.99)
		}

		snap.Workers[w] = wm
	}

	return snap
}

func NewMetrics() *Metrics {
	return &Metrics{
		requests:      make(map[string]int64),
		selections:    make(map[string]int64),
		failures:      make(map[string]map[string]int64),
		responseTimes: make(map[string][]time.Duration),
		statusCodes:   make(map[string]map[int]int64),
		status:        make(map[string]string),
		startTime:     time.Now(),
	}
}

func workerKey(worker string) string {
	if worker == "" {
		return Unrouted
	}
	return worker
}

func copyCounts[K comparable](in map[K]int64) map[K]int64 {
	if len(in) == 0 {
		return nil
	}

	out := make(map[K]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
