// Package observer contains event sinks for cached providers: latency
// statistics, logging, fan-out and an asynchronous queue.
package observer

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/krisalay/cached-provider/types"
)

// Stats summarizes the latency of one method/event combination.
type Stats struct {
	Count int
	Min   time.Duration
	Max   time.Duration
	Total time.Duration
}

// Avg is the mean latency rounded to the nearest millisecond.
func (s Stats) Avg() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return (s.Total / time.Duration(s.Count)).Round(time.Millisecond)
}

func (s Stats) add(latency time.Duration) Stats {
	if s.Count == 0 {
		return Stats{Count: 1, Min: latency, Max: latency, Total: latency}
	}
	return Stats{
		Count: s.Count + 1,
		Min:   min(s.Min, latency),
		Max:   max(s.Max, latency),
		Total: s.Total + latency,
	}
}

// Row is one line of Statistics.Table.
type Row struct {
	Method types.MethodType
	Event  types.EventType
	Stats
}

type statKey struct {
	method types.MethodType
	event  types.EventType
}

/*
Statistics aggregates call latency by method and event type.

The table is an immutable map swapped atomically on every event, so Table
never blocks collection and always sees a consistent snapshot.
*/
type Statistics struct {
	table atomic.Pointer[map[statKey]Stats]
}

// NewStatistics returns an empty collector.
func NewStatistics() *Statistics {
	s := &Statistics{}
	s.Reset()
	return s
}

func (s *Statistics) Observe(ev types.Event) {
	k := statKey{ev.Method, ev.Type}
	latency := ev.Latency()

	for {
		old := s.table.Load()
		n := make(map[statKey]Stats, len(*old)+1)
		for kk, v := range *old {
			n[kk] = v
		}
		n[k] = (*old)[k].add(latency)
		if s.table.CompareAndSwap(old, &n) {
			return
		}
	}
}

// Reset discards everything collected so far.
func (s *Statistics) Reset() {
	empty := map[statKey]Stats{}
	s.table.Store(&empty)
}

// Table returns the collected stats ordered by method then event type.
func (s *Statistics) Table() []Row {
	t := *s.table.Load()
	rows := make([]Row, 0, len(t))
	for k, v := range t {
		rows = append(rows, Row{Method: k.method, Event: k.event, Stats: v})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Method != rows[j].Method {
			return rows[i].Method < rows[j].Method
		}
		return rows[i].Event < rows[j].Event
	})
	return rows
}
