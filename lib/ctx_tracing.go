package lib

import (
	"sync"
	"time"
)

type Span struct {
	ID        string
	TraceID   string
	ParentID  string
	Timestamp int64
	Duration  int64
	Name      string
	Tags      J
	Service   string
}

var spansService = Env("APP_NAME", "")
var spansMu sync.Mutex
var spansPending = []*Span{}

func spanPush(s *Span) {
	spansMu.Lock()
	defer spansMu.Unlock()
	spansPending = append(spansPending, s)
	if len(spansPending) >= 64 {
		flush := spansPending
		spansPending = []*Span{}
		go spansFlush(flush)
	}
}

// spansFlush emits buffered spans as log lines. Good enough to grep and to
// feed a collector that tails logs.
func spansFlush(spans []*Span) {
	for _, s := range spans {
		Log("debug", "span", J{
			"id":       s.ID,
			"traceId":  s.TraceID,
			"parentId": s.ParentID,
			"name":     s.Name,
			"start":    s.Timestamp,
			"duration": s.Duration,
			"tags":     s.Tags,
			"service":  s.Service,
		})
	}
}

func (c *Ctx) TraceEvent(name string, tags J) {
	spanPush(&Span{
		ID:        NewID(),
		TraceID:   c.tracingTraceID,
		ParentID:  c.tracingSpanID,
		Timestamp: time.Now().UnixNano() / 1000,
		Duration:  0,
		Name:      name,
		Tags:      tags,
		Service:   spansService,
	})
}

func (c *Ctx) TraceSpan(name string, tags J, start time.Time, duration int64) {
	spanPush(&Span{
		ID:        NewID(),
		TraceID:   c.tracingTraceID,
		ParentID:  c.tracingSpanID,
		Timestamp: start.UnixNano() / 1000,
		Duration:  duration,
		Name:      name,
		Tags:      tags,
		Service:   spansService,
	})
}

func (c *Ctx) TraceSpanFn(name string, tags J, fn func()) {
	start := time.Now().UnixNano() / 1000
	fn()
	spanPush(&Span{
		ID:        NewID(),
		TraceID:   c.tracingTraceID,
		ParentID:  c.tracingSpanID,
		Timestamp: start,
		Duration:  (time.Now().UnixNano() / 1000) - start,
		Name:      name,
		Tags:      tags,
		Service:   spansService,
	})
}

func (c *Ctx) TraceSet(key string, value interface{}) {
	c.tracingRootTags[key] = value
}

func (c *Ctx) TraceSpanRoot(name string, tags J, start time.Time, duration int64) {
	for k, v := range tags {
		c.tracingRootTags[k] = v
	}
	spanPush(&Span{
		ID:        c.tracingSpanID,
		TraceID:   c.tracingTraceID,
		ParentID:  "",
		Timestamp: start.UnixNano() / 1000,
		Duration:  duration,
		Name:      name,
		Tags:      c.tracingRootTags,
		Service:   spansService,
	})
}
