package core

import (
	"container/heap"
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// PollReq asks HAL to run Verb on the capability at Addr.
type PollReq struct {
	Addr  CapAddr
	Verb  string
	Every time.Duration
}

type pollKey struct {
	addr CapAddr
	verb string
}

type schedule struct {
	key    pollKey
	due    time.Time
	every  time.Duration
	jitter time.Duration
	index  int
}

// dueHeap orders schedules by next due time.
type dueHeap []*schedule

func (h dueHeap) Len() int           { return len(h) }
func (h dueHeap) Less(i, j int) bool { return h[i].due.Before(h[j].due) }
func (h dueHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *dueHeap) Push(x any) {
	s := x.(*schedule)
	s.index = len(*h)
	*h = append(*h, s)
}
func (h *dueHeap) Pop() any {
	old := *h
	s := old[len(old)-1]
	s.index = -1
	*h = old[:len(old)-1]
	return s
}

// Poller fires periodic PollReqs. A full out channel drops the tick rather
// than delaying later schedules.
type Poller struct {
	mu    sync.Mutex
	wake  chan struct{}
	items map[pollKey]*schedule
	h     dueHeap
	out   chan<- PollReq
	now   func() time.Time
}

func NewPoller(out chan<- PollReq) *Poller {
	return &Poller{
		wake:  make(chan struct{}, 1),
		items: make(map[pollKey]*schedule),
		out:   out,
		now:   time.Now,
	}
}

// Upsert adds or re-arms a schedule. Each fire, the first included, happens
// after every plus a random extra in [0, jitter].
func (p *Poller) Upsert(addr CapAddr, verb string, every, jitter time.Duration) {
	if every <= 0 || verb == "" {
		return
	}
	if jitter < 0 {
		jitter = 0
	}
	key := pollKey{addr: addr, verb: verb}

	p.mu.Lock()
	s := p.items[key]
	if s == nil {
		s = &schedule{key: key}
		p.items[key] = s
		s.every, s.jitter = every, jitter
		s.due = p.now().Add(s.period())
		heap.Push(&p.h, s)
	} else {
		s.every, s.jitter = every, jitter
		s.due = p.now().Add(s.period())
		heap.Fix(&p.h, s.index)
	}
	p.mu.Unlock()
	p.kick()
}

func (p *Poller) Stop(addr CapAddr, verb string) {
	key := pollKey{addr: addr, verb: verb}
	p.mu.Lock()
	if s := p.items[key]; s != nil {
		heap.Remove(&p.h, s.index)
		delete(p.items, key)
	}
	p.mu.Unlock()
	p.kick()
}

// Len returns the number of active schedules.
func (p *Poller) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

func (p *Poller) Run(ctx context.Context) {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		req, wait, ok := p.next()
		if ok {
			select {
			case p.out <- req:
			default:
			}
			continue
		}

		var tc <-chan time.Time
		if wait >= 0 {
			resetTimer(timer, wait)
			tc = timer.C
		}
		select {
		case <-ctx.Done():
			return
		case <-p.wake:
		case <-tc:
		}
	}
}

// next pops and re-arms the earliest schedule if it is due. Otherwise it
// returns the time until it is, or -1 when nothing is scheduled.
func (p *Poller) next() (PollReq, time.Duration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.h) == 0 {
		return PollReq{}, -1, false
	}
	now := p.now()
	s := p.h[0]
	if wait := s.due.Sub(now); wait > 0 {
		return PollReq{}, wait, false
	}
	s.due = now.Add(s.period())
	heap.Fix(&p.h, 0)
	return PollReq{Addr: s.key.addr, Verb: s.key.verb, Every: s.every}, 0, true
}

func (s *schedule) period() time.Duration {
	if s.jitter <= 0 {
		return s.every
	}
	return s.every + rand.N(s.jitter+1)
}

func (p *Poller) kick() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
