package heartbeat

import (
	"context"
	"time"

	"envnode/bus"
	"envnode/types"
	"envnode/x/conv"
)

const defaultInterval = 10 * time.Second

var (
	topicConfigHeartbeat = bus.T("config", "heartbeat")
	topicHALState        = bus.T("hal", "state")
	topicHeartbeat       = bus.T("sys", "heartbeat")
)

type Service struct {
	start    time.Time
	seq      uint32
	halLevel string
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)
	halSub := conn.Subscribe(topicHALState)
	defer conn.Unsubscribe(halSub)

	tick := time.NewTicker(defaultInterval)
	defer tick.Stop()

	// loop until context is cancelled, respond to tick and config changes
	for {
		select {
		case <-ctx.Done():
			println("[heartbeat] stopping")
			return
		case now := <-tick.C:
			s.beat(conn, now)
		case msg := <-halSub.Channel():
			if st, ok := msg.Payload.(types.HALState); ok {
				s.halLevel = st.Level
			}
		case msg := <-cfgSub.Channel():
			if d, ok := intervalFrom(msg.Payload); ok {
				tick.Reset(d)
				println("[heartbeat] interval set to", d.String())
			}
		}
	}
}

func (s *Service) beat(conn *bus.Connection, now time.Time) {
	s.seq++
	up := uint32(now.Sub(s.start) / time.Second)
	conn.Publish(conn.NewMessage(topicHeartbeat, types.Heartbeat{
		Seq:      s.seq,
		UptimeS:  up,
		HALLevel: s.halLevel,
	}, true))

	var b [20]byte
	println("[heartbeat] up", string(conv.Utoa(b[:], uint64(up)))+"s", "hal", s.halLevel)
}

// intervalFrom reads {"interval": <seconds>} from a config/heartbeat payload.
func intervalFrom(p any) (time.Duration, bool) {
	m, ok := p.(map[string]any)
	if !ok {
		return 0, false
	}
	secs, ok := m["interval"].(float64)
	if !ok || secs <= 0 {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	s.start = time.Now()
	go s.serviceLoop(ctx, conn)
	return nil
}
