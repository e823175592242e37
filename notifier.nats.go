package maestro

import (
	"context"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
)

type (
	// NATSNotifier relays broadcasts between nodes over NATS subjects. Each
	// broadcast goes out as one frame on "<prefix>event.<name>"; Relay
	// subscribes to the whole event space and re-broadcasts remote frames
	// locally, skipping the node's own.
	NATSNotifier struct {
		mutex sync.Mutex
		conn  *nats.Conn
		sub   *nats.Subscription

		node   string
		prefix string
	}

	// NATSConfig configures the notifier connection.
	NATSConfig struct {
		URL      string `json:"url" toml:"url"`
		Username string `json:"username" toml:"username"`
		Password string `json:"password" toml:"password"`
		Prefix   string `json:"prefix" toml:"prefix"`
	}

	// eventFrame is the wire shape of one relayed broadcast.
	eventFrame struct {
		Node    string `json:"node"`
		Trace   string `json:"trace,omitempty"`
		Event   string `json:"event"`
		Payload Map    `json:"payload,omitempty"`
	}
)

// ConnectNATS opens the notifier for one node. The node id must be the id
// of the broker this notifier serves, so its own frames can be recognized
// and dropped on the way back in.
func ConnectNATS(node string, cfg NATSConfig) (*NATSNotifier, error) {
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	options := []nats.Option{}
	if cfg.Username != "" && cfg.Password != "" {
		options = append(options, nats.UserInfo(cfg.Username, cfg.Password))
	}

	conn, err := nats.Connect(url, options...)
	if err != nil {
		return nil, err
	}
	return &NATSNotifier{
		conn:   conn,
		node:   node,
		prefix: cfg.Prefix,
	}, nil
}

// NotifyOtherNodes publishes one broadcast frame. The trace id travels with
// the frame so remote listeners join the originating chain.
func (n *NATSNotifier) NotifyOtherNodes(ctx context.Context, event string, payload Map) error {
	frame := eventFrame{Node: n.node, Event: event, Payload: payload}
	if meta, ok := MetaFromContext(ctx); ok {
		frame.Trace = meta.TraceID
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return n.conn.Publish(n.subject(event), data)
}

// Relay subscribes to every event subject and re-broadcasts remote frames
// into the given broker's local bus.
func (n *NATSNotifier) Relay(b *Broker) error {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	if n.sub != nil {
		return nil
	}
	sub, err := n.conn.Subscribe(n.subject(">"), func(msg *nats.Msg) {
		var frame eventFrame
		if err := json.Unmarshal(msg.Data, &frame); err != nil {
			b.log.Warn().Err(err).Msg("dropping malformed event frame")
			return
		}
		if frame.Node == n.node {
			return
		}

		seed := &Meta{TraceID: frame.Trace, SpanID: newID(), Node: frame.Node}
		if seed.TraceID == "" {
			seed.TraceID = newID()
		}
		ctx := withMeta(context.Background(), seed)
		if err := b.BroadcastLocal(ctx, frame.Event, frame.Payload); err != nil {
			b.log.Warn().Str("event", frame.Event).Err(err).Msg("relayed broadcast failed")
		}
	})
	if err != nil {
		return err
	}
	n.sub = sub
	return nil
}

// Close drops the relay subscription and the connection.
func (n *NATSNotifier) Close() error {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	if n.sub != nil {
		_ = n.sub.Unsubscribe()
		n.sub = nil
	}
	n.conn.Close()
	return nil
}

func (n *NATSNotifier) subject(event string) string {
	return n.prefix + "event." + event
}
