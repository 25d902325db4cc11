package watch

import (
	"fmt"
	"net"
	"time"

	lj "github.com/elastic/go-lumber/lj"
	srv2 "github.com/elastic/go-lumber/server/v2"
)

// LumberjackListener accepts the Lumberjack v2 shipping protocol (as used
// by Filebeat/Logstash forwarders) over TCP and republishes each batch's
// "message" field as a Line, letting record.Parse do the actual grammar
// work. Adapted from the project's older raw-TCP ingestor, generalized
// from a structured per-field decode to a pass-through line source.
type LumberjackListener struct {
	listener net.Listener
	server   *srv2.Server
	batches  <-chan *lj.Batch
	lines    chan Line
	done     chan struct{}
}

// NewLumberjackListener binds addr and starts accepting lumberjack
// batches; readTimeout bounds how long the server waits for a client
// frame before dropping the connection.
func NewLumberjackListener(addr string, readTimeout time.Duration) (*LumberjackListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}
	srv, err := srv2.NewWithListener(ln, srv2.Timeout(readTimeout))
	if err != nil {
		ln.Close()
		return nil, fmt.Errorf("starting lumberjack server on %s: %w", addr, err)
	}

	l := &LumberjackListener{
		listener: ln,
		server:   srv,
		batches:  srv.ReceiveChan(),
		lines:    make(chan Line, 256),
		done:     make(chan struct{}),
	}
	go l.run()
	return l, nil
}

func (l *LumberjackListener) run() {
	defer close(l.lines)
	for {
		select {
		case <-l.done:
			return
		case batch, ok := <-l.batches:
			if !ok {
				return
			}
			for _, evt := range batch.Events {
				msg, ok := evt.(map[string]interface{})
				if !ok {
					continue
				}
				text, ok := msg["message"].(string)
				if !ok {
					continue
				}
				select {
				case l.lines <- Line{Text: text}:
				case <-l.done:
					batch.ACK()
					return
				}
			}
			batch.ACK()
		}
	}
}

func (l *LumberjackListener) Lines() <-chan Line {
	return l.lines
}

func (l *LumberjackListener) Close() error {
	close(l.done)
	return l.listener.Close()
}
