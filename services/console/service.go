package console

import (
	"context"
	"log/slog"

	"uartcheck-go/bus"
	"uartcheck-go/types"
)

// Service renders console traffic from the bus onto a Writer.
type Service struct {
	out *Writer
	log *slog.Logger
}

func NewService(out *Writer, log *slog.Logger) *Service {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Service{out: out, log: log}
}

func (s *Service) render(msg *bus.Message) {
	switch p := msg.Payload.(type) {
	case types.ConsoleLine:
		s.out.Line(p.Text)
	case types.CheckResult:
		s.out.Report(p)
	case types.RunSummary:
		s.out.Summary(p)
	default:
		s.log.Warn("console: unexpected payload", "topic", msg.Topic.String())
	}
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection, sub *bus.Subscription, done chan<- struct{}) {
	defer close(done)
	defer conn.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			// Render what was published before shutdown.
			for {
				select {
				case msg := <-sub.Channel():
					s.render(msg)
				default:
					s.log.Debug("console service stopping")
					return
				}
			}
		case msg := <-sub.Channel():
			s.render(msg)
		}
	}
}

// Start subscribes before returning, so nothing published afterwards is
// missed. The returned channel closes once the service has drained and
// stopped after ctx is cancelled.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) <-chan struct{} {
	sub := conn.Subscribe(bus.T(TokRoot, "#"))
	done := make(chan struct{})
	go s.serviceLoop(ctx, conn, sub, done)
	return done
}
