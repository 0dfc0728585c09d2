// Package daemon runs the ingest loop and the flush/publish engine
// described by the metcod wire protocol: a single goroutine owns the
// UDP socket and the live Registry, rotating it onto a long-lived
// publisher goroutine on a timer or on overflow.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/metcod/metcod/internal/backend"
	"github.com/metcod/metcod/internal/config"
	"github.com/metcod/metcod/internal/protocol"
	"github.com/metcod/metcod/internal/registry"
	"github.com/metcod/metcod/internal/selfstat"
)

// maxDatagramSize matches the UDP payload cap this wire protocol was
// specified against; larger datagrams are truncated by the transport
// and will typically fail to parse.
const maxDatagramSize = 2048

// frameChanCapacity bounds how many retired-but-not-yet-published
// frames may queue for the publisher goroutine. A full channel blocks
// the next flush, and with it the ingest loop that calls flush, until
// the publisher takes a frame, bounding memory under a persistently
// slow backend.
const frameChanCapacity = 4

// frame pairs a retired Registry with the wall-clock timestamp it was
// retired at, the unit of work handed to the publisher goroutine.
type frame struct {
	reg *registry.Registry
	at  time.Time
}

// BackendFactory builds the slice of backends enabled for one flush,
// in declared order. It is a function rather than a fixed type so
// tests can substitute fakes without touching real sockets or
// databases.
type BackendFactory func(ctx context.Context) []backend.Backend

// Daemon owns the UDP socket, the live Registry, and the publisher
// goroutine for one running instance.
type Daemon struct {
	conn            *net.UDPConn
	refreshInterval time.Duration
	backends        BackendFactory
	log             zerolog.Logger
	counters        *selfstat.Counters

	frames chan frame
}

// New binds a UDP socket at cfg.Host:cfg.Port and returns a Daemon
// ready to Run. backends builds the enabled backend set fresh for each
// flush, per the reference design's per-frame backend lifecycle.
func New(cfg config.Config, backends BackendFactory, log zerolog.Logger) (*Daemon, error) {
	addr := net.UDPAddr{IP: net.ParseIP(cfg.Host), Port: int(cfg.Port)}
	conn, err := net.ListenUDP("udp", &addr)
	if err != nil {
		return nil, fmt.Errorf("daemon: bind %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	return &Daemon{
		conn:            conn,
		refreshInterval: cfg.RefreshInterval,
		backends:        backends,
		log:             log,
		counters:        &selfstat.Counters{},
		frames:          make(chan frame, frameChanCapacity),
	}, nil
}

// Close releases the UDP socket.
func (d *Daemon) Close() error {
	return d.conn.Close()
}

// Run drives the ingest loop until ctx is canceled or a fatal receive
// error occurs. It blocks; callers typically run it in its own
// goroutine or call it from main directly.
func (d *Daemon) Run(ctx context.Context) error {
	publisherDone := make(chan struct{})
	go func() {
		defer close(publisherDone)
		d.publishLoop(ctx)
	}()
	defer func() {
		close(d.frames)
		<-publisherDone
	}()

	// A blocked ReadFromUDP only ever wakes on its own deadline, which
	// may be up to refreshInterval away; force it to return promptly
	// on cancellation instead of waiting it out.
	unblock := make(chan struct{})
	defer close(unblock)
	go func() {
		select {
		case <-ctx.Done():
		case <-unblock:
			return
		}
		// Cancellation raced the ingest loop re-arming a long deadline;
		// keep forcing an immediate one until Run actually exits.
		for {
			d.conn.SetReadDeadline(time.Now())
			select {
			case <-unblock:
				return
			case <-time.After(5 * time.Millisecond):
			}
		}
	}()

	reg := registry.New()
	lastFlush := time.Now()
	buf := make([]byte, maxDatagramSize)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if elapsed := time.Since(lastFlush); elapsed >= d.refreshInterval {
			selfstat.Capture(reg, d.counters)
			reg = d.flush(reg)
			lastFlush = time.Now()
			continue
		} else if err := d.conn.SetReadDeadline(time.Now().Add(d.refreshInterval - elapsed)); err != nil {
			return fmt.Errorf("daemon: set read deadline: %w", err)
		}

		n, _, err := d.conn.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				// interval elapsed; loop around to flush
				continue
			}
			return fmt.Errorf("daemon: receive: %w", err)
		}

		payload := buf[:n]
		if !utf8.Valid(payload) {
			d.log.Warn().Int("size", n).Msg("dropping invalid utf-8 payload")
			d.counters.PacketDropped()
			continue
		}

		metrics := protocol.Parse(string(payload))
		if metrics == nil {
			if n > 0 {
				d.log.Warn().Int("size", n).Msg("dropping unparseable payload")
				d.counters.PacketDropped()
			}
			continue
		}

		for _, m := range metrics {
			if !reg.Add(m) {
				d.log.Warn().Str("metric", m.Name).Msg("overflow detected, flushing early")
				reg = d.flush(reg)
				lastFlush = time.Now()
				continue
			}
		}

		d.counters.PacketReceived()
	}
}

// flush rotates reg onto the publisher goroutine and returns the fresh
// Registry ingest should continue writing to.
func (d *Daemon) flush(reg *registry.Registry) *registry.Registry {
	next := reg.NewWithGauges()
	d.frames <- frame{reg: reg, at: time.Now().UTC()}
	return next
}

// publishLoop drains d.frames in order, one frame fully handled before
// the next begins, until the channel is closed by Run.
func (d *Daemon) publishLoop(ctx context.Context) {
	for f := range d.frames {
		d.publishFrame(ctx, f)
	}
}

func (d *Daemon) publishFrame(ctx context.Context, f frame) {
	tf := f.reg.Finalize()
	if tf.Empty() {
		return
	}

	backends := d.backends(ctx)
	for _, b := range backends {
		b.Publish(ctx, f.at, tf)
	}
}
