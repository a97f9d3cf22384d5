package receiver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

// maxRestartAttempts bounds safeRestart (§4.2, §5 Restart discipline).
const maxRestartAttempts = 10

// RestartDelay is the pause between a socket failure and the next bind
// attempt.
var RestartDelay = 2 * time.Second

// Socket owns one (protocol, port) listening endpoint: a TCP server or one
// side of a dual-stack UDP pair. Multiple Event Listeners bound to the same
// port share one Socket per protocol.
type Socket struct {
	Protocol string // "tcp", "udp4", "udp6"
	Port     int

	mu    sync.Mutex
	state State

	tcpLn   net.Listener
	udpConn net.PacketConn

	submu sync.Mutex
	subs  map[string]chan RawFrame // listener id -> its own frame channel

	assembler *frameAssembler
	logger    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup

	restartAttempts int
}

// NewSocket constructs a Socket in state NEW. Each subscriber returned by
// Subscribe must be drained by its caller or frames for that subscriber are
// dropped (with a warning) rather than blocking the others.
func NewSocket(protocol string, port int, logger *slog.Logger) *Socket {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	return &Socket{
		Protocol:  protocol,
		Port:      port,
		state:     StateNew,
		subs:      map[string]chan RawFrame{},
		assembler: newFrameAssembler(logger),
		logger:    logger.With("protocol", protocol, "port", port),
	}
}

// Subscribe registers id as a receiver of every frame this Socket emits
// from now on and returns its dedicated channel. Multiple Event Listeners
// bound to the same (protocol, port) each get their own channel and their
// own independent copy of every frame (§8 scenario 6): a channel delivers a
// value to exactly one reader, so a single shared channel would let only
// one listener win any given frame. Re-subscribing the same id replaces its
// channel.
func (s *Socket) Subscribe(id string) <-chan RawFrame {
	s.submu.Lock()
	defer s.submu.Unlock()
	ch := make(chan RawFrame, 1024)
	s.subs[id] = ch
	return ch
}

// Unsubscribe removes id's subscription and closes its channel. Safe to
// call even if id was never subscribed.
func (s *Socket) Unsubscribe(id string) {
	s.submu.Lock()
	defer s.submu.Unlock()
	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
}

// State returns the current lifecycle state.
func (s *Socket) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start transitions NEW/STOPPED -> STARTING -> RUNNING and begins serving.
// It returns once the socket is bound (or failed to bind).
func (s *Socket) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateRunning || s.state == StateStarting {
		s.mu.Unlock()
		return nil
	}
	s.state = StateStarting
	s.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	if err := s.bind(); err != nil {
		s.mu.Lock()
		s.state = StateStopped
		s.mu.Unlock()
		return fmt.Errorf("receiver: bind %s:%d: %w", s.Protocol, s.Port, err)
	}

	s.mu.Lock()
	s.state = StateRunning
	s.restartAttempts = 0
	s.mu.Unlock()

	s.wg.Add(1)
	go s.serve(runCtx, s.tcpLn, s.udpConn)

	return nil
}

func (s *Socket) bind() error {
	switch s.Protocol {
	case "tcp":
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.Port))
		if err != nil {
			return err
		}
		s.tcpLn = ln
	case "udp4":
		conn, err := net.ListenPacket("udp4", fmt.Sprintf(":%d", s.Port))
		if err != nil {
			return err
		}
		s.udpConn = conn
	case "udp6":
		conn, err := net.ListenPacket("udp6", fmt.Sprintf(":%d", s.Port))
		if err != nil {
			return err
		}
		s.udpConn = conn
	default:
		return fmt.Errorf("unknown protocol %q", s.Protocol)
	}
	return nil
}

// serve runs the accept/read loop for the listener or packet conn bound by
// the most recent bind() call. ln and pc are passed explicitly (rather than
// read from s.tcpLn/s.udpConn) so this goroutine never races with
// closeSockets() clearing those fields concurrently from Stop/safeRestart.
func (s *Socket) serve(ctx context.Context, ln net.Listener, pc net.PacketConn) {
	defer s.wg.Done()
	var err error
	switch s.Protocol {
	case "tcp":
		err = s.serveTCP(ctx, ln)
	default:
		err = s.serveUDP(ctx, pc)
	}

	if ctx.Err() != nil {
		return // intentional Stop, not a failure
	}
	if err != nil {
		s.logger.Error("receiver: socket failed, attempting restart", "error", err.Error())
		s.safeRestart(ctx)
	}
}

func (s *Socket) serveTCP(ctx context.Context, ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.wg.Add(1)
		go s.handleTCPConn(ctx, conn)
	}
}

func (s *Socket) handleTCPConn(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	senderKey := fmt.Sprintf("%s-%s-%d", s.Protocol, conn.RemoteAddr().String(), s.Port)
	defer s.assembler.Discard(senderKey)

	buf := make([]byte, 4096)
	for {
		if ctx.Err() != nil {
			return
		}
		n, err := conn.Read(buf)
		if n > 0 {
			s.emitLines(senderKey, buf[:n])
		}
		if err != nil {
			return
		}
	}
}

func (s *Socket) serveUDP(ctx context.Context, pc net.PacketConn) error {
	buf := make([]byte, 64*1024)
	for {
		n, addr, err := pc.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if n > 0 {
			senderKey := fmt.Sprintf("%s-%s-%d", s.Protocol, addr.String(), s.Port)
			s.emitLines(senderKey, buf[:n])
		}
	}
}

func (s *Socket) emitLines(senderKey string, chunk []byte) {
	now := time.Now()
	for _, line := range s.assembler.Feed(senderKey, chunk) {
		frame := RawFrame{
			Data:      append([]byte(nil), line...),
			SenderKey: senderKey,
			Protocol:  s.Protocol,
			Timestamp: now,
			HRTime:    now.UnixNano(),
		}
		s.broadcast(frame, senderKey)
	}
}

// broadcast fans frame out to every subscriber's own channel so each bound
// listener independently receives it, instead of a single shared channel
// where only one reader would win any given frame.
func (s *Socket) broadcast(frame RawFrame, senderKey string) {
	s.submu.Lock()
	defer s.submu.Unlock()
	for id, ch := range s.subs {
		select {
		case ch <- frame:
		default:
			s.logger.Warn("receiver: subscriber buffer full, dropping frame", "listener", id, "senderKey", senderKey)
		}
	}
}

// safeRestart closes the current socket, waits RestartDelay, and rebinds,
// bounded at maxRestartAttempts consecutive failures (§4.2, §5).
func (s *Socket) safeRestart(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		s.restartAttempts++
		if s.restartAttempts > maxRestartAttempts {
			s.mu.Lock()
			s.state = StateDestroyed
			s.mu.Unlock()
			s.logger.Error("receiver: exhausted restart budget, giving up", "attempts", s.restartAttempts-1)
			return
		}

		s.closeSockets()
		select {
		case <-time.After(RestartDelay):
		case <-ctx.Done():
			return
		}

		if err := s.bind(); err != nil {
			s.logger.Warn("receiver: restart attempt failed", "attempt", s.restartAttempts, "error", err.Error())
			continue
		}

		s.mu.Lock()
		s.state = StateRunning
		s.restartAttempts = 0
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serve(ctx, s.tcpLn, s.udpConn)
		return
	}
}

func (s *Socket) closeSockets() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tcpLn != nil {
		s.tcpLn.Close()
		s.tcpLn = nil
	}
	if s.udpConn != nil {
		s.udpConn.Close()
		s.udpConn = nil
	}
}

// Stop transitions RUNNING -> STOPPING -> STOPPED. Calling Stop on a NEW
// socket (never started) also ends in STOPPED, not DESTROYED (§8 P5).
func (s *Socket) Stop() {
	s.mu.Lock()
	if s.state == StateStopped || s.state == StateDestroyed {
		s.mu.Unlock()
		return
	}
	s.state = StateStopping
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.closeSockets()
	s.wg.Wait()
	s.closeAllSubs()

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()
}

// closeAllSubs closes and drops every remaining subscriber channel. Normally
// every listener unsubscribes itself before a socket's last holder releases
// it, but this guards against a leaked consumer goroutine if one didn't.
func (s *Socket) closeAllSubs() {
	s.submu.Lock()
	defer s.submu.Unlock()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
