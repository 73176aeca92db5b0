package network

import (
	"net"
	"sync"
	"time"

	"inputoverlay/internal/protocol"

	"github.com/kataras/golog"
)

// UDPReceiver is the consumer-side UDP listener that receives binary channel
// messages from the host with minimal latency.
type UDPReceiver struct {
	hostAddr   string // host address in "ip:port" format
	dispatcher *Dispatcher
	conn       *net.UDPConn
	done       chan struct{}
	stopOnce   sync.Once
	logger     *golog.Logger

	order seqFilter
}

// seqFilter keeps each channel in order. The sender numbers packets from one
// counter, so anything at or below the last sequence accepted on a channel
// is a redundant copy or arrived late and is dropped.
type seqFilter struct {
	last map[uint8]uint32
}

func newSeqFilter() seqFilter {
	return seqFilter{last: make(map[uint8]uint32)}
}

func (f *seqFilter) accept(pktType uint8, seq uint32) bool {
	if last, ok := f.last[pktType]; ok && int32(seq-last) <= 0 {
		return false
	}
	f.last[pktType] = seq
	return true
}

// NewUDPReceiver creates a new UDP receiver.
// hostAddr should be "ip:port" matching the host's UDP address.
func NewUDPReceiver(hostAddr string, dispatcher *Dispatcher) *UDPReceiver {
	return &UDPReceiver{
		hostAddr:   hostAddr,
		dispatcher: dispatcher,
		done:       make(chan struct{}),
		order:      newSeqFilter(),
		logger:     golog.Child("[udp-receiver]"),
	}
}

// Probe tests whether UDP connectivity to the host is available.
// It sends register packets and waits for an Ack response. On success the
// registered socket is kept for Start, so the host sees one address only.
func (r *UDPReceiver) Probe() bool {
	hostUDP, err := net.ResolveUDPAddr("udp", r.hostAddr)
	if err != nil {
		r.logger.Warnf("probe: failed to resolve host: %v", err)
		return false
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: 0})
	if err != nil {
		r.logger.Warnf("probe: failed to bind: %v", err)
		return false
	}

	register, _ := protocol.EncodeUDPPacket(&protocol.UDPPacket{Type: protocol.UDPPacketRegister})

	// Try up to 3 times with 500ms timeout each (total max ~1.5s)
	buf := make([]byte, 64)
	for attempt := 0; attempt < 3; attempt++ {
		conn.WriteToUDP(register, hostUDP)

		conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			continue // timeout or error, retry
		}
		resp, err := protocol.DecodeUDPPacket(buf[:n])
		if err != nil {
			continue
		}
		if resp.Type == protocol.UDPPacketAck {
			r.logger.Infof("probe: host acknowledged (attempt %d), UDP path is open", attempt+1)
			conn.SetReadDeadline(time.Time{})
			r.conn = conn
			return true
		}
	}

	conn.Close()
	r.logger.Infof("probe: no ack after 3 attempts, staying on WebSocket")
	return false
}

// Start registers with the host and begins receiving. It reuses the socket
// a successful Probe left open, otherwise it opens a new one.
func (r *UDPReceiver) Start() error {
	hostUDP, err := net.ResolveUDPAddr("udp", r.hostAddr)
	if err != nil {
		return err
	}

	conn := r.conn
	if conn == nil {
		conn, err = net.ListenUDP("udp", &net.UDPAddr{Port: 0})
		if err != nil {
			return err
		}
		r.conn = conn
	}

	// Large read buffer for burst receives
	conn.SetReadBuffer(1 << 20)

	r.logger.Infof("listening on %s, host=%s", conn.LocalAddr(), r.hostAddr)

	r.sendControl(protocol.UDPPacketRegister, hostUDP)
	go r.heartbeatLoop(hostUDP)
	go r.readLoop()

	return nil
}

// heartbeatLoop sends periodic heartbeat packets to keep the registration alive.
func (r *UDPReceiver) heartbeatLoop(hostAddr *net.UDPAddr) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.sendControl(protocol.UDPPacketHeartbeat, hostAddr)
		case <-r.done:
			return
		}
	}
}

// sendControl sends a register or heartbeat packet (header-only, no payload).
func (r *UDPReceiver) sendControl(pktType uint8, addr *net.UDPAddr) {
	data, err := protocol.EncodeUDPPacket(&protocol.UDPPacket{
		Type:      pktType,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return
	}
	r.conn.WriteToUDP(data, addr)
}

func (r *UDPReceiver) readLoop() {
	buf := make([]byte, protocol.UDPMaxPacketSize)
	for {
		n, _, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-r.done:
				return
			default:
				continue
			}
		}
		r.handlePacket(buf[:n])
	}
}

func (r *UDPReceiver) handlePacket(data []byte) {
	pkt, err := protocol.DecodeUDPPacket(data)
	if err != nil {
		r.dispatcher.rejected.Add(1)
		return
	}
	if _, ok := pkt.Channel(); !ok {
		return
	}
	if !r.order.accept(pkt.Type, pkt.Seq) {
		return
	}
	msg, err := pkt.Message()
	if err != nil {
		r.dispatcher.rejected.Add(1)
		r.logger.Debugf("rejected packet: %v", err)
		return
	}
	r.dispatcher.Handle(msg)
}

// LocalAddr returns the receiving socket's address, or nil before Probe or
// Start.
func (r *UDPReceiver) LocalAddr() net.Addr {
	if r.conn == nil {
		return nil
	}
	return r.conn.LocalAddr()
}

// Stop shuts down the UDP receiver. It is safe to call more than once.
func (r *UDPReceiver) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
		if r.conn != nil {
			r.conn.Close()
		}
	})
}
