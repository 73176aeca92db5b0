package network

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"inputoverlay/internal/protocol"

	"github.com/kataras/golog"
)

// UDPSender is the host-side UDP broadcaster that sends binary channel
// messages to all registered consumers with minimal overhead. It implements
// api.Forwarder.
type UDPSender struct {
	conn     *net.UDPConn
	addr     string
	agents   map[string]*udpAgent
	agentsMu sync.RWMutex
	seq      atomic.Uint32
	done     chan struct{}
	stopOnce sync.Once
	logger   *golog.Logger
}

type udpAgent struct {
	addr     *net.UDPAddr
	lastSeen time.Time
}

// NewUDPSender creates a new UDP sender bound to addr (":port").
func NewUDPSender(addr string) *UDPSender {
	return &UDPSender{
		addr:   addr,
		agents: make(map[string]*udpAgent),
		done:   make(chan struct{}),
		logger: golog.Child("[udp-sender]"),
	}
}

// Start binds the UDP socket and begins listening for consumer registrations.
func (s *UDPSender) Start() error {
	laddr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return err
	}
	s.conn = conn

	// 1 MB write buffer for burst writes
	conn.SetWriteBuffer(1 << 20)
	conn.SetReadBuffer(1 << 16)

	s.logger.Infof("listening on %s", conn.LocalAddr())

	go s.readLoop()
	go s.cleanupLoop()

	return nil
}

// LocalAddr returns the bound address, or nil before Start.
func (s *UDPSender) LocalAddr() net.Addr {
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// readLoop listens for register and heartbeat packets from consumers.
func (s *UDPSender) readLoop() {
	buf := make([]byte, 64)
	for {
		n, remoteAddr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				continue
			}
		}

		pkt, err := protocol.DecodeUDPPacket(buf[:n])
		if err != nil {
			continue
		}

		switch pkt.Type {
		case protocol.UDPPacketRegister, protocol.UDPPacketHeartbeat:
			key := remoteAddr.String()
			s.agentsMu.Lock()
			if _, exists := s.agents[key]; !exists {
				s.logger.Infof("consumer registered from %s", key)
			}
			s.agents[key] = &udpAgent{addr: remoteAddr, lastSeen: time.Now()}
			s.agentsMu.Unlock()

			if pkt.Type == protocol.UDPPacketRegister {
				// Reply with Ack so the consumer can confirm UDP connectivity
				ack, _ := protocol.EncodeUDPPacket(&protocol.UDPPacket{
					Type:      protocol.UDPPacketAck,
					Timestamp: time.Now().UnixMilli(),
				})
				s.conn.WriteToUDP(ack, remoteAddr)
			}
		}
	}
}

// cleanupLoop removes consumers that haven't sent a heartbeat recently.
func (s *UDPSender) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.agentsMu.Lock()
			for key, agent := range s.agents {
				if time.Since(agent.lastSeen) > 30*time.Second {
					s.logger.Infof("removing stale consumer %s", key)
					delete(s.agents, key)
				}
			}
			s.agentsMu.Unlock()
		case <-s.done:
			return
		}
	}
}

// Forward encodes msg as a binary packet and sends it to all registered
// consumers, repeating key and button transitions.
func (s *UDPSender) Forward(msg protocol.Message) {
	if s.conn == nil || !s.HasAgents() {
		return
	}
	pkt, err := protocol.PacketFromMessage(msg)
	if err != nil {
		s.logger.Debugf("cannot encode %s: %v", msg.Channel, err)
		return
	}
	pkt.Seq = s.seq.Add(1)
	data, err := protocol.EncodeUDPPacket(pkt)
	if err != nil {
		s.logger.Debugf("cannot encode %s: %v", msg.Channel, err)
		return
	}
	s.broadcast(data, pkt.Redundancy())
}

// broadcast sends data to all registered consumers.
func (s *UDPSender) broadcast(data []byte, redundancy int) {
	s.agentsMu.RLock()
	defer s.agentsMu.RUnlock()

	for _, agent := range s.agents {
		for i := 0; i < redundancy; i++ {
			s.conn.WriteToUDP(data, agent.addr)
		}
	}
}

// HasAgents returns true if at least one consumer is registered.
func (s *UDPSender) HasAgents() bool {
	s.agentsMu.RLock()
	defer s.agentsMu.RUnlock()
	return len(s.agents) > 0
}

// AgentCount returns the number of registered consumers.
func (s *UDPSender) AgentCount() int {
	s.agentsMu.RLock()
	defer s.agentsMu.RUnlock()
	return len(s.agents)
}

// Stop shuts down the UDP sender. It is safe to call more than once.
func (s *UDPSender) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.conn != nil {
			s.conn.Close()
		}
	})
}
