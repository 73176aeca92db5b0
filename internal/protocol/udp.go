package protocol

import (
	"encoding/binary"
	"errors"
	"math"

	"inputoverlay/internal/input"
)

// UDP packet types. Each event type maps to exactly one channel.
const (
	UDPPacketKeyDown      uint8 = 0x01
	UDPPacketKeyUp        uint8 = 0x02
	UDPPacketMouseMove    uint8 = 0x03
	UDPPacketMouseDown    uint8 = 0x04
	UDPPacketMouseUp      uint8 = 0x05
	UDPPacketWheel        uint8 = 0x06
	UDPPacketGamepadState uint8 = 0x07
	UDPPacketRegister     uint8 = 0x10
	UDPPacketHeartbeat    uint8 = 0x11
	UDPPacketAck          uint8 = 0x12 // Host -> Consumer: confirms UDP path is open
)

// Header: [type(1)] [seq(4)] [timestamp(8)] = 13 bytes
const UDPHeaderSize = 13

// UDPMaxPacketSize bounds every datagram the codec produces.
const UDPMaxPacketSize = 512

var udpChannels = map[uint8]Channel{
	UDPPacketKeyDown:      ChannelKeyDown,
	UDPPacketKeyUp:        ChannelKeyUp,
	UDPPacketMouseMove:    ChannelMouseMove,
	UDPPacketMouseDown:    ChannelMouseDown,
	UDPPacketMouseUp:      ChannelMouseUp,
	UDPPacketWheel:        ChannelWheel,
	UDPPacketGamepadState: ChannelGamepadState,
}

// UDPPacket is a binary-encoded channel message for low-latency transport.
//
// Wire format per type (all integers big endian, floats as IEEE-754 f32):
//
//	KeyDown/KeyUp     : header + keycode(u16) + rawcode(u16) + len(u8) + code
//	MouseMove         : header + x(i32) + y(i32)
//	MouseDown/MouseUp : header + button(u8) + x(i32) + y(i32)
//	Wheel             : header + rotation(i32) + direction(u8) + x(i32) + y(i32)
//	GamepadState      : header + connected(u8) + n(u8) + n*axis(f32)
//	                           + m(u8) + m*(pressed(u8) + value(f32))
//	Register/Heartbeat/Ack: header only
type UDPPacket struct {
	Type      uint8
	Seq       uint32
	Timestamp int64
	Keycode   uint16
	Rawcode   uint16
	Code      string
	X, Y      int32
	Button    uint8
	Rotation  int32
	Direction uint8
	Connected bool
	Axes      []float32
	Buttons   []input.Button
}

var (
	errUDPShort   = errors.New("udp: packet too short")
	errUDPUnknown = errors.New("udp: unknown packet type")
	errUDPTooBig  = errors.New("udp: packet exceeds size limit")
)

// EncodeUDPPacket serializes a UDPPacket to wire format.
func EncodeUDPPacket(pkt *UDPPacket) ([]byte, error) {
	buf := make([]byte, UDPHeaderSize, 64)
	buf[0] = pkt.Type
	binary.BigEndian.PutUint32(buf[1:5], pkt.Seq)
	binary.BigEndian.PutUint64(buf[5:13], uint64(pkt.Timestamp))

	switch pkt.Type {
	case UDPPacketKeyDown, UDPPacketKeyUp:
		if len(pkt.Code) > math.MaxUint8 {
			return nil, errUDPTooBig
		}
		buf = binary.BigEndian.AppendUint16(buf, pkt.Keycode)
		buf = binary.BigEndian.AppendUint16(buf, pkt.Rawcode)
		buf = append(buf, uint8(len(pkt.Code)))
		buf = append(buf, pkt.Code...)
	case UDPPacketMouseMove:
		buf = binary.BigEndian.AppendUint32(buf, uint32(pkt.X))
		buf = binary.BigEndian.AppendUint32(buf, uint32(pkt.Y))
	case UDPPacketMouseDown, UDPPacketMouseUp:
		buf = append(buf, pkt.Button)
		buf = binary.BigEndian.AppendUint32(buf, uint32(pkt.X))
		buf = binary.BigEndian.AppendUint32(buf, uint32(pkt.Y))
	case UDPPacketWheel:
		buf = binary.BigEndian.AppendUint32(buf, uint32(pkt.Rotation))
		buf = append(buf, pkt.Direction)
		buf = binary.BigEndian.AppendUint32(buf, uint32(pkt.X))
		buf = binary.BigEndian.AppendUint32(buf, uint32(pkt.Y))
	case UDPPacketGamepadState:
		if len(pkt.Axes) > maxAxes || len(pkt.Buttons) > maxButtons {
			return nil, errUDPTooBig
		}
		buf = append(buf, boolByte(pkt.Connected), uint8(len(pkt.Axes)))
		for _, a := range pkt.Axes {
			buf = binary.BigEndian.AppendUint32(buf, math.Float32bits(a))
		}
		buf = append(buf, uint8(len(pkt.Buttons)))
		for _, b := range pkt.Buttons {
			buf = append(buf, boolByte(b.Pressed))
			buf = binary.BigEndian.AppendUint32(buf, math.Float32bits(float32(b.Value)))
		}
	case UDPPacketRegister, UDPPacketHeartbeat, UDPPacketAck:
		// no payload
	default:
		return nil, errUDPUnknown
	}

	if len(buf) > UDPMaxPacketSize {
		return nil, errUDPTooBig
	}
	return buf, nil
}

// DecodeUDPPacket deserializes wire bytes into a UDPPacket.
func DecodeUDPPacket(data []byte) (*UDPPacket, error) {
	if len(data) < UDPHeaderSize {
		return nil, errUDPShort
	}

	pkt := &UDPPacket{
		Type:      data[0],
		Seq:       binary.BigEndian.Uint32(data[1:5]),
		Timestamp: int64(binary.BigEndian.Uint64(data[5:13])),
	}

	p := data[UDPHeaderSize:]
	switch pkt.Type {
	case UDPPacketKeyDown, UDPPacketKeyUp:
		if len(p) < 5 || len(p) < 5+int(p[4]) {
			return nil, errors.New("udp: key payload too short")
		}
		pkt.Keycode = binary.BigEndian.Uint16(p[0:2])
		pkt.Rawcode = binary.BigEndian.Uint16(p[2:4])
		pkt.Code = string(p[5 : 5+int(p[4])])
	case UDPPacketMouseMove:
		if len(p) < 8 {
			return nil, errors.New("udp: mouse move payload too short")
		}
		pkt.X = int32(binary.BigEndian.Uint32(p[0:4]))
		pkt.Y = int32(binary.BigEndian.Uint32(p[4:8]))
	case UDPPacketMouseDown, UDPPacketMouseUp:
		if len(p) < 9 {
			return nil, errors.New("udp: mouse button payload too short")
		}
		pkt.Button = p[0]
		pkt.X = int32(binary.BigEndian.Uint32(p[1:5]))
		pkt.Y = int32(binary.BigEndian.Uint32(p[5:9]))
	case UDPPacketWheel:
		if len(p) < 13 {
			return nil, errors.New("udp: wheel payload too short")
		}
		pkt.Rotation = int32(binary.BigEndian.Uint32(p[0:4]))
		pkt.Direction = p[4]
		pkt.X = int32(binary.BigEndian.Uint32(p[5:9]))
		pkt.Y = int32(binary.BigEndian.Uint32(p[9:13]))
	case UDPPacketGamepadState:
		if len(p) < 2 {
			return nil, errors.New("udp: gamepad payload too short")
		}
		pkt.Connected = p[0] == 1
		n := int(p[1])
		p = p[2:]
		if len(p) < n*4+1 {
			return nil, errors.New("udp: gamepad axes truncated")
		}
		pkt.Axes = make([]float32, n)
		for i := range pkt.Axes {
			pkt.Axes[i] = math.Float32frombits(binary.BigEndian.Uint32(p[i*4:]))
		}
		p = p[n*4:]
		m := int(p[0])
		p = p[1:]
		if len(p) < m*5 {
			return nil, errors.New("udp: gamepad buttons truncated")
		}
		pkt.Buttons = make([]input.Button, m)
		for i := range pkt.Buttons {
			rec := p[i*5:]
			pkt.Buttons[i] = input.Button{
				Pressed: rec[0] == 1,
				Value:   float64(math.Float32frombits(binary.BigEndian.Uint32(rec[1:5]))),
			}
		}
	case UDPPacketRegister, UDPPacketHeartbeat, UDPPacketAck:
		// no payload
	default:
		return nil, errUDPUnknown
	}

	return pkt, nil
}

// Channel reports which event channel the packet belongs to. Control packets
// report false.
func (pkt *UDPPacket) Channel() (Channel, bool) {
	c, ok := udpChannels[pkt.Type]
	return c, ok
}

// PacketFromMessage converts a validated message into its binary form.
// Pointer coordinates are truncated to whole pixels.
func PacketFromMessage(msg Message) (*UDPPacket, error) {
	p, err := msg.payload()
	if err != nil {
		return nil, err
	}

	pkt := &UDPPacket{}
	for t, c := range udpChannels {
		if c == msg.Channel {
			pkt.Type = t
		}
	}

	switch v := p.(type) {
	case *KeyPayload:
		pkt.Keycode = uint16(v.Keycode)
		pkt.Rawcode = uint16(v.Rawcode)
		pkt.Code = v.Code
		pkt.Timestamp = v.Timestamp
	case *MouseMovePayload:
		pkt.X, pkt.Y = int32(v.X), int32(v.Y)
		pkt.Timestamp = v.Timestamp
	case *MouseButtonPayload:
		pkt.Button = uint8(v.Button)
		pkt.X, pkt.Y = int32(v.X), int32(v.Y)
		pkt.Timestamp = v.Timestamp
	case *WheelPayload:
		pkt.Rotation = int32(v.Rotation)
		pkt.Direction = uint8(v.Direction)
		pkt.X, pkt.Y = int32(v.X), int32(v.Y)
		pkt.Timestamp = v.Timestamp
	case *GamepadPayload:
		pkt.Connected = v.Connected
		pkt.Axes = make([]float32, len(v.Axes))
		for i, a := range v.Axes {
			pkt.Axes[i] = float32(a)
		}
		pkt.Buttons = append([]input.Button(nil), v.Buttons...)
		pkt.Timestamp = v.Timestamp
	}
	return pkt, nil
}

// Message converts an event packet back into a validated channel message.
func (pkt *UDPPacket) Message() (Message, error) {
	channel, ok := pkt.Channel()
	if !ok {
		return Message{}, errUDPUnknown
	}

	var payload validator
	switch pkt.Type {
	case UDPPacketKeyDown, UDPPacketKeyUp:
		payload = KeyPayload{Keycode: int(pkt.Keycode), Rawcode: int(pkt.Rawcode), Code: pkt.Code, Timestamp: pkt.Timestamp}
	case UDPPacketMouseMove:
		payload = MouseMovePayload{X: float64(pkt.X), Y: float64(pkt.Y), Timestamp: pkt.Timestamp}
	case UDPPacketMouseDown, UDPPacketMouseUp:
		payload = MouseButtonPayload{Button: int(pkt.Button), X: float64(pkt.X), Y: float64(pkt.Y), Timestamp: pkt.Timestamp}
	case UDPPacketWheel:
		payload = WheelPayload{Rotation: int(pkt.Rotation), Direction: int(pkt.Direction), X: float64(pkt.X), Y: float64(pkt.Y), Timestamp: pkt.Timestamp}
	case UDPPacketGamepadState:
		axes := make([]float64, len(pkt.Axes))
		for i, a := range pkt.Axes {
			axes[i] = float64(a)
		}
		payload = GamepadPayload{Axes: axes, Buttons: pkt.Buttons, Timestamp: pkt.Timestamp, Connected: pkt.Connected}
	}

	if err := payload.Validate(); err != nil {
		return Message{}, err
	}
	return NewMessage(channel, payload)
}

// Redundancy is how many copies of a packet the sender writes. Key and button
// transitions are repeated since a lost release leaves a key stuck down.
func (pkt *UDPPacket) Redundancy() int {
	switch pkt.Type {
	case UDPPacketKeyDown, UDPPacketKeyUp, UDPPacketMouseDown, UDPPacketMouseUp:
		return 3
	case UDPPacketWheel:
		return 2
	}
	return 1
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
