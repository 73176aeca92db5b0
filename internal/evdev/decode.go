// Package evdev reads Linux input-event character devices and turns their
// fixed-size records into RawEvents.
package evdev

import "encoding/binary"

// RecordSize is the size of one struct input_event on 64-bit Linux.
const RecordSize = 24

// RawEvent is a decoded input_event record.
type RawEvent struct {
	Timestamp float64 // seconds
	Type      uint16
	Code      uint16
	Value     int32
}

// Decode interprets one record. Layout (little-endian):
//
//	sec   int64  [0:8]
//	usec  int64  [8:16]
//	type  uint16 [16:18]
//	code  uint16 [18:20]
//	value int32  [20:24]
func Decode(rec [RecordSize]byte) RawEvent {
	sec := int64(binary.LittleEndian.Uint64(rec[0:8]))
	usec := int64(binary.LittleEndian.Uint64(rec[8:16]))
	return RawEvent{
		Timestamp: float64(sec) + float64(usec)/1_000_000,
		Type:      binary.LittleEndian.Uint16(rec[16:18]),
		Code:      binary.LittleEndian.Uint16(rec[18:20]),
		Value:     int32(binary.LittleEndian.Uint32(rec[20:24])),
	}
}

// Encode is the inverse of Decode. The timestamp is split back into whole
// seconds and microseconds.
func Encode(ev RawEvent) [RecordSize]byte {
	var rec [RecordSize]byte
	sec := int64(ev.Timestamp)
	usec := int64((ev.Timestamp-float64(sec))*1_000_000 + 0.5)
	binary.LittleEndian.PutUint64(rec[0:8], uint64(sec))
	binary.LittleEndian.PutUint64(rec[8:16], uint64(usec))
	binary.LittleEndian.PutUint16(rec[16:18], ev.Type)
	binary.LittleEndian.PutUint16(rec[18:20], ev.Code)
	binary.LittleEndian.PutUint32(rec[20:24], uint32(ev.Value))
	return rec
}

// Millis converts the record timestamp to Unix milliseconds.
func (e RawEvent) Millis() int64 {
	return int64(e.Timestamp * 1000)
}
