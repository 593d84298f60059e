// Package ledserial implements the LED serial protocol spoken between the
// host and a strip controller.
//
// Every packet is a single type byte followed by a little-endian payload and
// a little-endian CRC-32 (IEEE) of the type byte and payload. The host sends
// incoming packets (from the controller's point of view); the controller
// answers each one with an AckPacket or reports an ErrorPacket, and may send
// LogPackets at any time.
package ledserial

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
)

// Endianness defines the endianness of the protocol.
var Endianness = binary.LittleEndian

// IncomingPacketType is a type of packet.
type IncomingPacketType uint8

const (
	TypeInitializePacket IncomingPacketType = iota
	TypeClearPacket
	TypeSetPacket
)

// String returns a string representation of the packet type.
func (t IncomingPacketType) String() string {
	switch t {
	case TypeInitializePacket:
		return "initialize"
	case TypeClearPacket:
		return "clear"
	case TypeSetPacket:
		return "set"
	default:
		return fmt.Sprintf("IncomingPacketType(%d)", t)
	}
}

// IncomingPacket is a packet sent from the host to the controller.
type IncomingPacket interface {
	// Type returns the type of packet.
	Type() IncomingPacketType
}

// InitializePacket tells the controller how many LEDs the strip has and
// which data line drives it. It must be the first packet sent.
type InitializePacket struct {
	NumLEDs uint16
	DataPin uint8
}

// ClearPacket is a packet that turns every LED off.
type ClearPacket struct{}

// SetPacket is a packet that sets the LED strip to the given colors. Pix
// holds three bytes per LED in R, G, B order.
type SetPacket struct {
	Pix []uint8
}

func (p InitializePacket) Type() IncomingPacketType { return TypeInitializePacket }
func (p ClearPacket) Type() IncomingPacketType      { return TypeClearPacket }
func (p SetPacket) Type() IncomingPacketType        { return TypeSetPacket }

// OutgoingPacketType is a type of packet.
type OutgoingPacketType uint8

const (
	TypeErrorPacket OutgoingPacketType = iota
	TypePanicPacket
	TypeLogPacket
	TypeAckPacket
)

// String returns a string representation of the packet type.
func (t OutgoingPacketType) String() string {
	switch t {
	case TypeErrorPacket:
		return "error"
	case TypePanicPacket:
		return "panic"
	case TypeLogPacket:
		return "log"
	case TypeAckPacket:
		return "ack"
	default:
		return fmt.Sprintf("OutgoingPacketType(%d)", t)
	}
}

// OutgoingPacket is a packet sent from the controller to the host.
type OutgoingPacket interface {
	// Type returns the type of packet.
	Type() OutgoingPacketType
}

// ErrorPacket is a packet that indicates an error occurred.
type ErrorPacket struct {
	Message string
}

// PanicPacket is a packet that indicates the program cannot recover.
type PanicPacket struct{}

// LogPacket is a packet that contains a log message.
type LogPacket struct {
	Message string
}

// AckPacket acknowledges that an incoming packet was handled.
type AckPacket struct {
	IncomingPacketType IncomingPacketType
}

func (p ErrorPacket) Type() OutgoingPacketType { return TypeErrorPacket }
func (p PanicPacket) Type() OutgoingPacketType { return TypePanicPacket }
func (p LogPacket) Type() OutgoingPacketType   { return TypeLogPacket }
func (p AckPacket) Type() OutgoingPacketType   { return TypeAckPacket }

// ErrChecksum is returned when a packet's checksum does not match.
var ErrChecksum = fmt.Errorf("packet checksum mismatch")

// ReadContext is the state of the LED strip. Data in this structure are
// required for the controller to read incoming packets.
type ReadContext struct {
	// NumLEDs is the number of LEDs in the strip.
	NumLEDs uint16
}

// ReadIncomingPacket reads an incoming packet from the given reader.
func ReadIncomingPacket(r io.Reader, context ReadContext) (IncomingPacket, error) {
	var packet IncomingPacket

	err := readPacket(r, func(ptype uint8, r io.Reader) error {
		switch ptype := IncomingPacketType(ptype); ptype {
		case TypeInitializePacket:
			var p InitializePacket
			if err := binary.Read(r, Endianness, &p); err != nil {
				return fmt.Errorf("failed to read initialize packet: %w", err)
			}
			packet = p

		case TypeClearPacket:
			packet = ClearPacket{}

		case TypeSetPacket:
			p := SetPacket{Pix: make([]uint8, 3*int(context.NumLEDs))}
			if _, err := io.ReadFull(r, p.Pix); err != nil {
				return fmt.Errorf("failed to read pixel data: %w", err)
			}
			packet = p

		default:
			return fmt.Errorf("unknown packet type: %s", ptype)
		}
		return nil
	})

	return packet, err
}

// WriteIncomingPacket writes an incoming packet to the given writer.
func WriteIncomingPacket(w io.Writer, p IncomingPacket) error {
	switch p := p.(type) {
	case InitializePacket:
		return writePacket(w, uint8(p.Type()), func(w io.Writer) error {
			return binary.Write(w, Endianness, p)
		})
	case ClearPacket:
		return writePacket(w, uint8(p.Type()), nil)
	case SetPacket:
		return writePacket(w, uint8(p.Type()), func(w io.Writer) error {
			_, err := w.Write(p.Pix)
			return err
		})
	default:
		return fmt.Errorf("unknown packet type: %T", p)
	}
}

// ReadOutgoingPacket reads an outgoing packet from the given reader.
func ReadOutgoingPacket(r io.Reader) (OutgoingPacket, error) {
	var packet OutgoingPacket

	err := readPacket(r, func(ptype uint8, r io.Reader) error {
		switch ptype := OutgoingPacketType(ptype); ptype {
		case TypeErrorPacket:
			msg, err := readMessage(r)
			if err != nil {
				return fmt.Errorf("failed to read error message: %w", err)
			}
			packet = ErrorPacket{Message: msg}

		case TypePanicPacket:
			packet = PanicPacket{}

		case TypeLogPacket:
			msg, err := readMessage(r)
			if err != nil {
				return fmt.Errorf("failed to read log message: %w", err)
			}
			packet = LogPacket{Message: msg}

		case TypeAckPacket:
			var p AckPacket
			if err := binary.Read(r, Endianness, &p); err != nil {
				return fmt.Errorf("failed to read acknowledged packet type: %w", err)
			}
			packet = p

		default:
			return fmt.Errorf("unknown packet type: %s", ptype)
		}
		return nil
	})

	return packet, err
}

// WriteOutgoingPacket writes an outgoing packet to the given writer.
func WriteOutgoingPacket(w io.Writer, p OutgoingPacket) error {
	switch p := p.(type) {
	case ErrorPacket:
		return writePacket(w, uint8(p.Type()), func(w io.Writer) error {
			return writeMessage(w, p.Message)
		})
	case PanicPacket:
		return writePacket(w, uint8(p.Type()), nil)
	case LogPacket:
		return writePacket(w, uint8(p.Type()), func(w io.Writer) error {
			return writeMessage(w, p.Message)
		})
	case AckPacket:
		return writePacket(w, uint8(p.Type()), func(w io.Writer) error {
			return binary.Write(w, Endianness, p)
		})
	default:
		return fmt.Errorf("unknown packet type: %T", p)
	}
}

// readPacket reads the type byte, hands the payload to readPayload and
// verifies the trailing checksum.
func readPacket(r io.Reader, readPayload func(ptype uint8, r io.Reader) error) error {
	hash := crc32.NewIEEE()
	tr := io.TeeReader(r, hash)

	var ptypeBuf [1]byte
	if _, err := io.ReadFull(tr, ptypeBuf[:]); err != nil {
		return fmt.Errorf("failed to read packet type: %w", err)
	}

	if err := readPayload(ptypeBuf[0], tr); err != nil {
		return err
	}

	// The checksum itself is read from r so it does not feed the hash.
	var checksum uint32
	if err := binary.Read(r, Endianness, &checksum); err != nil {
		return fmt.Errorf("failed to read packet checksum: %w", err)
	}

	if checksum != hash.Sum32() {
		return ErrChecksum
	}

	return nil
}

// writePacket writes the type byte, the payload and the checksum. The
// packet is assembled in memory and written with a single call.
func writePacket(w io.Writer, ptype uint8, writePayload func(io.Writer) error) error {
	buf := &packetBuffer{}
	buf.b = append(buf.b, ptype)

	if writePayload != nil {
		if err := writePayload(buf); err != nil {
			return fmt.Errorf("failed to write packet: %w", err)
		}
	}

	buf.b = Endianness.AppendUint32(buf.b, crc32.ChecksumIEEE(buf.b))

	if _, err := w.Write(buf.b); err != nil {
		return fmt.Errorf("failed to write packet: %w", err)
	}
	return nil
}

type packetBuffer struct{ b []byte }

func (b *packetBuffer) Write(p []byte) (int, error) {
	b.b = append(b.b, p...)
	return len(p), nil
}

func readMessage(r io.Reader) (string, error) {
	var length uint16
	if err := binary.Read(r, Endianness, &length); err != nil {
		return "", err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeMessage(w io.Writer, msg string) error {
	if len(msg) > 0xFFFF {
		msg = msg[:0xFFFF]
	}
	if err := binary.Write(w, Endianness, uint16(len(msg))); err != nil {
		return err
	}
	_, err := io.WriteString(w, msg)
	return err
}
