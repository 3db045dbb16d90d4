package xnet

import "encoding/binary"

// FrameMagic opens every wire frame. Receivers that see anything else
// in the first 4 bytes must treat the frame as malformed.
const FrameMagic uint32 = 0xA5A5A5A5

// FrameHeaderSize is the fixed header length: 4-byte magic + 4-byte
// big-endian payload length. There is no version byte and no checksum.
const FrameHeaderSize = 8

// buildFrameHeader writes the 8-byte header for a payload of the given
// length into hdr, which must be at least FrameHeaderSize bytes.
func buildFrameHeader(hdr []byte, payloadLen int) {
	binary.BigEndian.PutUint32(hdr[0:4], FrameMagic)
	binary.BigEndian.PutUint32(hdr[4:8], uint32(payloadLen))
}

// parseHead reads a frame header from buf. It requires at least
// FrameHeaderSize bytes and returns the decoded payload length and ok;
// ok is false if buf is too short or the magic does not match, in
// which case the caller must stop consuming the buffer (spec.md §7:
// a bad-magic frame aborts parsing of the current buffer without
// closing the connection).
func parseHead(buf []byte) (dataLen int, ok bool) {
	if len(buf) < FrameHeaderSize {
		return 0, false
	}
	magic := binary.BigEndian.Uint32(buf[0:4])
	if magic != FrameMagic {
		return 0, false
	}
	return int(binary.BigEndian.Uint32(buf[4:8])), true
}
