package buffer

import "encoding/binary"

// Save-log record framing (C4: spec.md §4.4). Every record is a fixed
// header, an optional payload, and a trailer that lets Undo walk the
// log backwards without ever having scanned it forwards first —
// modeled on the teacher's wal.go record framing (header + payload +
// CRC trailer), minus the CRC: the log is an in-memory sibling buffer,
// not a crash-recovery artifact, so there is nothing to checksum
// against.
//
//	header:  op(1) wasModified(1) offset(8) size(8)  = 18 bytes
//	payload: size bytes, present only for DELETE and WRITE
//	trailer: payloadSize(8)                          = 8 bytes
const (
	logHeaderSize  = 1 + 1 + 8 + 8
	logTrailerSize = 8
)

func marshalLogHeader(op Op, offset, size int64, wasModified bool) []byte {
	buf := make([]byte, logHeaderSize)
	buf[0] = byte(op)
	if wasModified {
		buf[1] = 1
	}
	binary.LittleEndian.PutUint64(buf[2:10], uint64(offset))
	binary.LittleEndian.PutUint64(buf[10:18], uint64(size))
	return buf
}

func unmarshalLogHeader(buf []byte) (op Op, offset, size int64, wasModified bool) {
	op = Op(buf[0])
	wasModified = buf[1] != 0
	offset = int64(binary.LittleEndian.Uint64(buf[2:10]))
	size = int64(binary.LittleEndian.Uint64(buf[10:18]))
	return
}

func marshalLogTrailer(payloadSize int64) []byte {
	buf := make([]byte, logTrailerSize)
	binary.LittleEndian.PutUint64(buf, uint64(payloadSize))
	return buf
}

func unmarshalLogTrailer(buf []byte) int64 {
	return int64(binary.LittleEndian.Uint64(buf))
}
