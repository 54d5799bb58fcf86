package onion

import "encoding/binary"

// EncodeFrame builds the canonical wire frame: a little-endian u32 length
// prefix, the blob, then the metadata occupying the remainder with no
// trailing length. Endianness is fixed at little-endian regardless of
// host byte order.
func EncodeFrame(blob, metadata []byte) []byte {
	out := make([]byte, 4+len(blob)+len(metadata))
	binary.LittleEndian.PutUint32(out[:4], uint32(len(blob)))
	copy(out[4:4+len(blob)], blob)
	copy(out[4+len(blob):], metadata)
	return out
}

// DecodeFrame inverts EncodeFrame. It fails MalformedFrame if the length
// prefix is missing or overruns the buffer.
func DecodeFrame(data []byte) (blob, metadata []byte, err error) {
	if len(data) < 4 {
		return nil, nil, &Error{Kind: MalformedFrame, Msg: "frame shorter than the length prefix"}
	}
	blobLen := binary.LittleEndian.Uint32(data[:4])
	if uint64(blobLen) > uint64(len(data)-4) {
		return nil, nil, &Error{Kind: MalformedFrame, Msg: "length prefix overruns buffer"}
	}
	blob = data[4 : 4+blobLen]
	metadata = data[4+blobLen:]
	return blob, metadata, nil
}
