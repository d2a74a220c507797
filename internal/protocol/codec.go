package protocol

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"farmdustry.io/internal/sim/catalogs"
)

// Decoding errors. All of them leave the stream unsynchronised; callers must
// drop the connection.
var (
	ErrTruncated   = errors.New("protocol: truncated record")
	ErrUnknownKind = errors.New("protocol: unknown command kind")
	ErrBadLength   = errors.New("protocol: declared length does not match kind")
)

// Encode returns the wire form of c.
func Encode(c Command) []byte {
	return AppendCommand(nil, c)
}

// AppendCommand appends the wire form of c to dst.
func AppendCommand(dst []byte, c Command) []byte {
	k := c.Kind()
	n, ok := k.Size()
	if !ok {
		panic(fmt.Sprintf("protocol: encode of unregistered kind %d", k))
	}
	start := len(dst)
	dst = append(dst, make([]byte, n)...)
	rec := dst[start : start+n]
	rec[0] = byte(n)
	rec[1] = byte(k)
	c.putPayload(rec[HeaderSize:])
	return dst
}

// Decode reads the record starting at buf[off] and returns it together with
// the offset of the next record.
func Decode(buf []byte, off int) (Command, int, error) {
	if off < 0 || off+HeaderSize > len(buf) {
		return nil, off, fmt.Errorf("%w: header at offset %d (buffer %d)", ErrTruncated, off, len(buf))
	}
	n := int(buf[off])
	k := Kind(buf[off+1])
	if err := checkHeader(n, k); err != nil {
		return nil, off, fmt.Errorf("%w (offset %d)", err, off)
	}
	if off+n > len(buf) {
		return nil, off, fmt.Errorf("%w: %s needs %d bytes at offset %d (buffer %d)", ErrTruncated, k, n, off, len(buf))
	}
	return decodePayload(k, buf[off+HeaderSize:off+n]), off + n, nil
}

// DecodeAll decodes a buffer holding zero or more back-to-back records.
func DecodeAll(buf []byte) ([]Command, error) {
	var out []Command
	for off := 0; off < len(buf); {
		c, next, err := Decode(buf, off)
		if err != nil {
			return out, err
		}
		out = append(out, c)
		off = next
	}
	return out, nil
}

func checkHeader(n int, k Kind) error {
	size, ok := k.Size()
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownKind, uint8(k))
	}
	if n != size {
		return fmt.Errorf("%w: %s declared %d, want %d", ErrBadLength, k, n, size)
	}
	return nil
}

// Reader decodes records from a byte stream, reassembling records that were
// split across transport reads.
type Reader struct {
	r   *bufio.Reader
	buf [256]byte
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, 4096)}
}

// Next blocks until a full record is available. It returns io.EOF only on a
// clean record boundary; a stream cut mid-record yields ErrTruncated.
func (r *Reader) Next() (Command, error) {
	hdr := r.buf[:HeaderSize]
	if _, err := io.ReadFull(r.r, hdr); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: stream ended inside header", ErrTruncated)
		}
		return nil, err
	}
	n := int(hdr[0])
	k := Kind(hdr[1])
	if err := checkHeader(n, k); err != nil {
		return nil, err
	}
	payload := r.buf[HeaderSize:n]
	if _, err := io.ReadFull(r.r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: stream ended inside %s", ErrTruncated, k)
		}
		return nil, err
	}
	return decodePayload(k, payload), nil
}

// IsProtocolError reports whether err came from malformed input rather than
// the transport.
func IsProtocolError(err error) bool {
	return errors.Is(err, ErrTruncated) || errors.Is(err, ErrUnknownKind) || errors.Is(err, ErrBadLength)
}

// decodePayload assumes len(p) matches the kind's fixed size.
func decodePayload(k Kind, p []byte) Command {
	switch k {
	case KindTick:
		return Tick{DeltaTime: f32(p[0:])}
	case KindPlantCrop:
		return PlantCrop{PlayerID: p[0], Y: p[1], X: p[2], Crop: catalogs.CropType(p[3])}
	case KindHarvestCrop:
		return HarvestCrop{PlayerID: p[0], Y: p[1], X: p[2]}
	case KindPlaceStructure:
		return PlaceStructure{PlayerID: p[0], Y: p[1], X: p[2], Structure: catalogs.StructureType(p[3])}
	case KindDestroyStructure:
		return DestroyStructure{PlayerID: p[0], Y: p[1], X: p[2]}
	case KindDropItem:
		return DropItem{PlayerID: p[0], Y: f32(p[1:]), X: f32(p[5:]), Item: catalogs.ItemType(p[9]), Amount: i32(p[10:])}
	case KindPickupItem:
		return PickupItem{PlayerID: p[0], Y: f32(p[1:]), X: f32(p[5:])}
	case KindUpdatePlayerLocation:
		return UpdatePlayerLocation{PlayerID: p[0], Y: f32(p[1:]), X: f32(p[5:]), YVelocity: f32(p[9:]), XVelocity: f32(p[13:])}
	case KindAddCrop:
		return AddCrop{Y: p[0], X: p[1], Crop: catalogs.CropType(p[2])}
	case KindRemoveCrop:
		return RemoveCrop{Y: p[0], X: p[1]}
	case KindAddStructure:
		return AddStructure{Y: p[0], X: p[1], Structure: catalogs.StructureType(p[2])}
	case KindRemoveStructure:
		return RemoveStructure{Y: p[0], X: p[1]}
	case KindAddItemToInventory:
		return AddItemToInventory{PlayerID: p[0], Item: catalogs.ItemType(p[1]), Amount: i32(p[2:])}
	case KindRemoveItemFromInventory:
		return RemoveItemFromInventory{PlayerID: p[0], Item: catalogs.ItemType(p[1]), Amount: i32(p[2:])}
	case KindSpawnItemDrop:
		return SpawnItemDrop{Y: f32(p[0:]), X: f32(p[4:]), Item: catalogs.ItemType(p[8]), Amount: i32(p[9:])}
	case KindRemoveItemDrop:
		return RemoveItemDrop{DropID: i32(p[0:])}
	case KindSetPlayerID:
		return SetPlayerID{PlayerID: p[0]}
	}
	panic(fmt.Sprintf("protocol: no decoder for kind %d", k))
}

func putF32(b []byte, v float32) { binary.LittleEndian.PutUint32(b, math.Float32bits(v)) }
func putI32(b []byte, v int32)   { binary.LittleEndian.PutUint32(b, uint32(v)) }
func f32(b []byte) float32       { return math.Float32frombits(binary.LittleEndian.Uint32(b)) }
func i32(b []byte) int32         { return int32(binary.LittleEndian.Uint32(b)) }
