// Package opus decodes and recodes the header packets of an Ogg-Opus stream.
// Only the two header packets are understood: the identification header
// ("OpusHead") and the comment header ("OpusTags"). Audio packets are never
// interpreted.
package opus

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"

	"opusedit/ogg"
	"opusedit/status"
)

const (
	tagsMagic = "OpusTags"
	headMagic = "OpusHead"
)

// Tags holds the logical content of an OpusTags packet.
type Tags struct {
	// Vendor identifies the implementation of the encoder. It is an
	// arbitrary UTF-8 string, kept opaque.
	Vendor string
	// Comments are NAME=VALUE strings. The field name is conventionally
	// case-insensitive ASCII, but this package never normalizes it; the
	// insertion order is preserved and reproduced on encode.
	Comments []string
	// ExtraData is whatever follows the last comment. RFC 7845 allows
	// zero-padding or other binary data there. It is carried through
	// verbatim, embedded zero bytes included.
	ExtraData []byte
}

// ParseTags decodes an OpusTags packet. The decode is all-or-nothing: on any
// failure the returned Tags is the zero value and the error carries the exact
// status code for the field that ran out of bytes. No byte past len(packet)
// is ever touched.
func ParseTags(packet []byte) (Tags, error) {
	var tags Tags
	if len(packet) < len(tagsMagic) {
		return Tags{}, status.New(status.CutMagicNumber,
			"the packet is too short to even contain the magic number")
	}
	if string(packet[:len(tagsMagic)]) != tagsMagic {
		return Tags{}, status.New(status.BadMagicNumber,
			"the magic number of the comment header is not %s", tagsMagic)
	}
	cursor := len(tagsMagic)

	vendor, cursor, err := readLengthPrefixed(packet, cursor,
		status.CutVendorLength, status.CutVendorData)
	if err != nil {
		return Tags{}, err
	}
	tags.Vendor = string(vendor)

	if len(packet)-cursor < 4 {
		return Tags{}, status.New(status.CutCommentCount,
			"the packet ends before the comment count")
	}
	count := binary.LittleEndian.Uint32(packet[cursor:])
	cursor += 4

	for i := uint32(0); i < count; i++ {
		var comment []byte
		comment, cursor, err = readLengthPrefixed(packet, cursor,
			status.CutCommentLength, status.CutCommentData)
		if err != nil {
			return Tags{}, err
		}
		tags.Comments = append(tags.Comments, string(comment))
	}

	tags.ExtraData = append([]byte(nil), packet[cursor:]...)
	return tags, nil
}

// readLengthPrefixed reads a 32-bit little-endian length followed by that many
// bytes. The overflow guard runs before any slicing so that a hostile length
// can never move the cursor out of range, even on 32-bit platforms.
func readLengthPrefixed(packet []byte, cursor int, cutLength, cutData status.Code) ([]byte, int, error) {
	if len(packet)-cursor < 4 {
		return nil, 0, status.New(cutLength, "the packet ends in the middle of a length field")
	}
	length := binary.LittleEndian.Uint32(packet[cursor:])
	cursor += 4
	if uint64(length) > uint64(math.MaxInt-cursor) {
		return nil, 0, status.New(status.IntOverflow,
			"a length field of %d bytes would overflow the read cursor", length)
	}
	if int(length) > len(packet)-cursor {
		return nil, 0, status.New(cutData,
			"the packet declares %d bytes of data but only %d remain", length, len(packet)-cursor)
	}
	data := packet[cursor : cursor+int(length)]
	return data, cursor + int(length), nil
}

// RenderTags serializes tags into a fresh OpusTags packet. It is the exact
// inverse of ParseTags; the comment content is not validated, arbitrary bytes
// go through untouched. The returned packet owns its buffer and is positioned
// as the second packet of the stream.
func RenderTags(tags Tags) *ogg.Packet {
	size := len(tagsMagic) + 4 + len(tags.Vendor) + 4
	for _, comment := range tags.Comments {
		size += 4 + len(comment)
	}
	size += len(tags.ExtraData)

	data := make([]byte, 0, size)
	data = append(data, tagsMagic...)
	data = binary.LittleEndian.AppendUint32(data, uint32(len(tags.Vendor)))
	data = append(data, tags.Vendor...)
	data = binary.LittleEndian.AppendUint32(data, uint32(len(tags.Comments)))
	for _, comment := range tags.Comments {
		data = binary.LittleEndian.AppendUint32(data, uint32(len(comment)))
		data = append(data, comment...)
	}
	data = append(data, tags.ExtraData...)

	return &ogg.Packet{
		Data:     data,
		PacketNo: 1,
	}
}

// DeleteComments removes every comment whose field name equals fieldName,
// byte-for-byte and case-sensitive. Comments without an equals sign never
// match. The relative order of the surviving comments is preserved.
func DeleteComments(tags *Tags, fieldName string) {
	kept := tags.Comments[:0]
	for _, comment := range tags.Comments {
		name, _, found := strings.Cut(comment, "=")
		if found && name == fieldName {
			continue
		}
		kept = append(kept, comment)
	}
	tags.Comments = kept
}

// ValidateIdentificationHeader checks that the first packet of the stream is
// a conformant OpusHead. Only the magic number is inspected; the rest of the
// header is forwarded as-is and left to the decoder.
func ValidateIdentificationHeader(packet []byte) error {
	if len(packet) < len(headMagic) {
		return status.New(status.CutMagicNumber,
			"the identification header is too short to contain the magic number")
	}
	if !bytes.HasPrefix(packet, []byte(headMagic)) {
		return status.New(status.BadMagicNumber,
			"the identification header does not begin with %s", headMagic)
	}
	return nil
}
