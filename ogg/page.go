// Package ogg is a minimal Ogg framing layer: just enough demultiplexing to
// pull the header packets out of one logical stream, and just enough
// multiplexing to put rewritten ones back, while every other page is carried
// through byte-for-byte.
package ogg

import "encoding/binary"

const (
	headerSize       = 27  // fixed page header bytes before the segment table
	maxSegments      = 255 // segment table entries per page
	maxSegmentLength = 255 // bytes

	continuedFlag = 1 << 0
	firstPageFlag = 1 << 1
	lastPageFlag  = 1 << 2
)

var capturePattern = []byte("OggS")

// Page is one Ogg framing unit. It keeps the raw header and body bytes
// exactly as they appeared in the input, so writing a page back reproduces it
// bit-for-bit, checksum included.
//
// A Page returned by Reader.ReadPage is owned by the reader and valid only
// until the next ReadPage call.
type Page struct {
	header []byte // capture pattern through segment table
	body   []byte
}

// Header returns the raw page header, segment table included.
func (p *Page) Header() []byte { return p.header }

// Body returns the raw page body.
func (p *Page) Body() []byte { return p.body }

func (p *Page) headerType() byte { return p.header[5] }

// IsContinued reports whether the page starts with the continuation of a
// packet from the previous page.
func (p *Page) IsContinued() bool { return p.headerType()&continuedFlag != 0 }

// IsBOS reports whether this is the first page of its logical stream.
func (p *Page) IsBOS() bool { return p.headerType()&firstPageFlag != 0 }

// IsEOS reports whether this is the last page of its logical stream.
func (p *Page) IsEOS() bool { return p.headerType()&lastPageFlag != 0 }

// GranulePos returns the page granule position.
func (p *Page) GranulePos() int64 {
	return int64(binary.LittleEndian.Uint64(p.header[6:14]))
}

// SerialNo returns the logical stream serial number.
func (p *Page) SerialNo() uint32 {
	return binary.LittleEndian.Uint32(p.header[14:18])
}

// PageNo returns the page sequence number.
func (p *Page) PageNo() uint32 {
	return binary.LittleEndian.Uint32(p.header[18:22])
}

func (p *Page) segmentTable() []byte { return p.header[headerSize:] }
