package ogg

import (
	"bytes"
	"encoding/binary"
	"io"

	"opusedit/status"
)

const readChunkSize = 4096

// Reader demultiplexes an Ogg byte stream into pages and packets.
//
// Call ReadPage until status.EndOfStream to walk the stream. The first page
// read binds the reader to that page's logical stream: packets are only
// extracted from pages bearing the same serial number, while foreign pages
// are still returned so the caller can pass them through untouched.
//
// The reader does not own the source and never closes it.
type Reader struct {
	src      io.Reader
	pending  []byte // unframed input bytes, current page at the front
	scratch  []byte
	consumed int // length of the page currently handed out
	page     Page
	havePage bool

	serial      uint32
	streamReady bool

	// Packet reassembly over the current page.
	segIdx   int
	bodyPos  int
	partial  []byte
	inPacket bool
	discard  bool
	packetNo int64
	packet   Packet
}

func NewReader(src io.Reader) *Reader {
	return &Reader{src: src}
}

// ReadPage frames the next page from the source. The returned page is owned
// by the reader and valid until the next ReadPage call. After the last page,
// every call returns status.EndOfStream.
func (r *Reader) ReadPage() (*Page, error) {
	// Drop the page handed out by the previous call.
	r.pending = r.pending[r.consumed:]
	r.consumed = 0
	r.havePage = false

	for {
		total, err := r.framePage()
		if err != nil {
			return nil, err
		}
		if total > 0 {
			headerLen := headerSize + int(r.pending[26])
			r.page = Page{
				header: r.pending[:headerLen],
				body:   r.pending[headerLen:total],
			}
			r.consumed = total
			r.havePage = true
			if !r.streamReady {
				r.serial = r.page.SerialNo()
				r.streamReady = true
			}
			if r.page.SerialNo() == r.serial {
				r.feedPage()
			}
			return &r.page, nil
		}

		if r.scratch == nil {
			r.scratch = make([]byte, readChunkSize)
		}
		n, err := r.src.Read(r.scratch)
		if n > 0 {
			r.pending = append(r.pending, r.scratch[:n]...)
			continue
		}
		if err == io.EOF {
			if len(r.pending) == 0 {
				return nil, status.New(status.EndOfStream, "end of stream")
			}
			return nil, status.New(status.FramingError,
				"the stream ends in the middle of a page")
		}
		if err != nil {
			return nil, status.Wrap(status.StandardError, err, "could not read the input")
		}
	}
}

// framePage checks whether pending starts with a complete page and returns
// its total length, or 0 when more bytes are needed.
func (r *Reader) framePage() (int, error) {
	b := r.pending
	if len(b) < headerSize {
		return 0, nil
	}
	if !bytes.Equal(b[:4], capturePattern) {
		return 0, status.New(status.FramingError, "lost the page capture pattern")
	}
	if b[4] != 0 {
		return 0, status.New(status.FramingError,
			"unsupported stream structure version %d", b[4])
	}
	headerLen := headerSize + int(b[26])
	if len(b) < headerLen {
		return 0, nil
	}
	bodyLen := 0
	for _, lace := range b[headerSize:headerLen] {
		bodyLen += int(lace)
	}
	total := headerLen + bodyLen
	if len(b) < total {
		return 0, nil
	}

	var zero [4]byte
	crc := crcUpdate(0, b[:22])
	crc = crcUpdate(crc, zero[:])
	crc = crcUpdate(crc, b[26:total])
	if crc != binary.LittleEndian.Uint32(b[22:26]) {
		return 0, status.New(status.FramingError, "page checksum mismatch")
	}
	return total, nil
}

// feedPage rewinds the packet cursor onto the freshly read page.
func (r *Reader) feedPage() {
	r.segIdx = 0
	r.bodyPos = 0
	if r.page.IsContinued() {
		// A continuation of a packet we never saw the start of must be
		// swallowed without being surfaced as a packet.
		if !r.inPacket {
			r.discard = true
		}
	} else if r.inPacket {
		// The previous page promised a continuation that never came.
		r.partial = nil
		r.inPacket = false
	}
}

// ReadPacket returns the next packet assembled from the current page. The
// packet borrows its bytes from the reader and is valid until the next
// ReadPacket or ReadPage call. Once the page is exhausted it returns
// status.EndOfPage; before any page was read, status.StreamNotReady.
func (r *Reader) ReadPacket() (*Packet, error) {
	if !r.streamReady {
		return nil, status.New(status.StreamNotReady,
			"a page must be read before packets can be extracted")
	}
	if !r.havePage || r.page.SerialNo() != r.serial {
		return nil, status.New(status.EndOfPage, "no packet left in the current page")
	}

	segs := r.page.segmentTable()
	body := r.page.body
	for r.segIdx < len(segs) {
		n := int(segs[r.segIdx])
		seg := body[r.bodyPos : r.bodyPos+n]
		r.segIdx++
		r.bodyPos += n
		if !r.discard {
			r.partial = append(r.partial, seg...)
			r.inPacket = true
		}
		if n == maxSegmentLength {
			// The packet continues in the next segment, or on the
			// next page if this was the last one.
			continue
		}
		if r.discard {
			r.discard = false
			continue
		}

		data := r.partial
		r.partial = nil
		r.inPacket = false
		last := r.segIdx == len(segs)
		r.packet = Packet{
			Data:       data,
			BOS:        r.page.IsBOS() && r.packetNo == 0,
			EOS:        r.page.IsEOS() && last,
			GranulePos: -1,
			PacketNo:   r.packetNo,
		}
		if last {
			r.packet.GranulePos = r.page.GranulePos()
		}
		r.packetNo++
		return &r.packet, nil
	}
	return nil, status.New(status.EndOfPage, "no packet left in the current page")
}
