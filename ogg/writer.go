package ogg

import (
	"encoding/binary"
	"io"

	"opusedit/status"
)

// Writer multiplexes pages back into an Ogg byte stream. It has two mutually
// exclusive modes:
//
//  1. WritePage copies a whole page to the sink verbatim, checksum included.
//  2. PrepareStream, then WritePacket one or more times, then FlushPage, to
//     assemble fresh pages with a recomputed segment table and checksum.
//
// Switching from packet mode back to page mode without calling FlushPage
// first drops the page under assembly; always flush at the boundary.
//
// The writer does not own the sink and never closes it.
type Writer struct {
	dst io.Writer

	prepared bool
	serial   uint32
	pageNo   uint32

	lacing      []byte
	body        []byte
	granule     int64
	bos         bool
	eos         bool
	continued   bool // the page under assembly continues a spilled packet
	packetEnded bool // a packet completed inside the page under assembly
}

func NewWriter(dst io.Writer) *Writer {
	return &Writer{dst: dst}
}

// WritePage copies a page to the sink byte-for-byte. No packet state is
// involved, not even the prepared stream.
func (w *Writer) WritePage(p *Page) error {
	if _, err := w.dst.Write(p.header); err != nil {
		return status.Wrap(status.StandardError, err, "could not write the page header")
	}
	if _, err := w.dst.Write(p.body); err != nil {
		return status.Wrap(status.StandardError, err, "could not write the page body")
	}
	return nil
}

// PrepareStream binds the packet-assembly state to a logical stream. Calling
// it again with the same serial number is a cheap no-op; a different serial
// number resets the assembly, dropping any unflushed packets.
func (w *Writer) PrepareStream(serial uint32) {
	if w.prepared && w.serial == serial {
		return
	}
	*w = Writer{dst: w.dst, prepared: true, serial: serial}
}

// WritePacket appends a packet to the page under assembly. The packet's
// stream must match the prepared serial number; call PrepareStream first when
// the packet comes from a different page. A packet too large for the page
// spills into follow-up pages flushed on the spot, with the continuation flag
// set.
func (w *Writer) WritePacket(p *Packet) error {
	if !w.prepared {
		return status.New(status.StreamNotReady,
			"the stream must be prepared before writing packets")
	}
	if p.BOS && w.pageNo == 0 && len(w.lacing) == 0 {
		w.bos = true
	}

	offset := 0
	for {
		if len(w.lacing) == maxSegments {
			if err := w.flush(true); err != nil {
				return err
			}
		}
		n := len(p.Data) - offset
		if n > maxSegmentLength {
			n = maxSegmentLength
		}
		w.lacing = append(w.lacing, byte(n))
		w.body = append(w.body, p.Data[offset:offset+n]...)
		offset += n
		// A lacing value below 255 ends the packet; a packet whose
		// size is a multiple of 255 therefore needs a zero lacing
		// value behind it, which is what the next iteration appends.
		if n < maxSegmentLength {
			break
		}
	}

	w.granule = p.GranulePos
	w.packetEnded = true
	if p.EOS {
		w.eos = true
	}
	return nil
}

// FlushPage finalizes and writes the page under assembly, then resets the
// assembly state so the next packet starts a new page. Flushing with nothing
// to write is a no-op.
func (w *Writer) FlushPage() error {
	if !w.prepared {
		return status.New(status.StreamNotReady, "no stream was prepared")
	}
	if len(w.lacing) == 0 {
		return nil
	}
	return w.flush(false)
}

func (w *Writer) flush(continuedNext bool) error {
	var headerType byte
	if w.continued {
		headerType |= continuedFlag
	}
	if w.bos {
		headerType |= firstPageFlag
	}
	if w.eos {
		headerType |= lastPageFlag
	}
	// A page on which no packet completes carries no granule position.
	granule := w.granule
	if !w.packetEnded {
		granule = -1
	}

	header := make([]byte, 0, headerSize+len(w.lacing))
	header = append(header, capturePattern...)
	header = append(header, 0, headerType)
	header = binary.LittleEndian.AppendUint64(header, uint64(granule))
	header = binary.LittleEndian.AppendUint32(header, w.serial)
	header = binary.LittleEndian.AppendUint32(header, w.pageNo)
	header = append(header, 0, 0, 0, 0) // checksum, patched below
	header = append(header, byte(len(w.lacing)))
	header = append(header, w.lacing...)

	crc := crcUpdate(0, header)
	crc = crcUpdate(crc, w.body)
	binary.LittleEndian.PutUint32(header[22:26], crc)

	if _, err := w.dst.Write(header); err != nil {
		return status.Wrap(status.StandardError, err, "could not write the page header")
	}
	if _, err := w.dst.Write(w.body); err != nil {
		return status.Wrap(status.StandardError, err, "could not write the page body")
	}

	w.pageNo++
	w.lacing = w.lacing[:0]
	w.body = w.body[:0]
	w.bos = false
	w.continued = continuedNext
	w.packetEnded = false
	if !continuedNext {
		w.eos = false
	}
	return nil
}
