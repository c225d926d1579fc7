package ogg

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opusedit/status"
)

// buildStream assembles a one-stream Ogg file in memory, one flushed page per
// packet group.
func buildStream(t *testing.T, serial uint32, pages ...[]*Packet) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.PrepareStream(serial)
	for _, packets := range pages {
		for _, p := range packets {
			require.NoError(t, w.WritePacket(p))
		}
		require.NoError(t, w.FlushPage())
	}
	return buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	input := buildStream(t, 42,
		[]*Packet{{Data: []byte("first packet"), BOS: true}},
		[]*Packet{{Data: []byte("second packet"), GranulePos: 960}},
		[]*Packet{
			{Data: []byte("third"), GranulePos: 1920},
			{Data: []byte("fourth"), GranulePos: 2880, EOS: true},
		},
	)

	r := NewReader(bytes.NewReader(input))

	page, err := r.ReadPage()
	require.NoError(t, err)
	assert.EqualValues(t, 42, page.SerialNo())
	assert.EqualValues(t, 0, page.PageNo())
	assert.True(t, page.IsBOS())
	assert.False(t, page.IsEOS())

	packet, err := r.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, []byte("first packet"), packet.Data)
	assert.True(t, packet.BOS)
	assert.EqualValues(t, 0, packet.PacketNo)

	_, err = r.ReadPacket()
	assert.Equal(t, status.EndOfPage, status.CodeOf(err))

	page, err = r.ReadPage()
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.PageNo())
	packet, err = r.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, []byte("second packet"), packet.Data)
	assert.False(t, packet.BOS)
	assert.EqualValues(t, 960, packet.GranulePos)
	assert.EqualValues(t, 1, packet.PacketNo)

	page, err = r.ReadPage()
	require.NoError(t, err)
	assert.True(t, page.IsEOS())

	packet, err = r.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, []byte("third"), packet.Data)
	assert.False(t, packet.EOS)
	assert.EqualValues(t, -1, packet.GranulePos, "only the last packet of a page carries the granule position")

	packet, err = r.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, []byte("fourth"), packet.Data)
	assert.True(t, packet.EOS)
	assert.EqualValues(t, 2880, packet.GranulePos)

	_, err = r.ReadPacket()
	assert.Equal(t, status.EndOfPage, status.CodeOf(err))

	_, err = r.ReadPage()
	assert.Equal(t, status.EndOfStream, status.CodeOf(err))
}

func TestReadPacketBeforeAnyPage(t *testing.T) {
	r := NewReader(bytes.NewReader(nil))
	_, err := r.ReadPacket()
	assert.Equal(t, status.StreamNotReady, status.CodeOf(err))
}

func TestEmptyInput(t *testing.T) {
	r := NewReader(bytes.NewReader(nil))
	_, err := r.ReadPage()
	assert.Equal(t, status.EndOfStream, status.CodeOf(err))
}

func TestTruncatedPage(t *testing.T) {
	input := buildStream(t, 7, []*Packet{{Data: []byte("cut short"), BOS: true}})
	r := NewReader(bytes.NewReader(input[:len(input)-3]))
	_, err := r.ReadPage()
	assert.Equal(t, status.FramingError, status.CodeOf(err))
}

func TestChecksumMismatch(t *testing.T) {
	input := buildStream(t, 7, []*Packet{{Data: []byte("payload"), BOS: true}})
	input[len(input)-1] ^= 0xff
	r := NewReader(bytes.NewReader(input))
	_, err := r.ReadPage()
	assert.Equal(t, status.FramingError, status.CodeOf(err))
}

func TestLostCapturePattern(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte("definitely not an Ogg stream, not even close")))
	_, err := r.ReadPage()
	assert.Equal(t, status.FramingError, status.CodeOf(err))
}

func TestForeignSerialIsNotDemultiplexed(t *testing.T) {
	ours := buildStream(t, 1, []*Packet{{Data: []byte("ours"), BOS: true}})
	foreign := buildStream(t, 2, []*Packet{{Data: []byte("theirs"), BOS: true}})
	input := append(append([]byte(nil), ours...), foreign...)

	r := NewReader(bytes.NewReader(input))

	page, err := r.ReadPage()
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.SerialNo())
	_, err = r.ReadPacket()
	require.NoError(t, err)

	// The foreign page is returned for pass-through but yields no packet.
	page, err = r.ReadPage()
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.SerialNo())
	_, err = r.ReadPacket()
	assert.Equal(t, status.EndOfPage, status.CodeOf(err))
}

func TestWritePageVerbatim(t *testing.T) {
	input := buildStream(t, 9,
		[]*Packet{{Data: []byte("page zero"), BOS: true}},
		[]*Packet{{Data: []byte("page one"), GranulePos: 960}},
	)

	r := NewReader(bytes.NewReader(input))
	var out bytes.Buffer
	w := NewWriter(&out)
	for {
		page, err := r.ReadPage()
		if status.CodeOf(err) == status.EndOfStream {
			break
		}
		require.NoError(t, err)
		require.NoError(t, w.WritePage(page))
	}
	assert.Equal(t, input, out.Bytes())
}

// TestPacketSpanningPages drives a packet bigger than one page through the
// writer and back through the reader.
func TestPacketSpanningPages(t *testing.T) {
	big := make([]byte, maxSegments*maxSegmentLength+10)
	for i := range big {
		big[i] = byte(i)
	}
	input := buildStream(t, 5,
		[]*Packet{{Data: []byte("head"), BOS: true}},
		[]*Packet{{Data: big, GranulePos: 960}},
	)

	r := NewReader(bytes.NewReader(input))
	_, err := r.ReadPage()
	require.NoError(t, err)
	_, err = r.ReadPacket()
	require.NoError(t, err)

	// First spilled page: every lacing value is 255, no packet completes.
	page, err := r.ReadPage()
	require.NoError(t, err)
	assert.False(t, page.IsContinued())
	assert.EqualValues(t, -1, page.GranulePos())
	_, err = r.ReadPacket()
	require.Equal(t, status.EndOfPage, status.CodeOf(err))

	// Continuation page completes the packet.
	page, err = r.ReadPage()
	require.NoError(t, err)
	assert.True(t, page.IsContinued())
	packet, err := r.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, big, packet.Data)
	assert.EqualValues(t, 960, packet.GranulePos)
}

// A packet whose size is a multiple of 255 needs a terminating zero lacing
// value, otherwise the reader would merge it with the next packet.
func TestPacketSizeMultipleOf255(t *testing.T) {
	data := bytes.Repeat([]byte{'x'}, 510)
	input := buildStream(t, 3,
		[]*Packet{
			{Data: data, BOS: true},
			{Data: []byte("next")},
		},
	)

	r := NewReader(bytes.NewReader(input))
	_, err := r.ReadPage()
	require.NoError(t, err)

	packet, err := r.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, data, packet.Data)

	packet, err = r.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, []byte("next"), packet.Data)
}

func TestPrepareStreamRebinding(t *testing.T) {
	var out bytes.Buffer
	w := NewWriter(&out)

	w.PrepareStream(1)
	require.NoError(t, w.WritePacket(&Packet{Data: []byte("kept"), BOS: true}))
	require.NoError(t, w.FlushPage())

	// Same serial: cheap no-op, the page counter keeps running.
	w.PrepareStream(1)
	require.NoError(t, w.WritePacket(&Packet{Data: []byte("second")}))

	// Different serial: the unflushed packet is dropped.
	w.PrepareStream(2)
	require.NoError(t, w.FlushPage())

	r := NewReader(bytes.NewReader(out.Bytes()))
	page, err := r.ReadPage()
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.SerialNo())
	_, err = r.ReadPage()
	assert.Equal(t, status.EndOfStream, status.CodeOf(err), "the dropped packet must not have been written")
}

func TestWritePacketBeforePrepare(t *testing.T) {
	w := NewWriter(&bytes.Buffer{})
	err := w.WritePacket(&Packet{Data: []byte("data")})
	assert.Equal(t, status.StreamNotReady, status.CodeOf(err))
}
