package ogg

// Packet is a logical unit reassembled from one or more page segments.
//
// Packets returned by Reader.ReadPacket borrow their Data from the reader and
// are only valid until the next ReadPacket or ReadPage call; copy the bytes to
// keep them longer. Packets handed to Writer.WritePacket must own their Data
// for the duration of the call.
type Packet struct {
	Data       []byte
	BOS        bool
	EOS        bool
	GranulePos int64
	PacketNo   int64
}
