package wire

import (
	"fmt"
	"io"

	"github.com/marmos91/iscsitgt/internal/pdu"
	"github.com/marmos91/iscsitgt/pkg/bufpool"
)

// Message is a fully parsed PDU: header, optional AHS bytes, and the
// (CRC-verified, de-padded) data segment.
type Message struct {
	Header            *pdu.BHS
	AHS               []byte
	Data              []byte
	HeaderDigestBad   bool
	DataDigestBad     bool
	HeaderDigestSeen  bool
	DataDigestSeen    bool
}

// Release returns the message's pooled data buffer. Safe to call on a
// Message whose Data was not pool-backed (e.g. zero-length).
func (m *Message) Release() {
	if m == nil || m.Data == nil {
		return
	}
	bufpool.Put(m.Data)
	m.Data = nil
}

// ReadMessage reads one PDU from r: the 48-byte BHS, any AHS, the data
// segment (with padding skipped), and header/data digests when negotiated.
// On a header digest mismatch the BHS is still returned with HeaderDigestBad
// set, rather than an error, and the engine's dispatch decides the outcome:
// at ErrorRecoveryLevel 0 it sends a Reject and closes the connection, at
// level 1 or higher it drops the PDU without sending a Reject.
func ReadMessage(r io.Reader, headerDigest, dataDigest bool) (*Message, error) {
	var hdrBuf [BHSLength]byte
	if _, err := io.ReadFull(r, hdrBuf[:]); err != nil {
		return nil, fmt.Errorf("wire: read BHS: %w", err)
	}
	h := DecodeBHS(&hdrBuf)
	msg := &Message{Header: h}

	if headerDigest {
		var digestBuf [4]byte
		if _, err := io.ReadFull(r, digestBuf[:]); err != nil {
			return nil, fmt.Errorf("wire: read header digest: %w", err)
		}
		msg.HeaderDigestSeen = true
		want := be32(digestBuf[:])
		got := CRC32C(hdrBuf[:])
		if want != got {
			msg.HeaderDigestBad = true
			return msg, nil
		}
	}

	if ahsLen := int(h.TotalAHSLength) * 4; ahsLen > 0 {
		ahs := make([]byte, ahsLen)
		if _, err := io.ReadFull(r, ahs); err != nil {
			return nil, fmt.Errorf("wire: read AHS: %w", err)
		}
		msg.AHS = ahs
	}

	if dsLen := int(h.DataSegmentLength); dsLen > 0 {
		data := bufpool.Get(dsLen)
		if _, err := io.ReadFull(r, data); err != nil {
			bufpool.Put(data)
			return nil, fmt.Errorf("wire: read data segment: %w", err)
		}
		if pad := PadLength(dsLen); pad > 0 {
			var padBuf [3]byte
			if _, err := io.ReadFull(r, padBuf[:pad]); err != nil {
				bufpool.Put(data)
				return nil, fmt.Errorf("wire: skip data padding: %w", err)
			}
		}
		msg.Data = data

		if dataDigest {
			var digestBuf [4]byte
			if _, err := io.ReadFull(r, digestBuf[:]); err != nil {
				bufpool.Put(data)
				return nil, fmt.Errorf("wire: read data digest: %w", err)
			}
			msg.DataDigestSeen = true
			want := be32(digestBuf[:])
			got := CRC32C(data)
			if want != got {
				msg.DataDigestBad = true
			}
		}
	}

	return msg, nil
}

// WriteMessage encodes and writes a PDU: BHS, optional header digest, data
// segment with padding, and optional data digest.
func WriteMessage(w io.Writer, h *pdu.BHS, data []byte, headerDigest, dataDigest bool) error {
	var hdrBuf [BHSLength]byte
	h.DataSegmentLength = uint32(len(data))
	EncodeBHS(h, &hdrBuf)

	if _, err := w.Write(hdrBuf[:]); err != nil {
		return fmt.Errorf("wire: write BHS: %w", err)
	}
	if headerDigest {
		var d [4]byte
		putBE32(d[:], CRC32C(hdrBuf[:]))
		if _, err := w.Write(d[:]); err != nil {
			return fmt.Errorf("wire: write header digest: %w", err)
		}
	}
	if len(data) > 0 {
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("wire: write data segment: %w", err)
		}
		if pad := PadLength(len(data)); pad > 0 {
			var padBuf [3]byte
			if _, err := w.Write(padBuf[:pad]); err != nil {
				return fmt.Errorf("wire: write data padding: %w", err)
			}
		}
		if dataDigest {
			var d [4]byte
			putBE32(d[:], CRC32C(data))
			if _, err := w.Write(d[:]); err != nil {
				return fmt.Errorf("wire: write data digest: %w", err)
			}
		}
	}
	return nil
}
