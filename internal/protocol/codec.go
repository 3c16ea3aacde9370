package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Decode errors. DecodeResponse still returns Unknown alongside them; they
// only exist so callers can log why.
var (
	ErrNoData           = errors.New("no response data available")
	ErrProtocolMismatch = errors.New("response does not match request")
	ErrTruncated        = errors.New("response truncated")
)

// MaxFrameSize is the longest message in either direction: tag + two timers.
const MaxFrameSize = 5

// EncodeRequest serialises a request: the tag byte, then each present timer
// as a big-endian uint16. The result is 1, 3 or 5 bytes.
func EncodeRequest(req Request) []byte {
	return encode(req.Kind, req.Seconds1, req.Seconds2)
}

// EncodeResponse serialises a reply the way the pot firmware does.
// Used by the simulator.
func EncodeResponse(resp Response) []byte {
	return encode(resp.Kind, resp.Seconds1, resp.Seconds2)
}

func encode(kind Kind, s1, s2 *uint16) []byte {
	out := make([]byte, 1, MaxFrameSize)
	out[0] = kind.Tag()
	if s1 != nil {
		out = binary.BigEndian.AppendUint16(out, *s1)
	}
	if s2 != nil {
		out = binary.BigEndian.AppendUint16(out, *s2)
	}
	return out
}

// DecodeResponse interprets the pot's reply to a request of kind sent.
//
// r should hold the bytes already received (the client drains the socket
// before decoding); an empty reader fails with ErrNoData straight away.
// How trailing bytes are read depends on sent, not on the received tag:
//   - control kinds accept only Acknowledge and read nothing further;
//   - QueryState reads one timer after Warm/Delay and two after Schedule.
//
// On any error the returned Response is Unknown.
func DecodeResponse(r io.Reader, sent Kind) (Response, error) {
	var tag [1]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Unknown(), ErrNoData
		}
		return Unknown(), fmt.Errorf("failed to read response tag: %w", err)
	}

	got, err := ParseKind(tag[0])
	if err != nil {
		return Unknown(), err
	}

	if sent.IsControl() {
		if got == KindAcknowledge {
			return Response{Kind: KindAcknowledge}, nil
		}
		return Unknown(), fmt.Errorf("%w: sent %s, received %s", ErrProtocolMismatch, sent, got)
	}

	resp := Response{Kind: got}
	if sent != KindQueryState {
		// Not a valid request kind; hand back the tag as-is.
		return resp, nil
	}

	switch got.TimerCount() {
	case 2:
		if resp.Seconds1, err = readTimer(r); err != nil {
			return Unknown(), err
		}
		if resp.Seconds2, err = readTimer(r); err != nil {
			return Unknown(), err
		}
	case 1:
		if resp.Seconds1, err = readTimer(r); err != nil {
			return Unknown(), err
		}
	}
	return resp, nil
}

// DecodeRequest reads a request the way the pot firmware does: the tag, then
// the timers implied by the tag. Used by the simulator.
func DecodeRequest(r io.Reader) (Request, error) {
	var tag [1]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Request{Kind: KindUnknown}, ErrNoData
		}
		return Request{Kind: KindUnknown}, fmt.Errorf("failed to read request tag: %w", err)
	}

	kind, err := ParseKind(tag[0])
	if err != nil {
		return Request{Kind: KindUnknown}, err
	}

	req := Request{Kind: kind}
	if n := kind.TimerCount(); n > 0 {
		if req.Seconds1, err = readTimer(r); err != nil {
			return Request{Kind: KindUnknown}, err
		}
		if n > 1 {
			if req.Seconds2, err = readTimer(r); err != nil {
				return Request{Kind: KindUnknown}, err
			}
		}
	}
	return req, nil
}

// readTimer reads one big-endian uint16.
func readTimer(r io.Reader) (*uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	v := binary.BigEndian.Uint16(buf[:])
	return &v, nil
}
