// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2026 the botgate authors

// Package hdlc implements the HDLC-style framing used on the gateway serial
// link: flag-delimited frames with in-band escaping and a trailing FCS-16
// checksum. A frame is either delivered whole or dropped whole; corrupted
// input resynchronizes at the next flag byte.
package hdlc

import "errors"

// Framing bytes
const (
	Flag          = 0x7E
	FlagEscaped   = 0x5E
	Escape        = 0x7D
	EscapeEscaped = 0x5D
	EscapeXor     = 0x20
)

// MaxFrameSize bounds the unescaped size of a single frame, FCS included.
// Anything larger means a flag byte went missing on the wire.
const MaxFrameSize = 256

var (
	// ErrInvalidFCS is returned when a complete frame fails its checksum.
	ErrInvalidFCS = errors.New("hdlc: invalid FCS")
	// ErrTruncated is returned when a frame ends before carrying an FCS.
	ErrTruncated = errors.New("hdlc: truncated frame")
	// ErrOversized is returned when a frame exceeds MaxFrameSize before
	// its closing flag arrives.
	ErrOversized = errors.New("hdlc: oversized frame")
)

func escapeByte(dst []byte, b byte) []byte {
	switch b {
	case Escape:
		return append(dst, Escape, EscapeEscaped)
	case Flag:
		return append(dst, Escape, FlagEscaped)
	default:
		return append(dst, b)
	}
}

// Encode wraps a payload in an HDLC frame: opening flag, escaped payload,
// escaped complemented FCS (little-endian), closing flag.
func Encode(payload []byte) []byte {
	frame := make([]byte, 0, len(payload)+6)
	frame = append(frame, Flag)

	fcs := fcsInit
	for _, b := range payload {
		fcs = fcsUpdate(fcs, b)
		frame = escapeByte(frame, b)
	}
	fcs = ^fcs

	frame = escapeByte(frame, byte(fcs&0xFF))
	frame = escapeByte(frame, byte(fcs>>8))
	frame = append(frame, Flag)
	return frame
}

// Decode unescapes a complete frame (flags included) and verifies its FCS,
// returning the payload.
func Decode(frame []byte) ([]byte, error) {
	if len(frame) < 2 {
		return nil, ErrTruncated
	}
	output := make([]byte, 0, len(frame)-2)
	fcs := fcsInit
	escapeNext := false
	for _, b := range frame[1 : len(frame)-1] {
		switch {
		case b == Escape:
			escapeNext = true
		case escapeNext:
			switch b {
			case EscapeEscaped:
				output = append(output, Escape)
				fcs = fcsUpdate(fcs, Escape)
			case FlagEscaped:
				output = append(output, Flag)
				fcs = fcsUpdate(fcs, Flag)
			}
			escapeNext = false
		default:
			output = append(output, b)
			fcs = fcsUpdate(fcs, b)
		}
	}
	if len(output) < 2 {
		return nil, ErrTruncated
	}
	if fcs != fcsOK {
		return nil, ErrInvalidFCS
	}
	return output[:len(output)-2], nil
}

// Handler decodes HDLC frames from a byte stream arriving in arbitrary
// chunks, preserving partial frame state across calls.
type Handler struct {
	receiving  bool
	escapeNext bool
	fcs        uint16
	output     []byte
}

// NewHandler creates a streaming frame decoder.
func NewHandler() *Handler {
	return &Handler{output: make([]byte, 0, MaxFrameSize)}
}

// Reset discards any partial frame and returns the handler to idle.
func (h *Handler) Reset() {
	h.receiving = false
	h.escapeNext = false
	h.fcs = fcsInit
	h.output = h.output[:0]
}

func (h *Handler) pushByte(b byte) {
	h.output = append(h.output, b)
	h.fcs = fcsUpdate(h.fcs, b)
}

// HandleByte feeds a single byte to the decoder. It returns a non-nil
// payload when a valid frame completes. Errors are per-frame: the handler
// has already resynchronized and can keep being fed.
func (h *Handler) HandleByte(b byte) ([]byte, error) {
	if !h.receiving {
		if b == Flag {
			h.Reset()
			h.receiving = true
		}
		return nil, nil
	}

	if b == Flag {
		// Back-to-back flags share one boundary.
		if len(h.output) == 0 && !h.escapeNext {
			return nil, nil
		}
		payload, err := h.finish()
		h.Reset()
		h.receiving = true
		return payload, err
	}

	if b == Escape {
		h.escapeNext = true
		return nil, nil
	}
	if h.escapeNext {
		h.escapeNext = false
		switch b {
		case EscapeEscaped:
			h.pushByte(Escape)
		case FlagEscaped:
			h.pushByte(Flag)
		}
		// Any other escaped byte is silently dropped, like the reference.
		return h.checkSize()
	}
	h.pushByte(b)
	return h.checkSize()
}

func (h *Handler) checkSize() ([]byte, error) {
	if len(h.output) > MaxFrameSize {
		h.Reset()
		return nil, ErrOversized
	}
	return nil, nil
}

func (h *Handler) finish() ([]byte, error) {
	if len(h.output) < 2 {
		return nil, ErrTruncated
	}
	if h.fcs != fcsOK {
		return nil, ErrInvalidFCS
	}
	payload := make([]byte, len(h.output)-2)
	copy(payload, h.output)
	return payload, nil
}

// Feed runs a chunk of bytes through the decoder and returns every payload
// completed by the chunk. Per-frame errors are reported through onError if
// it is non-nil; decoding always continues with the next frame.
func (h *Handler) Feed(p []byte, onError func(error)) [][]byte {
	var frames [][]byte
	for _, b := range p {
		payload, err := h.HandleByte(b)
		if err != nil && onError != nil {
			onError(err)
		}
		if payload != nil {
			frames = append(frames, payload)
		}
	}
	return frames
}
