package scrub

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// JPEG markers.
const (
	markerSOI   = 0xD8
	markerEOI   = 0xD9
	markerSOS   = 0xDA
	markerAPP0  = 0xE0
	markerAPP1  = 0xE1
	markerAPP2  = 0xE2
	markerAPP12 = 0xEC
	markerAPP13 = 0xED
	markerAPP14 = 0xEE
	markerAPP15 = 0xEF
	markerCOM   = 0xFE
)

var (
	errNotJPEG       = errors.New("not a JPEG stream")
	errBadJPEGLength = errors.New("invalid JPEG segment length")
)

// filterJPEG copies a JPEG, dropping segments that carry EXIF, GPS, XMP,
// IPTC, thumbnails or comments. Entropy-coded data after SOS is copied as is.
func filterJPEG(dst io.Writer, src io.Reader) error {
	r := bufio.NewReader(src)
	var soi [2]byte
	if _, err := io.ReadFull(r, soi[:]); err != nil {
		return fmt.Errorf("read SOI: %w", err)
	}
	if soi[0] != 0xFF || soi[1] != markerSOI {
		return errNotJPEG
	}
	if _, err := dst.Write(soi[:]); err != nil {
		return err
	}

	for {
		marker, err := nextMarker(r)
		if err != nil {
			return err
		}
		switch {
		case marker == markerEOI:
			_, err := dst.Write([]byte{0xFF, marker})
			return err
		case marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7):
			if _, err := dst.Write([]byte{0xFF, marker}); err != nil {
				return err
			}
			continue
		}

		var lenBuf [2]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return fmt.Errorf("read segment length: %w", err)
		}
		length := binary.BigEndian.Uint16(lenBuf[:])
		if length < 2 {
			return errBadJPEGLength
		}
		payload := make([]byte, length-2)
		if _, err := io.ReadFull(r, payload); err != nil {
			return fmt.Errorf("read segment 0x%X: %w", marker, err)
		}

		if dropJPEGSegment(marker, payload) {
			continue
		}
		if _, err := dst.Write([]byte{0xFF, marker}); err != nil {
			return err
		}
		if _, err := dst.Write(lenBuf[:]); err != nil {
			return err
		}
		if _, err := dst.Write(payload); err != nil {
			return err
		}

		if marker == markerSOS {
			// Scan data and any later segments run to the end of the file.
			_, err := io.Copy(dst, r)
			return err
		}
	}
}

func nextMarker(r *bufio.Reader) (byte, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("read marker: %w", err)
	}
	if b != 0xFF {
		return 0, fmt.Errorf("expected marker, got 0x%02X", b)
	}
	for {
		m, err := r.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("read marker: %w", err)
		}
		if m != 0xFF { // fill bytes
			return m, nil
		}
	}
}

func dropJPEGSegment(marker byte, payload []byte) bool {
	switch marker {
	case markerAPP0:
		// JFXX carries an embedded thumbnail; JFIF is kept.
		return bytes.HasPrefix(payload, []byte("JFXX\x00"))
	case markerAPP2:
		// ICC profiles are needed for colour; MPF and FlashPix are not.
		return !bytes.HasPrefix(payload, []byte("ICC_PROFILE\x00"))
	case markerAPP14:
		// Adobe APP14 tells decoders the colour transform.
		return !bytes.HasPrefix(payload, []byte("Adobe"))
	case markerAPP1, markerAPP12, markerAPP13, markerAPP15, markerCOM:
		return true
	default:
		return false
	}
}
