package scrub

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// VP8X feature flags describing metadata chunks.
const (
	vp8xFlagEXIF = 0x08
	vp8xFlagXMP  = 0x04
)

var droppedWebPChunks = map[string]bool{
	"EXIF": true,
	"XMP ": true,
}

var errNotWebP = errors.New("not a WebP stream")

// filterWebP copies a RIFF/WEBP file without its EXIF and XMP chunks and
// clears the matching VP8X flags. The RIFF size in the header depends on
// what is dropped, so the filtered body is buffered before writing.
func filterWebP(dst io.Writer, src io.Reader) error {
	var head [12]byte
	if _, err := io.ReadFull(src, head[:]); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if string(head[:4]) != "RIFF" || string(head[8:12]) != "WEBP" {
		return errNotWebP
	}
	remaining := int64(binary.LittleEndian.Uint32(head[4:8])) - 4

	var body bytes.Buffer
	body.WriteString("WEBP")
	var ch [8]byte
	for remaining >= int64(len(ch)) {
		if _, err := io.ReadFull(src, ch[:]); err != nil {
			return fmt.Errorf("read chunk header: %w", err)
		}
		kind := string(ch[:4])
		size := int64(binary.LittleEndian.Uint32(ch[4:8]))
		padded := size + size&1
		remaining -= int64(len(ch)) + padded
		if remaining < 0 {
			return fmt.Errorf("%w: chunk %q exceeds RIFF size", errNotWebP, kind)
		}

		if droppedWebPChunks[kind] {
			if _, err := io.CopyN(io.Discard, src, padded); err != nil {
				return fmt.Errorf("skip chunk %s: %w", kind, err)
			}
			continue
		}
		data := make([]byte, padded)
		if _, err := io.ReadFull(src, data); err != nil {
			return fmt.Errorf("read chunk %s: %w", kind, err)
		}
		if kind == "VP8X" && len(data) > 0 {
			data[0] &^= vp8xFlagEXIF | vp8xFlagXMP
		}
		body.Write(ch[:])
		body.Write(data)
	}

	var riff [8]byte
	copy(riff[:4], "RIFF")
	binary.LittleEndian.PutUint32(riff[4:], uint32(body.Len()))
	if _, err := dst.Write(riff[:]); err != nil {
		return err
	}
	_, err := body.WriteTo(dst)
	return err
}
