package scrub

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// GIF block introducers and extension labels.
const (
	gifExtension      = 0x21
	gifImageSeparator = 0x2C
	gifTrailer        = 0x3B

	gifLabelPlainText   = 0x01
	gifLabelGraphicCtl  = 0xF9
	gifLabelComment     = 0xFE
	gifLabelApplication = 0xFF
)

// Application extensions needed to play or colour the image. Anything else
// (XMP "XMP DataXMP" among them) is dropped.
var keptGIFApplications = map[string]bool{
	"NETSCAPE2.0": true,
	"ANIMEXTS1.0": true,
	"ICCRGBG1012": true,
}

var errNotGIF = errors.New("not a GIF stream")

// filterGIF copies a GIF block by block, dropping comment extensions and
// application extensions other than looping and colour profiles.
func filterGIF(dst io.Writer, src io.Reader) error {
	r := bufio.NewReader(src)

	var head [13]byte // header + logical screen descriptor
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if sig := string(head[:6]); sig != "GIF87a" && sig != "GIF89a" {
		return errNotGIF
	}
	if _, err := dst.Write(head[:]); err != nil {
		return err
	}
	if err := copyColorTable(dst, r, head[10]); err != nil {
		return err
	}

	for {
		introducer, err := r.ReadByte()
		if err != nil {
			return fmt.Errorf("read block: %w", err)
		}
		switch introducer {
		case gifTrailer:
			_, err := dst.Write([]byte{gifTrailer})
			return err

		case gifImageSeparator:
			var desc [9]byte
			if _, err := io.ReadFull(r, desc[:]); err != nil {
				return fmt.Errorf("read image descriptor: %w", err)
			}
			if _, err := dst.Write([]byte{gifImageSeparator}); err != nil {
				return err
			}
			if _, err := dst.Write(desc[:]); err != nil {
				return err
			}
			if err := copyColorTable(dst, r, desc[8]); err != nil {
				return err
			}
			if _, err := io.CopyN(dst, r, 1); err != nil { // LZW minimum code size
				return fmt.Errorf("read image data: %w", err)
			}
			if err := copySubBlocks(dst, r); err != nil {
				return err
			}

		case gifExtension:
			if err := filterGIFExtension(dst, r); err != nil {
				return err
			}

		default:
			return fmt.Errorf("%w: unknown block 0x%02X", errNotGIF, introducer)
		}
	}
}

func filterGIFExtension(dst io.Writer, r *bufio.Reader) error {
	label, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("read extension label: %w", err)
	}
	switch label {
	case gifLabelGraphicCtl, gifLabelPlainText:
		if _, err := dst.Write([]byte{gifExtension, label}); err != nil {
			return err
		}
		return copySubBlocks(dst, r)

	case gifLabelApplication:
		first, err := readSubBlock(r)
		if err != nil {
			return err
		}
		if first == nil {
			return nil
		}
		if !keptGIFApplications[string(first)] {
			return copySubBlocks(io.Discard, r)
		}
		if _, err := dst.Write([]byte{gifExtension, label, byte(len(first))}); err != nil {
			return err
		}
		if _, err := dst.Write(first); err != nil {
			return err
		}
		return copySubBlocks(dst, r)

	default: // comments and unknown extensions
		return copySubBlocks(io.Discard, r)
	}
}

// copyColorTable copies the colour table announced by a packed field.
func copyColorTable(dst io.Writer, r io.Reader, packed byte) error {
	if packed&0x80 == 0 {
		return nil
	}
	size := int64(3) << ((packed & 0x07) + 1)
	if _, err := io.CopyN(dst, r, size); err != nil {
		return fmt.Errorf("read colour table: %w", err)
	}
	return nil
}

// readSubBlock returns the next data sub-block, or nil for the terminator.
func readSubBlock(r *bufio.Reader) ([]byte, error) {
	n, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("read sub-block: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("read sub-block: %w", err)
	}
	return buf, nil
}

// copySubBlocks copies sub-blocks up to and including the terminator.
func copySubBlocks(dst io.Writer, r *bufio.Reader) error {
	for {
		n, err := r.ReadByte()
		if err != nil {
			return fmt.Errorf("read sub-block: %w", err)
		}
		if _, err := dst.Write([]byte{n}); err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		if _, err := io.CopyN(dst, r, int64(n)); err != nil {
			return fmt.Errorf("read sub-block: %w", err)
		}
	}
}
