// Package activityfile sniffs and normalizes fitness activity files for
// upload. Classification is by content signature; a filename extension only
// hints at sniffing order, it never overrides what the bytes say.
package activityfile

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Kind is the detected activity file format.
type Kind string

const (
	KindGPX     Kind = "gpx"
	KindTCX     Kind = "tcx"
	KindFIT     Kind = "fit"
	KindUnknown Kind = "unknown"
)

// ErrUnsupportedFormat means the payload matched none of the known
// signatures. It is a hard error, never a pass-through.
var ErrUnsupportedFormat = errors.New("unsupported activity file format")

// sniffWindow is how much of the (decompressed) stream the signatures are
// searched in.
const sniffWindow = 200

var gzipMagic = []byte{0x1f, 0x8b}

// File is an activity payload ready for transport. Raw is the caller's
// original bytes, untouched; Transport is always gzip-compressed.
type File struct {
	Raw           []byte
	Transport     []byte
	Kind          Kind
	WasCompressed bool
}

// TransportName returns the upload filename providers expect for the
// compressed payload, e.g. "tcx.gz".
func (f *File) TransportName() string {
	return string(f.Kind) + ".gz"
}

// Classify determines the kind of an activity payload and ensures a
// compressed transport copy exists. hint, if non-empty, is a filename
// extension (with or without leading dot) used only to try the most likely
// signature first.
func Classify(raw []byte, hint string) (*File, error) {
	f := &File{Raw: raw}

	head := raw
	if bytes.HasPrefix(raw, gzipMagic) {
		f.WasCompressed = true
		f.Transport = raw
		prefix, err := decompressPrefix(raw)
		if err != nil {
			return nil, fmt.Errorf("inspect gzip payload: %w", err)
		}
		head = prefix
	}
	if len(head) > sniffWindow {
		head = head[:sniffWindow]
	}

	kind := sniff(head, hint)
	if kind == KindUnknown {
		return nil, ErrUnsupportedFormat
	}
	f.Kind = kind

	if !f.WasCompressed {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(raw); err != nil {
			return nil, fmt.Errorf("compress payload: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("compress payload: %w", err)
		}
		f.Transport = buf.Bytes()
	}
	return f, nil
}

// sniff checks the known content signatures against the leading bytes. The
// signature matching the hinted extension is tried first; a hint that
// contradicts the content is simply ignored.
func sniff(head []byte, hint string) Kind {
	order := []Kind{KindGPX, KindTCX, KindFIT}
	if hinted := hintKind(hint); hinted != KindUnknown {
		order = append([]Kind{hinted}, order...)
	}
	for _, k := range order {
		if matches(head, k) {
			return k
		}
	}
	return KindUnknown
}

func matches(head []byte, kind Kind) bool {
	switch kind {
	case KindGPX:
		return bytes.Contains(head, []byte("<gpx"))
	case KindTCX:
		return bytes.Contains(head, []byte("<TrainingCenterDatabase"))
	case KindFIT:
		// FIT headers carry ".FIT" at byte offset 8.
		return len(head) >= 12 && bytes.Equal(head[8:12], []byte(".FIT"))
	}
	return false
}

func hintKind(hint string) Kind {
	switch strings.ToLower(strings.TrimPrefix(hint, ".")) {
	case "gpx":
		return KindGPX
	case "tcx":
		return KindTCX
	case "fit":
		return KindFIT
	}
	return KindUnknown
}

// decompressPrefix inflates just enough of a gzip stream to sniff it.
func decompressPrefix(raw []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	prefix := make([]byte, sniffWindow)
	n, err := io.ReadFull(zr, prefix)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return prefix[:n], nil
}
