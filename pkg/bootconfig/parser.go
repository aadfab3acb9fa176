package bootconfig

import (
	"bufio"
	"bytes"
	"io"
	"log"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	// ReadChunkSize is the size of a single read from the configuration
	// file
	ReadChunkSize = 512
	// MaxConfigSize bounds the amount of text read from the configuration
	// file
	MaxConfigSize = 64 * 1024
)

// Parse reads a configuration in the form
//
//	Name=Path
//	Name=Path
//
// and returns the Menu it describes. Reading happens in chunks of
// ReadChunkSize bytes; records are split on line terminators, so a record
// may span any number of reads. A read error or io.EOF ends parsing, and so
// does filling the menu or reaching MaxConfigSize bytes of text. Records
// without a '=' and records with a blank name or an empty path are
// skipped.
//
// UTF-8 and UTF-16 text are both accepted. UTF-16 is recognized by its
// byte order mark, or as little endian when the second byte is zero.
func Parse(r io.Reader) *Menu {
	menu := &Menu{}
	text := &io.LimitedReader{R: decode(r), N: int64(MaxConfigSize)}
	chunk := make([]byte, ReadChunkSize)
	var pending []byte
	for !menu.Full() {
		// a read returning no data and no error is retried by the decoding
		// layers, only io.EOF marks the end of the file
		n, err := text.Read(chunk)
		if n > 0 {
			pending = append(pending, chunk[:n]...)
			pending = menu.consumeLines(pending)
		}
		if err != nil {
			if err != io.EOF {
				log.Printf("Stopped reading configuration: %v", err)
			}
			break
		}
	}
	if menu.Full() || len(pending) == 0 {
		return menu
	}
	if text.N <= 0 && hasMore(text.R) {
		log.Printf("Configuration larger than %d bytes, ignoring the rest", MaxConfigSize)
		return menu
	}
	// the last record does not need a terminator
	menu.addRecord(string(pending))
	return menu
}

// hasMore reports whether r has text left
func hasMore(r io.Reader) bool {
	var b [1]byte
	n, _ := io.ReadFull(r, b[:])
	return n > 0
}

// consumeLines adds every complete line in buf to the menu and returns the
// unterminated remainder
func (m *Menu) consumeLines(buf []byte) []byte {
	for !m.Full() {
		idx := bytes.IndexByte(buf, '\n')
		if idx < 0 {
			break
		}
		// string() copies, buf is reused by the next read
		m.addRecord(string(buf[:idx]))
		buf = buf[idx+1:]
	}
	// keep the remainder in a fresh slice so the consumed prefix can be
	// collected
	rest := make([]byte, len(buf))
	copy(rest, buf)
	return rest
}

// addRecord parses a single Name=Path record and appends it if valid
func (m *Menu) addRecord(record string) bool {
	record = strings.TrimRight(record, "\r\x00")
	idx := strings.IndexByte(record, '=')
	if idx < 0 {
		return false
	}
	name := record[:idx]
	if strings.TrimSpace(name) == "" {
		return false
	}
	path := strings.TrimRight(record[idx+1:], " \t\r\n\x00")
	if codeUnits(path) > MaxPathLen {
		log.Printf("Skipping entry %q: path longer than %d characters", name, MaxPathLen)
		return false
	}
	return m.add(BootEntry{
		Name: truncate(name, MaxNameLen),
		Path: path,
	})
}

// decode returns a reader producing UTF-8 text from r, converting from
// UTF-16 if needed and dropping any byte order mark
func decode(r io.Reader) io.Reader {
	br := bufio.NewReaderSize(r, ReadChunkSize)
	head, _ := br.Peek(2)
	if len(head) == 2 && head[0] != 0 && head[1] == 0 {
		// UTF-16LE without a byte order mark, as written by most EFI
		// tools
		dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
		return transform.NewReader(br, dec)
	}
	return transform.NewReader(br, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}
