package rdb

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Write serializes entries in the same format Read parses: magic, a single
// select-db record, one value record per entry (preceded by an expire-at
// record when Expire is set), and the 0xFF terminator. Strings are always
// written with the plain length-prefixed encoding; the special integer and
// LZF encodings are a reader-side compatibility feature and Write never
// has occasion to produce them. No trailing checksum is appended — PSYNC's
// reader relies only on the explicit 0xFF terminator length (see
// DESIGN.md's Open Question resolution on checksum handling).
func Write(w io.Writer, entries []Entry) error {
	if _, err := io.WriteString(w, "REDIS0011"); err != nil {
		return fmt.Errorf("rdb: write magic: %w", err)
	}

	if err := writeByte(w, opSelectDB); err != nil {
		return err
	}
	if err := writeLength(w, 0); err != nil {
		return err
	}

	for _, e := range entries {
		if !e.Expire.IsZero() {
			if err := writeByte(w, opExpireMs); err != nil {
				return err
			}
			var buf [8]byte
			binary.LittleEndian.PutUint64(buf[:], uint64(e.Expire.UnixMilli()))
			if _, err := w.Write(buf[:]); err != nil {
				return fmt.Errorf("rdb: write expire-ms: %w", err)
			}
		}

		if err := writeByte(w, valueString); err != nil {
			return err
		}
		if err := writeString(w, e.Key); err != nil {
			return err
		}
		if err := writeString(w, e.Value); err != nil {
			return err
		}
	}

	return writeByte(w, opEOF)
}

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	if err != nil {
		return fmt.Errorf("rdb: write opcode: %w", err)
	}
	return nil
}

// writeLength encodes n using the smallest of the 00/01/10 length forms
// (the 11 special encodings are never produced by Write).
func writeLength(w io.Writer, n uint64) error {
	switch {
	case n < 1<<6:
		return writeRaw(w, []byte{byte(n)})
	case n < 1<<14:
		return writeRaw(w, []byte{0b01<<6 | byte(n>>8), byte(n)})
	default:
		buf := make([]byte, 5)
		buf[0] = 0b10 << 6
		binary.LittleEndian.PutUint32(buf[1:], uint32(n))
		return writeRaw(w, buf)
	}
}

func writeString(w io.Writer, s []byte) error {
	if err := writeLength(w, uint64(len(s))); err != nil {
		return err
	}
	return writeRaw(w, s)
}

func writeRaw(w io.Writer, b []byte) error {
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("rdb: write: %w", err)
	}
	return nil
}
