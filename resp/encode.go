package resp

import (
	"fmt"
	"io"
)

// WriteSimpleString writes "+<text>\r\n".
func WriteSimpleString(w io.Writer, text string) error {
	_, err := fmt.Fprintf(w, "+%s\r\n", text)
	return wrapWrite(err)
}

// WriteError writes "-<text>\r\n".
func WriteError(w io.Writer, text string) error {
	_, err := fmt.Fprintf(w, "-%s\r\n", text)
	return wrapWrite(err)
}

// WriteInteger writes ":<n>\r\n".
func WriteInteger(w io.Writer, n int64) error {
	_, err := fmt.Fprintf(w, ":%d\r\n", n)
	return wrapWrite(err)
}

// WriteBulkString writes "$<len>\r\n<data>\r\n". A nil slice writes the
// null bulk "$-1\r\n".
func WriteBulkString(w io.Writer, data []byte) error {
	if data == nil {
		_, err := io.WriteString(w, "$-1\r\n")
		return wrapWrite(err)
	}
	if _, err := fmt.Fprintf(w, "$%d\r\n", len(data)); err != nil {
		return wrapWrite(err)
	}
	if _, err := w.Write(data); err != nil {
		return wrapWrite(err)
	}
	_, err := io.WriteString(w, "\r\n")
	return wrapWrite(err)
}

// WriteArrayHeader writes "*<n>\r\n"; callers follow with n encoded
// elements. n == -1 writes the null array "*-1\r\n".
func WriteArrayHeader(w io.Writer, n int) error {
	_, err := fmt.Fprintf(w, "*%d\r\n", n)
	return wrapWrite(err)
}

// WriteSnapshotFrame writes "$<n>\r\n<n raw bytes>" with no trailing CRLF,
// the PSYNC snapshot transfer format.
func WriteSnapshotFrame(w io.Writer, payload []byte) error {
	if _, err := fmt.Fprintf(w, "$%d\r\n", len(payload)); err != nil {
		return wrapWrite(err)
	}
	_, err := w.Write(payload)
	return wrapWrite(err)
}

// WriteCommandFrame writes args as a RESP array of bulk strings, the
// client-command encoding used both for genuine client requests and for
// the REPLCONF GETACK (Primary) / ACK (Replica) exchange.
func WriteCommandFrame(w io.Writer, args ...string) error {
	if err := WriteArrayHeader(w, len(args)); err != nil {
		return err
	}
	for _, a := range args {
		if err := WriteBulkString(w, []byte(a)); err != nil {
			return err
		}
	}
	return nil
}

func wrapWrite(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("resp: write: %w", err)
}
