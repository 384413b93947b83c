package protocol

import (
	"strconv"

	"github.com/stlalpha/bluebox/internal/bulk"
	"github.com/stlalpha/bluebox/internal/connio"
)

// WriteSimpleString writes "+<text>\r\n".
func WriteSimpleString(s *connio.Stream, text string) error {
	return writeLine(s, '+', text)
}

// WriteError writes "-<text>\r\n". text has no leading '-' or trailing
// "\r\n" of its own.
func WriteError(s *connio.Stream, text string) error {
	return writeLine(s, '-', text)
}

// WriteInteger writes ":<decimal>\r\n".
func WriteInteger(s *connio.Stream, v int) error {
	return writeLine(s, ':', strconv.Itoa(v))
}

// WriteBulk writes "$<len>\r\n<bytes>\r\n", or "$-1\r\n" for a nil Bulk
// (absent value).
func WriteBulk(s *connio.Stream, b *bulk.Bulk) error {
	if b == nil {
		return WriteNullBulk(s)
	}
	if _, err := s.Write([]byte{'$'}); err != nil {
		return err
	}
	if err := writeDecimal(s, b.Len()); err != nil {
		return err
	}
	if _, err := s.Write(crlf); err != nil {
		return err
	}
	if _, err := s.Write(b.Data()); err != nil {
		return err
	}
	_, err := s.Write(crlf)
	return err
}

// WriteNullBulk writes "$-1\r\n".
func WriteNullBulk(s *connio.Stream) error {
	_, err := s.Write([]byte("$-1\r\n"))
	return err
}

// WriteArrayHeader writes "*<count>\r\n"; the caller writes count further
// encoded items itself.
func WriteArrayHeader(s *connio.Stream, count int) error {
	if _, err := s.Write([]byte{'*'}); err != nil {
		return err
	}
	if err := writeDecimal(s, count); err != nil {
		return err
	}
	_, err := s.Write(crlf)
	return err
}

var crlf = []byte("\r\n")

func writeLine(s *connio.Stream, prefix byte, text string) error {
	if err := s.WriteByte(prefix); err != nil {
		return err
	}
	if _, err := s.Write([]byte(text)); err != nil {
		return err
	}
	_, err := s.Write(crlf)
	return err
}

func writeDecimal(s *connio.Stream, v int) error {
	_, err := s.Write([]byte(strconv.Itoa(v)))
	return err
}
