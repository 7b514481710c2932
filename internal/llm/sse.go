package llm

import (
	"bufio"
	"io"
	"strings"
)

// sseEvent is a single Server-Sent Event parsed from a provider stream.
type sseEvent struct {
	Type string
	Data string
}

// sseScanner reads Server-Sent Events from an io.Reader. Events are
// delimited by blank lines; "data:" lines carry the payload and
// multiple data lines are joined with newlines. Comment lines and
// fields other than "event" are ignored.
type sseScanner struct {
	reader  *bufio.Reader
	current sseEvent
	err     error
}

func newSSEScanner(reader io.Reader) *sseScanner {
	return &sseScanner{reader: bufio.NewReaderSize(reader, 32*1024)}
}

// Next advances to the next event. Returns false at EOF or on error;
// call Err to distinguish.
func (s *sseScanner) Next() bool {
	s.current = sseEvent{}

	var dataLines []string
	var eventType string
	hasData := false

	for {
		line, err := s.reader.ReadString('\n')
		if err != nil && line == "" {
			if err == io.EOF {
				if hasData {
					s.current = sseEvent{Type: eventType, Data: strings.Join(dataLines, "\n")}
					s.err = io.EOF
					return true
				}
				return false
			}
			s.err = err
			return false
		}

		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if hasData {
				s.current = sseEvent{Type: eventType, Data: strings.Join(dataLines, "\n")}
				return true
			}
			eventType = ""
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, hasColon := strings.Cut(line, ":")
		if hasColon {
			value = strings.TrimPrefix(value, " ")
		} else {
			field = line
			value = ""
		}

		switch field {
		case "data":
			dataLines = append(dataLines, value)
			hasData = true
		case "event":
			eventType = value
		}
	}
}

// Event returns the most recently parsed event.
func (s *sseScanner) Event() sseEvent {
	return s.current
}

// Err returns the first error encountered; nil after a clean EOF.
func (s *sseScanner) Err() error {
	if s.err == io.EOF {
		return nil
	}
	return s.err
}
