package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sort"

	"codeberg.org/mutker/heatboard/internal/errors"
	"codeberg.org/mutker/heatboard/internal/logger"
)

const maxLineSize = 1 << 20

// StreamSource reads JSON lines from a reader. Each line is either a single
// observation
//
//	{"group":"dense_0","series":"w","value":0.25}
//
// or a batch for one group
//
//	{"group":"dense_0","values":{"d":0.01,"g":-0.3,"w":0.25}}
//
// Blank lines and lines starting with '#' are ignored. Malformed lines and
// rejected values are logged and skipped.
type StreamSource struct {
	r     io.Reader
	log   logger.Logger
	stats Stats
}

type streamLine struct {
	Group  string             `json:"group"`
	Series string             `json:"series"`
	Value  *float64           `json:"value"`
	Values map[string]float64 `json:"values"`
}

func NewStreamSource(r io.Reader, log logger.Logger) *StreamSource {
	if log == nil {
		log = logger.Nop()
	}

	return &StreamSource{r: r, log: log.With("stream_source")}
}

// Stats returns the counters accumulated by Run.
func (s *StreamSource) Stats() Stats { return s.stats }

func (s *StreamSource) Run(ctx context.Context, sink Sink) error {
	errFactory := errors.New()

	scanner := bufio.NewScanner(s.r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
		default:
		}

		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		samples, ok := s.decode(line, lineNo)
		if !ok {
			continue
		}

		for _, sample := range samples {
			s.deliver(sink, sample, lineNo)
		}
	}

	if err := scanner.Err(); err != nil {
		return errFactory.Wrap(ErrStreamRead, err)
	}

	s.log.Debug().
		Int("lines", lineNo).
		Int("accepted", s.stats.Accepted).
		Int("rejected", s.stats.Rejected).
		Int("malformed", s.stats.Malformed).
		Msg("Stream exhausted")

	return nil
}

func (s *StreamSource) decode(line []byte, lineNo int) ([]Sample, bool) {
	var parsed streamLine
	if err := json.Unmarshal(line, &parsed); err != nil {
		s.malformed(lineNo, err.Error())
		return nil, false
	}

	switch {
	case parsed.Value != nil && parsed.Values == nil:
		return []Sample{{Group: parsed.Group, Series: parsed.Series, Value: *parsed.Value}}, true
	case parsed.Values != nil && parsed.Value == nil && parsed.Series == "":
		names := make([]string, 0, len(parsed.Values))
		for name := range parsed.Values {
			names = append(names, name)
		}
		sort.Strings(names)

		samples := make([]Sample, 0, len(names))
		for _, name := range names {
			samples = append(samples, Sample{Group: parsed.Group, Series: name, Value: parsed.Values[name]})
		}
		return samples, true
	default:
		s.malformed(lineNo, "line needs either series and value, or values")
		return nil, false
	}
}

func (s *StreamSource) malformed(lineNo int, reason string) {
	s.stats.Malformed++
	s.log.Warn().Int("line", lineNo).Str("reason", reason).Msg("Skipping malformed line")
}

func (s *StreamSource) deliver(sink Sink, sample Sample, lineNo int) {
	if err := sink.Add(sample.Group, sample.Series, sample.Value); err != nil {
		s.stats.Rejected++
		s.log.Warn().
			Err(err).
			Int("line", lineNo).
			Str("group", sample.Group).
			Str("series", sample.Series).
			Msg("Observation rejected")
		return
	}
	s.stats.Accepted++
}
