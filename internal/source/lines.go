package source

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// readBufferSize is the initial read buffer. Lines longer than this are
// still read whole.
const readBufferSize = 1 << 20

// ErrStop can be returned by a Lines callback to end the scan early
// without an error.
var ErrStop = errors.New("stop scanning")

// Lines calls fn for every non-blank line of r with its 1-based line
// number. Line terminators are removed; nothing else is.
func Lines(r io.Reader, fn func(lineNo int, line string) error) error {
	br := bufio.NewReaderSize(r, readBufferSize)
	lineNo := 0
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			lineNo++
			line = strings.TrimSuffix(line, "\n")
			line = strings.TrimSuffix(line, "\r")
			if strings.TrimSpace(line) != "" {
				if ferr := fn(lineNo, line); ferr != nil {
					if errors.Is(ferr, ErrStop) {
						return nil
					}
					return ferr
				}
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read line %d: %w", lineNo+1, err)
		}
	}
}
