// Package prompt provides interactive CLI prompts for user input.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/ktr0731/go-fuzzyfinder"
	"golang.org/x/term"

	"github.com/thoreinstein/dotsnapshot/internal/errors"
	"github.com/thoreinstein/dotsnapshot/internal/snapshot"
)

// Sentinel errors for snapshot selection.
var (
	ErrNoSnapshots        = errors.Mark(errors.New("no snapshots to select from"), errors.ErrNotFound)
	ErrInvalidSelection   = errors.New("invalid selection")
	ErrSelectionCancelled = errors.New("selection cancelled")
)

// findFunc picks one snapshot interactively and returns its index.
type findFunc func(snaps []snapshot.Info) (int, error)

// Selector asks questions on a reader and writer. One Selector should
// serve a whole command so answers typed ahead are not lost between
// prompts.
type Selector struct {
	in   *bufio.Reader
	out  io.Writer
	find findFunc
}

// NewSelector prompts on r and w. Snapshots are picked with a fuzzy
// finder when r is a terminal and with a numbered list otherwise.
func NewSelector(r io.Reader, w io.Writer) *Selector {
	s := &Selector{in: bufio.NewReader(r), out: w}
	if f, ok := r.(interface{ Fd() uintptr }); ok && term.IsTerminal(int(f.Fd())) {
		s.find = fuzzyFind
	}
	return s
}

// SelectSnapshot asks which of snaps to use. snaps is newest first and
// the numbered prompt defaults to the first entry. A single snapshot is
// returned without asking. End of input or an aborted finder returns
// ErrSelectionCancelled; a bad answer returns ErrInvalidSelection.
func (s *Selector) SelectSnapshot(snaps []snapshot.Info) (*snapshot.Info, error) {
	if len(snaps) == 0 {
		return nil, ErrNoSnapshots
	}
	if len(snaps) == 1 {
		return &snaps[0], nil
	}

	if s.find != nil {
		idx, err := s.find(snaps)
		if err != nil {
			if errors.Is(err, fuzzyfinder.ErrAbort) {
				return nil, ErrSelectionCancelled
			}
			return nil, errors.Wrap(err, "selecting snapshot")
		}
		return &snaps[idx], nil
	}

	fmt.Fprintln(s.out, "Available snapshots:")
	for i, info := range snaps {
		fmt.Fprintf(s.out, "  [%d] %s (%s, %d plugins)\n", i+1, info.Name, humanize.Bytes(uint64(max(info.SizeBytes, 0))), info.PluginCount)
	}
	fmt.Fprintf(s.out, "Select [1]: ")

	input, err := s.readLine()
	if err != nil {
		return nil, err
	}

	if input == "" {
		return &snaps[0], nil
	}

	selection, err := strconv.Atoi(input)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidSelection, "%q is not a number", input)
	}

	if selection < 1 || selection > len(snaps) {
		return nil, errors.Wrapf(ErrInvalidSelection, "%d is out of range [1-%d]", selection, len(snaps))
	}

	return &snaps[selection-1], nil
}

// Confirm asks a yes/no question. An empty answer returns def.
func (s *Selector) Confirm(question string, def bool) (bool, error) {
	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}
	fmt.Fprintf(s.out, "%s %s: ", question, hint)

	input, err := s.readLine()
	if err != nil {
		return false, err
	}

	switch strings.ToLower(input) {
	case "":
		return def, nil
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	default:
		return false, errors.Wrapf(ErrInvalidSelection, "%q is not yes or no", input)
	}
}

// readLine returns the next trimmed line. A final line without a newline
// counts; end of input with nothing typed is a cancellation.
func (s *Selector) readLine() (string, error) {
	line, err := s.in.ReadString('\n')
	switch {
	case errors.Is(err, io.EOF) && strings.TrimSpace(line) == "":
		return "", ErrSelectionCancelled
	case err != nil && !errors.Is(err, io.EOF):
		return "", errors.Wrap(err, "reading input")
	}
	return strings.TrimSpace(line), nil
}

func fuzzyFind(snaps []snapshot.Info) (int, error) {
	return fuzzyfinder.Find(
		snaps,
		func(i int) string {
			return snaps[i].Name
		},
		fuzzyfinder.WithPromptString("snapshot> "),
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i == -1 {
				return ""
			}
			info := snaps[i]
			return fmt.Sprintf("Name: %s\nCreated: %s (%s)\nSize: %s\nPlugins: %d\n\nPath:\n%s",
				info.Name,
				info.CreatedAt.Format("2006-01-02 15:04:05"),
				humanize.Time(info.CreatedAt),
				humanize.Bytes(uint64(max(info.SizeBytes, 0))),
				info.PluginCount,
				info.Path,
			)
		}),
	)
}
