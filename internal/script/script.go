// Package script drives a selection controller from a line-oriented script,
// one viewer action per line.
package script

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fastmal/roilabel/internal/selection"
	"github.com/fastmal/roilabel/internal/shapes"
)

// Runner executes script lines against one controller
type Runner struct {
	c   *selection.Controller
	out io.Writer

	// provisional ids of drawn shapes not yet persisted, oldest first
	drawn []string
}

func NewRunner(c *selection.Controller, out io.Writer) *Runner {
	return &Runner{c: c, out: out}
}

// Run executes every line of r. Rejected clicks are reported and the script
// continues; any other failure stops it.
func (s *Runner) Run(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := s.Exec(ctx, line); err != nil {
			return fmt.Errorf("line %d (%s): %w", lineNum, line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}
	return nil
}

// Exec runs a single command line
func (s *Runner) Exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "image":
		id, err := int64Arg(args, 0, "image id")
		if err != nil {
			return err
		}
		s.c.SetActiveImage(id)
		s.printState()
	case "click":
		if len(args) != 1 {
			return fmt.Errorf("usage: click <label-id>")
		}
		if _, err := s.c.OnTreeNodeClicked(args[0]); err != nil {
			if isRejection(err) {
				fmt.Fprintf(s.out, "rejected: %v\n", err)
				return nil
			}
			return err
		}
		s.printState()
	case "shape":
		if len(args) != 1 {
			return fmt.Errorf("usage: shape <kind>")
		}
		s.c.SetShapeKind(args[0])
		s.printState()
	case "draw":
		id := shapes.NewProvisionalID()
		if len(args) > 0 {
			id = args[0]
		}
		if err := s.c.DrawingFinished(id); err != nil {
			return err
		}
		s.drawn = append(s.drawn, id)
		labels, _ := s.c.Shapes().Pending(id)
		fmt.Fprintf(s.out, "drawn %s text=%q labels=%v\n", id, s.c.Defaults().Text, labels)
	case "persist":
		pairs, err := s.pairs(args)
		if err != nil {
			return err
		}
		links, err := s.c.ShapesPersisted(ctx, pairs)
		if err != nil {
			return err
		}
		for _, l := range links {
			fmt.Fprintf(s.out, "linked roi %d -> %s\n", l.ROIID, l.Labels)
		}
		fmt.Fprintf(s.out, "persisted %d shapes, %d linked\n", len(pairs), len(links))
	case "complete":
		id, err := int64Arg(args, 0, "image id")
		if err != nil {
			return err
		}
		state := true
		if len(args) > 1 {
			if state, err = strconv.ParseBool(args[1]); err != nil {
				return fmt.Errorf("invalid completion state %q", args[1])
			}
		}
		if err := s.c.SetCompletion(ctx, id, state); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "image %d %s\n", id, s.c.Index().CompletionIndicator(id))
	case "counts":
		id, err := int64Arg(args, 0, "image id")
		if err != nil {
			return err
		}
		idx := s.c.Index()
		fmt.Fprintf(s.out, "image %d %s %v\n", id, idx.CompletionIndicator(id), idx.CountsFor(id))
		fmt.Fprintln(s.out, s.c.ImageSummary(id, nil))
	case "refresh":
		idx, err := s.c.Refresh(ctx, 0)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "dataset %d refreshed: %d annotated, %d complete\n",
			idx.DatasetID, len(idx.ImagesWithAnyAnnotation()), len(idx.ImagesMarkedComplete()))
	case "status":
		s.printState()
		idx := s.c.Index()
		fmt.Fprintf(s.out, "in progress %v complete %v pending %d\n",
			idx.ImagesAnnotationInProgress(), idx.ImagesMarkedComplete(), s.c.Shapes().Len())
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

// pairs parses "<permanent>=<provisional>" arguments. A bare permanent id
// takes the oldest drawn shape not yet persisted.
func (s *Runner) pairs(args []string) ([]shapes.Pair, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("usage: persist <roi-id>[=<provisional-id>] ...")
	}
	pairs := make([]shapes.Pair, 0, len(args))
	for _, arg := range args {
		permanent, provisional, explicit := strings.Cut(arg, "=")
		id, err := strconv.ParseInt(permanent, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid roi id %q", permanent)
		}
		if !explicit {
			if len(s.drawn) == 0 {
				return nil, fmt.Errorf("no drawn shape left for roi %d", id)
			}
			provisional = s.drawn[0]
		}
		s.forget(provisional)
		pairs = append(pairs, shapes.Pair{PermanentID: id, ProvisionalID: provisional})
	}
	return pairs, nil
}

func (s *Runner) forget(provisional string) {
	for i, id := range s.drawn {
		if id == provisional {
			s.drawn = append(s.drawn[:i], s.drawn[i+1:]...)
			return
		}
	}
}

func (s *Runner) printState() {
	state := s.c.State()
	d := s.c.Defaults()
	fmt.Fprintf(s.out, "%s primary=%q secondaries=%v shape=%q image=%d\n",
		state.Mode(), state.Primary, state.Secondaries, d.ShapeToDraw, s.c.ActiveImage())
}

func isRejection(err error) bool {
	return errors.Is(err, selection.ErrParentInactive) ||
		errors.Is(err, selection.ErrUnknownNode) ||
		errors.Is(err, selection.ErrUnsupportedLevel)
}

func int64Arg(args []string, i int, name string) (int64, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("missing %s", name)
	}
	n, err := strconv.ParseInt(args[i], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, args[i])
	}
	return n, nil
}
