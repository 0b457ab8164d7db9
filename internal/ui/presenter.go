package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"nh-go/internal/nh"
)

const timeLayout = "2006-01-02 15:04"

var (
	colorHeader = color.New(color.FgMagenta, color.Bold)
	colorKeep   = color.New(color.FgGreen)
	colorDelete = color.New(color.FgRed)
	colorWarn   = color.New(color.FgYellow, color.Bold)
	colorInfo   = color.New(color.FgCyan)
)

// Presenter renders clean plans for a human.
type Presenter struct {
	w io.Writer
}

// NewPresenter creates a Presenter writing to w.
func NewPresenter(w io.Writer) *Presenter {
	return &Presenter{w: w}
}

// ShowPlan prints every generation and GC root with its decision, and every
// profile that had to be skipped.
func (p *Presenter) ShowPlan(plan *nh.Plan, dry bool) {
	if dry {
		colorInfo.Fprintln(p.w, "Dry run: nothing will be removed")
	}

	for _, pp := range plan.Profiles {
		colorHeader.Fprintf(p.w, "> Profile %s\n", pp.Profile)
		for _, g := range pp.Generations {
			p.decision(g.ToBeRemoved)
			fmt.Fprintf(p.w, " %s  (%s)\n", g.Path, formatTime(g.LastModified))
		}
	}

	if len(plan.Roots) > 0 {
		colorHeader.Fprintln(p.w, "> GC roots")
		for _, r := range plan.Roots {
			p.decision(r.ToBeRemoved)
			fmt.Fprintf(p.w, " %s  [%s]  (%s)\n", r.Target, r.Pattern, formatTime(r.LastModified))
		}
	}

	for _, f := range plan.Failures {
		colorWarn.Fprint(p.w, "! ")
		fmt.Fprintf(p.w, "Skipping profile %s: %v\n", f.Profile, f.Err)
	}

	if plan.Empty() {
		colorInfo.Fprintln(p.w, "Nothing to remove")
	}
}

func (p *Presenter) decision(remove bool) {
	if remove {
		colorDelete.Fprint(p.w, "  delete")
		return
	}
	colorKeep.Fprint(p.w, "  keep  ")
}

// ShowRemoved prints a path that was just removed.
func (p *Presenter) ShowRemoved(r nh.Removal) {
	colorDelete.Fprint(p.w, "✗ ")
	fmt.Fprintf(p.w, "deleted %s %s\n", r.Kind, r.Path)
}

// ShowSummary prints the totals of a clean.
func (p *Presenter) ShowSummary(result *nh.CleanResult) {
	if result.Dry {
		colorInfo.Fprint(p.w, "ℹ ")
		fmt.Fprintf(p.w, "Would delete %d generation(s) and %d GC root(s)\n",
			result.Plan.GenerationsToRemove(), result.Plan.RootsToRemove())
		return
	}

	gens, roots := 0, 0
	for _, r := range result.Removed {
		switch r.Kind {
		case nh.KindGeneration:
			gens++
		case nh.KindGCRoot:
			roots++
		}
	}
	colorKeep.Fprint(p.w, "✓ ")
	fmt.Fprintf(p.w, "Deleted %d generation(s) and %d GC root(s)\n", gens, roots)

	if len(result.Failed) > 0 {
		colorWarn.Fprint(p.w, "⚠ ")
		fmt.Fprintf(p.w, "%d path(s) could not be removed, see the log for details\n", len(result.Failed))
	}
	if result.GarbageCollected {
		colorKeep.Fprint(p.w, "✓ ")
		fmt.Fprintln(p.w, "Store garbage collected")
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Local().Format(timeLayout)
}

// Compile-time check that Presenter implements nh.Presenter interface
var _ nh.Presenter = (*Presenter)(nil)
