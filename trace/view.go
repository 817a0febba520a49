package trace

import (
	"fmt"
	"strings"
	"time"
)

// Viewer renders traces as plain text for terminals and logs.
type Viewer struct {
	// ShowFlags includes per-stage flags and errors in full views.
	ShowFlags bool
}

// NewViewer creates a Viewer with flags shown.
func NewViewer() *Viewer {
	return &Viewer{ShowFlags: true}
}

// Summary renders a one-block digest of the trace.
func (v *Viewer) Summary(tr *RunTrace) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run:     %s\n", tr.RunID)
	if tr.Metadata.Project != "" {
		fmt.Fprintf(&b, "Project: %s\n", tr.Metadata.Project)
	}
	fmt.Fprintf(&b, "Status:  %s\n", tr.Metadata.Status)
	fmt.Fprintf(&b, "Stages:  %d\n", len(tr.Stages))
	if !tr.Metadata.EndedAt.IsZero() {
		fmt.Fprintf(&b, "Elapsed: %s\n", tr.Metadata.EndedAt.Sub(tr.Metadata.StartedAt).Round(time.Millisecond))
	}
	if tr.Metadata.TokensIn+tr.Metadata.TokensOut > 0 {
		fmt.Fprintf(&b, "Tokens:  %d in / %d out\n", tr.Metadata.TokensIn, tr.Metadata.TokensOut)
	}
	if tr.Metadata.Error != "" {
		fmt.Fprintf(&b, "Error:   %s\n", tr.Metadata.Error)
	}
	return b.String()
}

// Full renders the summary followed by every stage record.
func (v *Viewer) Full(tr *RunTrace) string {
	var b strings.Builder
	b.WriteString(v.Summary(tr))
	b.WriteString("\n")
	for _, st := range tr.Stages {
		fmt.Fprintf(&b, "%2d. %-22s %-20s conf=%.2f", st.Seq, st.Stage, st.Status, st.Confidence)
		if st.Duration > 0 {
			fmt.Fprintf(&b, "  %s", st.Duration.Round(time.Millisecond))
		}
		b.WriteString("\n")
		if v.ShowFlags {
			for _, f := range st.Flags {
				fmt.Fprintf(&b, "      flag: %s\n", f)
			}
			for _, e := range st.Errors {
				fmt.Fprintf(&b, "      error: %s\n", e)
			}
		}
	}
	return b.String()
}
