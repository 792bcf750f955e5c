package core

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/illarion/timevault/internal/host"
	"github.com/illarion/timevault/internal/vault"
)

// renderStates prints account snapshots one field per line so that a line
// diff shows exactly which fields an invocation changes.
func renderStates(states []host.AccountState) string {
	var b strings.Builder
	for _, s := range states {
		fmt.Fprintf(&b, "%s %s\n", s.Label, s.Address)
		if s.Account == nil {
			b.WriteString("  (no account)\n")
			continue
		}
		fmt.Fprintf(&b, "  lamports: %d (%s SOL)\n", s.Account.Lamports, FormatSOL(s.Account.Lamports))
		if s.Account.Deposit > 0 {
			fmt.Fprintf(&b, "  deposit:  %d\n", s.Account.Deposit)
		}
		if !s.Account.Owner.IsZero() {
			fmt.Fprintf(&b, "  owner:    %s\n", s.Account.Owner)
		}
		if record, err := vault.DecodeRecord(s.Account.Data); err == nil {
			fmt.Fprintf(&b, "  vault owner: %s\n", record.Owner())
			fmt.Fprintf(&b, "  unlock time: %d\n", record.UnlockTime())
			fmt.Fprintf(&b, "  bump:        %d\n", record.Bump())
		} else if len(s.Account.Data) > 0 {
			fmt.Fprintf(&b, "  data:     %d bytes\n", len(s.Account.Data))
		}
	}
	return b.String()
}

// StateDiff renders a line diff between two account snapshots. Unchanged
// lines are prefixed with two spaces, removed ones with "- " and added ones
// with "+ ".
func StateDiff(before, after []host.AccountState) string {
	dmp := diffmatchpatch.New()

	a, b, lineArray := dmp.DiffLinesToChars(renderStates(before), renderStates(after))
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var out strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			out.WriteString(prefix)
			out.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				out.WriteByte('\n')
			}
		}
	}
	return out.String()
}
