package lifecycle

import "fmt"

// ConfirmSummary describes what a deletion is about to discard, for display
// to whoever has to approve it.
type ConfirmSummary struct {
	BranchName    string `json:"branch_name"`
	UnpushedCount int    `json:"unpushed_count"`
	Consequence   string `json:"consequence"`
}

// Decision is the answer to a confirmation prompt. The zero value cancels.
type Decision struct {
	Proceed           bool
	ForceDeleteBranch bool
}

// ConfirmFunc is invoked at most once per deletion when unpushed work would
// be lost. A nil ConfirmFunc means no interactive surface is available; the
// deletion then proceeds but never deletes the branch.
type ConfirmFunc func(ConfirmSummary) Decision

func newConfirmSummary(branch string, unpushed int) ConfirmSummary {
	return ConfirmSummary{
		BranchName:    branch,
		UnpushedCount: unpushed,
		Consequence:   fmt.Sprintf("Branch %q has %d unpushed commit(s); deleting it discards them permanently.", branch, unpushed),
	}
}
