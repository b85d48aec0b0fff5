package actions

import (
	"fmt"
	"os"
	"strings"

	"graft.dev/graft/internal/graph"
	"graft.dev/graft/internal/repo"
	"graft.dev/graft/internal/runtime"
	"graft.dev/graft/internal/tui"
	"graft.dev/graft/internal/utils"
)

// CommitOptions contains options for the commit command
type CommitOptions struct {
	Message    string
	Phase      string
	Bookmark   string
	AllowEmpty bool
	// Edit opens the editor for the message instead of prompting.
	Edit bool
}

const commitTemplate = `

# Enter the commit message. Lines starting with '#' are ignored.
`

// CommitAction snapshots the working copy into a new commit.
func CommitAction(ctx *runtime.Context, opts CommitOptions) (*graph.Commit, error) {
	phase := graph.Phase(opts.Phase)
	if phase == "" {
		phase = graph.PhaseDraft
	}
	switch phase {
	case graph.PhasePublic, graph.PhaseDraft, graph.PhaseSecret:
	default:
		return nil, fmt.Errorf("unknown phase %q (want public, draft or secret)", opts.Phase)
	}

	message := opts.Message
	if message == "-" {
		var err error
		if message, err = utils.ReadPiped(os.Stdin); err != nil {
			return nil, fmt.Errorf("read message: %w", err)
		}
	} else if message == "" {
		var err error
		message, err = promptMessage(opts.Edit)
		if err != nil {
			return nil, err
		}
	}

	c, err := ctx.Repo.Commit(ctx, repo.CommitOptions{
		Message:    strings.TrimSpace(message),
		Phase:      phase,
		Bookmark:   opts.Bookmark,
		AllowEmpty: opts.AllowEmpty,
	})
	if err != nil {
		return nil, err
	}
	ctx.Splog.Info("Created commit %s %s", tui.ColorCommitID(c.ShortID()), c.Summary())
	if opts.Bookmark != "" {
		ctx.Splog.Info("Bookmark %s now points at it.", tui.ColorBookmark(opts.Bookmark))
	}
	return c, nil
}

func promptMessage(edit bool) (string, error) {
	if !tui.InteractiveAllowed() {
		return "", fmt.Errorf("a commit message is required (use -m)")
	}
	if edit {
		msg, err := tui.OpenEditor(commitTemplate, "GRAFT_COMMIT_*.txt")
		if err != nil {
			return "", err
		}
		return tui.StripComments(msg), nil
	}
	return tui.PromptTextInput("Commit message:", "")
}
