// Package engine rewrites commits onto a new parent and drives the persisted
// rebase state machine.
//
// It is responsible for:
//   - Planning and executing a rebase step by step
//   - Pausing on conflicts and resuming with caller-supplied resolutions
//   - Aborting back to the exact pre-operation pointers
//   - Completing: promoting new commits, recording mutations, moving
//     bookmarks, and backing up then stripping the originals
//
// Every step is persisted before the next begins, so a killed process can be
// resumed by a later invocation with Continue.
package engine
