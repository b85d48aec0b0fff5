// Package config manages graft repository configuration.
//
// It handles:
//   - Merge behavior (marker style, whole-file globs)
//   - Rebase defaults (keeping originals, writing backups)
//   - The author name recorded on new commits
package config
