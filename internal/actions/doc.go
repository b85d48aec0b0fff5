// Package actions provides the logic behind each graft command.
//
// Each action takes a runtime.Context (the open repository and the logger),
// calls into the repository and rebase engine, and reports to the user
// through the tui package.
package actions
