// Ttracker CLI entry point
//
// Ttracker is a local-first time tracking tool. Entries are recorded in a
// local SQLite store and pushed to the billing service on demand, so
// tracking keeps working offline.
package main

import "github.com/jsuresh/ttracker/internal/presentation/cli/commands"

func main() {
	commands.Execute()
}
