package main

import "github.com/metcalfc/spoon/internal/app"

// Version info (injected via ldflags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	app.SetVersion(version + " (commit: " + commit + ", built: " + date + ")")
	app.Execute()
}
