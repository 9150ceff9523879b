package main

import (
	"turmob-efatura/cmd/turmob-cli/commands"
	"turmob-efatura/lib/serviceutil"
)

func main() {
	ctx := serviceutil.SignalContext()
	commands.ExecuteContext(ctx)
}
