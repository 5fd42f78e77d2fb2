package main

import (
	"context"

	"neptun/cmd/neptun/commands"
	"neptun/lib/osutil"
	"neptun/lib/telemetry"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "neptun")
	commands.ExecuteContext(osutil.SignalContext())
}
