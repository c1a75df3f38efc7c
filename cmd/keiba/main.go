package main

import (
	"context"
	"keiba-etl/cmd/keiba/commands"
	"keiba-etl/lib/osutil"
)

func main() {
	ctx, cancel := osutil.SignalContext(context.Background())
	defer cancel()
	commands.ExecuteContext(ctx)
}
