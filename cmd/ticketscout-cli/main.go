package main

import (
	"ticketscout/cmd/ticketscout-cli/cmd"
	"ticketscout/lib/util/serviceutil"
)

func main() {
	cmd.ExecuteContext(serviceutil.SignalContext())
}
