// auditor is the operator CLI. Each invocation opens a sync session against
// the automation API, pulls the current state and applies the requested
// change; `watch` keeps the session polling and prints notices as they arrive.
package main

import (
	"os"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}
