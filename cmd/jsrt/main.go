// jsrt is a minimal JavaScript runtime: it evaluates an entry module's
// import graph, calls its exported main and settles the asynchronous work
// that produces.
package main

import (
	"go.jsrt.io/jsrt/internal/cmd"
)

func main() {
	cmd.Execute()
}
