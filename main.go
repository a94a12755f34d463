// sarex - execution view models from connector instances.
//
// sarex folds observed connector instances into a model of components and
// the connectors between them, and renders it as json, dot or png.
package main

import (
	"fmt"
	"os"

	"github.com/sarex-dev/sarex-go/cmd"
)

func main() {
	cli := cmd.NewCLI()

	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
