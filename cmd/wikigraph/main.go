// Command wikigraph serves and queries a DokuWiki corpus as a graph of
// pages and tags.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "wikigraph:", err)
		os.Exit(1)
	}
}
