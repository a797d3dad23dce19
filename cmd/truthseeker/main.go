package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle(os.Stderr).Render("Error: "+err.Error()))
		os.Exit(1)
	}
}
