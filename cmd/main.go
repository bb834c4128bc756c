// Command scout serves market value predictions and maintains the annotated
// player dataset.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
