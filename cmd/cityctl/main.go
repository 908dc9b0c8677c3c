// Command cityctl runs maintenance tasks against the Ocean Depths store.
package main

import "os"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
