// Command a3p answers dashboard questions from the command line, reading
// the same source and snapshot store as a3p-server.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
