// LearnerBot - conversational learning companion
package main

import (
	"os"

	"github.com/ashureev/learnerbot/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
