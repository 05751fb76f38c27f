// Command ridetally tracks rides against a weekly driver incentive.
package main

import (
	_ "time/tzdata" // zone database for [tracker] timezone on devices without one

	"github.com/ridetally/ridetally/internal/cli"
)

func main() {
	cli.Execute()
}
