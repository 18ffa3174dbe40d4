package main

import (
	"fmt"

	berthcmd "github.com/berth-ci/berth-cmd"
)

func main() {
	version, err := berthcmd.GetVersion()
	if err != nil {
		fmt.Println("Failed to load version:", err)
	}
	execute(version)
}
