package main

import "github.com/audiolibrelab/jamscope/cmd"

func main() {
	cmd.Execute()
}
