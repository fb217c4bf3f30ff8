package main

import "github.com/warekit/punchd/cmd"

func main() {
	cmd.Execute()
}
