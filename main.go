package main

import "github.com/user/storycut/cmd"

func main() {
	cmd.Execute()
}
