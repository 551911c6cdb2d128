package main

import (
	"InterviewConv/cmd"
)

func main() {
	cmd.Execute()
}
