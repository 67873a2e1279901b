package main

import "github.com/banksodee/clubsync/cmd/clubsync/cmd"

func main() {
	cmd.Execute()
}
