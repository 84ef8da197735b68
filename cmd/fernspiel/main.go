// Package main is the fernspiel command: it runs a phonebook and has
// tools to check, draw and remote-control one.
package main

func main() {
	Execute()
}
