// Command mapfexec drives agents over a graph with a decentralized
// execution planner.
package main

func main() {
	Execute()
}
