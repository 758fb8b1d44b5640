// Command healthshare publishes the health of a node into a NATS-backed
// cluster and reports the health of every live node.
package main

import "github.com/ozanturksever/go-healthshare/cmd/healthshare/cmd"

func main() {
	cmd.Execute()
}
