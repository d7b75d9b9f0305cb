// Command smartqa audits small-business websites before delivery.
package main

import "github.com/TheoCtla/SmartQA/cmd"

func main() {
	cmd.Execute()
}
