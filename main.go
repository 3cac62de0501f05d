// SPDX-License-Identifier: MPL-2.0

// Command devlayer builds and runs layered Docker development environments.
package main

import cmd "github.com/devlayer/devlayer/cmd/devlayer"

func main() {
	cmd.Execute()
}
