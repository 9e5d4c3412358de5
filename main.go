// SPDX-License-Identifier: MPL-2.0

package main

import cmd "layerforge/cmd/layerforge"

func main() {
	cmd.Execute()
}
