// Command prga elaborates FPGA architectures.
package main

import "github.com/PrincetonUniversity/prga-sub001/cmd/prga/cmd"

func main() {
	cmd.Execute()
}
