/*
Package prga models FPGA architectures and elaborates them into a complete
physical circuit.

An architecture is built inside a Context: segment prototypes, globals,
primitives, slices, logic and IO blocks, and a top Array placing blocks in a
grid of tiles. Every module, port and instance exists in a logical view (what
a placer and router see) and a physical view (what ends up in the netlist).
Connections inside a module are recorded as logical fan-in sets; the
finalization pass turns them into physical drivers, inserting configurable
muxes where a sink has several sources.

The elaboration passes live in package passes and are sequenced by package
flow:

	ctx := prga.NewContext()
	// ... describe the architecture
	f, _ := flow.New(
		&passes.RoutingCompletion{FcIn: 0.25, FcOut: 0.5},
		passes.Finalization{},
		passes.Bitchain{},
	)
	if err := f.Run(ctx); err != nil {
		// ...
	}

Errors wrap one of the Err* kinds and can be tested with errors.Is.
*/
package prga
