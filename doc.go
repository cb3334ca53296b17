/*
Package ticksim provides a discrete-time digital circuit simulator.

Parts (logic gates, adders, flip-flops, memories, etc.) are mounted as
components on one or more boards of a Machine and wired pin to pin. Once the
wiring is frozen with Machine.Init, every call to Machine.Tick runs a single
simulation step: delayed events and fault windows are processed, clock domains
toggle, then components are evaluated in dependency order until their outputs
settle, an oscillation is detected or the iteration bound is reached.

A simple inverter feeding a probe:

	m := ticksim.NewMachine(ticksim.DefaultConfig())
	b := m.AddBoard("main")
	sw := b.Add("sw", hwlib.Switch)
	not := b.Add("not", hwlib.Not)
	p := b.Add("p", hwlib.Probe)
	b.Connect("sw.out", "not.in")
	b.Connect("not.out", "p.in")
	if err := m.Init(); err != nil {
		// handle wiring errors
	}
	hwlib.AsSwitch(sw).Set(true)
	m.Tick()
	fmt.Println(hwlib.AsProbe(p).Bool()) // false

Devices implement the Device interface. They only talk to the kernel through
the *Component handle and the Port they are given, which lets the kernel trace
values, check setup and hold times and inject faults transparently.

Signals can be traced and exported as VCD, tab separated values, WAV files
or plots. The fault injector supports stuck-at, open, short, noise and delay
faults on any pin.

Machines can also be described in YAML netlist files, loaded by package
netlist and run with the ticksim command.
*/
package ticksim
