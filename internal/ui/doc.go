// Package ui renders vmprov's terminal output using Lip Gloss.
//
// Each provisioning step is shown with a Spinner that animates on a
// terminal and collapses to a single status line when the step finishes:
//
//	s := ui.NewSpinner("Checking dev-vm is reachable")
//	s.Start()
//	// ... do work ...
//	s.Success() // or s.FailWith(reason) or s.SkipWith(reason)
//
// When stdout is not a terminal only the final line is printed.
//
// PickHost shows a Bubble Tea list of known VMs for commands run without a
// host argument. RenderDoctorTable and RenderHostStatusTable format check
// results. SetColorMode applies --color and NO_COLOR.
package ui
