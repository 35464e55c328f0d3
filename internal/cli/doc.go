// Package cli implements the vmprov command-line interface.
//
// Each provisioning step is its own command, and provision chains them:
//
//	vmprov keygen                         - Make sure the local key pair exists
//	vmprov ping <host>                    - One-packet reachability check
//	vmprov copy-key [host]                - Install the public key on the VM
//	vmprov push <host> <script> [remote]  - Copy a script over and chmod +x it
//	vmprov provision <host> <script> [remote]
//	vmprov init | host add|list|remove | doctor
//
// Every command that talks to a VM pings it first and stops if it doesn't
// answer. Commands build their dependencies through newApp, which tests
// replace to inject fake dialers, pingers, and prompters.
package cli
