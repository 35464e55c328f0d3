// Package setup provisions SSH access to a VM: it makes sure a local key
// pair exists, installs the public half on the VM, and pushes scripts there.
//
// # Key Generation
//
// Provisioner.Ensure creates a 2048-bit RSA key pair with an empty
// passphrase, unless something already exists at the path:
//
//	p := setup.Provisioner{Generator: setup.SSHKeygen{}}
//	err := p.Ensure(ctx, "~/.ssh/vmprov_rsa")
//
// SSHKeygen shells out to ssh-keygen. NativeKeygen produces the same kind of
// key in-process. MustEnsure is the fatal variant used by the CLI: without a
// key pair nothing else can work, so a failure exits the process.
//
// # Key Installation
//
// Installer.Install appends the public key to ~/.ssh/authorized_keys on the
// VM. It logs in with the private key first; if the VM rejects it, the user
// is asked for a password and the append is retried over a password session.
// Nothing else triggers the fallback. Appends are not deduplicated.
//
// # Script Transfer
//
// Transferrer.Transfer copies one file over scp using key auth only, then
// runs chmod +x on it. A failed copy is never followed by chmod.
//
// # Security Notes
//
// Host keys are trusted on first sight unless strict checking is enabled in
// the config. The public key is parsed before it is embedded in a remote
// command and is single-quoted there. Private key contents are never logged.
package setup
