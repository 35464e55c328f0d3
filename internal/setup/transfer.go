package setup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/vmprov/internal/config"
	"github.com/rileyhilliard/vmprov/internal/errors"
	"github.com/rileyhilliard/vmprov/internal/logger"
	"github.com/rileyhilliard/vmprov/internal/util"
	"github.com/rileyhilliard/vmprov/pkg/sshutil"
)

// UploadMode is the mode scp creates the file with, before chmod +x.
const UploadMode = "0644"

// Transferrer pushes a script to a remote host and marks it executable.
type Transferrer struct {
	Dial   sshutil.DialFunc // nil means sshutil.Dialer with default options
	Logger logger.Logger    // nil means logger.Default()
}

// RemoteDestination joins the remote directory and file name. A remotePath
// that is empty or ends in "/" is a directory and filename is appended;
// anything else is taken as the full destination path.
//
// A leading "~/" is dropped. scp never expands it, while relative paths
// resolve against the login directory for both scp -t and exec commands,
// so the copy and the chmod name the same file.
func RemoteDestination(remotePath, filename string) string {
	if remotePath == "~" {
		remotePath = ""
	}
	remotePath = strings.TrimPrefix(remotePath, "~/")
	if remotePath == "" {
		return filename
	}
	if strings.HasSuffix(remotePath, "/") {
		return remotePath + filename
	}
	return remotePath
}

// Transfer copies localPath to the remote host over scp, authenticating
// with the private key at privPath only, then runs chmod +x on the copy.
// filename defaults to the base name of localPath. chmod is only issued
// once the copy has completed; a partial copy is left where it is.
func (t Transferrer) Transfer(ctx context.Context, target sshutil.Target, privPath, localPath, remotePath, filename string) error {
	log := logger.OrDefault(t.Logger)

	if filename == "" {
		filename = filepath.Base(localPath)
	}
	dest := RemoteDestination(remotePath, filename)

	f, err := os.Open(config.ExpandTilde(localPath))
	if err != nil {
		err = errors.WrapWithCode(err, errors.ErrTransfer,
			fmt.Sprintf("Couldn't open %s", localPath),
			"Check the local path").
			WithReason(errors.ReasonOther)
		log.Error("Transfer to %s failed: %v", target.Host, err)
		return err
	}
	defer f.Close()

	dial := t.Dial
	if dial == nil {
		dial = sshutil.Dialer(sshutil.DialOptions{})
	}

	client, err := dial(ctx, target, sshutil.Credentials{KeyPath: privPath})
	if err != nil {
		log.Error("Transfer to %s failed: %v", target.Host, err)
		return err
	}
	defer client.Close()

	if err := client.Upload(ctx, f, dest, UploadMode); err != nil {
		log.Error("Copying %s to %s:%s failed: %v", localPath, target.Host, dest, err)
		return err
	}
	log.Info("Copied %s to %s:%s", localPath, target.Host, dest)

	if err := sshutil.Run(client, util.ShellCommand("chmod", "+x", dest)); err != nil {
		log.Error("Marking %s:%s executable failed: %v", target.Host, dest, err)
		return err
	}

	log.Info("%s:%s is ready to run", target.Host, dest)
	return nil
}
