package e2e

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ptgott/litemail/smtptest"
	"github.com/ptgott/litemail/userconfig"
)

// testEnvironmentConfig exposes options that should be available and
// perhaps changeable when spinning up a test environment. While they
// may not vary between tests, they shouldn't be buried inside
// functions.
type testEnvironmentConfig struct {
	// Credentials the SMTP server requires. Blank for none.
	username string
	password string
	// Record sends in a journal
	journal bool
}

// testEnvironment manages all dependencies required to simulate a "real"
// environment and run the e2e tests. Callers should create this via
// startTestEnvironment.
type testEnvironment struct {
	SMTPServer  *smtptest.InProcessServer
	tempDirPath string
	configPath  string
	storageDir  string
}

// startTestEnvironment spins up an in-process SMTP server and a temporary
// directory for config and journal files. Everything is torn down when the
// test ends.
func startTestEnvironment(t *testing.T, c testEnvironmentConfig) (*testEnvironment, error) {
	te := &testEnvironment{
		tempDirPath: t.TempDir(),
	}
	te.configPath = filepath.Join(te.tempDirPath, "config.yaml")
	if c.journal {
		te.storageDir = filepath.Join(te.tempDirPath, "journal")
	}

	ts, err := smtptest.NewInProcessServer(c.username, c.password)
	if err != nil {
		return nil, fmt.Errorf("could not start the SMTP server: %v", err)
	}
	te.SMTPServer = ts
	go ts.Start()
	t.Cleanup(te.tearDown)

	return te, nil
}

// writeConfig writes a config file pointing at the environment's SMTP server
// and journal, then loads it
func (te *testEnvironment) writeConfig(opts appConfigOptions) (userconfig.Meta, error) {
	if opts.SMTPServerAddress == "" {
		opts.SMTPServerAddress = te.SMTPServer.Address()
	}
	opts.StorageDir = te.storageDir
	if err := createAppConfig(te.configPath, opts); err != nil {
		return userconfig.Meta{}, err
	}
	return loadAppConfig(te.configPath)
}

// writeFile creates a file in the environment's temporary directory
func (te *testEnvironment) writeFile(name, content string) (string, error) {
	p := filepath.Join(te.tempDirPath, name)
	return p, os.WriteFile(p, []byte(content), 0o600)
}

// tearDown returns the testEnvironment to its state prior to start
func (te *testEnvironment) tearDown() {
	if te.SMTPServer != nil {
		te.SMTPServer.Close()
	}
}
