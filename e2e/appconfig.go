package e2e

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"github.com/ptgott/litemail/userconfig"
)

// appConfigOptions is used to fill in a config template with details unique to
// a specific test environment. Keep this as small as possible so the input
// remains as close to a "real" YAML document as we can make it. Also using
// YAML/JSON-compatible types only here.
//
// Fields are exported so we can use them in templates.
type appConfigOptions struct {
	SMTPServerAddress string
	From              string
	Password          string
	ContentType       string
	BackupToSelf      bool
	// Leave blank to omit the journal section
	StorageDir string
}

// createAppConfig writes a configuration YAML doc to the given path.
func createAppConfig(path string, opts appConfigOptions) error {
	configTemplate := `---
email:
    server: {{ .SMTPServerAddress }}
    from: "{{ .From }}"
{{- if .Password }}
    password: {{ .Password }}
{{- end }}
{{- if .ContentType }}
    contentType: {{ .ContentType }}
{{- end }}
    backupToSelf: {{ .BackupToSelf }}
    readTimeout: 5s
    dialTimeout: 5s
{{- if .StorageDir }}
journal:
    storageDir: {{ .StorageDir }}
    keyTTL: "1h"
{{- end }}
`

	tmpl, err := template.New("conf").Parse(configTemplate)

	// This means the config template string was written incorrectly. Not
	// an issue with the application itself.
	if err != nil {
		return fmt.Errorf("couldn't parse the application config template: %v", err)
	}

	var config bytes.Buffer

	err = tmpl.Execute(&config, opts)

	// This is an issue with the test environment, not the application
	if err != nil {
		return fmt.Errorf("couldn't populate the application config template: %v", err)
	}

	err = os.WriteFile(path, config.Bytes(), 0o600)
	if err != nil {
		return fmt.Errorf("couldn't write the config file: %v", err)
	}

	return nil

}

// loadAppConfig reads the config at path the way the CLI does
func loadAppConfig(path string) (userconfig.Meta, error) {
	f, err := os.Open(path)
	if err != nil {
		return userconfig.Meta{}, err
	}
	defer f.Close()

	m, err := userconfig.Parse(f)
	if err != nil {
		return userconfig.Meta{}, err
	}
	return m.CheckAndSetDefaults()
}
