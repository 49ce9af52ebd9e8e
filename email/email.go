package email

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/docker/go-units"
)

const (
	defaultCharset           = "UTF-8"
	defaultDelimiter         = "\r\n"
	defaultContentType       = "html"
	defaultDialTimeout       = time.Duration(30) * time.Second
	defaultReadTimeout       = time.Duration(60) * time.Second
	defaultMaxAttachmentSize = 10 * units.MiB
)

// UserConfig represents config options provided by the user. Not meant to
// be used directly for sending email without CheckAndSetDefaults.
type UserConfig struct {
	// "host" or "host:port". The port defaults to 25.
	Server string
	// "Display Name:address@example.com" or a bare address
	From string
	// Enables AUTH LOGIN when not blank
	Password string
	// Record the conversation with the server
	Debug   bool
	Charset string
	// Line terminator for commands and headers
	Delimiter string
	// "text", "html" or "auto"
	ContentType string
	// Blind-copy every message to the sender
	BackupToSelf            bool
	DialTimeout             time.Duration
	ReadTimeout             time.Duration
	MaxAttachmentSize       int64
	StopOnMissingAttachment bool
}

// UnmarshalYAML implements the yaml.Unmarshaler interface. Validation is
// performed here.
func (uc *UserConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	v := make(map[string]string)
	err := unmarshal(&v)

	if err != nil {
		return fmt.Errorf("can't parse the email config: %v", err)
	}

	s, ok := v["server"]
	if !ok || s == "" {
		return errors.New("the email config must include a server address")
	}
	uc.Server = s

	f, ok := v["from"]
	if !ok || f == "" {
		return errors.New("the email config must include a \"from\" address")
	}
	uc.From = f

	uc.Password = v["password"]
	uc.Charset = v["charset"]

	for k, dst := range map[string]*bool{
		"debug":                   &uc.Debug,
		"backupToSelf":            &uc.BackupToSelf,
		"stopOnMissingAttachment": &uc.StopOnMissingAttachment,
	} {
		b, ok := v[k]
		if !ok {
			continue
		}
		pb, err := strconv.ParseBool(b)
		if err != nil {
			return fmt.Errorf("can't parse %v as true or false: %v", k, err)
		}
		*dst = pb
	}

	if d, ok := v["delimiter"]; ok {
		switch d {
		case "crlf":
			uc.Delimiter = "\r\n"
		case "lf":
			uc.Delimiter = "\n"
		default:
			return fmt.Errorf("the delimiter must be \"crlf\" or \"lf\", not %q", d)
		}
	}

	if ct, ok := v["contentType"]; ok {
		switch ct {
		case "text", "html", "auto":
			uc.ContentType = ct
		default:
			return fmt.Errorf("the content type must be \"text\", \"html\" or \"auto\", not %q", ct)
		}
	}

	for k, dst := range map[string]*time.Duration{
		"dialTimeout": &uc.DialTimeout,
		"readTimeout": &uc.ReadTimeout,
	} {
		d, ok := v[k]
		if !ok {
			continue
		}
		pd, err := time.ParseDuration(d)
		if err != nil {
			return fmt.Errorf("can't parse %v as a duration: %v", k, err)
		}
		*dst = pd
	}

	if m, ok := v["maxAttachmentSize"]; ok {
		sz, err := units.RAMInBytes(m)
		if err != nil {
			return fmt.Errorf("can't parse the maximum attachment size: %v", err)
		}
		uc.MaxAttachmentSize = sz
	}

	return nil
}

// CheckAndSetDefaults validates uc and either returns a copy of uc with
// default settings applied or returns an error due to an invalid
// configuration
func (uc *UserConfig) CheckAndSetDefaults() (UserConfig, error) {
	if uc.Server == "" {
		return UserConfig{}, errors.New("must supply an SMTP server address")
	}
	if uc.From == "" {
		return UserConfig{}, errors.New("must supply a \"from\" address")
	}
	if uc.DialTimeout < 0 || uc.ReadTimeout < 0 {
		return UserConfig{}, errors.New("timeouts can't be negative")
	}
	if uc.MaxAttachmentSize < 0 {
		return UserConfig{}, errors.New("the maximum attachment size can't be negative")
	}
	return uc.withDefaults(), nil
}

// withDefaults fills in every blank setting that has a default
func (uc UserConfig) withDefaults() UserConfig {
	if uc.Charset == "" {
		uc.Charset = defaultCharset
	}
	if uc.Delimiter == "" {
		uc.Delimiter = defaultDelimiter
	}
	if uc.ContentType == "" {
		uc.ContentType = defaultContentType
	}
	if uc.DialTimeout == 0 {
		uc.DialTimeout = defaultDialTimeout
	}
	if uc.ReadTimeout == 0 {
		uc.ReadTimeout = defaultReadTimeout
	}
	if uc.MaxAttachmentSize == 0 {
		uc.MaxAttachmentSize = defaultMaxAttachmentSize
	}
	return uc
}
