package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/ptgott/litemail/compose"
	"github.com/ptgott/litemail/dispatch"
	"github.com/ptgott/litemail/storage"
	"github.com/ptgott/litemail/userconfig"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	yaml "gopkg.in/yaml.v2"
)

// listFlag collects every use of a repeatable flag
type listFlag []string

func (l *listFlag) String() string {
	return strings.Join(*l, ",")
}

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func main() {
	// Log with filename and line number. This writes to stderr, so it should
	// be thread safe.
	// https://github.com/rs/zerolog/blob/7ccd4c940bf8a02fcc5f10e5475f9d3daff04d57/log/log.go#L13
	log.Logger = log.With().Caller().Logger()

	// Intercept interrupts so we can get more visibility into them.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func(c chan os.Signal) {
		<-sigCh
		log.Info().Msg("interrupt: exiting")
		os.Exit(1)
	}(sigCh)

	var to, cc, bcc, rcpt, attach listFlag

	configPath := flag.String(
		"config",
		"./config.yaml",
		"path to a JSON or YAML file containing your configuration",
	)
	subject := flag.String(
		"subject",
		"",
		"subject of the message",
	)
	bodyPath := flag.String(
		"body",
		"-",
		`path to a file containing the message text, or "-" for stdin`,
	)
	flag.Var(&to, "to", "recipient address (repeatable)")
	flag.Var(&cc, "cc", "carbon copy address (repeatable)")
	flag.Var(&bcc, "bcc", "blind carbon copy address (repeatable)")
	flag.Var(&rcpt, "rcpt", `recipient as "kind:address", kind being to, cc or bcc (repeatable)`)
	flag.Var(&attach, "attach", `file to attach as "path" or "name:path" (repeatable)`)
	stop := flag.Bool(
		"strict",
		false,
		"don't send anything if an attachment is missing",
	)
	history := flag.Bool(
		"history",
		false,
		"print the journal of past sends and exit",
	)
	level := flag.String(
		"level",
		"info",
		`log level: "info", "debug", or "warn"`,
	)
	flag.Parse()

	switch *level {
	case "debug":
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	case "warn":
		log.Logger = log.Logger.Level(zerolog.WarnLevel)
	default:
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	f, err := os.Open(*configPath)

	if err != nil {
		log.Error().
			Str("config-path", *configPath).
			Err(err).
			Msg("We can't open the application config file")
		os.Exit(1)
	}

	config, err := userconfig.Parse(f)
	f.Close()

	if err != nil {
		log.Error().
			Err(err).
			Msg("Problem parsing your config")
		os.Exit(1)
	}

	checkedConfig, err := config.CheckAndSetDefaults()
	if err != nil {
		log.Error().
			Err(err).
			Msg("Problem validating your config")
		os.Exit(1)
	}

	log.Debug().Str("configPath", *configPath).Msg("successfully validated the config")

	if *history {
		rs, err := dispatch.History(&checkedConfig)
		if err != nil {
			log.Error().Err(err).Msg("We can't read the journal")
			os.Exit(1)
		}
		if err := printHistory(rs, os.Stdout); err != nil {
			log.Error().Err(err).Msg("We can't print the journal")
			os.Exit(1)
		}
		return
	}

	text, err := readBody(*bodyPath, os.Stdin)
	if err != nil {
		log.Error().
			Str("body-path", *bodyPath).
			Err(err).
			Msg("We can't read the message text")
		os.Exit(1)
	}

	rto, rcc, rbcc := splitRecipients(rcpt)
	_, err = dispatch.Run(&dispatch.Config{
		Subject:                 *subject,
		Text:                    text,
		To:                      append(to, rto...),
		Cc:                      append(cc, rcc...),
		Bcc:                     append(bcc, rbcc...),
		Attachments:             attach,
		StopOnMissingAttachment: *stop,
	}, &checkedConfig)

	if err != nil {
		log.Error().Err(err).Msg("error sending the message")
		os.Exit(1)
	}
}

// splitRecipients sorts "kind:address" values into to, cc and blind-copy
// lists. A value without a kind, or with one compose doesn't know, is a "to"
// address.
func splitRecipients(specs []string) (to, cc, bcc []string) {
	for _, s := range specs {
		k, addr, ok := strings.Cut(s, ":")
		if !ok {
			to = append(to, s)
			continue
		}
		switch compose.ParseRecipientKind(k) {
		case compose.Cc:
			cc = append(cc, addr)
		case compose.Bc:
			bcc = append(bcc, addr)
		default:
			to = append(to, addr)
		}
	}
	return to, cc, bcc
}

// readBody returns the contents of the file at path, or of stdin if path is
// "-"
func readBody(path string, stdin io.Reader) (string, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// printHistory writes journal records to w as YAML
func printHistory(rs []storage.Record, w io.Writer) error {
	if len(rs) == 0 {
		log.Info().Msg("the journal is empty")
		return nil
	}
	b, err := yaml.Marshal(rs)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, string(b))
	return err
}
