package dispatch

import (
	"errors"
	"fmt"

	"github.com/ptgott/litemail/compose"
	"github.com/ptgott/litemail/email"
	"github.com/ptgott/litemail/storage"
	"github.com/ptgott/litemail/userconfig"
	"github.com/rs/zerolog/log"
)

// Config describes a single message to send
type Config struct {
	Subject string
	Text    string
	To      []string
	Cc      []string
	Bcc     []string
	// "path" or "name:path"
	Attachments []string
	// Stop before connecting if an attachment is missing, even if the user
	// config doesn't ask for it
	StopOnMissingAttachment bool
}

// Run sends the message described by c using the validated config and, if the
// journal is enabled, records the outcome. It returns the record (stored or
// not) and an error if the message was not sent. Journal problems are logged
// rather than returned, since the send itself is over by then.
func Run(c *Config, config *userconfig.Meta) (storage.Record, error) {
	db, err := storage.Open(config.Journal)
	if err != nil {
		return storage.Record{}, err
	}
	// Close the connection here so BadgerDB can flush to disk.
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("error closing the journal")
		}
	}()

	client := email.New(config.EmailSettings)
	defer client.Close()

	client.AddRecipients(compose.To, c.To...)
	client.AddRecipients(compose.Cc, c.Cc...)
	client.AddRecipients(compose.Bc, c.Bcc...)
	if err := client.AddAttachments(c.StopOnMissingAttachment, c.Attachments...); err != nil {
		return storage.Record{}, err
	}

	log.Info().
		Str("from", client.Sender().String()).
		Str("subject", c.Subject).
		Int("attachments", len(client.Attachments())).
		Msg("sending the message")
	ok := client.Send(c.Subject, c.Text, "")

	if config.EmailSettings.Debug {
		for _, l := range client.Log() {
			log.Info().Str("trace", l).Msg("smtp")
		}
	}

	r := storage.Record{
		Subject: c.Subject,
		From:    client.Sender().Address,
		To:      client.Recipients(compose.To),
		Cc:      client.Recipients(compose.Cc),
		Bcc:     client.Recipients(compose.Bc),
		OK:      ok,
		Errors:  client.Errors(),
	}

	if config.Journal.StorageDirPath != "" {
		r = record(storage.NewJournal(db), db, r)
	}

	if !ok {
		return r, fmt.Errorf("the message was not sent: %w", client.Err())
	}

	log.Info().
		Str("subject", c.Subject).
		Strs("to", r.To).
		Msg("sent the message")
	return r, nil
}

// record saves r in j and then cleans up expired records
func record(j *storage.Journal, db storage.KeyValue, r storage.Record) storage.Record {
	saved, err := j.Save(r)
	if err != nil {
		log.Error().Err(err).Msg("error recording the send in the journal")
		return r
	}
	log.Debug().Str("id", saved.ID.String()).Msg("recorded the send in the journal")

	// Get rid of old keys just before we close
	if err := db.Cleanup(); err != nil {
		log.Error().Err(err).Msg("error cleaning up the journal")
	}
	return saved
}

// History returns every unexpired journal record, oldest first
func History(config *userconfig.Meta) ([]storage.Record, error) {
	if config.Journal.StorageDirPath == "" {
		return nil, errors.New("the config has no journal section, so no sends were recorded")
	}

	db, err := storage.Open(config.Journal)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("error closing the journal")
		}
	}()

	return storage.NewJournal(db).List()
}
