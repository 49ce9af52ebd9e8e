package email

// email is responsible for sending a message through an SMTP relay: it reads
// the user's email settings, opens the connection, logs in, and drives the
// envelope and DATA exchange for a draft built with the compose package. It
// is not designed to represent the user-facing content of an email, and
// includes this content in email bodies regardless of what it contains.
