package e2e

// e2e contains integration tests and utility code required to set up
// dependencies. Each test writes a config file, parses it the way the CLI
// does, and sends through an in-process SMTP server. (These were intended to
// be end-to-end tests but became integration tests instead, hence the name.)
