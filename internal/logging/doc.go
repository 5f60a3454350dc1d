// Package logging builds the slog loggers used by the dotsnapshot CLI.
//
// Text output goes through [Handler], which colours levels on a terminal
// and renders "plugin" and "phase" attributes as a bracketed prefix:
//
//	2:30PM INFO  [npm_config] plugin completed successfully
//
// JSON output uses the standard library handler. [Config.Mirror] adds a
// JSON copy of every record, which backs the --log-file flag.
//
// Values that look like credentials are masked in every format, whether
// the attribute key names a secret (token, password, api_key) or the value
// carries a known token prefix or an inline assignment such as an npmrc
// _authToken line.
//
// Loggers travel through a context with [NewContext] and [FromContext].
// Tests use [ForTest], which writes through t.Log at trace level.
package logging
