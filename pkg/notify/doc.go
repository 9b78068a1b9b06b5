// Package notify dispatches reminder and deletion notices to requesters.
//
// EmailNotifier renders an HTML notice and hands it to a Sender; SMTPSender
// delivers it with implicit TLS, STARTTLS or in the clear depending on the
// email configuration. LogNotifier only logs the notices and is used when
// email is disabled.
package notify
