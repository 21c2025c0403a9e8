// Package notification provides a small notifier abstraction over outbound
// email. The NotificationManager pairs notice types with templates and
// dispatches them through a registered Notifier; pkg/notice wires the
// registration gateway's templates in. A MockNotifier records sends for
// tests.
package notification
