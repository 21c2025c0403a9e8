// Package authbroker obtains system bearer tokens from the authentication
// service over an AMQP request/reply channel. Each request publishes to the
// authorization queue with a correlation id and an exclusive reply queue;
// the response body is the bearer token string.
package authbroker
