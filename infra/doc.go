// Package infra groups the adapters behind the core interfaces: SQL storage,
// the MQTT notification publisher, metrics sinks, Sentry monitoring and the
// zerolog logger.
package infra
