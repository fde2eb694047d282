// Package notifier delivers alarm onsets to the downstream sink over HTTP or MQTT.
package notifier
