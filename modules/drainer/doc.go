// Package drainer empties a station: it polls the next-track endpoint on a
// fixed interval, downloads each announced track and hands it to a
// Transcoder that writes the tagged copy under <dir>/<station>/.
//
// Download failures skip the track. Failures to poll, to fetch the station
// or to tag a track stop the run.
package drainer
