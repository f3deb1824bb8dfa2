// Package station is a client for a curated-station API exposing a metadata
// resource and a "next track" resource per station:
//   - GET <endpoint>/<id> returns the station name, description and cover
//   - GET <endpoint>/<id>/next returns the next song and its listen URL, or a
//     non-200 answer whose message says whether the station is exhausted
//
// Next never retries. Its answers are classified into an Outcome so callers
// can drive a state machine off of them.
package station
