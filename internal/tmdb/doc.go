// Package tmdb exposes the four TMDB endpoints the harvester uses: discover,
// movie details, movie credits and movie search.
//
// Requests go through an httpclient.Client, so every call inherits its retry,
// timeout and pooling behavior. Every request carries the API key and the
// configured language. Optional numeric fields decode into pointers so an
// absent upstream value stays distinguishable from zero.
package tmdb
