// Package source abstracts where a trading day's market records come
// from.
//
// Two sources exist: bulk flat files and the grouped daily REST
// endpoint. Flat files are cheaper for whole-market pulls but lag the
// session close, so the Resolver tries sources in configured order and
// falls through on any failure. Only when every source comes up empty
// does a fetch fail, with a DataUnavailableError naming each cause.
package source
