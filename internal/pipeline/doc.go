// Package pipeline runs the six oracle stages of an audit. Stages 1 to 4
// look at one page at a time: spelling and extraction, legal compliance or
// content coherence, then links. Stages 5 and 6 look at the whole site: meta
// SEO, then the go / no-go synthesis. Every oracle answer is decoded into a
// typed schema and replaced by that stage's fallback when it does not fit.
package pipeline
