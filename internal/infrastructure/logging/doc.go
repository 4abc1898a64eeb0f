// Package logging provides structured logging using uber/zap.
//
// Two modes are offered: production (JSON output for machine parsing) and
// development (colored console output). Managers receive a *Logger and
// attach structured fields; the engine never logs through the standard
// library.
package logging
