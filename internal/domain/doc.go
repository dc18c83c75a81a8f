// Package domain models per-entity case-count observations and the trend
// models fitted to them.
//
// # Data Source
//
// Observations describe cumulative case counts for an entity (a country or
// region identified by a stable string key) on a calendar date. They arrive
// either from the Kafka source topic, one JSON object per message, or from a
// covid19api-style HTTP provider that returns a day-one series per country.
//
// # Conventions
//
// Dates:
//
//	Timestamps are calendar dates. Ingestion accepts "2006-01-02" or RFC 3339
//	and normalises to midnight UTC, so two observations on the same day always
//	compare equal regardless of the source time zone.
//
// Counts:
//
//	Confirmed, deaths and recovered are non-negative cumulative totals.
//	Monotonicity is not enforced: providers publish corrections that lower
//	a previous day's figure.
//
// Offsets:
//
//	The only model feature is the whole number of days between an
//	observation and the entity's first observation. See [Derive].
//
// # Errors
//
// Failures are reported with the sentinels in errors.go and wrapped with
// context using %w. Callers classify them with errors.Is.
package domain
