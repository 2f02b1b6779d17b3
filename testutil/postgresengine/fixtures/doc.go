// Package fixtures holds the backing-store schema used by fakersql integration tests.
//
// The schema installs a locales table and deterministic versions of the three procedures
// the service calls: get_available_locales, generate_fake_users and benchmark_generation.
// Generated values are derived from md5(seed, record index), so the same arguments always
// produce the same rows.
package fixtures
