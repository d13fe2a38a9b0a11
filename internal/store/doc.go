// Package store provides SQLite-backed persistence of resolved scene builds.
//
// A build is written once and never updated:
//   - builds: one row per resolution, with its content fingerprints
//   - models: the resolved models in emission order
//   - model_path: the instance path of every model, one row per step
//
// # Deterministic Reads
//
// Every query orders by an explicit key (builds by created_at then id,
// models by build creation, build id, then idx) so listings are stable
// across runs.
// Filters are always bound as parameters, never interpolated.
//
// # Layout
//
// A new file is created from schema.sql and stamped with user_version 1.
// Open refuses files stamped with a newer version or lacking the build
// tables.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
