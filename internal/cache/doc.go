// Package cache provides a fixed-capacity in-memory LRU cache and a
// storage-backed wrapper around it.
//
// BoundedCache evicts least-recently-used entries once capacity is
// reached. PersistentCache mirrors every mutation to durable host storage
// (one key per item plus one metadata key holding the ordered key list and
// capacity) and lazily hydrates itself from storage on first access, so
// cached state survives the host process being evicted and restarted.
package cache
