// Package cache is the single-instance engine of the cache simulator: the
// object record, the object index, intrusive list bookkeeping and the
// contract every eviction policy implements.
//
// Design
//
//   - Records: an Object is allocated by the Store when a request is admitted
//     and never moves. Policies link records into intrusive Lists and may
//     attach one Meta variant (frequency, heap handle) at creation.
//
//   - Store: a chained hash table keyed by xxhash of the object id. It
//     doubles when the average chain exceeds two records and never shrinks.
//     Deleting a record that is still linked in a List panics, which keeps
//     the "unlink first, then delete" protocol honest.
//
//   - Accounting: Base tracks occupied bytes (object size plus a fixed
//     per-object overhead), the object count and the request count. Policies
//     embed Base and use Admit/Drop/Attach to keep the books.
//
//   - Requests: Get implements the shared request path (check, admit,
//     evict until the object fits). Each policy's Get delegates to it.
//
//   - Composition: composite policies (ARC, segmented FIFO/LRU, 2Q) are built
//     from plain policies and move records between them with Attach/Drop, so
//     a record changes owner without being copied.
//
//   - Parameters: policies accept a "key=value;key=value" string parsed by
//     ParseParams and reject keys they do not document.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Evict/Size signals from Get.
//     By default NoopMetrics is used; metrics/prom exports them.
//
// Basic usage
//
//	c, err := policy.New("lru", cache.Options{Capacity: 64 << 20})
//	if err != nil {
//		return err
//	}
//	hit := c.Get(&cache.Request{ID: 42, Size: 4096})
//
// # Concurrency
//
// An instance is driven by one goroutine. Run independent instances in
// parallel for size sweeps; they share no state.
//
// # Debugging
//
// Building with the cachesim_debug tag enables internal assertions on the
// store and accounting paths.
package cache
