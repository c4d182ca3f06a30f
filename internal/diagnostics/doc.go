// Package diagnostics inspects the machine and the installation that
// adsmith runs on.
//
// Three pieces:
//
//   - Collector: samples CPU, memory, disk and load together with
//     process-level stats (goroutines, heap, uptime). Backs the
//     /api/system endpoint of the serve command.
//
//   - ProbeHardware: one-shot hardware inventory (CPU model, physical
//     memory, block devices) shown by the doctor command.
//
//   - Doctor: configuration and environment checks (config validity,
//     storage directory writable, agent service reachable, disk
//     headroom) rendered by the doctor command.
package diagnostics
