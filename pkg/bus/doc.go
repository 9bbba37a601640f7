// Package bus models the signal lines of the CPU debug bus.
package bus

// The CPU-under-test is the only driver of the bus. It toggles CLK and
// presents one data bit on CODI per clock, MSB first, while holding CS low.
// CD is an auxiliary line sampled once per byte and marks frame boundaries.
// CIDO is reserved and never read by the receiver.
//
// Producer: CPU-under-test
// Consumer: debug receiver (this module), which never drives any line.
