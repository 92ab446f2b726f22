// Copyright (c) 2026
// Author: momentics <momentics@gmail.com>

// Package ratelimit implements a timer-driven token-bucket admission
// controller whose accept decisions are delivered as task completions.
//
// Requests queue strictly FIFO: the head request must be fully paid before
// anything behind it is considered, even when a smaller request later in the
// queue could be granted immediately. That head-of-line policy trades
// throughput for deterministic fairness.
//
// Reader and Writer decorators charge after the fact: the inner I/O runs
// first and the bucket is debited with the byte count actually transferred.
package ratelimit
