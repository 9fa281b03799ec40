// Package dataset implements the worker-side data pipeline: a resumable
// record iterator over a sequence of file blocks, and the WorkQueue used
// to hand block names out to worker threads.
//
// Grounded on
// _examples/original_source/efls-train/cc/efl/data/federal_dataset_ops.cc
// (Iterator), work_queue.cc (WorkQueue), and iterator_ops.cc (the
// serialized-state introspection helpers).
package dataset
