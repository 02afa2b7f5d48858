// Package commands implements the reversible administrative operations of
// the console.
//
// Every command compensates by issuing remote calls: an undo of a creation
// deletes what was created, an undo of a replacement restores the snapshot
// captured before the first execution. Each successful Execute, Undo or
// Redo reports its effect exactly once through the command's SyncFunc, so
// caches such as Mirror stay consistent without the history knowing about
// them.
package commands
