// Package security decides whether an intercepted command may run.
//
// The controller sits between the wrapper front end and the real program:
//
//   - Protected-path resolution (canonical and lexical forms, symlinks)
//   - Bypass tokens and global acknowledgement flags
//   - The pure decision from matched rule to ALLOW, WARN or BLOCK
//   - Static analysis of whole shell lines
//
// Guarantees only hold for commands invoked through the wrappers. The real
// binary, "command rm" or a shell builtin bypass them.
package security
