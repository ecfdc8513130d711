/*

Process of execution

Program Text ->
	parse ->
Intermediate Representation (ir) ->
	partial evaluate (optional) ->
Residual IR + compile-time output ->
	optimize (optional) ->
Specialized IR ->
	interpret / emit LLVM IR / emit ARM64 assembly

*/
package compiler
